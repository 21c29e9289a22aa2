// Package main applies SQL migrations to the credvault database.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"credvault/internal/migrate"
)

func main() {
	var (
		dsn = flag.String("dsn", os.Getenv("DATABASE_URL"), "database connection string")
		dir = flag.String("migrations", "migrations", "path to migration files")
	)
	flag.Parse()

	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "database DSN is required (flag -dsn or DATABASE_URL)")
		os.Exit(1)
	}

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ping database: %v\n", err)
		os.Exit(1)
	}

	manager := migrate.NewManager(db, *dir)

	switch cmd {
	case "up":
		err = manager.Up(ctx)
	case "down":
		err = manager.Down(ctx)
	case "status":
		var applied []string
		applied, err = manager.Status(ctx)
		if err == nil {
			if len(applied) == 0 {
				fmt.Println("no migrations applied")
			}
			for _, name := range applied {
				fmt.Println(name)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want up, down or status)\n", cmd)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

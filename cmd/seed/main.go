// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"credvault/internal/core/id"
	"credvault/internal/core/security"
	"credvault/internal/infrastructure/storage/postgres"
	"credvault/pkg/logger"
)

// ouSeed describes one organisational unit and its divisions.
type ouSeed struct {
	name      string
	divisions []string
}

var directorySeed = []ouSeed{
	{"Engineering", []string{"Platform", "Backend", "Frontend"}},
	{"Operations", []string{"Infrastructure", "Support", "Security"}},
	{"Finance", []string{"Accounting", "Payroll", "Procurement"}},
	{"Sales", []string{"Domestic", "Export", "Partnerships"}},
}

type userSeed struct {
	username  string
	role      security.Role
	divisions []string // "OU/Division" paths
	ous       []string // direct OU links
}

var userSeeds = []userSeed{
	{"normaluser", security.RoleNormal, []string{"Engineering/Backend"}, nil},
	{"managementuser", security.RoleManagement, []string{"Engineering/Backend", "Engineering/Platform"}, []string{"Operations"}},
	{"adminuser", security.RoleAdmin, nil, nil},
}

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	divisionIDs, ouIDs, err := seedDirectory(ctx, pool, log)
	if err != nil {
		log.Fatalw("failed to seed directory", "error", err)
	}

	if err := seedUsers(ctx, pool, log, divisionIDs, ouIDs); err != nil {
		log.Fatalw("failed to seed users", "error", err)
	}

	log.Info("seeding completed successfully")
}

// seedDirectory creates the OUs and divisions, returning id lookups keyed
// by "OU" and "OU/Division".
func seedDirectory(ctx context.Context, pool *postgres.Pool, log *logger.Logger) (map[string]id.ID, map[string]id.ID, error) {
	divisionIDs := make(map[string]id.ID)
	ouIDs := make(map[string]id.ID)

	for _, seed := range directorySeed {
		ouID := id.New()
		tag, err := pool.Exec(ctx, `
			INSERT INTO organisational_units (id, name)
			VALUES ($1, $2)
			ON CONFLICT (name) DO NOTHING
		`, ouID, seed.name)
		if err != nil {
			return nil, nil, fmt.Errorf("insert ou %s: %w", seed.name, err)
		}
		if tag.RowsAffected() == 0 {
			err = pool.QueryRow(ctx,
				`SELECT id FROM organisational_units WHERE name = $1`,
				seed.name,
			).Scan(&ouID)
			if err != nil {
				return nil, nil, fmt.Errorf("fetch ou %s: %w", seed.name, err)
			}
		} else {
			log.Infow("ou created", "name", seed.name, "ou_id", ouID)
		}
		ouIDs[seed.name] = ouID

		for _, divName := range seed.divisions {
			divID := id.New()
			tag, err := pool.Exec(ctx, `
				INSERT INTO divisions (id, name, ou_id)
				VALUES ($1, $2, $3)
				ON CONFLICT (ou_id, name) DO NOTHING
			`, divID, divName, ouID)
			if err != nil {
				return nil, nil, fmt.Errorf("insert division %s: %w", divName, err)
			}
			if tag.RowsAffected() == 0 {
				err = pool.QueryRow(ctx,
					`SELECT id FROM divisions WHERE ou_id = $1 AND name = $2`,
					ouID, divName,
				).Scan(&divID)
				if err != nil {
					return nil, nil, fmt.Errorf("fetch division %s: %w", divName, err)
				}
			} else {
				log.Infow("division created", "name", divName, "ou", seed.name)
			}
			divisionIDs[seed.name+"/"+divName] = divID
		}
	}

	return divisionIDs, ouIDs, nil
}

// seedUsers creates the demo accounts and their memberships.
func seedUsers(ctx context.Context, pool *postgres.Pool, log *logger.Logger, divisionIDs, ouIDs map[string]id.ID) error {
	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "changeme1"
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	for _, seed := range userSeeds {
		var userID id.ID
		err := pool.QueryRow(ctx,
			`SELECT id FROM users WHERE username = $1 AND deleted = FALSE`,
			seed.username,
		).Scan(&userID)
		switch {
		case err == nil:
			log.Infow("user already exists", "username", seed.username, "user_id", userID)
		case errors.Is(err, pgx.ErrNoRows):
			userID = id.New()
			_, err = pool.Exec(ctx, `
				INSERT INTO users (id, username, password_hash, role)
				VALUES ($1, $2, $3, $4)
			`, userID, seed.username, string(passwordHash), string(seed.role))
			if err != nil {
				return fmt.Errorf("insert user %s: %w", seed.username, err)
			}
			log.Infow("user created", "username", seed.username, "role", seed.role)
		default:
			return fmt.Errorf("check user %s: %w", seed.username, err)
		}

		for _, path := range seed.divisions {
			divID, ok := divisionIDs[path]
			if !ok {
				return fmt.Errorf("unknown division path %s", path)
			}
			_, err = pool.Exec(ctx, `
				INSERT INTO user_divisions (user_id, division_id)
				VALUES ($1, $2)
				ON CONFLICT (user_id, division_id) DO NOTHING
			`, userID, divID)
			if err != nil {
				return fmt.Errorf("assign %s to %s: %w", seed.username, path, err)
			}
		}

		for _, ouName := range seed.ous {
			ouID, ok := ouIDs[ouName]
			if !ok {
				return fmt.Errorf("unknown ou %s", ouName)
			}
			_, err = pool.Exec(ctx, `
				INSERT INTO user_ous (user_id, ou_id)
				VALUES ($1, $2)
				ON CONFLICT (user_id, ou_id) DO NOTHING
			`, userID, ouID)
			if err != nil {
				return fmt.Errorf("assign %s to ou %s: %w", seed.username, ouName, err)
			}
		}
	}

	return nil
}

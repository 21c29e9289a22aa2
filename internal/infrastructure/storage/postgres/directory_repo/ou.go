// Package directory_repo provides PostgreSQL implementations for the
// OU and division catalogs.
package directory_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"credvault/internal/core/apperror"
	"credvault/internal/core/id"
	"credvault/internal/domain/directory/ou"
	"credvault/internal/infrastructure/storage/postgres"
)

// builder returns a squirrel builder with PostgreSQL placeholders.
func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

var ouColumns = []string{"id", "name", "created_at", "updated_at", "version"}

// OURepo implements ou.Repository.
type OURepo struct {
	txManager *postgres.TxManager
}

// NewOURepo creates a new OU repository.
func NewOURepo(txManager *postgres.TxManager) *OURepo {
	return &OURepo{txManager: txManager}
}

// Create inserts a new OU.
func (r *OURepo) Create(ctx context.Context, unit *ou.OrganisationalUnit) error {
	sql, args, err := builder().
		Insert("organisational_units").
		Columns(ouColumns...).
		Values(unit.ID, unit.Name, unit.CreatedAt, unit.UpdatedAt, unit.Version).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	_, err = r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewDuplicate("organisational unit", "name", unit.Name).WithCause(err)
		}
		return fmt.Errorf("insert ou: %w", err)
	}

	return nil
}

// GetByID retrieves an OU by id.
func (r *OURepo) GetByID(ctx context.Context, ouID id.ID) (*ou.OrganisationalUnit, error) {
	sql, args, err := builder().
		Select(ouColumns...).
		From("organisational_units").
		Where(squirrel.Eq{"id": ouID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var unit ou.OrganisationalUnit
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &unit, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("organisational unit", ouID.String())
		}
		return nil, fmt.Errorf("query ou: %w", err)
	}

	return &unit, nil
}

// GetByName retrieves an OU by name.
func (r *OURepo) GetByName(ctx context.Context, name string) (*ou.OrganisationalUnit, error) {
	sql, args, err := builder().
		Select(ouColumns...).
		From("organisational_units").
		Where(squirrel.Eq{"name": name}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var unit ou.OrganisationalUnit
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &unit, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("organisational unit", name)
		}
		return nil, fmt.Errorf("query ou: %w", err)
	}

	return &unit, nil
}

// List returns all OUs ordered by name.
func (r *OURepo) List(ctx context.Context) ([]ou.OrganisationalUnit, error) {
	sql, args, err := builder().
		Select(ouColumns...).
		From("organisational_units").
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var units []ou.OrganisationalUnit
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &units, sql, args...); err != nil {
		return nil, fmt.Errorf("query ous: %w", err)
	}

	return units, nil
}

// ListByIDs returns the OUs with the given ids.
func (r *OURepo) ListByIDs(ctx context.Context, ouIDs []id.ID) ([]ou.OrganisationalUnit, error) {
	if len(ouIDs) == 0 {
		return []ou.OrganisationalUnit{}, nil
	}

	sql, args, err := builder().
		Select(ouColumns...).
		From("organisational_units").
		Where(squirrel.Eq{"id": ouIDs}).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var units []ou.OrganisationalUnit
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &units, sql, args...); err != nil {
		return nil, fmt.Errorf("query ous: %w", err)
	}

	return units, nil
}

// Exists checks whether an OU exists.
func (r *OURepo) Exists(ctx context.Context, ouID id.ID) (bool, error) {
	q := r.txManager.GetQuerier(ctx)

	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM organisational_units WHERE id = $1)`, ouID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check exists: %w", err)
	}

	return exists, nil
}

// Delete removes an OU.
func (r *OURepo) Delete(ctx context.Context, ouID id.ID) error {
	sql, args, err := builder().
		Delete("organisational_units").
		Where(squirrel.Eq{"id": ouID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperror.NewConflict("organisational unit is still referenced").
				WithDetail("ou_id", ouID.String()).
				WithCause(err)
		}
		return fmt.Errorf("delete ou: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("organisational unit", ouID.String())
	}

	return nil
}

// Ensure interface compliance
var _ ou.Repository = (*OURepo)(nil)

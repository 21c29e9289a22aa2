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
	"credvault/internal/domain/auth"
	"credvault/internal/domain/directory/division"
	"credvault/internal/domain/directory/ou"
	"credvault/internal/infrastructure/storage/postgres"
)

var divisionColumns = []string{"id", "name", "ou_id", "created_at", "updated_at", "version"}

// DivisionRepo implements division.Repository. It also serves as the
// narrow directory views other domains need (ou.DivisionCounter,
// auth.DivisionDirectory).
type DivisionRepo struct {
	txManager *postgres.TxManager
}

// NewDivisionRepo creates a new division repository.
func NewDivisionRepo(txManager *postgres.TxManager) *DivisionRepo {
	return &DivisionRepo{txManager: txManager}
}

// Create inserts a new division.
func (r *DivisionRepo) Create(ctx context.Context, div *division.Division) error {
	sql, args, err := builder().
		Insert("divisions").
		Columns(divisionColumns...).
		Values(div.ID, div.Name, div.OUID, div.CreatedAt, div.UpdatedAt, div.Version).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	_, err = r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return apperror.NewDuplicate("division", "name", div.Name).WithCause(err)
			case "23503":
				return apperror.NewNotFound("organisational unit", div.OUID.String())
			}
		}
		return fmt.Errorf("insert division: %w", err)
	}

	return nil
}

// GetByID retrieves a division by id.
func (r *DivisionRepo) GetByID(ctx context.Context, divisionID id.ID) (*division.Division, error) {
	sql, args, err := builder().
		Select(divisionColumns...).
		From("divisions").
		Where(squirrel.Eq{"id": divisionID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var div division.Division
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &div, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("division", divisionID.String())
		}
		return nil, fmt.Errorf("query division: %w", err)
	}

	return &div, nil
}

// GetByName retrieves a division by name within one OU.
func (r *DivisionRepo) GetByName(ctx context.Context, ouID id.ID, name string) (*division.Division, error) {
	sql, args, err := builder().
		Select(divisionColumns...).
		From("divisions").
		Where(squirrel.Eq{"ou_id": ouID, "name": name}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var div division.Division
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &div, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("division", name)
		}
		return nil, fmt.Errorf("query division: %w", err)
	}

	return &div, nil
}

// List returns all divisions ordered by name.
func (r *DivisionRepo) List(ctx context.Context) ([]division.Division, error) {
	return r.list(ctx, nil)
}

// ListByOU returns the divisions of one OU.
func (r *DivisionRepo) ListByOU(ctx context.Context, ouID id.ID) ([]division.Division, error) {
	return r.list(ctx, squirrel.Eq{"ou_id": ouID})
}

// ListByIDs returns the divisions with the given ids.
func (r *DivisionRepo) ListByIDs(ctx context.Context, divisionIDs []id.ID) ([]division.Division, error) {
	if len(divisionIDs) == 0 {
		return []division.Division{}, nil
	}
	return r.list(ctx, squirrel.Eq{"id": divisionIDs})
}

func (r *DivisionRepo) list(ctx context.Context, where any) ([]division.Division, error) {
	q := builder().
		Select(divisionColumns...).
		From("divisions").
		OrderBy("name ASC")
	if where != nil {
		q = q.Where(where)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var divisions []division.Division
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &divisions, sql, args...); err != nil {
		return nil, fmt.Errorf("query divisions: %w", err)
	}

	return divisions, nil
}

// CountByOU counts the divisions owned by an OU.
func (r *DivisionRepo) CountByOU(ctx context.Context, ouID id.ID) (int, error) {
	q := r.txManager.GetQuerier(ctx)

	var count int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM divisions WHERE ou_id = $1`, ouID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count divisions: %w", err)
	}

	return count, nil
}

// Exists checks whether a division exists.
func (r *DivisionRepo) Exists(ctx context.Context, divisionID id.ID) (bool, error) {
	q := r.txManager.GetQuerier(ctx)

	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM divisions WHERE id = $1)`, divisionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check exists: %w", err)
	}

	return exists, nil
}

// OwningOUs resolves the distinct OU ids owning the given divisions.
func (r *DivisionRepo) OwningOUs(ctx context.Context, divisionIDs []id.ID) ([]id.ID, error) {
	if len(divisionIDs) == 0 {
		return nil, nil
	}

	sql, args, err := builder().
		Select("DISTINCT ou_id").
		From("divisions").
		Where(squirrel.Eq{"id": divisionIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.txManager.GetQuerier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query owning ous: %w", err)
	}
	defer rows.Close()

	var ouIDs []id.ID
	for rows.Next() {
		var ouID id.ID
		if err := rows.Scan(&ouID); err != nil {
			return nil, fmt.Errorf("scan ou id: %w", err)
		}
		ouIDs = append(ouIDs, ouID)
	}

	return ouIDs, rows.Err()
}

// Delete removes a division row. Cascade of credentials and memberships
// is orchestrated by the service inside one transaction.
func (r *DivisionRepo) Delete(ctx context.Context, divisionID id.ID) error {
	sql, args, err := builder().
		Delete("divisions").
		Where(squirrel.Eq{"id": divisionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete division: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("division", divisionID.String())
	}

	return nil
}

// DetachUsers removes all membership rows pointing at the division.
func (r *DivisionRepo) DetachUsers(ctx context.Context, divisionID id.ID) (int64, error) {
	q := r.txManager.GetQuerier(ctx)

	result, err := q.Exec(ctx, `DELETE FROM user_divisions WHERE division_id = $1`, divisionID)
	if err != nil {
		return 0, fmt.Errorf("detach users: %w", err)
	}

	return result.RowsAffected(), nil
}

// Ensure interface compliance
var (
	_ division.Repository    = (*DivisionRepo)(nil)
	_ ou.DivisionCounter     = (*DivisionRepo)(nil)
	_ auth.DivisionDirectory = (*DivisionRepo)(nil)
)

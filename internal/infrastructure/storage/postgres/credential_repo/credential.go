// Package credential_repo provides the PostgreSQL implementation of the
// credential repository.
package credential_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"credvault/internal/core/apperror"
	"credvault/internal/core/id"
	"credvault/internal/domain/credential"
	"credvault/internal/domain/directory/division"
	"credvault/internal/infrastructure/storage/postgres"
)

var credentialColumns = []string{
	"id", "username", "password_hash", "description", "division_id",
	"created_at", "updated_at", "version",
}

// builder returns a squirrel builder with PostgreSQL placeholders.
func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// CredentialRepo implements credential.Repository.
type CredentialRepo struct {
	txManager *postgres.TxManager
}

// NewCredentialRepo creates a new credential repository.
func NewCredentialRepo(txManager *postgres.TxManager) *CredentialRepo {
	return &CredentialRepo{txManager: txManager}
}

// Create inserts a new credential. The unique (division_id, username)
// index backs the duplicate check against concurrent inserts.
func (r *CredentialRepo) Create(ctx context.Context, cred *credential.Credential) error {
	sql, args, err := builder().
		Insert("credentials").
		Columns(credentialColumns...).
		Values(
			cred.ID, cred.Username, cred.PasswordHash, cred.Description,
			cred.DivisionID, cred.CreatedAt, cred.UpdatedAt, cred.Version,
		).
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
				return apperror.NewDuplicate("credential", "username", cred.Username).WithCause(err)
			case "23503":
				return apperror.NewNotFound("division", cred.DivisionID.String())
			}
		}
		return fmt.Errorf("insert credential: %w", err)
	}

	return nil
}

// GetByID retrieves a credential by id.
func (r *CredentialRepo) GetByID(ctx context.Context, credentialID id.ID) (*credential.Credential, error) {
	sql, args, err := builder().
		Select(credentialColumns...).
		From("credentials").
		Where(squirrel.Eq{"id": credentialID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var cred credential.Credential
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &cred, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("credential", credentialID.String())
		}
		return nil, fmt.Errorf("query credential: %w", err)
	}

	return &cred, nil
}

// ExistsInDivision reports whether the username is already taken in the
// division, excluding the record with excludeID.
func (r *CredentialRepo) ExistsInDivision(ctx context.Context, divisionID id.ID, username string, excludeID id.ID) (bool, error) {
	q := r.txManager.GetQuerier(ctx)

	query := `
		SELECT EXISTS(
			SELECT 1 FROM credentials
			WHERE division_id = $1 AND username = $2 AND id <> $3
		)
	`

	var exists bool
	if err := q.QueryRow(ctx, query, divisionID, username, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check exists: %w", err)
	}

	return exists, nil
}

// List returns all credentials ordered by creation.
func (r *CredentialRepo) List(ctx context.Context) ([]credential.Credential, error) {
	return r.list(ctx, nil)
}

// ListByDivisions returns the credentials of the given divisions.
func (r *CredentialRepo) ListByDivisions(ctx context.Context, divisionIDs []id.ID) ([]credential.Credential, error) {
	if len(divisionIDs) == 0 {
		return []credential.Credential{}, nil
	}
	return r.list(ctx, squirrel.Eq{"division_id": divisionIDs})
}

func (r *CredentialRepo) list(ctx context.Context, where any) ([]credential.Credential, error) {
	q := builder().
		Select(credentialColumns...).
		From("credentials").
		OrderBy("created_at ASC")
	if where != nil {
		q = q.Where(where)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var creds []credential.Credential
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &creds, sql, args...); err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}

	return creds, nil
}

// Update writes back a modified credential with optimistic locking.
func (r *CredentialRepo) Update(ctx context.Context, cred *credential.Credential) error {
	sql, args, err := builder().
		Update("credentials").
		Set("username", cred.Username).
		Set("password_hash", cred.PasswordHash).
		Set("description", cred.Description).
		Set("division_id", cred.DivisionID).
		Set("updated_at", squirrel.Expr("NOW()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": cred.ID, "version": cred.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewDuplicate("credential", "username", cred.Username).WithCause(err)
		}
		return fmt.Errorf("update credential: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("credential", cred.ID)
	}

	cred.Version++
	return nil
}

// Delete removes a credential.
func (r *CredentialRepo) Delete(ctx context.Context, credentialID id.ID) error {
	sql, args, err := builder().
		Delete("credentials").
		Where(squirrel.Eq{"id": credentialID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("credential", credentialID.String())
	}

	return nil
}

// PurgeByDivision deletes every credential of a division.
func (r *CredentialRepo) PurgeByDivision(ctx context.Context, divisionID id.ID) (int64, error) {
	q := r.txManager.GetQuerier(ctx)

	result, err := q.Exec(ctx, `DELETE FROM credentials WHERE division_id = $1`, divisionID)
	if err != nil {
		return 0, fmt.Errorf("purge credentials: %w", err)
	}

	return result.RowsAffected(), nil
}

// Ensure interface compliance
var (
	_ credential.Repository     = (*CredentialRepo)(nil)
	_ division.CredentialPurger = (*CredentialRepo)(nil)
)

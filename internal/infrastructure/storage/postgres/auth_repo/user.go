// Package auth_repo provides PostgreSQL implementations for auth repositories.
package auth_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"credvault/internal/core/apperror"
	"credvault/internal/core/id"
	"credvault/internal/core/security"
	"credvault/internal/domain/auth"
	"credvault/internal/infrastructure/storage/postgres"
)

// UserRepo implements auth.UserRepository.
type UserRepo struct {
	txManager *postgres.TxManager
}

// NewUserRepo creates a new user repository.
func NewUserRepo(txManager *postgres.TxManager) *UserRepo {
	return &UserRepo{txManager: txManager}
}

const userColumns = `id, username, password_hash, role, status, deleted, created_at, updated_at, version`

func scanUser(row pgx.Row) (*auth.User, error) {
	var user auth.User
	err := row.Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.Role,
		&user.Status, &user.Deleted, &user.CreatedAt, &user.UpdatedAt,
		&user.Version,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create creates a new user.
func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	q := r.txManager.GetQuerier(ctx)

	query := `
		INSERT INTO users (
			id, username, password_hash, role, status, deleted,
			created_at, updated_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := q.Exec(ctx, query,
		user.ID, user.Username, user.PasswordHash, user.Role,
		user.Status, user.Deleted, user.CreatedAt, user.UpdatedAt,
		user.Version,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewDuplicate("user", "username", user.Username).WithCause(err)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves user by ID.
func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	q := r.txManager.GetQuerier(ctx)

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted = FALSE`

	user, err := scanUser(q.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NewNotFound("user", userID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	return user, nil
}

// GetByUsername retrieves user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	q := r.txManager.GetQuerier(ctx)

	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 AND deleted = FALSE`

	user, err := scanUser(q.QueryRow(ctx, query, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NewNotFound("user", username)
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	return user, nil
}

// Exists checks if username is taken.
func (r *UserRepo) Exists(ctx context.Context, username string) (bool, error) {
	q := r.txManager.GetQuerier(ctx)

	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 AND deleted = FALSE)`

	var exists bool
	if err := q.QueryRow(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("check exists: %w", err)
	}

	return exists, nil
}

// Update updates user data with optimistic locking.
func (r *UserRepo) Update(ctx context.Context, user *auth.User) error {
	q := r.txManager.GetQuerier(ctx)

	query := `
		UPDATE users SET
			password_hash = $2,
			role = $3,
			status = $4,
			deleted = $5,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $1 AND version = $6
	`

	result, err := q.Exec(ctx, query,
		user.ID, user.PasswordHash, user.Role, user.Status, user.Deleted,
		user.Version,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("user", user.ID)
	}

	user.Version++
	return nil
}

// List retrieves users with filtering.
func (r *UserRepo) List(ctx context.Context, filter auth.UserFilter) ([]auth.User, int, error) {
	q := r.txManager.GetQuerier(ctx)

	query := `SELECT ` + userColumns + ` FROM users WHERE deleted = FALSE`
	countQuery := `SELECT COUNT(*) FROM users WHERE deleted = FALSE`

	var args []any
	argIdx := 1

	if filter.Search != "" {
		query += fmt.Sprintf(" AND username ILIKE $%d", argIdx)
		countQuery += fmt.Sprintf(" AND username ILIKE $%d", argIdx)
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	if filter.Role != "" {
		query += fmt.Sprintf(" AND role = $%d", argIdx)
		countQuery += fmt.Sprintf(" AND role = $%d", argIdx)
		args = append(args, filter.Role)
		argIdx++
	}

	var total int
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query += " ORDER BY id ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []auth.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}

	return users, total, rows.Err()
}

// SetRole overwrites the user's role.
func (r *UserRepo) SetRole(ctx context.Context, userID id.ID, role security.Role) error {
	q := r.txManager.GetQuerier(ctx)

	query := `UPDATE users SET role = $2, updated_at = NOW(), version = version + 1 WHERE id = $1 AND deleted = FALSE`

	result, err := q.Exec(ctx, query, userID, role)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("user", userID.String())
	}

	return nil
}

// LoadDivisionIDs loads the user's division memberships.
func (r *UserRepo) LoadDivisionIDs(ctx context.Context, userID id.ID) ([]id.ID, error) {
	return r.loadLinks(ctx, `SELECT division_id FROM user_divisions WHERE user_id = $1 ORDER BY assigned_at ASC`, userID)
}

// LoadOUIDs loads the user's direct OU memberships.
func (r *UserRepo) LoadOUIDs(ctx context.Context, userID id.ID) ([]id.ID, error) {
	return r.loadLinks(ctx, `SELECT ou_id FROM user_ous WHERE user_id = $1 ORDER BY assigned_at ASC`, userID)
}

func (r *UserRepo) loadLinks(ctx context.Context, query string, userID id.ID) ([]id.ID, error) {
	q := r.txManager.GetQuerier(ctx)

	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	var ids []id.ID
	for rows.Next() {
		var linkID id.ID
		if err := rows.Scan(&linkID); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		ids = append(ids, linkID)
	}

	return ids, rows.Err()
}

// AddDivision links the user to a division. The insert is add-if-absent
// at the store: concurrent assigns race on the primary key and exactly
// one reports the row as added.
func (r *UserRepo) AddDivision(ctx context.Context, userID, divisionID id.ID) (bool, error) {
	q := r.txManager.GetQuerier(ctx)

	query := `
		INSERT INTO user_divisions (user_id, division_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, division_id) DO NOTHING
	`

	result, err := q.Exec(ctx, query, userID, divisionID)
	if err != nil {
		return false, fmt.Errorf("add division: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// RemoveDivision unlinks the user from a division.
func (r *UserRepo) RemoveDivision(ctx context.Context, userID, divisionID id.ID) (bool, error) {
	q := r.txManager.GetQuerier(ctx)

	query := `DELETE FROM user_divisions WHERE user_id = $1 AND division_id = $2`

	result, err := q.Exec(ctx, query, userID, divisionID)
	if err != nil {
		return false, fmt.Errorf("remove division: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// AddOU links the user directly to an OU. Same contract as AddDivision.
func (r *UserRepo) AddOU(ctx context.Context, userID, ouID id.ID) (bool, error) {
	q := r.txManager.GetQuerier(ctx)

	query := `
		INSERT INTO user_ous (user_id, ou_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, ou_id) DO NOTHING
	`

	result, err := q.Exec(ctx, query, userID, ouID)
	if err != nil {
		return false, fmt.Errorf("add ou: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// RemoveOU unlinks the user from an OU.
func (r *UserRepo) RemoveOU(ctx context.Context, userID, ouID id.ID) (bool, error) {
	q := r.txManager.GetQuerier(ctx)

	query := `DELETE FROM user_ous WHERE user_id = $1 AND ou_id = $2`

	result, err := q.Exec(ctx, query, userID, ouID)
	if err != nil {
		return false, fmt.Errorf("remove ou: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// Ensure interface compliance
var _ auth.UserRepository = (*UserRepo)(nil)

package identityservice

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrDuplicateUsername = errors.New("duplicate username")
	ErrDuplicateEmail    = errors.New("duplicate email")
	ErrNotFound          = errors.New("user not found")
)

const userColumns = `id, username, email, password_hash, avatar, role, COALESCE(api_key, ''), request_count, created_at, updated_at, version`

func newUserModel(db *sql.DB) *DBModel {
	return &DBModel{db: db}
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password.hash, &u.Avatar, &u.Role, &u.APIKey, &u.RequestCount, &u.CreatedAt, &u.UpdatedAt, &u.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}
	return &u, nil
}

func (m *DBModel) countUsers(tx *sql.Tx, ctx context.Context) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&n)
	return n, err
}

func (m *DBModel) insertUser(tx *sql.Tx, ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, avatar, role, api_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at, version`

	u.ID = uuid.NewString()

	var apiKey any
	if u.APIKey != "" {
		apiKey = u.APIKey
	}

	args := []any{u.ID, u.Username, u.Email, u.Password.hash, u.Avatar, u.Role, apiKey}

	err := tx.QueryRowContext(ctx, query, args...).Scan(&u.CreatedAt, &u.UpdatedAt, &u.Version)
	if err != nil {
		switch {
		case err.Error() == "pq: duplicate key value violates unique constraint \"users_username_key\"":
			return ErrDuplicateUsername
		case err.Error() == "pq: duplicate key value violates unique constraint \"users_email_key\"":
			return ErrDuplicateEmail
		default:
			return err
		}
	}
	return nil
}

func (m *DBModel) getUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`

	return scanUser(m.db.QueryRowContext(ctx, query, email))
}

func (m *DBModel) getUserByID(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`

	return scanUser(m.db.QueryRowContext(ctx, query, id))
}

// getUserByAPIKey is the gateway lookup: find the one user whose key equals
// the presented key.
func (m *DBModel) getUserByAPIKey(ctx context.Context, key string) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE api_key = $1`

	return scanUser(m.db.QueryRowContext(ctx, query, key))
}

func (m *DBModel) updateAPIKey(ctx context.Context, userID, key string) error {
	query := `
		UPDATE users
		SET api_key = $1, updated_at = GREATEST(now(), updated_at), version = version + 1
		WHERE id = $2`

	res, err := m.db.ExecContext(ctx, query, key, userID)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// incrementRequestCount bumps the monotonic per-key counter by exactly one.
// It is the only write the gateway performs against a record it does not own.
func (m *DBModel) incrementRequestCount(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET request_count = request_count + 1, updated_at = GREATEST(now(), updated_at)
		WHERE id = $1`

	res, err := m.db.ExecContext(ctx, query, userID)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (m *DBModel) updateRole(ctx context.Context, userID string, role Role) error {
	query := `
		UPDATE users
		SET role = $1, updated_at = GREATEST(now(), updated_at), version = version + 1
		WHERE id = $2`

	res, err := m.db.ExecContext(ctx, query, role, userID)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (m *DBModel) listUsers(ctx context.Context) ([]User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at ASC`

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Password.hash, &u.Avatar, &u.Role, &u.APIKey, &u.RequestCount, &u.CreatedAt, &u.UpdatedAt, &u.Version)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

package identityservice

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base32"
	"errors"
	"time"
)

func hashToken(token string) []byte {
	hash := sha256.Sum256([]byte(token))
	return hash[:]
}

func newToken(userID string, ttl time.Duration) (*Token, error) {
	randomBytes := make([]byte, 16)
	_, err := rand.Read(randomBytes)
	if err != nil {
		return nil, err
	}

	token := &Token{
		Plain:  base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes),
		UserID: userID,
		Expiry: time.Now().Add(ttl),
	}

	token.Hash = hashToken(token.Plain)

	return token, nil
}

func (m *DBModel) insertSessionToken(tx *sql.Tx, ctx context.Context, token *Token) error {
	query := `
		INSERT INTO session_tokens (hash, user_id, expiry)
		VALUES ($1, $2, $3)`

	_, err := tx.ExecContext(ctx, query, token.Hash, token.UserID, token.Expiry)
	return err
}

// createSessionToken replaces any previous session for the user: the
// session is a singleton per identity, not a history.
func (m *DBModel) createSessionToken(ctx context.Context, userID string) (*Token, error) {
	token, err := newToken(userID, SessionTokenTime)
	if err != nil {
		return nil, err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	if err := m.deleteSessionTokens(tx, ctx, userID); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := m.insertSessionToken(tx, ctx, token); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return token, nil
}

func (m *DBModel) getUserBySessionToken(ctx context.Context, hash []byte) (*User, error) {
	query := `
		SELECT u.id, u.username, u.email, u.avatar, u.role, COALESCE(u.api_key, ''), u.request_count, u.created_at, u.updated_at, u.version
		FROM users u
		INNER JOIN session_tokens t ON u.id = t.user_id
		WHERE t.hash = $1 AND t.expiry > $2`

	var u User
	err := m.db.QueryRowContext(ctx, query, hash, time.Now()).Scan(&u.ID, &u.Username, &u.Email, &u.Avatar, &u.Role, &u.APIKey, &u.RequestCount, &u.CreatedAt, &u.UpdatedAt, &u.Version)
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

func (m *DBModel) deleteSessionTokens(tx *sql.Tx, ctx context.Context, userID string) error {
	query := `
		DELETE FROM session_tokens
		WHERE user_id = $1`

	_, err := tx.ExecContext(ctx, query, userID)
	return err
}

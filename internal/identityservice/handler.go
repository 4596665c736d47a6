package identityservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/inkwell-cms/inkwell/internal/common"
)

var (
	ErrAuthenticationFailure = errors.New("unauthorized access")
)

// Bootstrap admin credentials seeded into an empty store.
const (
	defaultAdminUsername = "admin"
	defaultAdminEmail    = "admin@example.com"
	defaultAdminPassword = "admin123"
)

func NewIdentityService(db *sql.DB, mb common.MessageProducer, cache *common.Cache) *IdentityService {
	return &IdentityService{
		m:  newUserModel(db),
		mb: mb,
		c:  cache,
	}
}

func defaultAvatar(username string) string {
	return fmt.Sprintf("https://ui-avatars.com/api/?name=%s&background=random", url.QueryEscape(username))
}

// newAPIKey mints an opaque key. Keys are stored as-is: the admin panel and
// the owner can read them back, so a one-way hash is not an option here.
func newAPIKey() string {
	return uuid.NewString()
}

// Signup registers a new account and logs it in. The first account in an
// empty store becomes admin and receives an API key; everyone after that is
// a regular user without one.
func (s *IdentityService) Signup(ctx context.Context, username, email, password string) (*User, *Token, error) {
	v := common.NewValidator()
	validateUsername(v, username)
	validateEmail(v, email)
	validatePassword(v, password)
	if !v.Valid() {
		return nil, nil, v.ValidationError()
	}

	u := User{
		Username: username,
		Email:    email,
		Avatar:   defaultAvatar(username),
		Password: Password{Plain: password},
	}

	if err := u.Password.set(password); err != nil {
		return nil, nil, err
	}

	// The count and the insert share one transaction so two racing signups
	// cannot both observe an empty table through this path.
	tx, err := s.m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}

	n, err := s.m.countUsers(tx, ctx)
	if err != nil {
		_ = tx.Rollback()
		return nil, nil, err
	}

	u.Role = RoleUser
	if n == 0 {
		u.Role = RoleAdmin
		u.APIKey = newAPIKey()
	}

	if err := s.m.insertUser(tx, ctx, &u); err != nil {
		_ = tx.Rollback()
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	s.publishSignedUp(ctx, &u)

	token, err := s.m.createSessionToken(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}

	return &u, token, nil
}

func (s *IdentityService) publishSignedUp(ctx context.Context, u *User) {
	if s.mb == nil {
		return
	}

	data, err := json.Marshal(SignedUpEvent{Username: u.Username, Email: u.Email})
	if err != nil {
		return
	}

	// best effort: a lost welcome mail never fails a signup
	_ = s.mb.Publish(ctx, data, common.UserSignedUpKey, common.IdentityExchange)
}

// Login authenticates by email and returns a fresh session token.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*User, *Token, error) {
	v := common.NewValidator()
	validateEmail(v, email)
	v.Check(password != "", "password", "must be provided")
	if !v.Valid() {
		return nil, nil, v.ValidationError()
	}

	user, err := s.m.getUserByEmail(ctx, email)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, nil, ErrAuthenticationFailure
		default:
			return nil, nil, err
		}
	}

	ok, err := user.Password.compare(password)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrAuthenticationFailure
	}

	token, err := s.m.createSessionToken(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	return user, token, nil
}

// Logout discards the user's session.
func (s *IdentityService) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNotFound
	}

	tx, err := s.m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := s.m.deleteSessionTokens(tx, ctx, userID); err != nil {
		_ = tx.Rollback()
		return err
	}

	if s.c != nil {
		s.c.Flush()
	}

	return tx.Commit()
}

// UserByToken resolves the active user behind a session token.
func (s *IdentityService) UserByToken(ctx context.Context, token string) (*User, error) {
	v := common.NewValidator()
	ValidateToken(v, token)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	hash := hashToken(token)

	if s.c != nil {
		if cached, ok := s.c.Get(common.CacheKeyUserBySessionToken(hash)); ok {
			if u, ok := cached.(*User); ok {
				return u, nil
			}
		}
	}

	u, err := s.m.getUserBySessionToken(ctx, hash)
	if err != nil {
		return nil, err
	}

	if s.c != nil {
		s.c.Set(common.CacheKeyUserBySessionToken(hash), u)
	}

	return u, nil
}

// GenerateAPIKey mints a new key for the user, replacing any previous one.
// Regeneration is the same operation.
func (s *IdentityService) GenerateAPIKey(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", ErrNotFound
	}

	key := newAPIKey()
	if err := s.m.updateAPIKey(ctx, userID, key); err != nil {
		return "", err
	}

	if s.c != nil {
		s.c.Flush()
	}

	return key, nil
}

// UserByAPIKey finds the owner of the presented key; ErrNotFound when no
// user's key matches.
func (s *IdentityService) UserByAPIKey(ctx context.Context, key string) (*User, error) {
	if key == "" {
		return nil, ErrNotFound
	}

	return s.m.getUserByAPIKey(ctx, key)
}

// IncrementRequestCount durably adds one to the user's request counter.
func (s *IdentityService) IncrementRequestCount(ctx context.Context, userID string) error {
	return s.m.incrementRequestCount(ctx, userID)
}

// ListUsers returns every account. Admin-panel surface; route middleware
// keeps non-admins out.
func (s *IdentityService) ListUsers(ctx context.Context) ([]User, error) {
	return s.m.listUsers(ctx)
}

// ToggleRole flips a user between admin and user.
func (s *IdentityService) ToggleRole(ctx context.Context, targetID string) (*User, error) {
	target, err := s.m.getUserByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	role := RoleAdmin
	if target.Role == RoleAdmin {
		role = RoleUser
	}

	if err := s.m.updateRole(ctx, targetID, role); err != nil {
		return nil, err
	}

	if s.c != nil {
		s.c.Flush()
	}

	target.Role = role
	return target, nil
}

// EnsureAdmin seeds the bootstrap admin account when the store is empty.
// Combined with first-signup-admin this can yield two admins under a
// concurrent first run; that ambiguity is inherited behavior.
func (s *IdentityService) EnsureAdmin(ctx context.Context) (*User, error) {
	tx, err := s.m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	n, err := s.m.countUsers(tx, ctx)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if n > 0 {
		_ = tx.Rollback()
		return nil, nil
	}

	u := User{
		Username: defaultAdminUsername,
		Email:    defaultAdminEmail,
		Avatar:   defaultAvatar(defaultAdminUsername),
		Role:     RoleAdmin,
		APIKey:   newAPIKey(),
	}

	if err := u.Password.set(defaultAdminPassword); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := s.m.insertUser(tx, ctx, &u); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &u, nil
}

func (u *User) IsAnonymous() bool {
	return u == &AnonymousUser
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

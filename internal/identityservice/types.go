package identityservice

import (
	"database/sql"
	"time"

	"github.com/inkwell-cms/inkwell/internal/common"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"

	SessionTokenTime time.Duration = 7 * 24 * time.Hour
)

var (
	AnonymousUser = User{}
)

type IdentityService struct {
	m  *DBModel
	mb common.MessageProducer
	c  *common.Cache
}

type DBModel struct {
	db *sql.DB
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Password     Password  `json:"-"`
	Avatar       string    `json:"avatar,omitempty"`
	Role         Role      `json:"role"`
	APIKey       string    `json:"apiKey,omitempty"`
	RequestCount int64     `json:"requestCount"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int       `json:"-"`
}

type Password struct {
	Plain string `json:"-"`
	hash  []byte `json:"-"`
}

// Token is the session token binding a request to its active user. Only the
// sha256 hash is stored.
type Token struct {
	Plain  string    `json:"token"`
	Hash   []byte    `json:"-"`
	UserID string    `json:"-"`
	Expiry time.Time `json:"expiry"`
}

// SignedUpEvent is the payload published on user.signed_up.
type SignedUpEvent struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

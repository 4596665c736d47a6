package blogservice

import (
	"database/sql"
	"time"

	"github.com/inkwell-cms/inkwell/internal/common"
	"github.com/inkwell-cms/inkwell/internal/content"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

type Blog struct {
	ID          string           `json:"id"`
	OwnerID     string           `json:"owner_id"`
	AuthorName  string           `json:"author_name"`
	AuthorImage string           `json:"author_image,omitempty"`
	Slug        string           `json:"slug"`
	CoverImage  string           `json:"cover_image,omitempty"`
	Title       string           `json:"title"`
	SubTitle    string           `json:"sub_title,omitempty"`
	Tags        []string         `json:"tags"`
	Content     content.Document `json:"content"`
	Priority    *int             `json:"priority,omitempty"`
	Status      Status           `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	Version     int              `json:"-"`
}

// Patch carries a partial update; nil fields are left untouched.
type Patch struct {
	AuthorName  *string           `json:"author_name"`
	AuthorImage *string           `json:"author_image"`
	Slug        *string           `json:"slug"`
	CoverImage  *string           `json:"cover_image"`
	Title       *string           `json:"title"`
	SubTitle    *string           `json:"sub_title"`
	Tags        *[]string         `json:"tags"`
	Content     *content.Document `json:"content"`
	Priority    *int              `json:"priority"`
	Status      *Status           `json:"status"`
}

type BlogModel struct {
	db *sql.DB
}

type BlogService struct {
	m *BlogModel
	c *common.Cache
}

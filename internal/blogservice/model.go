package blogservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/inkwell-cms/inkwell/internal/content"
)

var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrOwnerForeignKey = errors.New("owner_id does not exist")

	// ErrNoIdentity marks an owner-scoped call made with no active identity.
	// Unlike the data errors above it signals a caller contract violation.
	ErrNoIdentity = errors.New("no active identity")
)

const blogColumns = `id, owner_id, author_name, author_image, slug, cover_image, title, sub_title, tags, content, priority, status, created_at, updated_at, version`

func newBlogModel(db *sql.DB) *BlogModel {
	return &BlogModel{db: db}
}

// ForeignKeyError is a helper function to check if the error is a foreign key constraint error.
func ForeignKeyError(err error, name string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "23503" && pqErr.Constraint == name {
			return true
		}
	}

	return false
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlog(s rowScanner) (*Blog, error) {
	var (
		b        Blog
		raw      []byte
		priority sql.NullInt64
	)

	err := s.Scan(&b.ID, &b.OwnerID, &b.AuthorName, &b.AuthorImage, &b.Slug, &b.CoverImage, &b.Title, &b.SubTitle, pq.Array(&b.Tags), &raw, &priority, &b.Status, &b.CreatedAt, &b.UpdatedAt, &b.Version)
	if err != nil {
		return nil, err
	}

	if priority.Valid {
		p := int(priority.Int64)
		b.Priority = &p
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &b.Content); err != nil {
			// Quarantine malformed content instead of failing the read: the
			// document surfaces as a single unknown block.
			b.Content = content.Document{Blocks: []content.Block{content.UnknownBlock{Type: "invalid", Raw: raw}}}
		}
	}

	return &b, nil
}

func (m *BlogModel) insert(ctx context.Context, b *Blog) error {
	query := `
		INSERT INTO blogs (id, owner_id, author_name, author_image, slug, cover_image, title, sub_title, tags, content, priority, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at, version`

	raw, err := json.Marshal(b.Content)
	if err != nil {
		return err
	}

	b.ID = uuid.NewString()

	var priority sql.NullInt64
	if b.Priority != nil {
		priority = sql.NullInt64{Int64: int64(*b.Priority), Valid: true}
	}

	args := []any{b.ID, b.OwnerID, b.AuthorName, b.AuthorImage, b.Slug, b.CoverImage, b.Title, b.SubTitle, pq.Array(b.Tags), raw, priority, b.Status}

	err = m.db.QueryRowContext(ctx, query, args...).Scan(&b.CreatedAt, &b.UpdatedAt, &b.Version)
	if err != nil {
		switch {
		case ForeignKeyError(err, "blogs_owner_id_fkey"):
			return ErrOwnerForeignKey
		default:
			return err
		}
	}

	return nil
}

func (m *BlogModel) getBlog(ctx context.Context, id, ownerID string) (*Blog, error) {
	query := `
		SELECT ` + blogColumns + `
		FROM blogs
		WHERE id = $1 AND owner_id = $2`

	b, err := scanBlog(m.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return b, nil
}

// updateBlog applies the patch inside one transaction: the row is locked,
// patched in memory, and written back whole, so a concurrent read sees
// either the old record or the new one, never a partial write.
func (m *BlogModel) updateBlog(ctx context.Context, id, ownerID string, patch *Patch) (*Blog, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + blogColumns + `
		FROM blogs
		WHERE id = $1 AND owner_id = $2
		FOR UPDATE`

	b, err := scanBlog(tx.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		_ = tx.Rollback()
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	applyPatch(b, patch)

	raw, err := json.Marshal(b.Content)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	var priority sql.NullInt64
	if b.Priority != nil {
		priority = sql.NullInt64{Int64: int64(*b.Priority), Valid: true}
	}

	update := `
		UPDATE blogs
		SET author_name = $1, author_image = $2, slug = $3, cover_image = $4, title = $5, sub_title = $6, tags = $7, content = $8, priority = $9, status = $10, updated_at = GREATEST(now(), updated_at), version = version + 1
		WHERE id = $11 AND owner_id = $12
		RETURNING created_at, updated_at, version`

	args := []any{b.AuthorName, b.AuthorImage, b.Slug, b.CoverImage, b.Title, b.SubTitle, pq.Array(b.Tags), raw, priority, b.Status, id, ownerID}

	err = tx.QueryRowContext(ctx, update, args...).Scan(&b.CreatedAt, &b.UpdatedAt, &b.Version)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return b, nil
}

func applyPatch(b *Blog, p *Patch) {
	if p.AuthorName != nil {
		b.AuthorName = *p.AuthorName
	}
	if p.AuthorImage != nil {
		b.AuthorImage = *p.AuthorImage
	}
	if p.Slug != nil {
		b.Slug = *p.Slug
	}
	if p.CoverImage != nil {
		b.CoverImage = *p.CoverImage
	}
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.SubTitle != nil {
		b.SubTitle = *p.SubTitle
	}
	if p.Tags != nil {
		b.Tags = normalizeTags(*p.Tags)
	}
	if p.Content != nil {
		b.Content = *p.Content
	}
	if p.Priority != nil {
		b.Priority = p.Priority
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
}

// deleteBlog removes the blog iff owned by ownerID. Zero affected rows is
// not an error: delete of an absent or foreign record is a no-op.
func (m *BlogModel) deleteBlog(ctx context.Context, id, ownerID string) error {
	query := `
		DELETE FROM blogs
		WHERE id = $1 AND owner_id = $2`

	_, err := m.db.ExecContext(ctx, query, id, ownerID)
	return err
}

func (m *BlogModel) listByOwner(ctx context.Context, ownerID string) ([]Blog, error) {
	query := `
		SELECT ` + blogColumns + `
		FROM blogs
		WHERE owner_id = $1
		ORDER BY created_at DESC`

	return m.queryBlogs(ctx, query, ownerID)
}

// listPublished deliberately ignores ownership: it feeds the public gateway
// with every published blog across all owners.
func (m *BlogModel) listPublished(ctx context.Context) ([]Blog, error) {
	query := `
		SELECT ` + blogColumns + `
		FROM blogs
		WHERE status = 'published'
		ORDER BY priority DESC NULLS LAST, created_at DESC`

	return m.queryBlogs(ctx, query)
}

func (m *BlogModel) queryBlogs(ctx context.Context, query string, args ...any) ([]Blog, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blogs := []Blog{}
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		blogs = append(blogs, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return blogs, nil
}

package blogservice

import (
	"context"
	"database/sql"
	"time"

	"github.com/inkwell-cms/inkwell/internal/common"
	"github.com/inkwell-cms/inkwell/internal/content"
)

const feedCacheTTL = time.Minute

func NewBlogService(db *sql.DB, cache *common.Cache) *BlogService {
	return &BlogService{m: newBlogModel(db), c: cache}
}

type CreateBlogRequest struct {
	Title       string           `json:"title"`
	SubTitle    string           `json:"sub_title"`
	Slug        string           `json:"slug"`
	AuthorName  string           `json:"author_name"`
	AuthorImage string           `json:"author_image"`
	CoverImage  string           `json:"cover_image"`
	Tags        []string         `json:"tags"`
	Content     content.Document `json:"content"`
	Priority    *int             `json:"priority"`
	Status      Status           `json:"status"`
}

// CreateBlog creates a new blog owned by ownerID. The slug is derived from
// the title when the request does not carry one. Nothing is persisted when
// validation fails.
func (s *BlogService) CreateBlog(ctx context.Context, ownerID string, req *CreateBlogRequest) (*Blog, error) {
	if ownerID == "" {
		return nil, ErrNoIdentity
	}

	if req.Slug == "" {
		req.Slug = DeriveSlug(req.Title)
	}
	if req.Status == "" {
		req.Status = StatusDraft
	}

	v := common.NewValidator()
	validateTitle(v, req.Title)
	validateRequired(v, req.Slug, "slug")
	validateRequired(v, req.AuthorName, "author_name")
	validateStatus(v, req.Status)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	b := &Blog{
		OwnerID:     ownerID,
		AuthorName:  req.AuthorName,
		AuthorImage: req.AuthorImage,
		Slug:        req.Slug,
		CoverImage:  req.CoverImage,
		Title:       req.Title,
		SubTitle:    req.SubTitle,
		Tags:        normalizeTags(req.Tags),
		Content:     req.Content,
		Priority:    req.Priority,
		Status:      req.Status,
	}

	if err := s.m.insert(ctx, b); err != nil {
		return nil, err
	}

	s.invalidateFeed()

	return b, nil
}

// GetBlog returns the blog only when it exists and is owned by ownerID;
// otherwise ErrRecordNotFound.
func (s *BlogService) GetBlog(ctx context.Context, id, ownerID string) (*Blog, error) {
	if id == "" || ownerID == "" {
		return nil, ErrRecordNotFound
	}

	return s.m.getBlog(ctx, id, ownerID)
}

// UpdateBlog applies the patch iff a blog with matching (id, ownerID)
// exists. Fields that the patch sets are validated; a patch that blanks a
// required field is rejected with nothing written.
func (s *BlogService) UpdateBlog(ctx context.Context, id, ownerID string, patch *Patch) (*Blog, error) {
	if ownerID == "" {
		return nil, ErrNoIdentity
	}

	v := common.NewValidator()
	validateRequired(v, id, "id")
	if patch.Title != nil {
		validateTitle(v, *patch.Title)
	}
	if patch.Slug != nil {
		validateRequired(v, *patch.Slug, "slug")
	}
	if patch.AuthorName != nil {
		validateRequired(v, *patch.AuthorName, "author_name")
	}
	if patch.Status != nil {
		validateStatus(v, *patch.Status)
	}
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	b, err := s.m.updateBlog(ctx, id, ownerID, patch)
	if err != nil {
		return nil, err
	}

	s.invalidateFeed()

	return b, nil
}

// DeleteBlog removes the blog iff owned by ownerID; deleting an absent or
// foreign blog is a no-op, not an error.
func (s *BlogService) DeleteBlog(ctx context.Context, id, ownerID string) error {
	if ownerID == "" {
		return ErrNoIdentity
	}

	if err := s.m.deleteBlog(ctx, id, ownerID); err != nil {
		return err
	}

	s.invalidateFeed()

	return nil
}

// ListByOwner returns every blog owned by ownerID, drafts included.
func (s *BlogService) ListByOwner(ctx context.Context, ownerID string) ([]Blog, error) {
	if ownerID == "" {
		return []Blog{}, nil
	}

	return s.m.listByOwner(ctx, ownerID)
}

// ListPublished returns every published blog across all owners. This is the
// one read that crosses the ownership boundary; it backs the public feed.
func (s *BlogService) ListPublished(ctx context.Context) ([]Blog, error) {
	if s.c != nil {
		if cached, ok := s.c.Get(common.CacheKeyPublishedFeed()); ok {
			if blogs, ok := cached.([]Blog); ok {
				return blogs, nil
			}
		}
	}

	blogs, err := s.m.listPublished(ctx)
	if err != nil {
		return nil, err
	}

	if s.c != nil {
		s.c.Set(common.CacheKeyPublishedFeed(), blogs, feedCacheTTL)
	}

	return blogs, nil
}

// RenderBlog returns the rendered nodes for an owned blog.
func (s *BlogService) RenderBlog(ctx context.Context, id, ownerID string) ([]content.Node, error) {
	b, err := s.GetBlog(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	return content.Render(b.Content.Blocks), nil
}

func (s *BlogService) invalidateFeed() {
	if s.c != nil {
		s.c.Delete(common.CacheKeyPublishedFeed())
	}
}

package blogservice

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-cms/inkwell/internal/common"
	"github.com/inkwell-cms/inkwell/internal/content"
)

// setupTestOwner is a helper function to create an owner row the blogs
// foreign key can point at.
func setupTestOwner(t *testing.T, db *sql.DB, username string) string {
	query := `
		INSERT INTO users (id, username, email, password_hash, role)
		VALUES ($1, $2, $3, $4, 'user')`

	id := uuid.NewString()
	_, err := db.Exec(query, id, username, username+"@example.com", []byte("not-a-real-hash"))
	require.NoError(t, err)

	return id
}

func setupTestEnvironment(t *testing.T) (*BlogService, *sql.DB, string) {
	db := common.TestDB("file://../../migrations", t)
	cache := common.NewCache(5*time.Minute, 10*time.Minute)

	ownerID := setupTestOwner(t, db, "testowner")

	t.Cleanup(func() {
		_, _ = db.Exec("DELETE FROM blogs")
		cache.Flush()
	})

	return NewBlogService(db, cache), db, ownerID
}

func testCreateRequest() *CreateBlogRequest {
	return &CreateBlogRequest{
		Title:      "Hello World!",
		AuthorName: "Test Author",
		Tags:       []string{"go", "cms", "go"},
		Content: content.Document{Blocks: []content.Block{
			content.HeaderBlock{Level: 1, Text: "Hello"},
			content.ParagraphBlock{Text: "World"},
		}},
	}
}

func TestCreateBlog(t *testing.T) {
	s, _, ownerID := setupTestEnvironment(t)

	t.Run("derives slug and timestamps", func(t *testing.T) {
		b, err := s.CreateBlog(context.Background(), ownerID, testCreateRequest())
		require.NoError(t, err)

		assert.NotEmpty(t, b.ID)
		assert.Equal(t, ownerID, b.OwnerID)
		assert.Equal(t, "hello-world", b.Slug)
		assert.Equal(t, StatusDraft, b.Status)
		assert.Equal(t, []string{"go", "cms"}, b.Tags)
		assert.Equal(t, b.CreatedAt, b.UpdatedAt)
	})

	t.Run("missing identity is a precondition failure", func(t *testing.T) {
		_, err := s.CreateBlog(context.Background(), "", testCreateRequest())
		assert.ErrorIs(t, err, ErrNoIdentity)
	})

	t.Run("missing required fields abort with no partial write", func(t *testing.T) {
		req := testCreateRequest()
		req.Title = ""
		req.AuthorName = ""

		_, err := s.CreateBlog(context.Background(), ownerID, req)

		var vErr common.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Errors, "title")
		assert.Contains(t, vErr.Errors, "author_name")

		blogs, err := s.ListByOwner(context.Background(), ownerID)
		require.NoError(t, err)
		for _, b := range blogs {
			assert.NotEmpty(t, b.Title)
		}
	})

	t.Run("unknown owner fails the foreign key", func(t *testing.T) {
		_, err := s.CreateBlog(context.Background(), uuid.NewString(), testCreateRequest())
		assert.ErrorIs(t, err, ErrOwnerForeignKey)
	})
}

func TestGetBlogRoundTrip(t *testing.T) {
	s, _, ownerID := setupTestEnvironment(t)

	created, err := s.CreateBlog(context.Background(), ownerID, testCreateRequest())
	require.NoError(t, err)

	got, err := s.GetBlog(context.Background(), created.ID, ownerID)
	require.NoError(t, err)

	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, created.Slug, got.Slug)
	assert.Equal(t, created.Tags, got.Tags)
	assert.Equal(t, created.Content.Blocks, got.Content.Blocks)
	assert.False(t, got.UpdatedAt.Before(created.UpdatedAt))
}

func TestOwnershipIsolation(t *testing.T) {
	s, db, ownerID := setupTestEnvironment(t)
	otherID := setupTestOwner(t, db, "otherowner")

	created, err := s.CreateBlog(context.Background(), ownerID, testCreateRequest())
	require.NoError(t, err)

	t.Run("get under the wrong owner is absent", func(t *testing.T) {
		_, err := s.GetBlog(context.Background(), created.ID, otherID)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("list under the wrong owner never contains the blog", func(t *testing.T) {
		blogs, err := s.ListByOwner(context.Background(), otherID)
		require.NoError(t, err)
		for _, b := range blogs {
			assert.NotEqual(t, created.ID, b.ID)
		}
	})

	t.Run("update under the wrong owner is not found", func(t *testing.T) {
		title := "Hijacked"
		_, err := s.UpdateBlog(context.Background(), created.ID, otherID, &Patch{Title: &title})
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("delete under the wrong owner is a silent no-op", func(t *testing.T) {
		err := s.DeleteBlog(context.Background(), created.ID, otherID)
		assert.NoError(t, err)

		_, err = s.GetBlog(context.Background(), created.ID, ownerID)
		assert.NoError(t, err)
	})
}

func TestUpdateBlog(t *testing.T) {
	s, _, ownerID := setupTestEnvironment(t)

	created, err := s.CreateBlog(context.Background(), ownerID, testCreateRequest())
	require.NoError(t, err)

	t.Run("patch only touches provided fields", func(t *testing.T) {
		subTitle := "An update"
		status := StatusPublished

		updated, err := s.UpdateBlog(context.Background(), created.ID, ownerID, &Patch{SubTitle: &subTitle, Status: &status})
		require.NoError(t, err)

		assert.Equal(t, created.Title, updated.Title)
		assert.Equal(t, "An update", updated.SubTitle)
		assert.Equal(t, StatusPublished, updated.Status)
		assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
		assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	})

	t.Run("updatedAt is non-decreasing across updates", func(t *testing.T) {
		prev := created.UpdatedAt
		for _, title := range []string{"One", "Two", "Three"} {
			title := title
			updated, err := s.UpdateBlog(context.Background(), created.ID, ownerID, &Patch{Title: &title})
			require.NoError(t, err)
			assert.False(t, updated.UpdatedAt.Before(prev))
			prev = updated.UpdatedAt
		}
	})

	t.Run("blanking a required field is rejected", func(t *testing.T) {
		empty := ""
		_, err := s.UpdateBlog(context.Background(), created.ID, ownerID, &Patch{Title: &empty})

		var vErr common.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Errors, "title")
	})

	t.Run("absent id is a not-found value, not a panic", func(t *testing.T) {
		title := "x"
		_, err := s.UpdateBlog(context.Background(), uuid.NewString(), ownerID, &Patch{Title: &title})
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})
}

func TestDeleteBlog(t *testing.T) {
	s, _, ownerID := setupTestEnvironment(t)

	created, err := s.CreateBlog(context.Background(), ownerID, testCreateRequest())
	require.NoError(t, err)

	require.NoError(t, s.DeleteBlog(context.Background(), created.ID, ownerID))

	_, err = s.GetBlog(context.Background(), created.ID, ownerID)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	// deleting again is still a no-op
	assert.NoError(t, s.DeleteBlog(context.Background(), created.ID, ownerID))
}

func TestListPublishedCrossesOwners(t *testing.T) {
	s, db, ownerID := setupTestEnvironment(t)
	otherID := setupTestOwner(t, db, "secondowner")

	status := StatusPublished

	mine, err := s.CreateBlog(context.Background(), ownerID, testCreateRequest())
	require.NoError(t, err)
	_, err = s.UpdateBlog(context.Background(), mine.ID, ownerID, &Patch{Status: &status})
	require.NoError(t, err)

	theirsReq := testCreateRequest()
	theirsReq.Title = "Someone Else"
	theirs, err := s.CreateBlog(context.Background(), otherID, theirsReq)
	require.NoError(t, err)
	_, err = s.UpdateBlog(context.Background(), theirs.ID, otherID, &Patch{Status: &status})
	require.NoError(t, err)

	draftReq := testCreateRequest()
	draftReq.Title = "Still Draft"
	_, err = s.CreateBlog(context.Background(), ownerID, draftReq)
	require.NoError(t, err)

	published, err := s.ListPublished(context.Background())
	require.NoError(t, err)

	ids := make(map[string]bool, len(published))
	for _, b := range published {
		assert.Equal(t, StatusPublished, b.Status)
		ids[b.ID] = true
	}
	assert.True(t, ids[mine.ID])
	assert.True(t, ids[theirs.ID])
	assert.Len(t, published, 2)
}

func TestListPublishedCacheInvalidation(t *testing.T) {
	s, _, ownerID := setupTestEnvironment(t)

	first, err := s.ListPublished(context.Background())
	require.NoError(t, err)
	assert.Empty(t, first)

	status := StatusPublished
	created, err := s.CreateBlog(context.Background(), ownerID, testCreateRequest())
	require.NoError(t, err)
	_, err = s.UpdateBlog(context.Background(), created.ID, ownerID, &Patch{Status: &status})
	require.NoError(t, err)

	// the mutation must have evicted the cached empty feed
	second, err := s.ListPublished(context.Background())
	require.NoError(t, err)
	assert.Len(t, second, 1)
}

package autosave

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-cms/inkwell/internal/blogservice"
)

type fakeSaver struct {
	mu      sync.Mutex
	calls   []*blogservice.Patch
	failing bool
}

func (f *fakeSaver) UpdateBlog(ctx context.Context, id, ownerID string, patch *blogservice.Patch) (*blogservice.Blog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failing {
		return nil, errors.New("db down")
	}

	f.calls = append(f.calls, patch)
	return &blogservice.Blog{ID: id, OwnerID: ownerID}, nil
}

func (f *fakeSaver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSaver) setFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerRefusesCreateMode(t *testing.T) {
	_, err := NewScheduler(&fakeSaver{}, testLogger(), "", "owner", 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrCreateMode)
}

func TestSchedulerFlushesDirtyDraftOnce(t *testing.T) {
	saver := &fakeSaver{}
	s, err := NewScheduler(saver, testLogger(), "blog-1", "owner-1", 20*time.Millisecond)
	require.NoError(t, err)

	s.Start(context.Background())
	defer s.Stop()

	title := "Draft Title"
	s.RecordEdit(&blogservice.Patch{Title: &title})
	assert.True(t, s.Dirty())

	assert.Eventually(t, func() bool {
		return saver.callCount() == 1
	}, time.Second, 5*time.Millisecond)

	assert.False(t, s.Dirty())
	assert.False(t, s.LastSavedAt().IsZero())

	// no further edits: subsequent ticks must not call the repository
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, saver.callCount())
}

func TestSchedulerCleanTicksDoNothing(t *testing.T) {
	saver := &fakeSaver{}
	s, err := NewScheduler(saver, testLogger(), "blog-1", "owner-1", 10*time.Millisecond)
	require.NoError(t, err)

	s.Start(context.Background())
	defer s.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, saver.callCount())
	assert.True(t, s.LastSavedAt().IsZero())
}

func TestSchedulerMergesEditsLastWriteWins(t *testing.T) {
	saver := &fakeSaver{}
	s, err := NewScheduler(saver, testLogger(), "blog-1", "owner-1", 25*time.Millisecond)
	require.NoError(t, err)

	s.Start(context.Background())
	defer s.Stop()

	first := "First"
	second := "Second"
	sub := "Sub"
	s.RecordEdit(&blogservice.Patch{Title: &first})
	s.RecordEdit(&blogservice.Patch{Title: &second, SubTitle: &sub})

	assert.Eventually(t, func() bool {
		return saver.callCount() == 1
	}, time.Second, 5*time.Millisecond)

	saver.mu.Lock()
	patch := saver.calls[0]
	saver.mu.Unlock()

	require.NotNil(t, patch.Title)
	assert.Equal(t, "Second", *patch.Title)
	require.NotNil(t, patch.SubTitle)
	assert.Equal(t, "Sub", *patch.SubTitle)
}

func TestSchedulerStopPreventsFurtherFlushes(t *testing.T) {
	saver := &fakeSaver{}
	s, err := NewScheduler(saver, testLogger(), "blog-1", "owner-1", 15*time.Millisecond)
	require.NoError(t, err)

	s.Start(context.Background())

	title := "x"
	s.RecordEdit(&blogservice.Patch{Title: &title})
	s.Stop()

	assert.Equal(t, StateIdle, s.State())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, saver.callCount())
}

func TestSchedulerRetriesAfterFailedFlush(t *testing.T) {
	saver := &fakeSaver{failing: true}
	s, err := NewScheduler(saver, testLogger(), "blog-1", "owner-1", 15*time.Millisecond)
	require.NoError(t, err)

	s.Start(context.Background())
	defer s.Stop()

	title := "x"
	s.RecordEdit(&blogservice.Patch{Title: &title})

	// let at least one failing tick pass, then heal the saver
	time.Sleep(40 * time.Millisecond)
	assert.True(t, s.Dirty())
	saver.setFailing(false)

	assert.Eventually(t, func() bool {
		return saver.callCount() == 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, s.Dirty())
}

func TestSchedulerSetIntervalReArms(t *testing.T) {
	saver := &fakeSaver{}
	s, err := NewScheduler(saver, testLogger(), "blog-1", "owner-1", time.Hour)
	require.NoError(t, err)

	s.Start(context.Background())
	defer s.Stop()

	title := "x"
	s.RecordEdit(&blogservice.Patch{Title: &title})

	// with the hour-long period nothing would flush; shortening the
	// interval re-arms the timer
	s.SetInterval(15 * time.Millisecond)

	assert.Eventually(t, func() bool {
		return saver.callCount() == 1
	}, time.Second, 5*time.Millisecond)
}

// Package autosave keeps in-progress blog edits durable: a per-session
// scheduler flushes accumulated draft changes to the blog repository on a
// fixed interval whenever the draft is dirty.
package autosave

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/inkwell-cms/inkwell/internal/blogservice"
)

type State string

const (
	StateIdle   State = "idle"
	StateArmed  State = "armed"
	StateSaving State = "saving"
)

var (
	// ErrCreateMode: a draft with no assigned blog id has nothing to flush
	// to; unsaved create-mode edits are lost when the session ends.
	ErrCreateMode = errors.New("autosave requires an existing blog id")

	ErrNoSession = errors.New("no open edit session")
)

// Saver is the single repository operation the scheduler needs.
type Saver interface {
	UpdateBlog(ctx context.Context, id, ownerID string, patch *blogservice.Patch) (*blogservice.Blog, error)
}

// Scheduler drives the Idle -> Armed -> Saving -> Armed loop for one edit
// session. All methods are safe for concurrent use.
type Scheduler struct {
	saver  Saver
	logger *slog.Logger

	blogID  string
	ownerID string

	mu          sync.Mutex
	state       State
	interval    time.Duration
	dirty       bool
	draft       *blogservice.Patch
	lastSavedAt time.Time
	ticker      *time.Ticker
	done        chan struct{}
	stopped     bool
}

func NewScheduler(saver Saver, logger *slog.Logger, blogID, ownerID string, interval time.Duration) (*Scheduler, error) {
	if blogID == "" {
		return nil, ErrCreateMode
	}
	if interval <= 0 {
		interval = time.Duration(DefaultIntervalSeconds) * time.Second
	}

	return &Scheduler{
		saver:    saver,
		logger:   logger,
		blogID:   blogID,
		ownerID:  ownerID,
		state:    StateIdle,
		interval: interval,
	}, nil
}

// Start arms the recurring timer. Starting an armed scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return
	}

	s.state = StateArmed
	s.stopped = false
	s.ticker = time.NewTicker(s.interval)
	s.done = make(chan struct{})

	go s.run(ctx, s.ticker, s.done)
}

func (s *Scheduler) run(ctx context.Context, ticker *time.Ticker, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick flushes the draft iff dirty. A clean tick touches nothing. A tick
// racing Stop is discarded: the stopped flag is checked under the same lock
// that Stop holds, so no save starts after teardown.
func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	if s.stopped || !s.dirty {
		s.mu.Unlock()
		return
	}

	patch := s.draft
	s.draft = nil
	s.dirty = false
	s.state = StateSaving
	s.mu.Unlock()

	_, err := s.saver.UpdateBlog(ctx, s.blogID, s.ownerID, patch)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.logger.Error("autosave flush failed", slog.String("blog_id", s.blogID), slog.String("error", err.Error()))
		// put the unsaved draft back so the next tick retries
		if s.draft == nil {
			s.draft = patch
		} else {
			s.draft = mergePatches(patch, s.draft)
		}
		s.dirty = true
	} else {
		s.lastSavedAt = time.Now()
		s.logger.Info("autosaved draft", slog.String("blog_id", s.blogID))
	}

	if !s.stopped {
		s.state = StateArmed
	}
}

// RecordEdit folds a field change into the pending draft and marks it
// dirty. It never resets the timer.
func (s *Scheduler) RecordEdit(patch *blogservice.Patch) {
	if patch == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft = mergePatches(s.draft, patch)
	s.dirty = true
}

// SetInterval re-arms the timer with a new period; the pending dirty state
// survives the change.
func (s *Scheduler) SetInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.interval = interval
	if s.ticker != nil && !s.stopped {
		s.ticker.Reset(interval)
	}
}

// Stop tears the timer down immediately. No tick observed after Stop
// returns will flush.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.ticker == nil {
		s.state = StateIdle
		s.stopped = true
		return
	}

	s.stopped = true
	s.state = StateIdle
	s.ticker.Stop()
	close(s.done)
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Scheduler) LastSavedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSavedAt
}

// mergePatches lays b over a; later edits win field-wise, matching the
// last-write-wins contract.
func mergePatches(a, b *blogservice.Patch) *blogservice.Patch {
	if a == nil {
		out := *b
		return &out
	}

	out := *a
	if b.AuthorName != nil {
		out.AuthorName = b.AuthorName
	}
	if b.AuthorImage != nil {
		out.AuthorImage = b.AuthorImage
	}
	if b.Slug != nil {
		out.Slug = b.Slug
	}
	if b.CoverImage != nil {
		out.CoverImage = b.CoverImage
	}
	if b.Title != nil {
		out.Title = b.Title
	}
	if b.SubTitle != nil {
		out.SubTitle = b.SubTitle
	}
	if b.Tags != nil {
		out.Tags = b.Tags
	}
	if b.Content != nil {
		out.Content = b.Content
	}
	if b.Priority != nil {
		out.Priority = b.Priority
	}
	if b.Status != nil {
		out.Status = b.Status
	}
	return &out
}

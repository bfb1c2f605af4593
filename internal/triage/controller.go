package triage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/darkroom/internal/darkroom"
	"github.com/fpang/darkroom/internal/photo"
)

// DefaultCompleteDelay lets the last card's exit animation finish before the
// session reports complete.
const DefaultCompleteDelay = 300 * time.Millisecond

// Loader produces a working set for a user (darkroom.Reconciler).
type Loader interface {
	LoadWorkingSet(ctx context.Context, userID string) *darkroom.LoadResult
}

// Committer flushes decisions (photo.Service).
type Committer interface {
	BatchTriagePhotos(ctx context.Context, decisions []photo.Decision, photoTags map[string][]string) (*photo.BatchResult, error)
}

// CompletionRecorder fans out a finished triage. Only called with a
// positive journaled count.
type CompletionRecorder interface {
	RecordTriageCompletion(ctx context.Context, userID string, journaledCount int) error
}

// Options tunes Controller timing.
type Options struct {
	// CompleteDelay separates pendingSuccess from complete. Zero flips
	// complete synchronously.
	CompleteDelay time.Duration
	// UndoCooldown ignores undo calls while the previous undo animates.
	UndoCooldown time.Duration
}

// DoneResult is the outcome of Done.
type DoneResult struct {
	// Committed is false for a pure navigation exit with no decisions.
	Committed bool               `json:"committed"`
	Batch     *photo.BatchResult `json:"batch,omitempty"`
	// NotifyErr is a failed completion fan-out; the commit itself stands.
	NotifyErr error `json:"-"`
}

// Controller drives one user's triage surface: Load on mount/focus, Triage
// and Undo while the user works, Done to commit. It is safe for concurrent
// use; the Session it exposes is an immutable snapshot.
type Controller struct {
	userID    string
	loader    Loader
	committer Committer
	recorder  CompletionRecorder
	opts      Options
	now       func() time.Time

	mu         sync.Mutex
	session    *Session
	loading    bool
	loadSeq    uint64
	committing bool
	closed     bool
	undoUntil  time.Time
	completeAt *time.Timer
	gen        uint64
}

// NewController creates a Controller. recorder may be nil.
func NewController(userID string, loader Loader, committer Committer, recorder CompletionRecorder, opts Options) *Controller {
	return &Controller{
		userID:    userID,
		loader:    loader,
		committer: committer,
		recorder:  recorder,
		opts:      opts,
		now:       time.Now,
	}
}

// Load starts a fresh session. Any uncommitted decisions are discarded up
// front, before the working set is fetched; triage calls fail with
// ErrNotLoaded until the load finishes.
func (c *Controller) Load(ctx context.Context) (*darkroom.LoadResult, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.committing {
		c.mu.Unlock()
		return nil, ErrCommitInFlight
	}
	if c.session != nil && c.session.UndoDepth() > 0 {
		log.Warn().
			Str("userId", c.userID).
			Int("discarded", c.session.UndoDepth()).
			Msg("Reload discarded uncommitted triage decisions")
	}
	c.cancelCompleteLocked()
	c.session = nil
	c.loading = true
	c.loadSeq++
	seq := c.loadSeq
	c.mu.Unlock()

	result := c.loader.LoadWorkingSet(ctx, c.userID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || seq != c.loadSeq {
		// Superseded or unmounted: the writes already happened, only the
		// result is dropped.
		return result, nil
	}
	c.loading = false
	c.session = NewSession(c.userID, result.Photos)

	log.Info().
		Str("userId", c.userID).
		Int("photos", len(result.Photos)).
		Bool("catchUp", result.CatchUp).
		Msg("Triage session loaded")
	return result, nil
}

// Session returns the current snapshot, or nil before the first load and
// after a successful commit.
func (c *Controller) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Loading reports whether a load is in progress.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *Controller) readyLocked() error {
	switch {
	case c.closed:
		return ErrClosed
	case c.committing:
		return ErrCommitInFlight
	case c.loading || c.session == nil:
		return ErrNotLoaded
	}
	return nil
}

// Triage buffers one decision. No persistence happens here.
func (c *Controller) Triage(photoID string, action photo.Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.readyLocked(); err != nil {
		return err
	}

	wasPending := c.session.PendingSuccess()
	next, err := c.session.Triage(photoID, action)
	if err != nil {
		return err
	}
	c.session = next
	if next.PendingSuccess() && !wasPending {
		c.scheduleCompleteLocked()
	}
	return nil
}

// Undo reverts the most recent decision. It reports false when there is
// nothing to undo, the session is not ready, or an undo is still animating.
func (c *Controller) Undo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readyLocked() != nil {
		return false
	}
	now := c.now()
	if now.Before(c.undoUntil) {
		return false
	}

	next, undone, ok := c.session.Undo()
	if !ok {
		return false
	}
	c.cancelCompleteLocked()
	c.session = next
	if c.opts.UndoCooldown > 0 {
		c.undoUntil = now.Add(c.opts.UndoCooldown)
	}

	log.Debug().Str("userId", c.userID).Str("photoId", undone.PhotoID).Str("action", string(undone.Action)).Msg("Triage decision undone")
	return true
}

// SetTags replaces the friend tags of a visible photo.
func (c *Controller) SetTags(photoID string, friendIDs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.readyLocked(); err != nil {
		return err
	}
	next, err := c.session.SetTags(photoID, friendIDs)
	if err != nil {
		return err
	}
	c.session = next
	return nil
}

// Done commits the buffered decisions in the order they were made. With no
// decisions it is a pure exit and touches nothing. On commit failure the
// session stays intact so the user can retry. On success the session is
// cleared and, when anything was journaled, the completion is recorded.
func (c *Controller) Done(ctx context.Context) (*DoneResult, error) {
	c.mu.Lock()
	if err := c.readyLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	decisions := c.session.Decisions()
	if len(decisions) == 0 {
		c.mu.Unlock()
		return &DoneResult{}, nil
	}
	tags := c.session.Tags()
	c.committing = true
	c.mu.Unlock()

	batch, err := c.committer.BatchTriagePhotos(ctx, decisions, tags)

	c.mu.Lock()
	c.committing = false
	if err != nil {
		c.mu.Unlock()
		log.Error().Err(err).Str("userId", c.userID).Int("decisions", len(decisions)).Msg("Triage commit failed, session kept for retry")
		return nil, fmt.Errorf("commit triage for %s: %w", c.userID, err)
	}
	c.cancelCompleteLocked()
	c.session = nil
	c.mu.Unlock()

	result := &DoneResult{Committed: true, Batch: batch}
	if batch.JournaledCount > 0 && c.recorder != nil {
		if err := c.recorder.RecordTriageCompletion(ctx, c.userID, batch.JournaledCount); err != nil {
			log.Warn().Err(err).Str("userId", c.userID).Msg("Triage completion fan-out failed")
			result.NotifyErr = err
		}
	}
	return result, nil
}

// Close stops timers and drops any in-flight load result. In-flight
// persistence is never aborted.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.cancelCompleteLocked()
}

func (c *Controller) scheduleCompleteLocked() {
	c.cancelCompleteLocked()
	if c.opts.CompleteDelay <= 0 {
		c.session = c.session.MarkComplete()
		return
	}
	gen := c.gen
	c.completeAt = time.AfterFunc(c.opts.CompleteDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen || c.session == nil {
			return
		}
		c.session = c.session.MarkComplete()
	})
}

func (c *Controller) cancelCompleteLocked() {
	c.gen++
	if c.completeAt != nil {
		c.completeAt.Stop()
		c.completeAt = nil
	}
}

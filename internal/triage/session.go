// Package triage holds the client-side triage session: the buffer of pending
// journal/archive/delete decisions over a revealed working set, its strict
// LIFO undo, and the Controller that loads a working set and commits the
// buffer in one batch.
//
// A Session is an immutable snapshot. Every transition returns a new
// Session and leaves the receiver untouched, so derived views (visible
// queue, decision list, tag map) are always computed from one consistent
// value.
package triage

import (
	"errors"
	"fmt"

	"github.com/fpang/darkroom/internal/photo"
	"github.com/fpang/darkroom/internal/store"
)

var (
	ErrUnknownPhoto   = errors.New("photo is not in the working set")
	ErrAlreadyDecided = errors.New("photo already has a pending decision")
	ErrNotLoaded      = errors.New("triage session is not loaded")
	ErrCommitInFlight = errors.New("triage commit already in flight")
	ErrClosed         = errors.New("triage controller is closed")
)

// ExitDirection is the card exit direction shown for a decision. It has no
// effect on what gets committed.
type ExitDirection string

const (
	ExitRight ExitDirection = "right"
	ExitLeft  ExitDirection = "left"
	ExitDown  ExitDirection = "down"
)

func exitDirection(a photo.Action) ExitDirection {
	switch a {
	case photo.ActionJournal:
		return ExitRight
	case photo.ActionArchive:
		return ExitLeft
	}
	return ExitDown
}

// Decision is a buffered triage decision plus the tag snapshot taken when it
// was made, so undo can restore the tags exactly.
type Decision struct {
	PhotoID       string        `json:"photoId"`
	Action        photo.Action  `json:"action"`
	ExitDirection ExitDirection `json:"exitDirection"`
	Tags          []string      `json:"tags,omitempty"`
}

// Session is one triage session over a fixed working set.
type Session struct {
	userID string
	photos []*store.Photo
	index  map[string]int

	// decided holds one entry per hidden photo; stack orders the same IDs
	// oldest decision first. Membership of the two always matches.
	decided map[string]Decision
	stack   []string

	tags map[string][]string

	pendingSuccess bool
	complete       bool
}

// NewSession starts a fresh session over photos, in the given order.
func NewSession(userID string, photos []*store.Photo) *Session {
	s := &Session{
		userID:  userID,
		photos:  append([]*store.Photo(nil), photos...),
		index:   make(map[string]int, len(photos)),
		decided: make(map[string]Decision),
		tags:    make(map[string][]string),
	}
	for i, p := range s.photos {
		s.index[p.ID] = i
	}
	return s
}

// clone copies the mutable parts; photos and index never change after
// NewSession and are shared.
func (s *Session) clone() *Session {
	c := *s
	c.decided = make(map[string]Decision, len(s.decided)+1)
	for k, v := range s.decided {
		c.decided[k] = v
	}
	c.stack = append([]string(nil), s.stack...)
	c.tags = make(map[string][]string, len(s.tags))
	for k, v := range s.tags {
		c.tags[k] = v
	}
	return &c
}

// Triage buffers action for photoID and hides it. When the last visible
// photo is decided the session turns pendingSuccess; the Controller flips
// it to complete after the exit animation.
func (s *Session) Triage(photoID string, action photo.Action) (*Session, error) {
	if _, err := photo.ParseAction(string(action)); err != nil {
		return s, err
	}
	if _, ok := s.index[photoID]; !ok {
		return s, fmt.Errorf("triage %s: %w", photoID, ErrUnknownPhoto)
	}
	if _, ok := s.decided[photoID]; ok {
		return s, fmt.Errorf("triage %s: %w", photoID, ErrAlreadyDecided)
	}

	next := s.clone()
	next.decided[photoID] = Decision{
		PhotoID:       photoID,
		Action:        action,
		ExitDirection: exitDirection(action),
		Tags:          copyTags(s.tags[photoID]),
	}
	next.stack = append(next.stack, photoID)
	if next.VisibleCount() == 0 {
		next.pendingSuccess = true
	}
	return next, nil
}

// Undo pops the most recent decision, makes its photo visible again and
// restores its tag snapshot. ok is false when there is nothing to undo.
func (s *Session) Undo() (next *Session, undone Decision, ok bool) {
	if len(s.stack) == 0 {
		return s, Decision{}, false
	}

	next = s.clone()
	top := next.stack[len(next.stack)-1]
	next.stack = next.stack[:len(next.stack)-1]
	undone = next.decided[top]
	delete(next.decided, top)

	if len(undone.Tags) == 0 {
		delete(next.tags, top)
	} else {
		next.tags[top] = copyTags(undone.Tags)
	}
	next.pendingSuccess = false
	next.complete = false
	return next, undone, true
}

// SetTags replaces the friend tags of a visible photo. An empty list clears them.
func (s *Session) SetTags(photoID string, friendIDs []string) (*Session, error) {
	if _, ok := s.index[photoID]; !ok {
		return s, fmt.Errorf("tag %s: %w", photoID, ErrUnknownPhoto)
	}
	if _, ok := s.decided[photoID]; ok {
		return s, fmt.Errorf("tag %s: %w", photoID, ErrAlreadyDecided)
	}

	next := s.clone()
	if len(friendIDs) == 0 {
		delete(next.tags, photoID)
	} else {
		next.tags[photoID] = copyTags(friendIDs)
	}
	return next, nil
}

// MarkComplete turns a pendingSuccess session complete. Other sessions are
// returned unchanged.
func (s *Session) MarkComplete() *Session {
	if !s.pendingSuccess || s.complete {
		return s
	}
	next := s.clone()
	next.complete = true
	return next
}

// UserID returns the session owner.
func (s *Session) UserID() string { return s.userID }

// Photos returns the whole working set, hidden photos included.
func (s *Session) Photos() []*store.Photo {
	return append([]*store.Photo(nil), s.photos...)
}

// Visible returns the undecided photos in working-set order.
func (s *Session) Visible() []*store.Photo {
	out := make([]*store.Photo, 0, len(s.photos)-len(s.decided))
	for _, p := range s.photos {
		if _, hidden := s.decided[p.ID]; !hidden {
			out = append(out, p)
		}
	}
	return out
}

// VisibleCount is len(Visible()) without the allocation.
func (s *Session) VisibleCount() int {
	return len(s.photos) - len(s.decided)
}

// Hidden reports whether photoID has a pending decision.
func (s *Session) Hidden(photoID string) bool {
	_, ok := s.decided[photoID]
	return ok
}

// Stack returns the buffered decisions, oldest first.
func (s *Session) Stack() []Decision {
	out := make([]Decision, 0, len(s.stack))
	for _, id := range s.stack {
		d := s.decided[id]
		d.Tags = copyTags(d.Tags)
		out = append(out, d)
	}
	return out
}

// UndoDepth is the number of undoable decisions.
func (s *Session) UndoDepth() int { return len(s.stack) }

// Decisions maps the stack to commit order.
func (s *Session) Decisions() []photo.Decision {
	out := make([]photo.Decision, 0, len(s.stack))
	for _, id := range s.stack {
		out = append(out, photo.Decision{PhotoID: id, Action: s.decided[id].Action})
	}
	return out
}

// Tags returns a copy of the live tag map.
func (s *Session) Tags() map[string][]string {
	out := make(map[string][]string, len(s.tags))
	for k, v := range s.tags {
		out[k] = copyTags(v)
	}
	return out
}

// PendingSuccess is set synchronously once every photo is decided.
func (s *Session) PendingSuccess() bool { return s.pendingSuccess }

// Complete is set once the post-decision delay has elapsed.
func (s *Session) Complete() bool { return s.complete }

func copyTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	return append([]string(nil), tags...)
}

package triage

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/fpang/darkroom/internal/photo"
	"github.com/fpang/darkroom/internal/store"
)

func workingSet(ids ...string) []*store.Photo {
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	photos := make([]*store.Photo, len(ids))
	for i, id := range ids {
		photos[i] = &store.Photo{ID: id, UserID: "u1", Status: store.StatusRevealed, CapturedAt: base.Add(time.Duration(i) * time.Minute)}
	}
	return photos
}

func visibleIDs(s *Session) []string {
	var out []string
	for _, p := range s.Visible() {
		out = append(out, p.ID)
	}
	return out
}

func mustTriage(t *testing.T, s *Session, id string, a photo.Action) *Session {
	t.Helper()
	next, err := s.Triage(id, a)
	if err != nil {
		t.Fatalf("triage %s: %v", id, err)
	}
	return next
}

func TestSession_TriageThenUndo(t *testing.T) {
	s := NewSession("u1", workingSet("p1", "p2", "p3"))

	s = mustTriage(t, s, "p1", photo.ActionJournal)
	s = mustTriage(t, s, "p2", photo.ActionArchive)
	if s.UndoDepth() != 2 || s.VisibleCount() != 1 {
		t.Errorf("expected depth 2 visible 1, got depth %d visible %d", s.UndoDepth(), s.VisibleCount())
	}

	s, undone, ok := s.Undo()
	if !ok {
		t.Fatal("expected undo to succeed")
	}
	if undone.PhotoID != "p2" || undone.Action != photo.ActionArchive {
		t.Errorf("expected p2/archive undone, got %+v", undone)
	}
	if s.UndoDepth() != 1 || s.VisibleCount() != 2 {
		t.Errorf("expected depth 1 visible 2, got depth %d visible %d", s.UndoDepth(), s.VisibleCount())
	}
	if s.Hidden("p2") {
		t.Error("expected p2 visible again")
	}
	if diff := cmp.Diff([]photo.Decision{{PhotoID: "p1", Action: photo.ActionJournal}}, s.Decisions()); diff != "" {
		t.Errorf("decisions mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_ExitDirections(t *testing.T) {
	s := NewSession("u1", workingSet("p1", "p2", "p3"))
	s = mustTriage(t, s, "p1", photo.ActionJournal)
	s = mustTriage(t, s, "p2", photo.ActionArchive)
	s = mustTriage(t, s, "p3", photo.ActionDelete)

	var got []ExitDirection
	for _, d := range s.Stack() {
		got = append(got, d.ExitDirection)
	}
	if diff := cmp.Diff([]ExitDirection{ExitRight, ExitLeft, ExitDown}, got); diff != "" {
		t.Errorf("exit directions mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_IsImmutable(t *testing.T) {
	s0 := NewSession("u1", workingSet("p1", "p2"))
	s1 := mustTriage(t, s0, "p1", photo.ActionJournal)

	if s0.UndoDepth() != 0 || s0.VisibleCount() != 2 || s0.Hidden("p1") {
		t.Error("expected original snapshot unchanged")
	}
	if s1.UndoDepth() != 1 || !s1.Hidden("p1") {
		t.Error("expected new snapshot to carry the decision")
	}
}

func TestSession_UndoSymmetry(t *testing.T) {
	s0 := NewSession("u1", workingSet("p1", "p2", "p3", "p4"))
	var err error
	s0, err = s0.SetTags("p2", []string{"alice"})
	if err != nil {
		t.Fatal(err)
	}
	wantVisible := visibleIDs(s0)
	wantTags := s0.Tags()

	s := s0
	s = mustTriage(t, s, "p3", photo.ActionDelete)
	s = mustTriage(t, s, "p2", photo.ActionJournal)
	s, err = s.SetTags("p1", []string{"bob"})
	if err != nil {
		t.Fatal(err)
	}
	s, _ = s.SetTags("p1", nil)
	s = mustTriage(t, s, "p1", photo.ActionArchive)

	for i := 0; i < 3; i++ {
		var ok bool
		s, _, ok = s.Undo()
		if !ok {
			t.Fatalf("undo %d failed", i)
		}
	}

	if s.UndoDepth() != 0 {
		t.Errorf("expected empty stack, got %d", s.UndoDepth())
	}
	if diff := cmp.Diff(wantVisible, visibleIDs(s)); diff != "" {
		t.Errorf("visible mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantTags, s.Tags()); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if _, _, ok := s.Undo(); ok {
		t.Error("expected undo on empty stack to report false")
	}
}

func TestSession_UndoRestoresTagSnapshot(t *testing.T) {
	s := NewSession("u1", workingSet("p1", "p2"))
	s, _ = s.SetTags("p1", []string{"alice", "bob"})
	s = mustTriage(t, s, "p1", photo.ActionJournal)

	if _, err := s.SetTags("p1", []string{"carol"}); !errors.Is(err, ErrAlreadyDecided) {
		t.Errorf("expected tagging a hidden photo to fail, got %v", err)
	}

	s, _, _ = s.Undo()
	if diff := cmp.Diff(map[string][]string{"p1": {"alice", "bob"}}, s.Tags()); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_Errors(t *testing.T) {
	s := NewSession("u1", workingSet("p1"))
	if _, err := s.Triage("zz", photo.ActionJournal); !errors.Is(err, ErrUnknownPhoto) {
		t.Errorf("expected ErrUnknownPhoto, got %v", err)
	}
	if _, err := s.Triage("p1", "keep"); !errors.Is(err, photo.ErrInvalidAction) {
		t.Errorf("expected ErrInvalidAction, got %v", err)
	}
	s = mustTriage(t, s, "p1", photo.ActionDelete)
	if _, err := s.Triage("p1", photo.ActionJournal); !errors.Is(err, ErrAlreadyDecided) {
		t.Errorf("expected ErrAlreadyDecided, got %v", err)
	}
	if _, err := s.SetTags("zz", []string{"a"}); !errors.Is(err, ErrUnknownPhoto) {
		t.Errorf("expected ErrUnknownPhoto for tags, got %v", err)
	}
}

func TestSession_PendingSuccessAndComplete(t *testing.T) {
	s := NewSession("u1", workingSet("p1", "p2"))
	s = mustTriage(t, s, "p1", photo.ActionJournal)
	if s.PendingSuccess() {
		t.Error("expected not pending with photos left")
	}
	if s.MarkComplete().Complete() {
		t.Error("expected MarkComplete to be a no-op before pendingSuccess")
	}

	s = mustTriage(t, s, "p2", photo.ActionJournal)
	if !s.PendingSuccess() || s.Complete() {
		t.Errorf("expected pending but not complete, got pending=%v complete=%v", s.PendingSuccess(), s.Complete())
	}
	s = s.MarkComplete()
	if !s.Complete() {
		t.Error("expected complete")
	}

	s, _, _ = s.Undo()
	if s.PendingSuccess() || s.Complete() {
		t.Error("expected undo to clear pendingSuccess and complete")
	}
}

func TestSession_EmptyWorkingSet(t *testing.T) {
	s := NewSession("u1", nil)
	if s.VisibleCount() != 0 || s.PendingSuccess() {
		t.Errorf("expected empty idle session, got visible=%d pending=%v", s.VisibleCount(), s.PendingSuccess())
	}
	if len(s.Decisions()) != 0 {
		t.Error("expected no decisions")
	}
}

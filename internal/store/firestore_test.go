package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/go-cmp/cmp"
)

func TestFirestoreUpdates(t *testing.T) {
	triaged := StatusTriaged
	state := StateJournal
	month := "2026-03"
	got := firestoreUpdates(PhotoUpdate{Status: &triaged, PhotoState: &state, Month: &month, TaggedUserIDs: []string{"f1"}})

	want := []firestore.Update{
		{Path: "status", Value: "triaged"},
		{Path: "photoState", Value: "journal"},
		{Path: "month", Value: "2026-03"},
		{Path: "taggedUserIds", Value: []string{"f1"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("updates mismatch (-want +got):\n%s", diff)
	}
	if len(firestoreUpdates(PhotoUpdate{})) != 0 {
		t.Error("expected no updates for empty PhotoUpdate")
	}
}

// newEmulatorStore connects to FIRESTORE_EMULATOR_HOST or skips.
func newEmulatorStore(t *testing.T) *FirestoreStore {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), "darkroom-test")
	if err != nil {
		t.Fatalf("firestore client: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return NewFirestoreStore(client)
}

func TestFirestoreStore_Emulator(t *testing.T) {
	s := newEmulatorStore(t)
	ctx := context.Background()
	user := fmt.Sprintf("u-%d", time.Now().UnixNano())

	captured := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for _, id := range []string{user + "-a", user + "-b"} {
		p := &Photo{ID: id, UserID: user, CapturedAt: captured, Status: StatusDeveloping, Visibility: VisibilityFriends, Reactions: map[string]string{}}
		if err := s.PutPhoto(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	developing, err := s.QueryPhotos(ctx, user, StatusDeveloping)
	if err != nil {
		t.Fatal(err)
	}
	if len(developing) != 2 {
		t.Fatalf("expected 2 developing photos, got %d", len(developing))
	}

	revealed := StatusRevealed
	err = s.BatchUpdatePhotos(ctx, []PhotoPatch{
		{PhotoID: user + "-a", Update: PhotoUpdate{Status: &revealed}},
		{PhotoID: user + "-b", Update: PhotoUpdate{Status: &revealed}},
	})
	if err != nil {
		t.Fatal(err)
	}
	developing, _ = s.QueryPhotos(ctx, user, StatusDeveloping)
	if len(developing) != 0 {
		t.Errorf("expected no developing photos after reveal, got %d", len(developing))
	}

	if err := s.UpdatePhoto(ctx, user+"-missing", PhotoUpdate{Status: &revealed}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	d, err := s.GetDarkroom(ctx, user)
	if err != nil || d != nil {
		t.Fatalf("expected nil, nil for missing darkroom; got %v, %v", d, err)
	}
	next := captured.Add(5 * time.Minute)
	if err := s.PutDarkroom(ctx, &Darkroom{UserID: user, NextRevealAt: &next, CreatedAt: captured}); err != nil {
		t.Fatal(err)
	}
	d, err = s.GetDarkroom(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if d.NextRevealAt == nil || !d.NextRevealAt.Equal(next) {
		t.Errorf("expected nextRevealAt %v, got %v", next, d.NextRevealAt)
	}
}

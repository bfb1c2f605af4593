package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_ClonesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	p := &Photo{ID: "p1", UserID: "u1", Status: StatusDeveloping, Reactions: map[string]string{}}
	if err := m.PutPhoto(ctx, p); err != nil {
		t.Fatal(err)
	}

	p.Status = StatusTriaged
	p.Reactions["u2"] = "🔥"

	got, err := m.GetPhoto(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusDeveloping {
		t.Errorf("expected stored status developing, got %s", got.Status)
	}
	if len(got.Reactions) != 0 {
		t.Errorf("expected stored reactions untouched, got %v", got.Reactions)
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	m := NewMemoryStore()
	p, err := m.GetPhoto(context.Background(), "nope")
	if err != nil || p != nil {
		t.Errorf("expected nil, nil; got %v, %v", p, err)
	}
	d, err := m.GetDarkroom(context.Background(), "nope")
	if err != nil || d != nil {
		t.Errorf("expected nil, nil; got %v, %v", d, err)
	}
}

func TestMemoryStore_UpdateMissing(t *testing.T) {
	m := NewMemoryStore()
	s := StatusRevealed
	err := m.UpdatePhoto(context.Background(), "nope", PhotoUpdate{Status: &s})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_QueryFiltersByUserAndStatus(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	for _, p := range []*Photo{
		{ID: "a", UserID: "u1", Status: StatusDeveloping},
		{ID: "b", UserID: "u1", Status: StatusRevealed},
		{ID: "c", UserID: "u2", Status: StatusDeveloping},
	} {
		if err := m.PutPhoto(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	got, err := m.QueryPhotos(ctx, "u1", StatusDeveloping)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("expected only photo a, got %v", got)
	}
}

func TestMemoryStore_BatchIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if err := m.PutPhoto(ctx, &Photo{ID: "a", UserID: "u1", Status: StatusDeveloping}); err != nil {
		t.Fatal(err)
	}

	revealed := StatusRevealed
	err := m.BatchUpdatePhotos(ctx, []PhotoPatch{
		{PhotoID: "a", Update: PhotoUpdate{Status: &revealed}},
		{PhotoID: "missing", Update: PhotoUpdate{Status: &revealed}},
	})

	var batchErr *BatchError
	if !errors.As(err, &batchErr) {
		t.Fatalf("expected BatchError, got %v", err)
	}
	if batchErr.Applied != 0 || batchErr.Total != 2 {
		t.Errorf("expected applied 0 of 2, got %d of %d", batchErr.Applied, batchErr.Total)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected wrapped ErrNotFound, got %v", err)
	}

	a, _ := m.GetPhoto(ctx, "a")
	if a.Status != StatusDeveloping {
		t.Errorf("expected photo a untouched, got %s", a.Status)
	}
}

func TestPhotoUpdate_Apply(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	triaged := StatusTriaged
	state := StateJournal
	month := "2026-01"
	p := &Photo{ID: "p1", Status: StatusRevealed, Visibility: VisibilityFriends}

	PhotoUpdate{Status: &triaged, PhotoState: &state, Month: &month, RevealedAt: &now}.Apply(p)

	if p.Status != StatusTriaged || p.PhotoState != StateJournal || p.Month != month {
		t.Errorf("unexpected photo after apply: %+v", p)
	}
	if p.RevealedAt == nil || !p.RevealedAt.Equal(now) {
		t.Errorf("expected revealedAt %v, got %v", now, p.RevealedAt)
	}
	if p.Visibility != VisibilityFriends {
		t.Errorf("expected untouched visibility, got %q", p.Visibility)
	}
}

func TestPhoto_Consistent(t *testing.T) {
	tests := []struct {
		name  string
		photo Photo
		want  bool
	}{
		{"developing without state", Photo{Status: StatusDeveloping}, true},
		{"revealed without state", Photo{Status: StatusRevealed}, true},
		{"triaged with state", Photo{Status: StatusTriaged, PhotoState: StateArchive}, true},
		{"triaged without state", Photo{Status: StatusTriaged}, false},
		{"revealed with state", Photo{Status: StatusRevealed, PhotoState: StateJournal}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.photo.Consistent(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

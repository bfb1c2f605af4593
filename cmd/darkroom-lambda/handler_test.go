package main

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/fpang/darkroom/internal/darkroom"
	"github.com/fpang/darkroom/internal/metrics"
	"github.com/fpang/darkroom/internal/photo"
	"github.com/fpang/darkroom/internal/store"
)

func TestMain(m *testing.M) {
	metrics.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type fixedClock struct {
	now time.Time
	r   float64
}

func (c *fixedClock) Now() time.Time   { return c.now }
func (c *fixedClock) Random() float64 { return c.r }

type countingRecorder struct {
	calls []int
}

func (r *countingRecorder) RecordTriageCompletion(_ context.Context, _ string, n int) error {
	r.calls = append(r.calls, n)
	return nil
}

func setupTest(t *testing.T) (*store.MemoryStore, *fixedClock, *countingRecorder) {
	t.Helper()
	mem := store.NewMemoryStore()
	clock := &fixedClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	rec := &countingRecorder{}
	n := 0
	wire(darkroom.NewService(mem, mem, darkroom.WithClock(clock)), mem, photo.DefaultDeletionGrace,
		photo.WithClock(clock),
		photo.WithIDGenerator(func() string {
			n++
			return "photo-" + string(rune('0'+n))
		}))
	recorder = rec
	return mem, clock, rec
}

func TestHandler_UnknownType(t *testing.T) {
	setupTest(t)
	if _, err := handler(context.Background(), DarkroomEvent{Type: "nope"}); err == nil {
		t.Error("expected error for unknown event type")
	}
}

func TestHandler_CaptureThenLoad(t *testing.T) {
	_, clock, _ := setupTest(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := handler(ctx, DarkroomEvent{Type: "capture", UserID: "u1", ImageURL: "https://img/x.jpg"}); err != nil {
			t.Fatalf("capture: %v", err)
		}
	}

	// Random() == 0 puts nextRevealAt one second after capture.
	clock.now = clock.now.Add(time.Minute)
	out, err := handler(ctx, DarkroomEvent{Type: "load-session", UserID: "u1"})
	if err != nil {
		t.Fatalf("load-session: %v", err)
	}
	result := out.(*darkroom.LoadResult)
	if result.Revealed != 2 {
		t.Errorf("expected 2 revealed, got %d", result.Revealed)
	}
	if len(result.Photos) != 2 {
		t.Fatalf("expected 2 photos in working set, got %d", len(result.Photos))
	}
	for _, p := range result.Photos {
		if p.Status != store.StatusRevealed {
			t.Errorf("expected %s revealed, got %s", p.ID, p.Status)
		}
	}
}

func TestHandler_BatchTriageNotifies(t *testing.T) {
	mem, _, rec := setupTest(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if err := mem.PutPhoto(ctx, &store.Photo{ID: id, UserID: "u1", Status: store.StatusRevealed}); err != nil {
			t.Fatal(err)
		}
	}

	out, err := handler(ctx, DarkroomEvent{
		Type:   "batch-triage",
		UserID: "u1",
		Decisions: []photo.Decision{
			{PhotoID: "a", Action: photo.ActionJournal},
			{PhotoID: "b", Action: photo.ActionDelete},
		},
		PhotoTags: map[string][]string{"a": {"friend-1"}},
	})
	if err != nil {
		t.Fatalf("batch-triage: %v", err)
	}
	result := out.(*BatchTriageResult)
	if result.JournaledCount != 1 || !result.Notified {
		t.Errorf("expected journaledCount 1 and notified, got %+v", result)
	}
	if len(rec.calls) != 1 || rec.calls[0] != 1 {
		t.Errorf("expected one completion with count 1, got %v", rec.calls)
	}

	a, _ := mem.GetPhoto(ctx, "a")
	if a.PhotoState != store.StateJournal || len(a.TaggedUserIDs) != 1 {
		t.Errorf("expected journaled photo with tag, got %+v", a)
	}
}

func TestHandler_BatchTriageRejectsInvalidAction(t *testing.T) {
	setupTest(t)
	_, err := handler(context.Background(), DarkroomEvent{
		Type:      "batch-triage",
		UserID:    "u1",
		Decisions: []photo.Decision{{PhotoID: "a", Action: "keep"}},
	})
	if !errors.Is(err, photo.ErrInvalidAction) {
		t.Errorf("expected ErrInvalidAction, got %v", err)
	}
}

func TestHandler_ArchiveOnlySkipsNotification(t *testing.T) {
	mem, _, rec := setupTest(t)
	ctx := context.Background()
	if err := mem.PutPhoto(ctx, &store.Photo{ID: "a", UserID: "u1", Status: store.StatusRevealed}); err != nil {
		t.Fatal(err)
	}

	if _, err := handler(ctx, DarkroomEvent{
		Type:      "batch-triage",
		UserID:    "u1",
		Decisions: []photo.Decision{{PhotoID: "a", Action: photo.ActionArchive}},
	}); err != nil {
		t.Fatal(err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("expected no completion, got %v", rec.calls)
	}
}

func TestHandler_ReactMissingPhoto(t *testing.T) {
	setupTest(t)
	_, err := handler(context.Background(), DarkroomEvent{Type: "react", UserID: "u1", PhotoID: "missing", Emoji: "🔥"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DARKROOM_BACKEND", "dynamo")
	t.Setenv("DARKROOM_DYNAMO_TABLE", "darkroom-dev")
	t.Setenv("DARKROOM_REVEAL_MAX_DELAY", "10m")
	t.Setenv("DARKROOM_DELETION_GRACE", "48h")
	t.Setenv("DARKROOM_METRICS_NAMESPACE", "DarkroomDev")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RevealMaxDelay != 10*time.Minute {
		t.Errorf("expected reveal max delay 10m, got %s", cfg.RevealMaxDelay)
	}
	if cfg.DeletionGrace != 48*time.Hour {
		t.Errorf("expected deletion grace 48h, got %s", cfg.DeletionGrace)
	}
	if cfg.MetricsNamespace != "DarkroomDev" || cfg.DynamoTable != "darkroom-dev" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLoadConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"malformed deletion grace", map[string]string{"DARKROOM_DELETION_GRACE": "30d"}},
		{"malformed reveal delay", map[string]string{"DARKROOM_REVEAL_MAX_DELAY": "soon"}},
		{"missing table", map[string]string{"DARKROOM_DYNAMO_TABLE": ""}},
		{"non-dynamo backend", map[string]string{"DARKROOM_BACKEND": "memory"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv("DARKROOM_BACKEND", "dynamo")
			t.Setenv("DARKROOM_DYNAMO_TABLE", "darkroom-dev")
			t.Setenv("DARKROOM_REVEAL_MAX_DELAY", "")
			t.Setenv("DARKROOM_DELETION_GRACE", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := loadConfig(); err == nil {
				t.Error("expected configuration error")
			}
		})
	}
}

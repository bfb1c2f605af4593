package photo

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fpang/darkroom/internal/store"
)

func TestToggleReaction(t *testing.T) {
	svc, mem, _ := newTestService(t)
	ctx := context.Background()
	seed(t, mem, revealedPhoto("p", t0))

	steps := []struct {
		user, emoji string
		want        map[string]string
	}{
		{"u2", "🔥", map[string]string{"u2": "🔥"}},
		{"u3", "😂", map[string]string{"u2": "🔥", "u3": "😂"}},
		{"u2", "😍", map[string]string{"u2": "😍", "u3": "😂"}},
		{"u2", "😍", map[string]string{"u3": "😂"}},
		{"u3", "", map[string]string{}},
	}
	for i, s := range steps {
		p, err := svc.ToggleReaction(ctx, "p", s.user, s.emoji)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if diff := cmp.Diff(s.want, p.Reactions); diff != "" {
			t.Errorf("step %d reactions mismatch (-want +got):\n%s", i, diff)
		}
		if p.ReactionCount != len(s.want) {
			t.Errorf("step %d: expected reactionCount %d, got %d", i, len(s.want), p.ReactionCount)
		}

		stored, _ := mem.GetPhoto(ctx, "p")
		if stored.ReactionCount != len(stored.Reactions) {
			t.Errorf("step %d: stored count %d does not match %d reactions", i, stored.ReactionCount, len(stored.Reactions))
		}
	}
}

func TestToggleReaction_MissingPhoto(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.ToggleReaction(context.Background(), "nope", "u1", "🔥"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

package photo

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/fpang/darkroom/internal/store"
)

// ToggleReaction sets userID's reaction on the photo to emoji. Sending the
// emoji the user already has, or an empty emoji, clears it. reactionCount
// always equals the number of reacting users.
func (s *Service) ToggleReaction(ctx context.Context, photoID, userID, emoji string) (*store.Photo, error) {
	if userID == "" {
		return nil, fmt.Errorf("react to photo %s: empty user id", photoID)
	}

	p, err := s.photos.GetPhoto(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("react to photo %s: %w", photoID, err)
	}
	if p == nil {
		return nil, fmt.Errorf("react to photo %s: %w", photoID, store.ErrNotFound)
	}

	reactions := make(map[string]string, len(p.Reactions)+1)
	for k, v := range p.Reactions {
		reactions[k] = v
	}
	if emoji == "" || reactions[userID] == emoji {
		delete(reactions, userID)
	} else {
		reactions[userID] = emoji
	}
	count := len(reactions)

	u := store.PhotoUpdate{Reactions: reactions, ReactionCount: &count}
	if err := s.photos.UpdatePhoto(ctx, photoID, u); err != nil {
		return nil, fmt.Errorf("react to photo %s: %w", photoID, err)
	}
	u.Apply(p)

	log.Debug().Str("photoId", photoID).Str("userId", userID).Int("reactionCount", count).Msg("Reaction updated")
	return p, nil
}

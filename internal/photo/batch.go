package photo

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/fpang/darkroom/internal/metrics"
)

// Decision is one committed triage decision.
type Decision struct {
	PhotoID string `json:"photoId"`
	Action  Action `json:"action"`
}

// ItemResult is the per-decision outcome of a batch.
type ItemResult struct {
	PhotoID string `json:"photoId"`
	Action  Action `json:"action"`
	Err     error  `json:"-"`
	Error   string `json:"error,omitempty"`
}

// BatchResult summarises a batch commit.
type BatchResult struct {
	// JournaledCount is the number of decisions whose action was journal.
	// It drives the completion fan-out and counts decisions, not successes.
	JournaledCount int          `json:"journaledCount"`
	FailedCount    int          `json:"failedCount"`
	Items          []ItemResult `json:"items"`
}

// BatchTriagePhotos applies decisions in order. photoTags maps photo IDs to
// tagged friend IDs; tags are stored on journaled and archived photos.
//
// Per-item failures are recorded in Items and logged but never fail the
// batch: the returned error is always nil and callers treat the commit as
// successful.
func (s *Service) BatchTriagePhotos(ctx context.Context, decisions []Decision, photoTags map[string][]string) (*BatchResult, error) {
	result := &BatchResult{Items: make([]ItemResult, 0, len(decisions))}

	for _, d := range decisions {
		if d.Action == ActionJournal {
			result.JournaledCount++
		}

		item := ItemResult{PhotoID: d.PhotoID, Action: d.Action}
		if err := s.triage(ctx, d.PhotoID, d.Action, photoTags[d.PhotoID]); err != nil {
			log.Warn().Err(err).Str("photoId", d.PhotoID).Str("action", string(d.Action)).Msg("Triage update failed, continuing batch")
			item.Err = err
			item.Error = err.Error()
			result.FailedCount++
		}
		result.Items = append(result.Items, item)
	}

	if len(decisions) > 0 {
		log.Info().
			Int("decisions", len(decisions)).
			Int("journaled", result.JournaledCount).
			Int("failed", result.FailedCount).
			Msg("Triage batch committed")
		metrics.New("batch-triage").
			Count(metrics.TriageDecisions, len(decisions)).
			Count(metrics.JournaledPhotos, result.JournaledCount).
			Count(metrics.TriageItemFailures, result.FailedCount).
			Flush()
	}
	return result, nil
}

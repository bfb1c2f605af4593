package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/darkroom/internal/darkroom"
	"github.com/fpang/darkroom/internal/photo"
	"github.com/fpang/darkroom/internal/store"
)

// wire builds the services over one store. Split from init so tests can
// substitute a MemoryStore.
func wire(engine *darkroom.Service, photos store.PhotoStore, grace time.Duration, opts ...photo.Option) {
	darkroomSvc = engine
	photoSvc = photo.NewService(photos, engine, append([]photo.Option{photo.WithDeletionGrace(grace)}, opts...)...)
	reconciler = darkroom.NewReconciler(engine, photoSvc)
}

func handleCapture(ctx context.Context, event DarkroomEvent) (*PhotoResult, error) {
	p, err := photoSvc.Capture(ctx, event.UserID, event.ImageURL)
	if err != nil {
		return nil, err
	}
	return &PhotoResult{Photo: p}, nil
}

// handleLoadSession never fails on fetch errors: the caller gets an empty
// working set, matching what the app shows when the darkroom is unavailable.
func handleLoadSession(ctx context.Context, event DarkroomEvent) (*darkroom.LoadResult, error) {
	if event.UserID == "" {
		return nil, darkroom.ErrEmptyUserID
	}
	result := reconciler.LoadWorkingSet(ctx, event.UserID)
	if result.Err != nil {
		log.Warn().Err(result.Err).Str("userId", event.UserID).Msg("Session loaded in degraded mode")
	}
	return result, nil
}

func handleRevealNow(ctx context.Context, event DarkroomEvent) (*RevealNowResult, error) {
	revealed, scheduled, err := darkroomSvc.RevealAndSchedule(ctx, event.UserID)
	if err != nil {
		return nil, err
	}
	return &RevealNowResult{
		UserID:       event.UserID,
		Count:        revealed.Count,
		NextRevealAt: scheduled.NextRevealAt.Format(time.RFC3339),
		Schedule:     scheduled,
	}, nil
}

func handleBatchTriage(ctx context.Context, event DarkroomEvent) (*BatchTriageResult, error) {
	if event.UserID == "" {
		return nil, darkroom.ErrEmptyUserID
	}
	for _, d := range event.Decisions {
		if _, err := photo.ParseAction(string(d.Action)); err != nil {
			return nil, fmt.Errorf("decision for %s: %w", d.PhotoID, err)
		}
	}

	batch, err := photoSvc.BatchTriagePhotos(ctx, event.Decisions, event.PhotoTags)
	if err != nil {
		return nil, err
	}

	result := &BatchTriageResult{
		UserID:         event.UserID,
		JournaledCount: batch.JournaledCount,
		FailedCount:    batch.FailedCount,
		Items:          batch.Items,
	}
	if batch.JournaledCount > 0 && recorder != nil {
		if err := recorder.RecordTriageCompletion(ctx, event.UserID, batch.JournaledCount); err != nil {
			log.Warn().Err(err).Str("userId", event.UserID).Msg("Triage completion fan-out failed")
		} else {
			result.Notified = true
		}
	}
	return result, nil
}

func handleReact(ctx context.Context, event DarkroomEvent) (*PhotoResult, error) {
	p, err := photoSvc.ToggleReaction(ctx, event.PhotoID, event.UserID, event.Emoji)
	if err != nil {
		return nil, err
	}
	return &PhotoResult{Photo: p}, nil
}

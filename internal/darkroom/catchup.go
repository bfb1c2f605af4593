package darkroom

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/fpang/darkroom/internal/metrics"
	"github.com/fpang/darkroom/internal/store"
)

// PhotoLister returns a user's developing and revealed photos, oldest first.
type PhotoLister interface {
	GetDevelopingPhotos(ctx context.Context, userID string) ([]*store.Photo, error)
}

// LoadResult is the outcome of one triage-surface load.
type LoadResult struct {
	UserID string `json:"userId"`
	// Photos is the session's working set: revealed photos, oldest first.
	Photos []*store.Photo `json:"photos"`
	// Revealed counts photos moved by the due-timer reveal.
	Revealed int `json:"revealed"`
	// CatchUp is set when a second reveal pass merged still-developing
	// photos into the working set.
	CatchUp         bool `json:"catchUp"`
	CatchUpRevealed int  `json:"catchUpRevealed"`
	// Err is the fetch error that forced an empty or partial working set.
	// Loads never fail outright.
	Err error `json:"-"`
}

// Reconciler runs the triage-surface load sequence: probe the timer, reveal
// and reschedule when due, fetch, and force a catch-up reveal when revealed
// and developing photos are found together.
type Reconciler struct {
	engine *Service
	photos PhotoLister
	flight singleflight.Group
}

// NewReconciler creates a Reconciler.
func NewReconciler(engine *Service, photos PhotoLister) *Reconciler {
	return &Reconciler{engine: engine, photos: photos}
}

// LoadWorkingSet runs the load sequence for userID. Concurrent calls for the
// same user share one execution, so overlapping re-focus loads never issue
// two reveal passes. The shared execution ignores caller cancellation: a
// started reveal always completes.
func (r *Reconciler) LoadWorkingSet(ctx context.Context, userID string) *LoadResult {
	shared := context.WithoutCancel(ctx)
	v, _, joined := r.flight.Do(userID, func() (interface{}, error) {
		return r.load(shared, userID), nil
	})
	if joined {
		log.Debug().Str("userId", userID).Msg("Joined in-flight darkroom load")
	}
	return v.(*LoadResult)
}

func (r *Reconciler) load(ctx context.Context, userID string) *LoadResult {
	start := time.Now()
	result := &LoadResult{UserID: userID, Photos: []*store.Photo{}}
	rec := metrics.New("load").Property("userId", userID)
	defer func() {
		rec.Duration(metrics.LoadLatency, time.Since(start)).Flush()
	}()

	if r.engine.IsReadyToReveal(ctx, userID) {
		revealed, err := r.engine.RevealPhotos(ctx, userID)
		if err != nil {
			// Timer stays due; the next load retries.
			log.Error().Err(err).Str("userId", userID).Msg("Due reveal failed, timer left unchanged")
		} else {
			result.Revealed = revealed.Count
			if _, err := r.engine.ScheduleNextReveal(ctx, userID); err != nil {
				log.Error().Err(err).Str("userId", userID).Msg("Failed to schedule next reveal")
			}
		}
	}

	photos, err := r.photos.GetDevelopingPhotos(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("Failed to fetch darkroom photos, using empty working set")
		result.Err = err
		return result
	}

	revealedNow, stillDeveloping := partition(photos)
	if len(revealedNow) == 0 || len(stillDeveloping) == 0 {
		result.Photos = revealedNow
		return result
	}

	log.Info().
		Str("userId", userID).
		Int("revealed", len(revealedNow)).
		Int("developing", len(stillDeveloping)).
		Msg("Mixed darkroom state, running catch-up reveal")

	catchUp, err := r.engine.RevealPhotos(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("Catch-up reveal failed, using revealed photos only")
		result.Photos = revealedNow
		result.Err = err
		return result
	}
	result.CatchUp = true
	result.CatchUpRevealed = catchUp.Count
	rec.Count(metrics.CatchUpReveals, catchUp.Count)

	photos, err = r.photos.GetDevelopingPhotos(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("Failed to re-fetch after catch-up, using pre-catch-up set")
		result.Photos = revealedNow
		result.Err = err
		return result
	}
	result.Photos, _ = partition(photos)
	return result
}

// partition splits photos by status, preserving order.
func partition(photos []*store.Photo) (revealed, developing []*store.Photo) {
	revealed = []*store.Photo{}
	for _, p := range photos {
		switch p.Status {
		case store.StatusRevealed:
			revealed = append(revealed, p)
		case store.StatusDeveloping:
			developing = append(developing, p)
		}
	}
	return revealed, developing
}

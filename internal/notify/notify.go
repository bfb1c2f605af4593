// Package notify records finished triage sessions for the downstream story
// and notification fan-out. The production recorder publishes a
// TriageCompleted event to EventBridge; LogRecorder is used where no bus is
// configured.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	eventbridgetypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultSource is the EventBridge source for darkroom events.
	DefaultSource = "darkroom"

	// DetailTypeTriageCompleted is the detail-type consumers subscribe to.
	DetailTypeTriageCompleted = "TriageCompleted"
)

// TriageCompleted is the event detail published after a commit that
// journaled at least one photo.
type TriageCompleted struct {
	UserID         string    `json:"userId"`
	JournaledCount int       `json:"journaledCount"`
	CompletedAt    time.Time `json:"completedAt"`
}

// EventBridgeAPI is the subset of *eventbridge.Client used here.
type EventBridgeAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// EventBridgeRecorder publishes TriageCompleted events.
type EventBridgeRecorder struct {
	client  EventBridgeAPI
	busName string
	source  string
	now     func() time.Time
}

// NewEventBridgeRecorder creates a recorder. An empty busName targets the
// account's default bus; an empty source uses DefaultSource.
func NewEventBridgeRecorder(client EventBridgeAPI, busName, source string) *EventBridgeRecorder {
	if source == "" {
		source = DefaultSource
	}
	return &EventBridgeRecorder{
		client:  client,
		busName: busName,
		source:  source,
		now:     time.Now,
	}
}

// RecordTriageCompletion publishes one event. Non-positive counts are
// ignored: the fan-out only runs when something was journaled.
func (r *EventBridgeRecorder) RecordTriageCompletion(ctx context.Context, userID string, journaledCount int) error {
	if journaledCount <= 0 {
		return nil
	}

	detail, err := json.Marshal(TriageCompleted{
		UserID:         userID,
		JournaledCount: journaledCount,
		CompletedAt:    r.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal TriageCompleted: %w", err)
	}

	entry := eventbridgetypes.PutEventsRequestEntry{
		Source:     aws.String(r.source),
		DetailType: aws.String(DetailTypeTriageCompleted),
		Detail:     aws.String(string(detail)),
	}
	if r.busName != "" {
		entry.EventBusName = aws.String(r.busName)
	}

	result, err := r.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []eventbridgetypes.PutEventsRequestEntry{entry},
	})
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("EventBridge PutEvents failed")
		return fmt.Errorf("PutEvents: %w", err)
	}

	if result.FailedEntryCount > 0 {
		for i, e := range result.Entries {
			if e.ErrorCode != nil || e.ErrorMessage != nil {
				log.Error().
					Int("index", i).
					Str("errorCode", aws.ToString(e.ErrorCode)).
					Str("errorMessage", aws.ToString(e.ErrorMessage)).
					Str("userId", userID).
					Msg("EventBridge PutEvents entry failed")
				return fmt.Errorf("PutEvents entry %d failed: %s - %s", i, aws.ToString(e.ErrorCode), aws.ToString(e.ErrorMessage))
			}
		}
	}

	log.Info().Str("userId", userID).Int("journaledCount", journaledCount).Msg("TriageCompleted emitted to EventBridge")
	return nil
}

// LogRecorder only logs completions.
type LogRecorder struct{}

func (LogRecorder) RecordTriageCompletion(_ context.Context, userID string, journaledCount int) error {
	if journaledCount <= 0 {
		return nil
	}
	log.Info().Str("userId", userID).Int("journaledCount", journaledCount).Msg("Triage completed (no event bus configured)")
	return nil
}

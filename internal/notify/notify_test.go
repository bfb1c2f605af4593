package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	eventbridgetypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
)

type fakeEventBridge struct {
	inputs []*eventbridge.PutEventsInput
	out    *eventbridge.PutEventsOutput
	err    error
}

func (f *fakeEventBridge) PutEvents(_ context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	if f.out != nil {
		return f.out, nil
	}
	return &eventbridge.PutEventsOutput{}, nil
}

func TestRecordTriageCompletion_PublishesEvent(t *testing.T) {
	fake := &fakeEventBridge{}
	r := NewEventBridgeRecorder(fake, "darkroom-bus", "")
	completed := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return completed }

	if err := r.RecordTriageCompletion(context.Background(), "u1", 2); err != nil {
		t.Fatal(err)
	}
	if len(fake.inputs) != 1 || len(fake.inputs[0].Entries) != 1 {
		t.Fatalf("expected one entry, got %+v", fake.inputs)
	}

	entry := fake.inputs[0].Entries[0]
	if aws.ToString(entry.Source) != DefaultSource {
		t.Errorf("expected source %q, got %q", DefaultSource, aws.ToString(entry.Source))
	}
	if aws.ToString(entry.DetailType) != DetailTypeTriageCompleted {
		t.Errorf("expected detail type %q, got %q", DetailTypeTriageCompleted, aws.ToString(entry.DetailType))
	}
	if aws.ToString(entry.EventBusName) != "darkroom-bus" {
		t.Errorf("expected bus darkroom-bus, got %q", aws.ToString(entry.EventBusName))
	}

	var detail TriageCompleted
	if err := json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail); err != nil {
		t.Fatal(err)
	}
	if detail.UserID != "u1" || detail.JournaledCount != 2 || !detail.CompletedAt.Equal(completed) {
		t.Errorf("unexpected detail %+v", detail)
	}
}

func TestRecordTriageCompletion_DefaultBus(t *testing.T) {
	fake := &fakeEventBridge{}
	if err := NewEventBridgeRecorder(fake, "", "custom").RecordTriageCompletion(context.Background(), "u1", 1); err != nil {
		t.Fatal(err)
	}
	entry := fake.inputs[0].Entries[0]
	if entry.EventBusName != nil {
		t.Errorf("expected default bus, got %q", aws.ToString(entry.EventBusName))
	}
	if aws.ToString(entry.Source) != "custom" {
		t.Errorf("expected source custom, got %q", aws.ToString(entry.Source))
	}
}

func TestRecordTriageCompletion_ZeroCountIsNoop(t *testing.T) {
	fake := &fakeEventBridge{}
	if err := NewEventBridgeRecorder(fake, "bus", "").RecordTriageCompletion(context.Background(), "u1", 0); err != nil {
		t.Fatal(err)
	}
	if len(fake.inputs) != 0 {
		t.Errorf("expected no PutEvents call, got %d", len(fake.inputs))
	}
}

func TestRecordTriageCompletion_Errors(t *testing.T) {
	callErr := &fakeEventBridge{err: errors.New("throttled")}
	if err := NewEventBridgeRecorder(callErr, "bus", "").RecordTriageCompletion(context.Background(), "u1", 1); err == nil {
		t.Error("expected error when PutEvents fails")
	}

	entryErr := &fakeEventBridge{out: &eventbridge.PutEventsOutput{
		FailedEntryCount: 1,
		Entries: []eventbridgetypes.PutEventsResultEntry{
			{ErrorCode: aws.String("InternalFailure"), ErrorMessage: aws.String("try again")},
		},
	}}
	if err := NewEventBridgeRecorder(entryErr, "bus", "").RecordTriageCompletion(context.Background(), "u1", 1); err == nil {
		t.Error("expected error when the entry fails")
	}
}

func TestLogRecorder(t *testing.T) {
	if err := (LogRecorder{}).RecordTriageCompletion(context.Background(), "u1", 3); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

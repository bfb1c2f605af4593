package cli

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/rs/zerolog/log"

	"github.com/fpang/darkroom/internal/config"
	"github.com/fpang/darkroom/internal/notify"
	"github.com/fpang/darkroom/internal/store"
	"github.com/fpang/darkroom/internal/triage"
)

// Backend is an opened store plus its cleanup.
type Backend struct {
	Store    store.Store
	Recorder triage.CompletionRecorder
	close    func() error
}

// Close releases the backend's clients.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenBackend builds the store selected by cfg.Backend and, when an event bus
// is configured, an EventBridge completion recorder.
func OpenBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	b := &Backend{Recorder: notify.LogRecorder{}}

	switch cfg.Backend {
	case config.BackendMemory:
		b.Store = store.NewMemoryStore()
		log.Info().Msg("Using in-memory store")

	case config.BackendFirestore:
		client, err := firestore.NewClient(ctx, cfg.FirestoreProject)
		if err != nil {
			return nil, fmt.Errorf("create firestore client: %w", err)
		}
		b.Store = store.NewFirestoreStore(client)
		b.close = client.Close
		log.Info().Str("project", cfg.FirestoreProject).Msg("Using Firestore store")

	case config.BackendDynamo:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		b.Store = store.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.DynamoTable)
		if cfg.EventBus != "" {
			b.Recorder = notify.NewEventBridgeRecorder(eventbridge.NewFromConfig(awsCfg), cfg.EventBus, cfg.EventSource)
		}
		log.Info().Str("table", cfg.DynamoTable).Str("region", awsCfg.Region).Msg("Using DynamoDB store")

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	return b, nil
}

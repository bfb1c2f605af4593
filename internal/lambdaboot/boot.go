// Package lambdaboot provides shared cold-start bootstrap logic for the
// darkroom Lambda: AWS config, the DynamoDB-backed store, the EventBridge
// completion recorder, and the startup summary log.
package lambdaboot

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/rs/zerolog/log"

	"github.com/fpang/darkroom/internal/logging"
	"github.com/fpang/darkroom/internal/notify"
	"github.com/fpang/darkroom/internal/store"
	"github.com/fpang/darkroom/internal/triage"
)

// InitAWS loads the default AWS config. Fatals on error.
func InitAWS() aws.Config {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return cfg
}

// InitDynamo creates the DynamoDB store over tableName. Fatals if it is empty.
func InitDynamo(cfg aws.Config, tableName string) *store.DynamoStore {
	if tableName == "" {
		log.Fatal().Msg("DynamoDB table name is required (DARKROOM_DYNAMO_TABLE)")
	}
	return store.NewDynamoStore(dynamodb.NewFromConfig(cfg), tableName)
}

// InitRecorder returns an EventBridge recorder when bus is set, or a
// LogRecorder (with a warning) otherwise.
func InitRecorder(cfg aws.Config, bus, source string) triage.CompletionRecorder {
	if bus == "" {
		log.Warn().Msg("Event bus not set, completions only logged")
		return notify.LogRecorder{}
	}
	return notify.NewEventBridgeRecorder(eventbridge.NewFromConfig(cfg), bus, source)
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}

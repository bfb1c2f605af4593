// Package main provides the Lambda entry point for the darkroom core.
//
// Event types:
//   - capture: store a developing photo and initialize the user's darkroom
//   - ensure-initialized: create or refresh the user's darkroom timer
//   - status: read the timer without mutating it
//   - load-session: run the triage-surface load sequence, return the working set
//   - reveal-now: reveal developing photos and reschedule regardless of timer
//   - batch-triage: commit triage decisions, then record completion
//   - react: toggle a reaction on a photo
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/fpang/darkroom/internal/config"
	"github.com/fpang/darkroom/internal/darkroom"
	"github.com/fpang/darkroom/internal/lambdaboot"
	"github.com/fpang/darkroom/internal/logging"
	"github.com/fpang/darkroom/internal/metrics"
	"github.com/fpang/darkroom/internal/photo"
	"github.com/fpang/darkroom/internal/triage"
)

var coldStart = true

// Services initialized at cold start.
var (
	darkroomSvc *darkroom.Service
	reconciler  *darkroom.Reconciler
	photoSvc    *photo.Service
	recorder    triage.CompletionRecorder
)

// loadConfig resolves DARKROOM_* settings through the shared loader. The
// Lambda only runs against DynamoDB.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	if cfg.Backend != config.BackendDynamo {
		return nil, fmt.Errorf("darkroom-lambda requires backend %q, got %q", config.BackendDynamo, cfg.Backend)
	}
	return cfg, nil
}

// setup runs once per cold start, before the first invocation.
func setup() {
	initStart := time.Now()
	logging.Init()

	appCfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid darkroom configuration")
	}
	logging.SetLevel(appCfg.LogLevel)
	metrics.SetNamespace(appCfg.MetricsNamespace)

	awsCfg := lambdaboot.InitAWS()
	ddb := lambdaboot.InitDynamo(awsCfg, appCfg.DynamoTable)
	recorder = lambdaboot.InitRecorder(awsCfg, appCfg.EventBus, appCfg.EventSource)

	wire(darkroom.NewService(ddb, ddb, darkroom.WithMaxRevealDelay(appCfg.RevealMaxDelay)), ddb, appCfg.DeletionGrace)

	lambdaboot.StartupLog("darkroom-lambda", initStart).
		DynamoTable("darkroom", ddb.TableName()).
		EventBus("completions", appCfg.EventBus).
		Feature("events", appCfg.EventBus != "").
		Config("revealMaxDelay", appCfg.RevealMaxDelay.String()).
		Config("deletionGrace", appCfg.DeletionGrace.String()).
		Config("metricsNamespace", appCfg.MetricsNamespace).
		Log()
}

func main() {
	setup()
	lambda.Start(handler)
}

func handler(ctx context.Context, event DarkroomEvent) (interface{}, error) {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "darkroom-lambda").Msg("Cold start, first invocation")
	}
	log.Info().
		Str("type", event.Type).
		Str("userId", event.UserID).
		Str("photoId", event.PhotoID).
		Msg("Darkroom Lambda invoked")

	switch event.Type {
	case "capture":
		return handleCapture(ctx, event)
	case "ensure-initialized":
		return darkroomSvc.EnsureInitialized(ctx, event.UserID)
	case "status":
		return darkroomSvc.Status(ctx, event.UserID)
	case "load-session":
		return handleLoadSession(ctx, event)
	case "reveal-now":
		return handleRevealNow(ctx, event)
	case "batch-triage":
		return handleBatchTriage(ctx, event)
	case "react":
		return handleReact(ctx, event)
	default:
		return nil, fmt.Errorf("unknown event type: %s", event.Type)
	}
}

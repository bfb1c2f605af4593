// Package main is darkroomctl, an operator CLI over the darkroom core: capture
// photos, inspect and force reveals, run a triage session, and react.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/darkroom/internal/cli"
	"github.com/fpang/darkroom/internal/config"
	"github.com/fpang/darkroom/internal/darkroom"
	"github.com/fpang/darkroom/internal/logging"
	"github.com/fpang/darkroom/internal/metrics"
	"github.com/fpang/darkroom/internal/photo"
	"github.com/fpang/darkroom/internal/triage"
)

// CLI flags
var (
	configFlag  string
	userFlag    string
	backendFlag string
	metricsFlag bool
)

// app holds the services built in PersistentPreRunE.
type app struct {
	cfg        *config.Config
	backend    *cli.Backend
	darkroom   *darkroom.Service
	photos     *photo.Service
	reconciler *darkroom.Reconciler
}

var current *app

// rootCmd is the main Cobra command for darkroomctl.
var rootCmd = &cobra.Command{
	Use:   "darkroomctl",
	Short: "Operate the photo darkroom: capture, reveal, triage",
	Long: `darkroomctl drives the darkroom core directly against the configured store.

Configuration is read from darkroom.yaml (or --config) and DARKROOM_*
environment variables.

Examples:
  darkroomctl --user u1 capture https://cdn.example.com/a.jpg
  darkroomctl --user u1 status
  darkroomctl --user u1 load
  darkroomctl --user u1 triage --decision p1=journal --decision p2=delete
  darkroomctl --user u1 triage --interactive
  darkroomctl demo`,
	SilenceUsage:      true,
	PersistentPreRunE: setupApp,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if current != nil && current.backend != nil {
			if err := current.backend.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close backend")
			}
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Config file (default ./darkroom.yaml)")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "User ID to operate on")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Override the configured backend (dynamo, firestore, memory)")
	rootCmd.PersistentFlags().BoolVar(&metricsFlag, "metrics", false, "Print EMF metric lines to stdout")

	rootCmd.AddCommand(captureCmd, statusCmd, revealCmd, loadCmd, triageCmd, reactCmd, demoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, args []string) error {
	initStart := time.Now()
	logging.Init()

	cfg, err := config.Load(configFlag)
	if cmd.Name() == "demo" {
		// The demo always runs in memory and ignores config errors.
		cfg, err = &config.Config{
			Backend:        config.BackendMemory,
			RevealMaxDelay: darkroom.DefaultMaxRevealDelay,
			DeletionGrace:  photo.DefaultDeletionGrace,
			CompleteDelay:  triage.DefaultCompleteDelay,
		}, nil
	} else if backendFlag != "" && err == nil {
		cfg.Backend = backendFlag
		err = cfg.Validate()
	}
	if err != nil {
		return err
	}
	logging.SetLevel(cfg.LogLevel)

	metrics.SetNamespace(cfg.MetricsNamespace)
	if !metricsFlag {
		metrics.SetOutput(io.Discard)
	}

	backend, err := cli.OpenBackend(commandContext(cmd), cfg)
	if err != nil {
		return err
	}

	engine := darkroom.NewService(backend.Store, backend.Store, darkroom.WithMaxRevealDelay(cfg.RevealMaxDelay))
	photos := photo.NewService(backend.Store, engine, photo.WithDeletionGrace(cfg.DeletionGrace))
	current = &app{
		cfg:        cfg,
		backend:    backend,
		darkroom:   engine,
		photos:     photos,
		reconciler: darkroom.NewReconciler(engine, photos),
	}

	logging.NewStartupLogger("darkroomctl").
		DynamoTable("darkroom", cfg.DynamoTable).
		FirestoreProject("darkroom", cfg.FirestoreProject).
		EventBus("completions", cfg.EventBus).
		Feature("metrics", metricsFlag).
		Config("backend", cfg.Backend).
		Config("revealMaxDelay", cfg.RevealMaxDelay.String()).
		InitDuration(time.Since(initStart)).
		Log()
	return nil
}

// requireUser returns --user or an error.
func requireUser() (string, error) {
	if userFlag == "" {
		return "", fmt.Errorf("--user is required")
	}
	return userFlag, nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// Package config loads darkroom settings from defaults, an optional
// darkroom.yaml, and DARKROOM_* environment variables (highest priority).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/fpang/darkroom/internal/triage"
)

// Backends accepted by Config.Backend.
const (
	BackendDynamo    = "dynamo"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// Config is the resolved configuration.
type Config struct {
	Backend          string
	DynamoTable      string
	FirestoreProject string

	EventBus    string
	EventSource string

	RevealMaxDelay time.Duration
	DeletionGrace  time.Duration
	CompleteDelay  time.Duration
	UndoCooldown   time.Duration

	MetricsNamespace string
	LogLevel         string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendDynamo)
	v.SetDefault("dynamo.table", "")
	v.SetDefault("firestore.project", "")
	v.SetDefault("events.bus", "")
	v.SetDefault("events.source", "darkroom")
	v.SetDefault("reveal.max_delay", 15*time.Minute)
	v.SetDefault("deletion.grace", 30*24*time.Hour)
	v.SetDefault("triage.complete_delay", triage.DefaultCompleteDelay)
	v.SetDefault("triage.undo_cooldown", time.Duration(0))
	v.SetDefault("metrics.namespace", "Darkroom")
	v.SetDefault("log.level", "info")
}

// Load resolves configuration. configFile may be empty, in which case
// ./darkroom.yaml is used when present.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("darkroom")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("DARKROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configFile != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
		log.Debug().Msg("No darkroom.yaml found, using defaults and environment")
	}

	cfg := &Config{
		Backend:          strings.ToLower(v.GetString("backend")),
		DynamoTable:      v.GetString("dynamo.table"),
		FirestoreProject: v.GetString("firestore.project"),
		EventBus:         v.GetString("events.bus"),
		EventSource:      v.GetString("events.source"),
		RevealMaxDelay:   v.GetDuration("reveal.max_delay"),
		DeletionGrace:    v.GetDuration("deletion.grace"),
		CompleteDelay:    v.GetDuration("triage.complete_delay"),
		UndoCooldown:     v.GetDuration("triage.undo_cooldown"),
		MetricsNamespace: v.GetString("metrics.namespace"),
		LogLevel:         v.GetString("log.level"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks backend-specific requirements.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendDynamo:
		if c.DynamoTable == "" {
			return fmt.Errorf("backend %q requires dynamo.table (DARKROOM_DYNAMO_TABLE)", c.Backend)
		}
	case BackendFirestore:
		if c.FirestoreProject == "" {
			return fmt.Errorf("backend %q requires firestore.project (DARKROOM_FIRESTORE_PROJECT)", c.Backend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q: must be one of %s, %s, %s", c.Backend, BackendDynamo, BackendFirestore, BackendMemory)
	}
	if c.RevealMaxDelay <= 0 {
		return fmt.Errorf("reveal.max_delay must be positive, got %s", c.RevealMaxDelay)
	}
	if c.DeletionGrace <= 0 {
		return fmt.Errorf("deletion.grace must be positive, got %s", c.DeletionGrace)
	}
	return nil
}

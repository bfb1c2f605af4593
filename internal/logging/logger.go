package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger from environment variables.
// DARKROOM_LOG_LEVEL controls the log level: debug, info, warn, error (default: info).
// DARKROOM_LOG_FORMAT=console switches to human-readable output; JSON otherwise,
// which is what CloudWatch expects from the Lambda.
func Init() {
	SetLevel(os.Getenv("DARKROOM_LOG_LEVEL"))
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	if os.Getenv("DARKROOM_LOG_FORMAT") == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// SetLevel applies a level name; unknown names fall back to info.
func SetLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

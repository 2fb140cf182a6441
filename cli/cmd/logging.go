package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// newLogger builds the console logger. The --log-level flag wins over the
// configured level.
func newLogger(configuredLevel string) zerolog.Logger {
	level := strings.TrimSpace(logLevelFlag)
	if level == "" {
		level = strings.TrimSpace(configuredLevel)
	}
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}

	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(parsed).With().Timestamp().Logger()
}

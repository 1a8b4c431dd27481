// Package logging provides the process-wide structured logger used across
// the client core, mirroring the teacher's internal/utils.Logger() singleton
// accessor.
package logging

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Logger returns the shared process-wide logger, initializing it on first
// use with a console writer at info level.
func Logger() *zerolog.Logger {
	once.Do(func() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			With().
			Timestamp().
			Str("component", "walrus-client").
			Logger().
			Level(zerolog.InfoLevel)
	})
	return &logger
}

// SetLogger overrides the shared logger, letting a caller wire its own
// output/level before any client call runs.
func SetLogger(l zerolog.Logger) {
	once.Do(func() {})
	logger = l
}

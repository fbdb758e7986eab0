// Package testlog routes test logging through the shared zerolog setup.
package testlog

import (
	"testing"

	"github.com/danmuck/diagctl/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Start configures test logging once per process and returns a logger
// tagged with the test name.
func Start(t *testing.T) zerolog.Logger {
	t.Helper()
	logging.ConfigureTests()
	logger := log.With().Str("test", t.Name()).Logger()
	logger.Debug().Msg("start")
	return logger
}

package observability

import (
	"os"
	"time"

	"github.com/danmuck/diagctl/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger installs the process logger for app. DIAGCTL_LOG_LEVEL
// overrides the info default.
func InitLogger(app string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	level := zerolog.InfoLevel
	if lvl, ok := logging.ParseLevel(os.Getenv(logging.EnvLogLevel)); ok {
		level = lvl
	}
	logger := zerolog.New(output).Level(level).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}

package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup builds the process logger. Dev mode logs at debug level through a
// console writer; otherwise JSON at info level.
func Setup(dev bool) zerolog.Logger {
	return setup(os.Stderr, dev)
}

// SetupGlobal installs the logger returned by Setup as the zerolog global.
func SetupGlobal(dev bool) zerolog.Logger {
	logger := Setup(dev)
	log.Logger = logger
	return logger
}

func setup(out io.Writer, dev bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: out, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	return logger
}

package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const (
	BackendSlog    = "slog"
	BackendZerolog = "zerolog"
)

// New builds the process logger. env is one of "local", "dev", "prod": local
// writes human-readable output at debug level, dev logs debug as JSON, prod
// logs info and above as JSON.
func New(backend, env string, w io.Writer) (Logger, error) {
	if w == nil {
		w = os.Stdout
	}

	switch backend {
	case BackendSlog:
		level := slog.LevelInfo
		if env != "prod" {
			level = slog.LevelDebug
		}
		opts := &slog.HandlerOptions{Level: level}
		var h slog.Handler = slog.NewJSONHandler(w, opts)
		if env == "local" {
			h = slog.NewTextHandler(w, opts)
		}
		return NewSlogLogger(slog.New(h)), nil

	case BackendZerolog, "":
		zerolog.TimestampFieldName = "timestamp"
		level := zerolog.InfoLevel
		out := w
		switch env {
		case "local":
			level = zerolog.DebugLevel
			cw := zerolog.NewConsoleWriter()
			cw.TimeFormat = time.DateTime
			cw.Out = w
			out = cw
		case "dev":
			level = zerolog.DebugLevel
		}
		l := zerolog.New(out).
			Level(level).
			With().
			Timestamp().
			Int("pid", os.Getpid()).
			Logger()
		return NewZerologLogger(l), nil
	}

	return nil, fmt.Errorf("unknown log backend: %q", backend)
}

// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup builds a logger writing to w at level in the given format
// ("text" for the console writer, "json" for raw JSON lines), installs it
// as log.Logger and sets the global level.
func Setup(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), errors.Wrapf(err, "log level %q", level)
	}

	var out io.Writer
	switch format {
	case "json":
		out = w
	case "text", "":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: !isTerminal(w)}
	default:
		return zerolog.Nop(), errors.Errorf("unknown log format %q", format)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	logger := zerolog.New(out).Level(lvl).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(lvl)
	log.Logger = logger
	return logger, nil
}

// Component returns a child of l tagged with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

type fdWriter interface {
	Fd() uintptr
}

// isTerminal is a coarse check: only *os.File-like writers get colour.
func isTerminal(w io.Writer) bool {
	_, ok := w.(fdWriter)
	return ok
}

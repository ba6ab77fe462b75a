// Package logging builds the zerolog logger used by the harness, the server
// and the CLI. Engine packages never log.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// New returns a logger writing to out. Format "console" writes human-readable
// lines, "json" writes one JSON object per line, and "auto" picks console
// when out is a terminal.
func New(out io.Writer, level, format string) (zerolog.Logger, error) {
	parsedLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var writer io.Writer
	switch format {
	case "json":
		writer = out
	case "console":
		writer = ConsoleWriter(out)
	case "auto", "":
		if isTerminal(out) {
			writer = ConsoleWriter(out)
		} else {
			writer = out
		}
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q", format)
	}

	return zerolog.New(writer).Level(parsedLevel).With().Timestamp().Logger(), nil
}

// ConsoleWriter returns a console writer, colored only on terminals.
func ConsoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: out, NoColor: !isTerminal(out), TimeFormat: time.DateTime}
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

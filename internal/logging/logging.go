// Package logging builds the zerolog logger shared by the service.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

type Config struct {
	Level  string // trace, debug, info, warn, error
	Format string // json, console or auto
	Output io.Writer
}

func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if useConsole(cfg.Format, out) {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func useConsole(format string, out io.Writer) bool {
	switch strings.ToLower(format) {
	case "console", "pretty":
		return true
	case "json":
		return false
	}

	f, ok := out.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

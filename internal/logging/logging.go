// Package logging configures the process-wide structured logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"

	"github.com/indeksai/indeksai/internal/config"
)

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// Setup installs log.DefaultLogger according to cfg. Output goes to stderr
// so stdout stays clean for CLI answers and the MCP stdio transport.
func Setup(cfg config.LoggingConfig) {
	SetupWriter(cfg, os.Stderr)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(cfg config.LoggingConfig, out io.Writer) {
	level := log.ParseLevel(strings.ToLower(cfg.Level))

	var writer log.Writer
	switch strings.ToLower(cfg.Format) {
	case "json":
		writer = &log.IOWriter{Writer: out}
	default:
		writer = &log.ConsoleWriter{
			Writer:         out,
			ColorOutput:    isTerminal(out),
			QuoteString:    true,
			EndWithMessage: true,
		}
	}

	log.DefaultLogger = log.Logger{
		Level:      level,
		TimeFormat: timeFormat,
		Writer:     writer,
	}
}

// Silence discards all log output. Tests and the MCP server use it.
func Silence() {
	log.DefaultLogger = log.Logger{
		Level:  log.PanicLevel,
		Writer: &log.IOWriter{Writer: io.Discard},
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

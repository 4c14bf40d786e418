// Package logging wraps zerolog behind the small leveled printf API the rest
// of the tool uses. Console output goes through zerolog's ConsoleWriter
// (colored when the terminal supports it); an optional file sink receives
// the same events as JSON lines.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/backmassage/gamepress/internal/config"
	"github.com/backmassage/gamepress/internal/term"
)

// Logger provides leveled, optionally colored logging with an optional
// JSON file sink. Safe for concurrent use.
type Logger struct {
	zl   zerolog.Logger
	file *os.File
}

// NewLogger configures terminal colors from cfg, builds the zerolog backend,
// and optionally opens cfg.LogFile. Call Close() when done if LogFile was set.
func NewLogger(cfg *config.Config) (*Logger, error) {
	term.Configure(cfg.ColorMode)

	console := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		NoColor:    !term.Enabled(),
		TimeFormat: "15:04:05",
	}

	var w io.Writer = console
	l := &Logger{}

	if cfg.LogFile != "" {
		dir := filepath.Dir(cfg.LogFile)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		l.file = f
		w = zerolog.MultiLevelWriter(console, f)
	}

	level := zerolog.InfoLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	l.zl = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return l, nil
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Info logs at INFO level.
func (l *Logger) Info(format string, args ...interface{}) {
	l.zl.Info().Msg(fmt.Sprintf(format, args...))
}

// Warn logs at WARN level.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.zl.Warn().Msg(fmt.Sprintf(format, args...))
}

// Error logs at ERROR level.
func (l *Logger) Error(format string, args ...interface{}) {
	l.zl.Error().Msg(fmt.Sprintf(format, args...))
}

// Debug logs at DEBUG level; suppressed unless the logger was built with
// Verbose set.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.zl.Debug().Msg(fmt.Sprintf(format, args...))
}

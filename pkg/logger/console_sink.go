package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\033[0m"
	ansiGray   = "\033[90m"
	ansiBlue   = "\033[34m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
)

// ConsoleSink prints one line per record. Write errors are counted and
// swallowed: a broken stdout must never hold up the other sinks.
type ConsoleSink struct {
	mu       sync.Mutex
	w        io.Writer
	colorize bool
	failures atomic.Int64
}

// NewConsoleSink writes to w, or to stdout when w is nil. Levels are
// colourised only when w is a terminal.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleSink{
		w:        w,
		colorize: isTerminal(w),
	}
}

func (s *ConsoleSink) Name() string {
	return "console"
}

func (s *ConsoleSink) Write(_ context.Context, rec Record) error {
	label := rec.Level.Label()
	if s.colorize {
		label = levelColor(rec.Level) + label + ansiReset
	}
	line := formatLine(rec, label)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintln(s.w, line); err != nil {
		s.failures.Add(1)
	}
	return nil
}

// Failures returns the number of lines that could not be written.
func (s *ConsoleSink) Failures() int64 {
	return s.failures.Load()
}

func levelColor(level Level) string {
	switch level {
	case DEBUG:
		return ansiGray
	case WARN:
		return ansiYellow
	case ERROR:
		return ansiRed
	default:
		return ansiBlue
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

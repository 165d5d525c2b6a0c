package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const defaultLogFile = "app.log"

// FileSink appends one JSON object per record to <dir>/<name>. The directory
// is created once, on EnsureDir or on the first Write, and the file handle is
// kept open for the lifetime of the sink.
type FileSink struct {
	dir  string
	name string

	mu       sync.Mutex
	file     *os.File
	dirReady bool

	// mkdirAll is swapped in tests to observe directory creation.
	mkdirAll func(path string, perm os.FileMode) error
}

// NewFileSink does not touch the filesystem; see EnsureDir.
func NewFileSink(dir, name string) *FileSink {
	if name == "" {
		name = defaultLogFile
	}
	return &FileSink{
		dir:      dir,
		name:     name,
		mkdirAll: os.MkdirAll,
	}
}

func (s *FileSink) Name() string {
	return "file"
}

// Path returns the file records are appended to.
func (s *FileSink) Path() string {
	return filepath.Join(s.dir, s.name)
}

// EnsureDir creates the log directory if needed. It is idempotent: once the
// directory is known to exist no further filesystem call is made.
func (s *FileSink) EnsureDir() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ensureDirLocked()
}

func (s *FileSink) ensureDirLocked() error {
	if s.dirReady {
		return nil
	}
	if err := s.mkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory %s: %w", s.dir, err)
	}
	s.dirReady = true
	return nil
}

func (s *FileSink) Write(_ context.Context, rec Record) error {
	line, err := encodeRecord(rec)
	if err != nil {
		return NewIOFailure(s.Name(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		if err := s.ensureDirLocked(); err != nil {
			return NewIOFailure(s.Name(), err)
		}
		f, err := os.OpenFile(s.Path(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return NewIOFailure(s.Name(), fmt.Errorf("failed to open log file: %w", err))
		}
		s.file = f
	}

	if _, err := s.file.Write(line); err != nil {
		return NewIOFailure(s.Name(), fmt.Errorf("failed to append to %s: %w", s.Path(), err))
	}
	return nil
}

// Close closes the underlying file. A later Write reopens it.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// encodeRecord renders a record as a newline-terminated JSON object.
// Field values that cannot be marshalled are written with %v instead.
func encodeRecord(rec Record) ([]byte, error) {
	entry := map[string]interface{}{
		"timestamp": rec.Time.Format(time.RFC3339Nano),
		"level":     rec.Level.String(),
		"message":   rec.Message,
	}
	if len(rec.Fields) > 0 {
		entry["fields"] = rec.Fields
	}

	data, err := json.Marshal(entry)
	if err != nil {
		printable := make(map[string]string, len(rec.Fields))
		for k, v := range rec.Fields {
			printable[k] = fmt.Sprintf("%v", v)
		}
		entry["fields"] = printable

		data, err = json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal log record: %w", err)
		}
	}

	return append(data, '\n'), nil
}

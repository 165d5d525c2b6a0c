package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestConsoleSinkFormatsLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf)

	rec, _ := NewRecord(ERROR, "disk full", Fields{"path": "/var/data", "code": 28})
	rec = rec.WithTime(time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC))

	if err := sink.Write(context.Background(), rec); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	want := "[2026-02-08 12:00:00] [ERROR] disk full | code=28 path=/var/data\n"
	if got := buf.String(); got != want {
		t.Fatalf("unexpected line\nwant %q\ngot  %q", want, got)
	}
	if strings.Contains(buf.String(), "\033[") {
		t.Fatal("non-terminal output must not be colourised")
	}
}

func TestConsoleSinkSwallowsWriteErrors(t *testing.T) {
	sink := NewConsoleSink(failingWriter{})

	rec, _ := NewRecord(INFO, "hello", nil)
	for i := 0; i < 3; i++ {
		if err := sink.Write(context.Background(), rec); err != nil {
			t.Fatalf("Write() must not fail, got %v", err)
		}
	}

	if got := sink.Failures(); got != 3 {
		t.Fatalf("expected 3 counted failures, got %d", got)
	}
}

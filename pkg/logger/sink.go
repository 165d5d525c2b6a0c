package logger

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrIOFailure marks a failed local write (file or console).
	ErrIOFailure = errors.New("i/o failure")
	// ErrPersistenceFailure marks a failed database insert.
	ErrPersistenceFailure = errors.New("persistence failure")
)

// Sink is an output target for log records. Implementations are called from
// a single worker goroutine per registered sink, so Write calls on one sink
// never overlap when the sink is registered once.
type Sink interface {
	// Name identifies the sink in fallback reports and metrics.
	Name() string

	// Write delivers one record. It must not retry.
	Write(ctx context.Context, rec Record) error
}

// SinkError is returned by sinks that fail to deliver a record.
type SinkError struct {
	Sink string
	Kind error // ErrIOFailure or ErrPersistenceFailure
	Err  error
}

// NewIOFailure wraps err as an ErrIOFailure of the named sink.
func NewIOFailure(sink string, err error) *SinkError {
	return &SinkError{Sink: sink, Kind: ErrIOFailure, Err: err}
}

// NewPersistenceFailure wraps err as an ErrPersistenceFailure of the named sink.
func NewPersistenceFailure(sink string, err error) *SinkError {
	return &SinkError{Sink: sink, Kind: ErrPersistenceFailure, Err: err}
}

func (e *SinkError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s sink: %v", e.Sink, e.Kind)
	}
	return fmt.Sprintf("%s sink: %v: %v", e.Sink, e.Kind, e.Err)
}

func (e *SinkError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

package logger

// Failure kinds passed to Observer.SinkFailed.
const (
	FailureError   = "error"
	FailureTimeout = "timeout"
	FailureDropped = "dropped"
	FailurePanic   = "panic"
)

// Observer receives pipeline events, typically to feed metrics.
type Observer interface {
	RecordLogged(level Level)
	SinkFailed(sink, kind string)
}

type noopObserver struct{}

func (noopObserver) RecordLogged(Level)        {}
func (noopObserver) SinkFailed(string, string) {}

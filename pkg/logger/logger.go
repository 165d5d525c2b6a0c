package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"sync"
	"time"
)

const (
	defaultSinkTimeout = 2 * time.Second
	defaultQueueSize   = 256
)

// Logger fans every record out to all registered sinks. It is safe for
// concurrent use and never reports failures to its caller: sink errors,
// timeouts and panics go to the fallback channel instead.
type Logger struct {
	p      *pipeline
	fields Fields
}

// Option configures a Logger.
type Option func(*pipeline)

// WithSink registers a sink. Each sink gets its own worker goroutine.
func WithSink(s Sink) Option {
	return func(p *pipeline) {
		if s != nil {
			p.sinks = append(p.sinks, s)
		}
	}
}

// WithFallback redirects pipeline failure reports (stderr by default).
func WithFallback(w io.Writer) Option {
	return func(p *pipeline) {
		p.fallback = NewFallback(w)
	}
}

// WithObserver installs a metrics observer.
func WithObserver(o Observer) Option {
	return func(p *pipeline) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithSinkTimeout bounds how long a log call waits on each sink and how long
// a single sink write may run.
func WithSinkTimeout(d time.Duration) Option {
	return func(p *pipeline) {
		if d > 0 {
			p.sinkTimeout = d
		}
	}
}

// WithQueueSize sets the per-sink backlog.
func WithQueueSize(n int) Option {
	return func(p *pipeline) {
		if n > 0 {
			p.queueSize = n
		}
	}
}

// New builds a logger that drops records below level. Without sinks the
// logger is silent, which is what most tests want.
func New(level Level, opts ...Option) *Logger {
	p := &pipeline{
		level:       level,
		fallback:    NewFallback(nil),
		observer:    noopObserver{},
		sinkTimeout: defaultSinkTimeout,
		queueSize:   defaultQueueSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.start()

	return &Logger{p: p}
}

// With returns a logger that adds the given key/value pairs to every record.
// The child shares sinks and workers with its parent.
func (l *Logger) With(args ...interface{}) *Logger {
	extra := fieldsFromArgs(args)
	if len(extra) == 0 {
		return l
	}
	merged := maps.Clone(l.fields)
	if merged == nil {
		merged = make(Fields, len(extra))
	}
	maps.Copy(merged, extra)
	return &Logger{p: l.p, fields: merged}
}

// Enabled reports whether records at level would be dispatched.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.p.level
}

// Log dispatches one record to every sink and returns once each sink has
// attempted it or the sink timeout elapsed.
func (l *Logger) Log(level Level, msg string, fields Fields) {
	defer func() {
		if r := recover(); r != nil {
			l.p.fallback.Report("logger", fmt.Errorf("panic during dispatch: %v", r))
		}
	}()

	if level.Valid() && !l.Enabled(level) {
		return
	}

	if len(l.fields) > 0 {
		merged := maps.Clone(l.fields)
		maps.Copy(merged, fields)
		fields = merged
	}

	rec, err := NewRecord(level, msg, fields)
	if err != nil {
		l.p.fallback.Report("logger", fmt.Errorf("rejected record %q: %w", msg, err))
		return
	}

	l.p.dispatch(rec)
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.Log(DEBUG, msg, fieldsFromArgs(args))
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.Log(INFO, msg, fieldsFromArgs(args))
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.Log(WARN, msg, fieldsFromArgs(args))
}

// Error logs at ERROR and attaches err under the "error" key when non-nil.
func (l *Logger) Error(msg string, err error, args ...interface{}) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.Log(ERROR, msg, fieldsFromArgs(args))
}

// ReportFailure writes to the fallback channel only. Background jobs use it
// for failures that must not travel through the sinks.
func (l *Logger) ReportFailure(component string, err error) {
	l.p.fallback.Report(component, err)
}

// Close stops accepting records, lets every queued record reach its sink and
// closes sinks that implement io.Closer. In-flight Log calls finish first.
func (l *Logger) Close(ctx context.Context) error {
	return l.p.close(ctx)
}

type delivery struct {
	rec  Record
	done chan struct{}
}

type sinkWorker struct {
	sink  Sink
	queue chan *delivery
}

type pipeline struct {
	level       Level
	sinks       []Sink
	fallback    *Fallback
	observer    Observer
	sinkTimeout time.Duration
	queueSize   int

	workers []*sinkWorker
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func (p *pipeline) start() {
	p.workers = make([]*sinkWorker, 0, len(p.sinks))
	for _, s := range p.sinks {
		w := &sinkWorker{
			sink:  s,
			queue: make(chan *delivery, p.queueSize),
		}
		p.workers = append(p.workers, w)

		p.wg.Add(1)
		go p.run(w)
	}
}

// run drains one sink's queue in FIFO order, which keeps each sink a single
// append stream.
func (p *pipeline) run(w *sinkWorker) {
	defer p.wg.Done()

	for d := range w.queue {
		p.deliver(w.sink, d.rec)
		close(d.done)
	}
}

func (p *pipeline) deliver(s Sink, rec Record) {
	defer func() {
		if r := recover(); r != nil {
			p.observer.SinkFailed(s.Name(), FailurePanic)
			p.fallback.Report(s.Name()+" sink", fmt.Errorf("panic: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), p.sinkTimeout)
	defer cancel()

	if err := s.Write(ctx, rec); err != nil {
		p.observer.SinkFailed(s.Name(), FailureError)
		p.fallback.Report(s.Name()+" sink", err)
	}
}

func (p *pipeline) dispatch(rec Record) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.fallback.Report("logger", errors.New("record logged after close: "+rec.Message))
		return
	}
	if len(p.workers) == 0 {
		return
	}

	p.observer.RecordLogged(rec.Level)

	ctx, cancel := context.WithTimeout(context.Background(), p.sinkTimeout)
	defer cancel()

	pending := make([]*delivery, len(p.workers))
	var full []int

	// Queue on every sink that has room first so one backed-up sink does
	// not hold the record back from the others.
	for i, w := range p.workers {
		d := &delivery{rec: rec, done: make(chan struct{})}
		select {
		case w.queue <- d:
			pending[i] = d
		default:
			full = append(full, i)
		}
	}

	for _, i := range full {
		w := p.workers[i]
		d := &delivery{rec: rec, done: make(chan struct{})}
		select {
		case w.queue <- d:
			pending[i] = d
		case <-ctx.Done():
			p.observer.SinkFailed(w.sink.Name(), FailureDropped)
			p.fallback.Report(w.sink.Name()+" sink", fmt.Errorf("queue full, dropped %s record %q", rec.Level, rec.Message))
		}
	}

	for i, d := range pending {
		if d == nil {
			continue
		}
		select {
		case <-d.done:
		case <-ctx.Done():
			name := p.workers[i].sink.Name()
			p.observer.SinkFailed(name, FailureTimeout)
			p.fallback.Report(name+" sink", fmt.Errorf("write still pending after %s", p.sinkTimeout))
		}
	}
}

func (p *pipeline) close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for _, w := range p.workers {
		close(w.queue)
	}
	p.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		return fmt.Errorf("failed to drain log sinks: %w", ctx.Err())
	}

	var errs []error
	for _, s := range p.sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close %s sink: %w", s.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

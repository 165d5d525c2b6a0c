// Package scheduler runs a background job on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// State is the lifecycle position of a Scheduler.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrAlreadyRunning is returned by Trigger while a pass is in progress.
	ErrAlreadyRunning = errors.New("job already running")
	// ErrStopped is returned by Trigger and Start after Stop.
	ErrStopped = errors.New("scheduler stopped")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("scheduler already started")
)

const defaultRunTimeout = 5 * time.Minute

// Job is one pass of scheduled work.
type Job func(ctx context.Context) error

// Reporter receives job failures. *logger.Logger satisfies it through its
// fallback channel, which keeps failures out of the database sink.
type Reporter interface {
	ReportFailure(component string, err error)
}

// Observer receives per-pass outcomes, typically to feed metrics.
type Observer interface {
	RunFinished(job string, duration time.Duration, err error)
	RunSkipped(job string)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithReporter sets where job failures are reported.
func WithReporter(r Reporter) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.reporter = r
		}
	}
}

// WithObserver installs a metrics observer.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithRunTimeout bounds a single pass.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.runTimeout = d
		}
	}
}

// Scheduler fires Job on every activation of a cron schedule. At most one
// pass runs at a time; a pass that fails is reported and not retried.
//
//	Idle -> Running -> Idle
//	Idle | Running -> Stopped (after the running pass completes)
type Scheduler struct {
	name       string
	spec       string
	schedule   cron.Schedule
	job        Job
	reporter   Reporter
	observer   Observer
	runTimeout time.Duration

	mu       sync.Mutex
	state    State
	stopping bool
	passDone chan struct{}
	quit     chan struct{}
	loopDone chan struct{}
}

// New parses spec as a standard five-field cron expression (descriptors such
// as @daily are accepted) and builds an idle scheduler.
func New(name, spec string, job Job, opts ...Option) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}
	return newWithSchedule(name, spec, schedule, job, opts...), nil
}

func newWithSchedule(name, spec string, schedule cron.Schedule, job Job, opts ...Option) *Scheduler {
	s := &Scheduler{
		name:       name,
		spec:       spec,
		schedule:   schedule,
		job:        job,
		reporter:   nopReporter{},
		observer:   nopObserver{},
		runTimeout: defaultRunTimeout,
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the job name used in reports and metrics.
func (s *Scheduler) Name() string {
	return s.name
}

// Spec returns the cron expression the scheduler was built from.
func (s *Scheduler) Spec() string {
	return s.spec
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Next returns the first activation after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Start begins firing on schedule until Stop is called or ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateStopped || s.stopping {
		s.mu.Unlock()
		return ErrStopped
	}
	if s.loopDone != nil {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	quit := make(chan struct{})
	done := make(chan struct{})
	s.quit = quit
	s.loopDone = done
	s.mu.Unlock()

	go s.loop(ctx, quit, done)
	return nil
}

func (s *Scheduler) loop(ctx context.Context, quit, done chan struct{}) {
	defer close(done)

	for {
		next := s.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-timer.C:
			if err := s.Trigger(ctx); errors.Is(err, ErrStopped) {
				return
			}
		case <-quit:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// Trigger runs one pass now and returns its error. It is skipped with
// ErrAlreadyRunning when another pass is in progress. The pass is detached
// from ctx cancellation and bounded by the run timeout instead.
func (s *Scheduler) Trigger(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateStopped || s.stopping {
		s.mu.Unlock()
		return ErrStopped
	}
	if s.state == StateRunning {
		s.mu.Unlock()
		s.observer.RunSkipped(s.name)
		return ErrAlreadyRunning
	}
	s.state = StateRunning
	done := make(chan struct{})
	s.passDone = done
	s.mu.Unlock()

	err := s.run(ctx)

	s.mu.Lock()
	if s.stopping {
		s.state = StateStopped
	} else {
		s.state = StateIdle
	}
	s.passDone = nil
	close(done)
	s.mu.Unlock()

	return err
}

func (s *Scheduler) run(parent context.Context) (err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.runTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", s.name, r)
		}
		if err != nil {
			s.reporter.ReportFailure(s.name, err)
		}
		s.observer.RunFinished(s.name, time.Since(start), err)
	}()

	return s.job(ctx)
}

// Stop prevents further passes, waits for a running pass to finish (bounded
// by ctx) and stops the schedule loop. Stop is idempotent.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return nil
	}
	s.stopping = true
	if s.quit != nil {
		close(s.quit)
		s.quit = nil
	}
	pass := s.passDone
	loopDone := s.loopDone
	if s.state == StateIdle {
		s.state = StateStopped
	}
	s.mu.Unlock()

	if pass != nil {
		select {
		case <-pass:
		case <-ctx.Done():
			return fmt.Errorf("failed to wait for %s pass: %w", s.name, ctx.Err())
		}
	}
	if loopDone != nil {
		select {
		case <-loopDone:
		case <-ctx.Done():
			return fmt.Errorf("failed to stop %s loop: %w", s.name, ctx.Err())
		}
	}
	return nil
}

type nopReporter struct{}

func (nopReporter) ReportFailure(string, error) {}

type nopObserver struct{}

func (nopObserver) RunFinished(string, time.Duration, error) {}

func (nopObserver) RunSkipped(string) {}

package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type recordingReporter struct {
	mu       sync.Mutex
	failures []string
}

func (r *recordingReporter) ReportFailure(component string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, component+": "+err.Error())
}

func (r *recordingReporter) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.failures...)
}

type recordingObserver struct {
	mu       sync.Mutex
	finished int
	failed   int
	skipped  int
}

func (o *recordingObserver) RunFinished(_ string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished++
	if err != nil {
		o.failed++
	}
}

func (o *recordingObserver) RunSkipped(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.skipped++
}

type everySchedule time.Duration

func (e everySchedule) Next(t time.Time) time.Time {
	return t.Add(time.Duration(e))
}

func TestNewRejectsInvalidSpec(t *testing.T) {
	tests := []string{"", "every day", "61 * * * *", "* * *"}
	for _, spec := range tests {
		t.Run(spec, func(t *testing.T) {
			if _, err := New("log-retention", spec, func(context.Context) error { return nil }); err == nil {
				t.Fatalf("expected error for spec %q", spec)
			}
		})
	}
}

func TestNewDailyScheduleFiresAtMidnight(t *testing.T) {
	s, err := New("log-retention", "0 0 * * *", func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	from := time.Date(2026, 5, 10, 13, 45, 0, 0, time.Local)
	want := time.Date(2026, 5, 11, 0, 0, 0, 0, time.Local)
	if got := s.Next(from); !got.Equal(want) {
		t.Fatalf("Next(%s) = %s, want %s", from, got, want)
	}
	if s.State() != StateIdle {
		t.Fatalf("expected idle scheduler, got %s", s.State())
	}
}

func TestTriggerRunsJobAndReturnsToIdle(t *testing.T) {
	var runs atomic.Int32
	observer := &recordingObserver{}
	s, err := New("log-retention", "@daily", func(context.Context) error {
		runs.Add(1)
		return nil
	}, WithObserver(observer))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := s.Trigger(context.Background()); err != nil {
			t.Fatalf("Trigger() error = %v", err)
		}
	}

	if runs.Load() != 3 {
		t.Fatalf("expected 3 runs, got %d", runs.Load())
	}
	if s.State() != StateIdle {
		t.Fatalf("expected idle after runs, got %s", s.State())
	}
	if observer.finished != 3 || observer.failed != 0 {
		t.Fatalf("unexpected observer state %+v", observer)
	}
}

func TestTriggerSkipsWhileRunning(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	observer := &recordingObserver{}

	s, err := New("log-retention", "@daily", func(context.Context) error {
		close(started)
		<-release
		return nil
	}, WithObserver(observer))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	first := make(chan error, 1)
	go func() { first <- s.Trigger(context.Background()) }()
	<-started

	if s.State() != StateRunning {
		t.Fatalf("expected running, got %s", s.State())
	}
	if err := s.Trigger(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	close(release)
	if err := <-first; err != nil {
		t.Fatalf("first Trigger() error = %v", err)
	}
	if observer.skipped != 1 || observer.finished != 1 {
		t.Fatalf("unexpected observer state %+v", observer)
	}
}

func TestTriggerReportsFailureWithoutRetry(t *testing.T) {
	reporter := &recordingReporter{}
	var runs atomic.Int32

	s, err := New("log-retention", "@daily", func(context.Context) error {
		runs.Add(1)
		return errors.New("connection resource exhausted")
	}, WithReporter(reporter))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := s.Trigger(context.Background()); err == nil {
		t.Fatal("expected job error from Trigger")
	}
	if runs.Load() != 1 {
		t.Fatalf("expected exactly one attempt, got %d", runs.Load())
	}
	if s.State() != StateIdle {
		t.Fatalf("expected idle after failure, got %s", s.State())
	}

	got := reporter.snapshot()
	if len(got) != 1 || !strings.HasPrefix(got[0], "log-retention: ") {
		t.Fatalf("unexpected failure reports %v", got)
	}
}

func TestTriggerRecoversPanic(t *testing.T) {
	reporter := &recordingReporter{}
	s, err := New("log-retention", "@daily", func(context.Context) error {
		panic("nil store")
	}, WithReporter(reporter))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := s.Trigger(context.Background()); err == nil || !strings.Contains(err.Error(), "nil store") {
		t.Fatalf("expected panic converted to error, got %v", err)
	}
	if s.State() != StateIdle {
		t.Fatalf("expected idle after panic, got %s", s.State())
	}
	if len(reporter.snapshot()) != 1 {
		t.Fatalf("expected panic to be reported")
	}
}

func TestTriggerDetachesCallerCancellation(t *testing.T) {
	var jobErr error
	s, err := New("log-retention", "@daily", func(ctx context.Context) error {
		jobErr = ctx.Err()
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("expected run deadline")
		}
		return nil
	}, WithRunTimeout(time.Second))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Trigger(ctx); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	if jobErr != nil {
		t.Fatalf("job context should not inherit cancellation, got %v", jobErr)
	}
}

func TestStopWaitsForRunningPass(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	s, err := New("log-retention", "@daily", func(context.Context) error {
		close(started)
		<-release
		finished.Store(true)
		return nil
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	go func() { _ = s.Trigger(context.Background()) }()
	<-started

	stopped := make(chan error, 1)
	go func() { stopped <- s.Stop(context.Background()) }()

	select {
	case err := <-stopped:
		t.Fatalf("Stop returned before pass finished: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	if err := s.Trigger(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped while stopping, got %v", err)
	}

	close(release)
	if err := <-stopped; err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !finished.Load() {
		t.Fatal("running pass must complete before Stop returns")
	}
	if s.State() != StateStopped {
		t.Fatalf("expected stopped, got %s", s.State())
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}

func TestStartFiresOnScheduleUntilStopped(t *testing.T) {
	var runs atomic.Int32
	fired := make(chan struct{}, 16)

	s := newWithSchedule("log-retention", "test", everySchedule(10*time.Millisecond), func(context.Context) error {
		runs.Add(1)
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-fired:
		case <-time.After(2 * time.Second):
			t.Fatalf("schedule did not fire (run %d)", i+1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	after := runs.Load()
	time.Sleep(50 * time.Millisecond)
	if runs.Load() != after {
		t.Fatalf("job ran after Stop: %d -> %d", after, runs.Load())
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped on restart, got %v", err)
	}
}

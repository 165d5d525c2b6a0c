package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Fallback is the lower-priority channel used when the logging pipeline
// itself fails. It writes straight to its writer (stderr by default) and
// never goes through a sink. Output is rate limited so an unreachable
// database does not flood stderr; suppressed reports are counted and
// mentioned on the next line that gets through.
type Fallback struct {
	mu         sync.Mutex
	w          io.Writer
	limiter    *rate.Limiter
	suppressed int
}

// NewFallback returns a fallback writing to w, or to stderr when w is nil.
func NewFallback(w io.Writer) *Fallback {
	if w == nil {
		w = os.Stderr
	}
	return &Fallback{
		w:       w,
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 20),
	}
}

// Report writes a single line naming the failing component.
func (f *Fallback) Report(component string, err error) {
	if f == nil || err == nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.limiter.Allow() {
		f.suppressed++
		return
	}

	line := fmt.Sprintf("[%s] [FALLBACK] %s: %v",
		time.Now().Format("2006-01-02 15:04:05"), component, err)
	if f.suppressed > 0 {
		line += fmt.Sprintf(" (%d earlier reports suppressed)", f.suppressed)
		f.suppressed = 0
	}

	_, _ = fmt.Fprintln(f.w, line)
}

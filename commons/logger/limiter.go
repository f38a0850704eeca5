package logger

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const defaultWarnInterval = 10 * time.Second

var warnInterval atomic.Int64

func init() {
	warnInterval.Store(int64(defaultWarnInterval))
}

// SetWarnInterval sets how often a Warner lets the same key through. A
// non-positive interval restores the default.
func SetWarnInterval(interval time.Duration) {
	if interval <= 0 {
		interval = defaultWarnInterval
	}
	warnInterval.Store(int64(interval))
}

// WarnInterval returns the interval set by SetWarnInterval.
func WarnInterval() time.Duration {
	return time.Duration(warnInterval.Load())
}

// Limiter admits one event per key per interval and counts what it drops.
type Limiter[K comparable] struct {
	// zero means WarnInterval()
	interval time.Duration
	mu       sync.Mutex
	windows  map[K]*window
}

type window struct {
	opened     time.Time
	suppressed int
}

// NewLimiter returns a limiter with a fixed interval. A non-positive interval
// follows SetWarnInterval.
func NewLimiter[K comparable](interval time.Duration) *Limiter[K] {
	if interval < 0 {
		interval = 0
	}
	return &Limiter[K]{interval: interval, windows: make(map[K]*window)}
}

func (l *Limiter[K]) every() time.Duration {
	if l.interval > 0 {
		return l.interval
	}
	return WarnInterval()
}

// Allow reports whether an event for key may be emitted at now. When it may,
// suppressed is the number of events dropped for key since the last one.
func (l *Limiter[K]) Allow(key K, now time.Time) (suppressed int, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w := l.windows[key]
	if w == nil {
		l.windows[key] = &window{opened: now}
		return 0, true
	}
	if now.Sub(w.opened) < l.every() {
		w.suppressed++
		return 0, false
	}
	suppressed = w.suppressed
	w.opened = now
	w.suppressed = 0
	return suppressed, true
}

// Warner logs rate-limited warnings on the default logger, keyed by K.
type Warner[K comparable] struct {
	limiter *Limiter[K]
}

// NewWarner returns a Warner that follows SetWarnInterval.
func NewWarner[K comparable]() *Warner[K] {
	return &Warner[K]{limiter: NewLimiter[K](0)}
}

// Warn logs msg at warn level unless key already warned within the interval.
// Dropped repeats are reported on the next warning that gets through.
func (w *Warner[K]) Warn(key K, msg string, args ...any) {
	suppressed, ok := w.limiter.Allow(key, time.Now())
	if !ok {
		return
	}
	if suppressed > 0 {
		args = append(args, "suppressed", suppressed)
	}
	slog.Warn(msg, args...)
}

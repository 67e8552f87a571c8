package gate

import (
	"sync"
	"time"
)

// Local is a process-local minimum-interval gate. The zero value is not usable;
// construct it with [NewLocal].
type Local struct {
	interval time.Duration

	mu         sync.Mutex
	lastMillis int64
}

// NewLocal returns a gate that stays closed for interval after each [Local.Mark].
func NewLocal(interval time.Duration) *Local {
	return &Local{interval: interval}
}

// Fresh reports whether a cycle was initiated less than the interval before now.
// A gate that was never marked is never fresh.
func (l *Local) Fresh(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.freshLocked(now.UnixMilli())
}

// Mark records now as the start of a cycle. The stored timestamp never moves
// backwards, even if the wall clock does.
func (l *Local) Mark(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.markLocked(now.UnixMilli())
}

// LastMillis returns the Unix-millisecond timestamp of the last mark, or 0.
func (l *Local) LastMillis() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastMillis
}

func (l *Local) freshLocked(nowMillis int64) bool {
	if l.lastMillis == 0 {
		return false
	}
	return nowMillis-l.lastMillis < l.interval.Milliseconds()
}

func (l *Local) markLocked(nowMillis int64) {
	if nowMillis > l.lastMillis {
		l.lastMillis = nowMillis
	}
}

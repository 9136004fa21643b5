package resource

import (
	"sync"
	"time"
)

// DefaultQuietPeriod is how long search input must stay unchanged before a list
// request is issued.
const DefaultQuietPeriod = 500 * time.Millisecond

// debouncer runs only the last function handed to it within the quiet period.
type debouncer struct {
	mu      sync.Mutex
	quiet   time.Duration
	timer   *time.Timer
	pending func()
}

func newDebouncer(quiet time.Duration) *debouncer {
	return &debouncer{quiet: quiet}
}

// trigger cancels any pending call and schedules fn.
func (d *debouncer) trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = fn
	var t *time.Timer
	t = time.AfterFunc(d.quiet, func() {
		d.mu.Lock()
		if d.timer != t {
			d.mu.Unlock()
			return
		}
		d.timer, d.pending = nil, nil
		d.mu.Unlock()
		fn()
	})
	d.timer = t
}

// flush runs the pending call now, on the caller's goroutine. It reports
// whether there was one.
func (d *debouncer) flush() bool {
	d.mu.Lock()
	fn := d.pending
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer, d.pending = nil, nil
	d.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

// stop cancels the pending call, if any.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}

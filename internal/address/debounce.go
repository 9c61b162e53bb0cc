package address

import (
	"sync"
	"time"
)

// DefaultDebounce matches the form's typing quiet period.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer coalesces rapid triggers: only the function passed to the last
// Do call within the window runs. A superseded function is discarded, never
// cancelled mid-flight — once it has started it runs to completion.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

// NewDebouncer returns a debouncer with the given quiet period; zero or
// negative means DefaultDebounce.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay}
}

// Do schedules fn after the quiet period, discarding any pending schedule.
func (d *Debouncer) Do(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop discards any pending schedule.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

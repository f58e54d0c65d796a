package editor

import (
	"sync"
	"time"
)

// Debouncer runs a function once the duration has elapsed without another
// call. Each armed timer carries a generation; a timer that fires after it
// was replaced or canceled does nothing.
type Debouncer struct {
	mu         sync.Mutex
	timer      *time.Timer
	duration   time.Duration
	generation uint64
}

func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		duration: duration,
	}
}

// Debounce cancels any pending call and schedules fn.
func (d *Debouncer) Debounce(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.generation++
	generation := d.generation
	d.timer = time.AfterFunc(d.duration, func() {
		d.mu.Lock()
		current := generation == d.generation
		if current {
			d.timer = nil
		}
		d.mu.Unlock()

		if current {
			fn()
		}
	})
}

// Cancel drops the pending call, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.generation++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

package reactive

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period used for search-as-you-type.
const DefaultDebounce = 200 * time.Millisecond

// Debouncer delays an action until calls to Trigger have stopped for the
// configured quiet period. Only the most recent action runs; earlier ones
// are dropped. Actions never run on the timer goroutine.
type Debouncer struct {
	delay    time.Duration
	dispatch func(func())
	ready    chan struct{}

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
	gen     uint64
}

// NewDebouncer creates a debouncer. dispatch, when non-nil, receives the
// settled action, typically to post it to the goroutine that owns the model.
// Without dispatch the settled action is held and Ready fires; the owner
// then runs it with Flush. A delay of zero or less runs every action
// synchronously inside Trigger.
func NewDebouncer(delay time.Duration, dispatch func(func())) *Debouncer {
	return &Debouncer{
		delay:    delay,
		dispatch: dispatch,
		ready:    make(chan struct{}, 1),
	}
}

// Ready receives a value when a held action's quiet period has ended. It is
// only used when the debouncer has no dispatch function.
func (d *Debouncer) Ready() <-chan struct{} {
	return d.ready
}

// Trigger schedules fn, replacing any pending action and restarting the
// quiet period.
func (d *Debouncer) Trigger(fn func()) {
	if d.delay <= 0 {
		d.Stop()
		fn()
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.drainReady()
	d.gen++
	gen := d.gen
	d.pending = fn
	d.timer = time.AfterFunc(d.delay, func() {
		d.fire(gen)
	})
}

// fire hands over the pending action if no newer Trigger superseded
// generation gen.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	if d.dispatch == nil {
		d.mu.Unlock()
		select {
		case d.ready <- struct{}{}:
		default:
		}
		return
	}
	fn := d.pending
	d.pending = nil
	d.mu.Unlock()

	d.dispatch(fn)
}

// Flush runs the pending action immediately, if any, on the calling goroutine.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	fn := d.pending
	d.pending = nil
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.drainReady()
	if fn != nil {
		fn()
	}
}

// Pending reports whether an action is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Stop drops the pending action without running it.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.drainReady()
}

// drainReady drops a readiness signal for an action that is gone.
func (d *Debouncer) drainReady() {
	select {
	case <-d.ready:
	default:
	}
}

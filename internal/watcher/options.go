package watcher

import "time"

// DefaultSettleDelay is how long a file must stay unchanged before an event fires.
const DefaultSettleDelay = 100 * time.Millisecond

// Options configures the file watcher behavior.
type Options struct {
	SettleDelay time.Duration
}

// setDefaults applies default values to unset options.
func (o *Options) setDefaults() {
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
}

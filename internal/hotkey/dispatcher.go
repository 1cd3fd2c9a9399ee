package hotkey

import (
	"sync"
	"time"

	"github.com/jonathan/fixmytext/internal/metrics"
	"go.uber.org/zap"
)

// Dispatcher classifies presses into single and double gestures.
//
// All state is guarded by mu. Every press stops the armed timer and bumps
// generation, and a timer callback only acts when its generation is still
// current, so at most one pending single-press decision is ever live.
type Dispatcher struct {
	mu         sync.Mutex
	cfg        Config
	clock      Clock
	clicks     []time.Time
	pending    Timer
	generation uint64
	closed     bool

	out    chan Trigger
	logger *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(d *Dispatcher) { d.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher creates a dispatcher in the Idle state.
func NewDispatcher(cfg Config, opts ...Option) *Dispatcher {
	cfg = cfg.withDefaults()
	d := &Dispatcher{
		cfg:    cfg,
		clock:  SystemClock,
		out:    make(chan Trigger, cfg.Buffer),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(zap.String("component", "hotkey"))
	return d
}

// Events returns the trigger channel. It is never closed; select on it together
// with your own shutdown signal.
func (d *Dispatcher) Events() <-chan Trigger {
	return d.out
}

// Handle processes one raw event. It is safe to call from any goroutine,
// including re-entrantly from an OS hook callback.
func (d *Dispatcher) Handle(ev Event) {
	d.mu.Lock()
	if d.closed || !d.accepts(ev) {
		d.mu.Unlock()
		return
	}

	now := ev.Timestamp
	if now.IsZero() {
		now = d.clock.Now()
	}

	var fire []Trigger
	hadPending := d.cancelPendingLocked()
	d.pruneLocked(now)

	// The armed gesture expired before its timer got to run: it was a single press.
	if hadPending && len(d.clicks) == 0 {
		fire = append(fire, SilentFixTriggered)
	}

	d.clicks = append(d.clicks, now)
	if len(d.clicks) >= 2 {
		d.clicks = nil
		fire = append(fire, UIAssistedTriggered)
	} else {
		d.armLocked()
	}
	d.mu.Unlock()

	for _, t := range fire {
		d.emit(t)
	}
}

func (d *Dispatcher) accepts(ev Event) bool {
	if d.cfg.HotkeyID != "" && ev.HotkeyID != d.cfg.HotkeyID {
		return false
	}
	return ev.Transition == d.cfg.TriggerOn
}

// cancelPendingLocked stops the armed timer and invalidates its generation.
func (d *Dispatcher) cancelPendingLocked() bool {
	d.generation++
	if d.pending == nil {
		return false
	}
	d.pending.Stop()
	d.pending = nil
	return true
}

// pruneLocked drops clicks that are at least one threshold older than now.
func (d *Dispatcher) pruneLocked(now time.Time) {
	kept := d.clicks[:0]
	for _, t := range d.clicks {
		if now.Sub(t) < d.cfg.DoublePressThreshold {
			kept = append(kept, t)
		}
	}
	d.clicks = kept
}

func (d *Dispatcher) armLocked() {
	gen := d.generation
	d.pending = d.clock.AfterFunc(d.cfg.DoublePressThreshold, func() {
		d.expire(gen)
	})
}

// expire runs when the double-press window closes without a second press.
func (d *Dispatcher) expire(gen uint64) {
	d.mu.Lock()
	if d.closed || gen != d.generation {
		d.mu.Unlock()
		return
	}
	d.pending = nil
	single := len(d.clicks) == 1
	d.clicks = nil
	d.mu.Unlock()

	if single {
		d.emit(SilentFixTriggered)
	}
}

// emit never blocks: Handle runs on the OS hook thread. A gesture that finds
// the channel full is dropped.
func (d *Dispatcher) emit(t Trigger) {
	select {
	case d.out <- t:
		metrics.TriggerCount.WithLabelValues(string(t)).Inc()
		d.logger.Debug("gesture dispatched", zap.String("trigger", string(t)))
	default:
		metrics.TriggerDroppedCount.WithLabelValues(string(t)).Inc()
		d.logger.Warn("trigger channel full, gesture dropped",
			zap.String("trigger", string(t)),
			zap.Int("buffer", cap(d.out)))
	}
}

// State reports whether a single-press decision is pending.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		return AwaitingSecondClick
	}
	return Idle
}

// Threshold returns the active double-press window.
func (d *Dispatcher) Threshold() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg.DoublePressThreshold
}

// Reconfigure applies a new configuration and drops any gesture in progress.
// The trigger channel capacity is not changed.
func (d *Dispatcher) Reconfigure(cfg Config) {
	cfg = cfg.withDefaults()
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelPendingLocked()
	d.clicks = nil
	cfg.Buffer = d.cfg.Buffer
	d.cfg = cfg
	d.logger.Info("hotkey reconfigured",
		zap.String("hotkey_id", cfg.HotkeyID),
		zap.Duration("threshold", cfg.DoublePressThreshold),
		zap.Stringer("trigger_on", cfg.TriggerOn))
}

// Close cancels any pending decision.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.cancelPendingLocked()
	d.clicks = nil
}

// Package countdown implements the session countdown: a remaining duration
// decremented by wall-clock elapsed time on every tick, with pause, resume
// and a single expiry notification.
package countdown

import (
	"sync"
	"time"

	"github.com/sadopc/writingflow/internal/clock"
)

const (
	DefaultDuration = 15 * time.Minute
	DefaultInterval = time.Second
)

// Phase is the mutually exclusive condition of a Timer.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhasePaused
	PhaseExpired
)

func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhasePaused:
		return "paused"
	case PhaseExpired:
		return "expired"
	default:
		return "idle"
	}
}

// State is a snapshot of a Timer.
type State struct {
	Remaining  time.Duration
	Running    bool
	Paused     bool
	Expired    bool
	LastUpdate time.Time
}

func (s State) Phase() Phase {
	switch {
	case s.Expired:
		return PhaseExpired
	case s.Running:
		return PhaseRunning
	case s.Paused:
		return PhasePaused
	default:
		return PhaseIdle
	}
}

// Option configures a Timer.
type Option func(*Timer)

// WithDefault sets the duration used by Start(0) and Reset.
func WithDefault(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.def = d
		}
	}
}

// WithInterval sets the tick interval.
func WithInterval(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.interval = d
		}
	}
}

// OnChange registers fn to receive a snapshot after every state change.
// Snapshots are delivered in order. fn must not call back into the Timer.
func OnChange(fn func(State)) Option {
	return func(t *Timer) { t.onChange = fn }
}

// OnExpire registers fn to run once each time the countdown reaches zero.
// fn may call back into the Timer.
func OnExpire(fn func()) Option {
	return func(t *Timer) { t.onExpire = fn }
}

// Timer is a pausable countdown. It is safe for concurrent use.
type Timer struct {
	clk      clock.Clock
	def      time.Duration
	interval time.Duration
	onChange func(State)
	onExpire func()

	mu      sync.Mutex
	state   State
	gen     uint64
	pending clock.Timer

	// emitMu keeps snapshot delivery in state order.
	emitMu sync.Mutex
}

// New returns an idle Timer holding the default duration.
func New(clk clock.Clock, opts ...Option) *Timer {
	if clk == nil {
		clk = clock.System{}
	}
	t := &Timer{
		clk:      clk,
		def:      DefaultDuration,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.state.Remaining = t.def
	return t
}

// State returns the current snapshot.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Start begins counting down from d, or from the default when d <= 0,
// replacing whatever the timer was doing.
func (t *Timer) Start(d time.Duration) {
	if d <= 0 {
		d = t.def
	}
	t.mu.Lock()
	t.cancelLocked()
	t.state = State{
		Remaining:  d,
		Running:    true,
		LastUpdate: t.clk.Now(),
	}
	t.scheduleLocked()
	t.emitAndUnlock()
}

// StartPaused loads d, or the default when d <= 0, as a paused countdown.
// Resume starts it.
func (t *Timer) StartPaused(d time.Duration) {
	if d <= 0 {
		d = t.def
	}
	t.mu.Lock()
	t.cancelLocked()
	t.state = State{
		Remaining:  d,
		Paused:     true,
		LastUpdate: t.clk.Now(),
	}
	t.emitAndUnlock()
}

// Pause freezes the remaining time. It is a no-op unless running.
func (t *Timer) Pause() {
	t.mu.Lock()
	if !t.state.Running {
		t.mu.Unlock()
		return
	}
	t.cancelLocked()
	t.state.Running = false
	t.state.Paused = true
	t.state.LastUpdate = t.clk.Now()
	t.emitAndUnlock()
}

// Resume continues a paused countdown. Time spent paused is not counted.
func (t *Timer) Resume() {
	t.mu.Lock()
	if !t.state.Paused {
		t.mu.Unlock()
		return
	}
	t.state.Paused = false
	t.state.Running = true
	t.state.LastUpdate = t.clk.Now()
	t.scheduleLocked()
	t.emitAndUnlock()
}

// Stop cancels the countdown and restores the default duration, clearing
// any expiry. Stopping an idle timer that already holds the default emits
// nothing.
func (t *Timer) Stop() {
	t.mu.Lock()
	t.cancelLocked()
	if t.state.Phase() == PhaseIdle && t.state.Remaining == t.def {
		t.mu.Unlock()
		return
	}
	t.resetLocked()
	t.emitAndUnlock()
}

// Reset is Stop, but always emits a snapshot.
func (t *Timer) Reset() {
	t.mu.Lock()
	t.cancelLocked()
	t.resetLocked()
	t.emitAndUnlock()
}

func (t *Timer) resetLocked() {
	t.state = State{Remaining: t.def, LastUpdate: t.clk.Now()}
}

func (t *Timer) tick(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.state.Running {
		t.mu.Unlock()
		return
	}

	now := t.clk.Now()
	elapsed := now.Sub(t.state.LastUpdate)
	if elapsed < 0 {
		elapsed = 0
	}
	t.state.LastUpdate = now
	t.state.Remaining -= elapsed

	expired := false
	if t.state.Remaining <= 0 {
		t.state.Remaining = 0
		t.state.Running = false
		t.state.Expired = true
		t.gen++
		t.pending = nil
		expired = true
	} else {
		t.scheduleLocked()
	}
	t.emitAndUnlock()

	if expired && t.onExpire != nil {
		t.onExpire()
	}
}

// scheduleLocked arms the next tick for the current generation.
func (t *Timer) scheduleLocked() {
	t.gen++
	gen := t.gen
	t.pending = t.clk.AfterFunc(t.interval, func() { t.tick(gen) })
}

// cancelLocked invalidates any scheduled tick.
func (t *Timer) cancelLocked() {
	t.gen++
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}

// emitAndUnlock releases t.mu and delivers the snapshot taken under it.
func (t *Timer) emitAndUnlock() {
	snap := t.state
	t.emitMu.Lock()
	t.mu.Unlock()
	defer t.emitMu.Unlock()
	if t.onChange != nil {
		t.onChange(snap)
	}
}

// Package activity watches for typing pauses during a live session and
// reports inactivity once per quiet period.
package activity

import (
	"sync"
	"time"

	"github.com/sadopc/writingflow/internal/clock"
)

// DefaultThreshold is how long a session may go without activity before it
// is reported inactive.
const DefaultThreshold = 30 * time.Second

// State is a snapshot of the monitor. It is never persisted.
type State struct {
	LastActivity time.Time
	Monitoring   bool
	SessionID    string
}

// Monitor arms a single-shot timer that is pushed back by every recorded
// activity. When it fires, onInactive is called with the session and the
// idle time; it is not re-armed until the next activity.
type Monitor struct {
	clk        clock.Clock
	threshold  time.Duration
	onInactive func(sessionID string, idle time.Duration)

	mu      sync.Mutex
	state   State
	gen     uint64
	pending clock.Timer
}

// New returns a stopped Monitor. A non-positive threshold selects
// DefaultThreshold.
func New(clk clock.Clock, threshold time.Duration, onInactive func(sessionID string, idle time.Duration)) *Monitor {
	if clk == nil {
		clk = clock.System{}
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Monitor{clk: clk, threshold: threshold, onInactive: onInactive}
}

// Threshold returns the configured inactivity threshold.
func (m *Monitor) Threshold() time.Duration { return m.threshold }

// Start begins monitoring sessionID, replacing any previous session.
func (m *Monitor) Start(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked()
	m.state = State{
		LastActivity: m.clk.Now(),
		Monitoring:   true,
		SessionID:    sessionID,
	}
	m.armLocked()
}

// RecordActivity marks the session as active now. It is ignored when the
// monitor is stopped.
func (m *Monitor) RecordActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.Monitoring {
		return
	}
	m.state.LastActivity = m.clk.Now()
	m.cancelLocked()
	m.armLocked()
}

// Stop ends monitoring. A pending inactivity report is discarded.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked()
	m.state.Monitoring = false
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Monitor) armLocked() {
	m.gen++
	gen := m.gen
	m.pending = m.clk.AfterFunc(m.threshold, func() { m.fire(gen) })
}

func (m *Monitor) cancelLocked() {
	m.gen++
	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}
}

func (m *Monitor) fire(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || !m.state.Monitoring {
		m.mu.Unlock()
		return
	}
	m.pending = nil
	id := m.state.SessionID
	idle := m.clk.Now().Sub(m.state.LastActivity)
	m.mu.Unlock()

	if m.onInactive != nil {
		m.onInactive(id, idle)
	}
}

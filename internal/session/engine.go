package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sadopc/writingflow/internal/activity"
	"github.com/sadopc/writingflow/internal/analysis"
	"github.com/sadopc/writingflow/internal/clock"
	"github.com/sadopc/writingflow/internal/countdown"
	"github.com/sadopc/writingflow/internal/events"
	"github.com/sadopc/writingflow/internal/guard"
	"github.com/sadopc/writingflow/internal/metrics"
	"github.com/sadopc/writingflow/internal/textstats"
)

// Option configures an Engine.
type Option func(*Engine)

func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clk = c }
}

// WithAnalyzer sets the analyzer run on completion. Nil disables analysis.
func WithAnalyzer(a analysis.Analyzer) Option {
	return func(e *Engine) { e.analyzer = a }
}

// WithBus publishes events on b instead of a bus owned by the engine.
func WithBus(b *events.Bus[Event]) Option {
	return func(e *Engine) { e.bus = b }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithActivityLog overrides where activity events are recorded.
func WithActivityLog(l ActivityLog) Option {
	return func(e *Engine) { e.activityLog = l }
}

func WithInactivityThreshold(d time.Duration) Option {
	return func(e *Engine) { e.inactivity = d }
}

// WithTitleFunc sets how untitled sessions are named.
func WithTitleFunc(fn func(start time.Time) string) Option {
	return func(e *Engine) { e.titleFn = fn }
}

// Engine runs the session lifecycle. All operations are serialized; timer
// expiry re-enters through the same path as Complete.
type Engine struct {
	store       Store
	clk         clock.Clock
	analyzer    analysis.Analyzer
	bus         *events.Bus[Event]
	ownsBus     bool
	log         zerolog.Logger
	metrics     *metrics.Metrics
	activityLog ActivityLog
	inactivity  time.Duration
	titleFn     func(time.Time) string

	timer   *countdown.Timer
	monitor *activity.Monitor
	guard   guard.Guard

	// liveID is read by timer and monitor callbacks without taking mu.
	liveID atomic.Value
	idle   atomic.Bool

	mu      sync.Mutex
	current *Session
	closed  bool
}

// New returns an Engine backed by store. Without options it uses the system
// clock, the heuristic analyzer, a private bus and a no-op logger.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		clk:        clock.System{},
		analyzer:   analysis.NewHeuristic(),
		log:        zerolog.Nop(),
		inactivity: activity.DefaultThreshold,
		titleFn:    DefaultTitle,
	}
	if al, ok := store.(ActivityLog); ok {
		e.activityLog = al
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.bus == nil {
		e.bus = events.New[Event]()
		e.ownsBus = true
	}
	e.liveID.Store("")

	e.timer = countdown.New(e.clk,
		countdown.WithDefault(DefaultDuration),
		countdown.OnChange(e.onTimerChange),
		countdown.OnExpire(e.onTimerExpire),
	)
	e.monitor = activity.New(e.clk, e.inactivity, e.onInactive)
	return e
}

// Subscribe returns a subscription to the engine's events.
func (e *Engine) Subscribe() *events.Subscription[Event] {
	return e.bus.Subscribe()
}

// Timer returns the countdown snapshot.
func (e *Engine) Timer() countdown.State { return e.timer.State() }

// Activity returns the inactivity monitor snapshot.
func (e *Engine) Activity() activity.State { return e.monitor.State() }

// GuardEngaged reports whether shortening edits are currently rejected.
func (e *Engine) GuardEngaged() bool { return e.guard.Engaged() }

// Start begins a session with a generated title.
func (e *Engine) Start(ctx context.Context, target time.Duration) (Session, error) {
	return e.StartWithTitle(ctx, "", target)
}

// StartWithTitle begins a session. target zero selects DefaultDuration;
// other values are clamped to [MinDuration, MaxDuration].
func (e *Engine) StartWithTitle(ctx context.Context, title string, target time.Duration) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	live, err := e.store.GetActive(ctx)
	if err != nil {
		return Session{}, err
	}
	if live != nil {
		e.cacheLocked(live)
		return Session{}, ErrSessionAlreadyActive
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Session{}, fmt.Errorf("generate session id: %w", err)
	}

	now := e.clk.Now()
	title = normalizeTitle(title)
	if title == "" {
		title = e.titleFn(now)
	}
	s := &Session{
		ID:             id.String(),
		Title:          title,
		StartTime:      now,
		TargetDuration: NormalizeDuration(target),
		State:          StateActive,
		LastUpdate:     now,
		StateChangedAt: now,
	}
	if err := e.store.Create(ctx, s); err != nil {
		return Session{}, err
	}

	e.cacheLocked(s)
	e.idle.Store(false)
	e.timer.Start(s.TargetDuration)
	e.monitor.Start(s.ID)
	e.guard.Engage()

	e.metrics.SessionStarted()
	e.log.Info().Str("session_id", s.ID).Dur("target", s.TargetDuration).Msg("session started")
	e.publishStateLocked(s)
	return s.Clone(), nil
}

// Pause suspends an active session.
func (e *Engine) Pause(ctx context.Context, id string) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.loadLocked(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if s.State != StateActive {
		return Session{}, ErrSessionNotActive
	}

	now := e.clk.Now()
	next := s.Clone()
	next.closeStretch(now)
	next.State = StatePaused
	next.PauseCount++
	if err := e.store.Update(ctx, &next); err != nil {
		return Session{}, err
	}

	e.cacheLocked(&next)
	e.timer.Pause()
	e.monitor.Stop()
	e.guard.Disengage()

	e.recordActivity(ctx, ActivityEvent{SessionID: id, Kind: ActivityPause, At: now})
	e.metrics.Transition(next.State.String(), true)
	e.log.Info().Str("session_id", id).Int("pause_count", next.PauseCount).Msg("session paused")
	e.publishStateLocked(&next)
	return next.Clone(), nil
}

// Resume continues a paused session.
func (e *Engine) Resume(ctx context.Context, id string) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.loadLocked(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if s.State != StatePaused {
		return Session{}, ErrSessionNotActive
	}

	now := e.clk.Now()
	paused := now.Sub(s.StateChangedAt)
	next := s.Clone()
	next.closeStretch(now)
	next.State = StateActive
	if err := e.store.Update(ctx, &next); err != nil {
		return Session{}, err
	}

	e.cacheLocked(&next)
	if e.timer.State().Phase() == countdown.PhasePaused {
		e.timer.Resume()
	} else {
		e.timer.Start(next.Remaining(now))
	}
	e.idle.Store(false)
	e.monitor.Start(id)
	e.guard.Engage()

	e.recordActivity(ctx, ActivityEvent{SessionID: id, Kind: ActivityResume, At: now, Duration: paused})
	e.metrics.Transition(next.State.String(), true)
	e.log.Info().Str("session_id", id).Dur("paused", paused).Msg("session resumed")
	e.publishStateLocked(&next)
	return next.Clone(), nil
}

// Complete finishes a live session and attaches an analysis of its content.
// Completing a finished session returns it unchanged. Analysis failures are
// reported as AnalysisFailed events and do not fail Complete.
func (e *Engine) Complete(ctx context.Context, id string) (Session, error) {
	e.mu.Lock()
	s, finished, err := e.completeLocked(ctx, id)
	e.mu.Unlock()
	if err != nil || !finished {
		return s, err
	}
	return e.summarize(ctx, s), nil
}

// completeLocked closes out a live session. finished is false when the
// session was already terminal.
func (e *Engine) completeLocked(ctx context.Context, id string) (Session, bool, error) {
	s, err := e.loadLocked(ctx, id)
	if err != nil {
		return Session{}, false, err
	}
	if s.State.Terminal() {
		return s.Clone(), false, nil
	}
	if !s.State.Live() {
		return Session{}, false, ErrSessionNotActive
	}

	next, err := e.finishLocked(ctx, s, StateCompleted)
	if err != nil {
		return Session{}, false, err
	}
	e.metrics.SessionCompleted(next.WordCount)
	e.log.Info().
		Str("session_id", id).
		Int("words", next.WordCount).
		Dur("duration", next.Duration).
		Msg("session completed")
	return next, true, nil
}

// Cancel abandons a live session without analysis. Cancelling a cancelled
// session is a no-op; a completed session cannot be cancelled.
func (e *Engine) Cancel(ctx context.Context, id string) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.loadLocked(ctx, id)
	if err != nil {
		return Session{}, err
	}
	switch {
	case s.State == StateCancelled:
		return s.Clone(), nil
	case !s.State.Live():
		return Session{}, ErrSessionNotActive
	}

	next, err := e.finishLocked(ctx, s, StateCancelled)
	if err != nil {
		return Session{}, err
	}
	e.log.Info().Str("session_id", id).Msg("session cancelled")
	return next, nil
}

// finishLocked moves a live session into a terminal state and tears down
// the live-session machinery.
func (e *Engine) finishLocked(ctx context.Context, s *Session, state State) (Session, error) {
	now := e.clk.Now()
	next := s.Clone()
	next.closeStretch(now)
	next.State = state
	next.EndTime = &now
	if err := e.store.Update(ctx, &next); err != nil {
		return Session{}, err
	}

	e.current = nil
	e.liveID.Store("")
	e.timer.Stop()
	e.monitor.Stop()
	e.guard.Disengage()

	e.metrics.Transition(state.String(), false)
	e.publishStateLocked(&next)
	return next.Clone(), nil
}

// summarize runs the analyzer over a completed session and persists the
// result. It never fails; problems are logged and published.
func (e *Engine) summarize(ctx context.Context, s Session) Session {
	next, err := e.runAnalysis(ctx, s)
	if err != nil {
		return s
	}
	return next
}

// Analyze runs the analyzer again over a finished session, replacing any
// stored analysis. Use it after a failed or empty analysis, or after the
// analyzer changed. Like completion it publishes AnalysisReady or
// AnalysisFailed.
func (e *Engine) Analyze(ctx context.Context, id string) (Session, error) {
	if e.analyzer == nil {
		return Session{}, ErrAnalysisDisabled
	}

	e.mu.Lock()
	s, err := e.loadLocked(ctx, id)
	if err == nil && !s.State.Terminal() {
		err = ErrSessionNotFinished
	}
	var snap Session
	if err == nil {
		snap = s.Clone()
	}
	e.mu.Unlock()
	if err != nil {
		return Session{}, err
	}

	e.log.Info().Str("session_id", id).Msg("re-analyzing session")
	return e.runAnalysis(ctx, snap)
}

func (e *Engine) runAnalysis(ctx context.Context, s Session) (Session, error) {
	if e.analyzer == nil {
		return s, ErrAnalysisDisabled
	}

	started := e.clk.Now()
	res, err := e.analyzer.Analyze(ctx, s.Content)
	if err != nil {
		if errors.Is(err, analysis.ErrTextTooShort) {
			e.log.Debug().Str("session_id", s.ID).Msg("session too short to analyze")
		} else {
			e.metrics.AnalysisFailed()
			e.log.Warn().Err(err).Str("session_id", s.ID).Msg("analysis failed")
		}
		e.bus.Publish(Event{Type: AnalysisFailed, SessionID: s.ID, At: e.clk.Now(), Err: err})
		return s, err
	}
	e.metrics.ObserveAnalysis(res.Source, e.clk.Now().Sub(started))

	e.mu.Lock()
	defer e.mu.Unlock()

	next := s.Clone()
	next.Summary = &res
	if err := e.store.Update(ctx, &next); err != nil {
		e.log.Warn().Err(err).Str("session_id", s.ID).Msg("persist analysis")
		return s, err
	}

	snap := next.Clone()
	e.bus.Publish(Event{
		Type:      AnalysisReady,
		SessionID: s.ID,
		At:        e.clk.Now(),
		Session:   &snap,
		Analysis:  snap.Summary,
	})
	return next, nil
}

// UpdateContent replaces the content of a live session and refreshes its
// counts and typing speed.
func (e *Engine) UpdateContent(ctx context.Context, id, content string) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.loadLocked(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if !s.State.Live() {
		return Session{}, ErrSessionNotActive
	}
	return e.updateContentLocked(ctx, s, content)
}

func (e *Engine) updateContentLocked(ctx context.Context, s *Session, content string) (Session, error) {
	now := e.clk.Now()
	chars := textstats.CharacterCount(content)
	delta := chars - s.CharacterCount
	if delta < 0 {
		delta = -delta
	}

	next := s.Clone()
	next.Content = content
	next.WordCount = textstats.WordCount(content)
	next.CharacterCount = chars
	next.AverageTypingSpeed = textstats.TypingSpeed(delta, now.Sub(s.LastUpdate))
	next.LastUpdate = now
	if err := e.store.Update(ctx, &next); err != nil {
		return Session{}, err
	}
	e.cacheLocked(&next)

	if next.State == StateActive {
		e.monitor.RecordActivity()
		if e.idle.Swap(false) {
			e.recordActivity(ctx, ActivityEvent{SessionID: next.ID, Kind: ActivityTyping, At: now})
		}
	}

	snap := next.Clone()
	e.bus.Publish(Event{Type: ContentUpdated, SessionID: next.ID, At: now, Session: &snap})
	return next.Clone(), nil
}

// ApplyEdit checks a proposed edit against the backspace guard and applies
// it if allowed. A rejected edit leaves the session unchanged and returns
// false.
func (e *Engine) ApplyEdit(ctx context.Context, id, content string) (Session, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.loadLocked(ctx, id)
	if err != nil {
		return Session{}, false, err
	}
	if !s.State.Live() {
		return Session{}, false, ErrSessionNotActive
	}

	if !e.guard.Check(s.Content, content) {
		now := e.clk.Now()
		e.metrics.EditRejected()
		e.recordActivity(ctx, ActivityEvent{
			SessionID: id,
			Kind:      ActivityBackspace,
			At:        now,
			Metadata: map[string]string{
				"removed": strconv.Itoa(s.CharacterCount - textstats.CharacterCount(content)),
			},
		})
		snap := s.Clone()
		e.bus.Publish(Event{Type: EditRejected, SessionID: id, At: now, Session: &snap})
		return s.Clone(), false, nil
	}

	next, err := e.updateContentLocked(ctx, s, content)
	if err != nil {
		return Session{}, false, err
	}
	return next, true, nil
}

// CurrentActive returns the live session, or nil when there is none.
func (e *Engine) CurrentActive(ctx context.Context) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != nil {
		c := e.current.Clone()
		return &c, nil
	}
	s, err := e.store.GetActive(ctx)
	if err != nil || s == nil {
		return nil, err
	}
	e.cacheLocked(s)
	c := s.Clone()
	return &c, nil
}

// Recover picks up the live session left in the store by a previous
// process, re-arming the countdown and inactivity monitor. A session whose
// time ran out meanwhile is completed. It returns nil when nothing is live.
func (e *Engine) Recover(ctx context.Context) (*Session, error) {
	e.mu.Lock()
	s, err := e.store.GetActive(ctx)
	if err != nil || s == nil {
		e.mu.Unlock()
		return nil, err
	}
	e.cacheLocked(s)

	now := e.clk.Now()
	remaining := s.Remaining(now)
	if remaining <= 0 {
		e.mu.Unlock()
		e.log.Info().Str("session_id", s.ID).Msg("recovered session already expired")
		done, err := e.Complete(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		return &done, nil
	}
	defer e.mu.Unlock()

	if s.State == StatePaused {
		e.timer.StartPaused(remaining)
		e.guard.Disengage()
	} else {
		e.timer.Start(remaining)
		e.idle.Store(false)
		e.monitor.Start(s.ID)
		e.guard.Engage()
	}

	e.log.Info().
		Str("session_id", s.ID).
		Str("state", s.State.String()).
		Dur("remaining", remaining).
		Msg("session recovered")
	e.publishStateLocked(s)
	c := s.Clone()
	return &c, nil
}

// Close stops the timers. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.liveID.Store("")
	e.timer.Stop()
	e.monitor.Stop()
	e.guard.Disengage()
	if e.ownsBus {
		e.bus.Close()
	}
}

// loadLocked returns the cached live session when it matches id and reads
// the store otherwise.
func (e *Engine) loadLocked(ctx context.Context, id string) (*Session, error) {
	if e.current != nil && e.current.ID == id {
		return e.current, nil
	}
	s, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, &NotFoundError{ID: id}
	}
	if s.State.Live() {
		e.cacheLocked(s)
	}
	return s, nil
}

func (e *Engine) cacheLocked(s *Session) {
	c := s.Clone()
	e.current = &c
	e.liveID.Store(c.ID)
}

func (e *Engine) publishStateLocked(s *Session) {
	snap := s.Clone()
	e.bus.Publish(Event{
		Type:      SessionStateChanged,
		SessionID: s.ID,
		At:        e.clk.Now(),
		Session:   &snap,
	})
}

func (e *Engine) recordActivity(ctx context.Context, ev ActivityEvent) {
	if e.activityLog == nil {
		return
	}
	if err := e.activityLog.RecordActivity(ctx, ev); err != nil {
		e.log.Warn().Err(err).Str("session_id", ev.SessionID).Str("kind", string(ev.Kind)).Msg("record activity")
	}
}

func (e *Engine) onTimerChange(st countdown.State) {
	e.bus.Publish(Event{
		Type:      TimerChanged,
		SessionID: e.liveID.Load().(string),
		At:        e.clk.Now(),
		Timer:     st,
	})
}

// onTimerExpire completes the live session. The expiry is ignored when the
// countdown has since been restarted or stopped for another session.
func (e *Engine) onTimerExpire() {
	e.mu.Lock()
	if e.closed || e.current == nil || !e.timer.State().Expired {
		e.mu.Unlock()
		return
	}
	id := e.current.ID
	e.bus.Publish(Event{Type: TimerExpired, SessionID: id, At: e.clk.Now(), Timer: e.timer.State()})

	ctx := context.Background()
	s, finished, err := e.completeLocked(ctx, id)
	e.mu.Unlock()
	if err != nil {
		e.log.Error().Err(err).Str("session_id", id).Msg("complete expired session")
		return
	}
	if finished {
		e.summarize(ctx, s)
	}
}

func (e *Engine) onInactive(id string, idle time.Duration) {
	if id == "" || id != e.liveID.Load().(string) {
		return
	}
	e.idle.Store(true)
	e.metrics.Inactive()
	e.log.Debug().Str("session_id", id).Dur("idle", idle).Msg("writer inactive")
	now := e.clk.Now()
	e.recordActivity(context.Background(), ActivityEvent{SessionID: id, Kind: ActivityIdle, At: now, Duration: idle})
	e.bus.Publish(Event{Type: Inactive, SessionID: id, At: now, Idle: idle})
}

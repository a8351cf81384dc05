package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/writingflow/internal/analysis"
	"github.com/sadopc/writingflow/internal/clock"
	"github.com/sadopc/writingflow/internal/countdown"
	"github.com/sadopc/writingflow/internal/session"
	"github.com/sadopc/writingflow/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestEngine(t *testing.T, s *store.Store) *session.Engine {
	t.Helper()
	clk := clock.NewManual(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	e := session.New(s, session.WithClock(clk))
	t.Cleanup(e.Close)
	return e
}

func startWriting(t *testing.T, w writeModel, title string) writeModel {
	t.Helper()
	msg := w.start(title, 10*time.Minute)()
	started, ok := msg.(sessionStartedMsg)
	if !ok {
		t.Fatalf("start: got %#v", msg)
	}
	w, _ = w.update(started)
	return w
}

func typeText(w writeModel, text string) (writeModel, tea.Cmd) {
	return w.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func pressBackspace(w writeModel) (writeModel, tea.Cmd) {
	return w.update(tea.KeyMsg{Type: tea.KeyBackspace})
}

func liveSession(id string, state session.State) *session.Session {
	return &session.Session{
		ID:             id,
		Title:          "Draft",
		State:          state,
		TargetDuration: 15 * time.Minute,
	}
}

// ============================================================
// Timer mirror
// ============================================================

func TestTimerModelTracksLiveSession(t *testing.T) {
	var tm timerModel
	if tm.running() || tm.paused() {
		t.Fatal("empty mirror should not be running")
	}
	if tm.remaining() != 0 {
		t.Fatal("empty mirror should have no remaining time")
	}

	tm.apply(session.Event{Type: session.SessionStateChanged, SessionID: "a", Session: liveSession("a", session.StateActive)})
	if !tm.running() || tm.paused() {
		t.Fatal("should be running after active state")
	}
	if tm.remaining() != 15*time.Minute {
		t.Fatalf("remaining before first tick = %v, want target", tm.remaining())
	}

	tm.apply(session.Event{Type: session.TimerChanged, SessionID: "a", Timer: countdown.State{Remaining: 14 * time.Minute, Running: true, LastUpdate: time.Now()}})
	if tm.remaining() != 14*time.Minute {
		t.Fatalf("remaining = %v, want 14m", tm.remaining())
	}

	tm.apply(session.Event{Type: session.TimerChanged, Timer: countdown.State{Remaining: 15 * time.Minute, LastUpdate: time.Now()}})
	if tm.remaining() != 14*time.Minute {
		t.Fatalf("a stopped countdown should not replace the clock, got %v", tm.remaining())
	}

	tm.apply(session.Event{Type: session.SessionStateChanged, SessionID: "a", Session: liveSession("a", session.StatePaused)})
	if !tm.paused() {
		t.Fatal("should be paused")
	}

	tm.apply(session.Event{Type: session.SessionStateChanged, SessionID: "a", Session: liveSession("a", session.StateCompleted)})
	if tm.running() {
		t.Fatal("should stop tracking a finished session")
	}
}

func TestTimerModelIdleAndRejected(t *testing.T) {
	var tm timerModel
	tm.apply(session.Event{Type: session.SessionStateChanged, SessionID: "a", Session: liveSession("a", session.StateActive)})

	tm.apply(session.Event{Type: session.Inactive, SessionID: "a", Idle: 30 * time.Second})
	if !tm.idle {
		t.Fatal("inactivity should set idle")
	}
	tm.apply(session.Event{Type: session.EditRejected, SessionID: "a"})
	tm.apply(session.Event{Type: session.EditRejected, SessionID: "a"})
	if tm.rejected != 2 {
		t.Fatalf("rejected = %d, want 2", tm.rejected)
	}

	updated := liveSession("a", session.StateActive)
	updated.Content = "more"
	tm.apply(session.Event{Type: session.ContentUpdated, SessionID: "a", Session: updated})
	if tm.idle || tm.rejected != 0 {
		t.Fatal("an accepted edit should clear idle and rejected")
	}
	if tm.session.Content != "more" {
		t.Fatalf("content = %q", tm.session.Content)
	}
}

func TestTimerModelIgnoresOtherSessions(t *testing.T) {
	var tm timerModel
	tm.apply(session.Event{Type: session.SessionStateChanged, SessionID: "a", Session: liveSession("a", session.StateActive)})

	tm.apply(session.Event{Type: session.Inactive, SessionID: "b"})
	tm.apply(session.Event{Type: session.EditRejected, SessionID: "b"})
	tm.apply(session.Event{Type: session.SessionStateChanged, SessionID: "b", Session: liveSession("b", session.StateCancelled)})

	if tm.idle || tm.rejected != 0 {
		t.Fatal("events for another session should be ignored")
	}
	if tm.sessionID() != "a" {
		t.Fatalf("tracking %q, want a", tm.sessionID())
	}
}

// ============================================================
// Write view
// ============================================================

func TestWriteStartSession(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s)

	w := newWriteModel(s, e, 15*time.Minute)
	if w.capturing() {
		t.Fatal("nothing should capture keys before a session starts")
	}

	w = startWriting(t, w, "Morning pages")
	if !w.timer.running() {
		t.Fatal("timer mirror should be running")
	}
	if !w.editor.Focused() || !w.capturing() {
		t.Fatal("editor should be focused after start")
	}
	if w.timer.session.Title != "Morning pages" {
		t.Fatalf("title = %q", w.timer.session.Title)
	}
	if w.timer.remaining() != 10*time.Minute {
		t.Fatalf("remaining = %v, want 10m", w.timer.remaining())
	}
}

func TestWriteStartWhileRunning(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s)

	w := startWriting(t, newWriteModel(s, e, 15*time.Minute), "first")

	msg := w.start("second", 0)()
	st, ok := msg.(statusMsg)
	if !ok || !st.isError {
		t.Fatalf("expected error status, got %#v", msg)
	}
}

func TestWriteTypingAppliesEdit(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s)
	w := startWriting(t, newWriteModel(s, e, 15*time.Minute), "typing")

	w, _ = typeText(w, "hello world")

	if w.editor.Value() != "hello world" {
		t.Fatalf("editor = %q", w.editor.Value())
	}
	if w.timer.session.Content != "hello world" || w.timer.session.WordCount != 2 {
		t.Fatalf("session not updated: %+v", w.timer.session)
	}

	stored, err := s.Get(context.Background(), w.timer.sessionID())
	if err != nil {
		t.Fatal(err)
	}
	if stored.Content != "hello world" {
		t.Fatalf("stored content = %q", stored.Content)
	}
}

func TestWriteBackspaceRejected(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s)
	w := startWriting(t, newWriteModel(s, e, 15*time.Minute), "guarded")
	w, _ = typeText(w, "hello")

	w, cmd := pressBackspace(w)

	if w.editor.Value() != "hello" {
		t.Fatalf("rejected edit should be rolled back, editor = %q", w.editor.Value())
	}
	if w.timer.session.Content != "hello" {
		t.Fatalf("session content = %q", w.timer.session.Content)
	}
	if cmd == nil {
		t.Fatal("expected a status command for the rejected edit")
	}
	if !e.GuardEngaged() {
		t.Fatal("guard should stay engaged")
	}
}

func TestWriteBackspaceAllowedWhilePaused(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s)
	w := startWriting(t, newWriteModel(s, e, 15*time.Minute), "paused")
	w, _ = typeText(w, "hello")

	msg := w.togglePause()()
	if st, ok := msg.(statusMsg); !ok || st.isError {
		t.Fatalf("pause: %#v", msg)
	}

	w, _ = pressBackspace(w)
	if w.editor.Value() != "hell" {
		t.Fatalf("editor = %q, want hell", w.editor.Value())
	}
	stored, _ := s.Get(context.Background(), w.timer.sessionID())
	if stored.Content != "hell" {
		t.Fatalf("stored content = %q", stored.Content)
	}
}

func TestWriteTogglePauseWithoutSession(t *testing.T) {
	s := newTestStore(t)
	w := newWriteModel(s, newTestEngine(t, s), 15*time.Minute)
	if w.togglePause() != nil || w.finish() != nil || w.abandon() != nil {
		t.Fatal("session controls should be no-ops without a session")
	}
}

func TestWriteFinish(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s)
	w := startWriting(t, newWriteModel(s, e, 15*time.Minute), "finish")
	w, _ = typeText(w, "I think focus and planning help my goals.")

	msg := w.finish()()
	st, ok := msg.(statusMsg)
	if !ok || st.isError || !strings.Contains(st.text, "Session complete") {
		t.Fatalf("finish: %#v", msg)
	}

	stored, _ := s.Get(context.Background(), w.timer.sessionID())
	if stored.State != session.StateCompleted {
		t.Fatalf("state = %v, want completed", stored.State)
	}
	if stored.Summary == nil || stored.Summary.Source != analysis.SourceHeuristic {
		t.Fatalf("summary not stored: %+v", stored.Summary)
	}
}

func TestWriteAbandon(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s)
	w := startWriting(t, newWriteModel(s, e, 15*time.Minute), "abandon")

	msg := w.abandon()()
	if st, ok := msg.(statusMsg); !ok || st.isError {
		t.Fatalf("abandon: %#v", msg)
	}
	stored, _ := s.Get(context.Background(), w.timer.sessionID())
	if stored.State != session.StateCancelled {
		t.Fatalf("state = %v, want cancelled", stored.State)
	}
}

func TestWriteFinishedEventBlursEditor(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s)
	w := startWriting(t, newWriteModel(s, e, 15*time.Minute), "done")

	done := *w.timer.session
	done.State = session.StateCompleted
	w, cmd := w.update(engineEventMsg{Type: session.SessionStateChanged, SessionID: done.ID, Session: &done})

	if w.timer.running() {
		t.Fatal("mirror should drop the finished session")
	}
	if w.editor.Focused() {
		t.Fatal("editor should blur when the session ends")
	}
	if cmd == nil {
		t.Fatal("expected today's words to reload")
	}
}

func TestWriteEventLoadsRecoveredText(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s)
	w := newWriteModel(s, e, 15*time.Minute)

	live := liveSession("r1", session.StateActive)
	live.Content = "left over"
	w, _ = w.update(engineEventMsg{Type: session.SessionStateChanged, SessionID: "r1", Session: live})

	if w.editor.Value() != "left over" {
		t.Fatalf("editor = %q", w.editor.Value())
	}
}

func TestWriteInactivityNudge(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s)
	w := startWriting(t, newWriteModel(s, e, 15*time.Minute), "nudge")
	w.setSize(100, 40)

	w, _ = w.update(engineEventMsg{Type: session.Inactive, SessionID: w.timer.sessionID(), Idle: 30 * time.Second})
	if !strings.Contains(w.view(), "Keep writing…") {
		t.Fatal("view should nudge after inactivity")
	}

	w, _ = typeText(w, "x")
	if strings.Contains(w.view(), "Keep writing…") {
		t.Fatal("nudge should clear after typing")
	}
}

func TestWriteRecover(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s)

	if msg := newWriteModel(s, e, 15*time.Minute).recover()(); msg != nil {
		t.Fatalf("nothing to recover, got %#v", msg)
	}

	if _, err := e.StartWithTitle(context.Background(), "left open", 20*time.Minute); err != nil {
		t.Fatal(err)
	}
	msg := newWriteModel(s, e, 15*time.Minute).recover()()
	started, ok := msg.(sessionStartedMsg)
	if !ok {
		t.Fatalf("expected sessionStartedMsg, got %#v", msg)
	}
	if started.session.Title != "left open" {
		t.Fatalf("title = %q", started.session.Title)
	}
}

func TestWritePreferredDuration(t *testing.T) {
	s := newTestStore(t)
	w := newWriteModel(s, newTestEngine(t, s), 25*time.Minute)
	ctx := context.Background()

	// Migration default is 900 seconds.
	if got := w.preferredDuration(); got != 15*time.Minute {
		t.Fatalf("preferred = %v, want 15m", got)
	}

	s.SetSetting(ctx, "default_duration", "1200")
	if got := w.preferredDuration(); got != 20*time.Minute {
		t.Fatalf("preferred = %v, want 20m", got)
	}

	s.SetSetting(ctx, "default_duration", "5")
	if got := w.preferredDuration(); got != 25*time.Minute {
		t.Fatalf("invalid setting should fall back to configured default, got %v", got)
	}
}

func TestWriteNewOpensForm(t *testing.T) {
	s := newTestStore(t)
	w := newWriteModel(s, newTestEngine(t, s), 15*time.Minute)

	w, _ = w.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	if !w.formActive || !w.capturing() {
		t.Fatal("n should open the start form")
	}
	if *w.formMinutes != "15" {
		t.Fatalf("form minutes = %q, want 15", *w.formMinutes)
	}

	w, _ = w.update(tea.KeyMsg{Type: tea.KeyEsc})
	if w.formActive {
		t.Fatal("esc should close the form")
	}
}

func TestWriteEscLeavesEditor(t *testing.T) {
	s := newTestStore(t)
	w := startWriting(t, newWriteModel(s, newTestEngine(t, s), 15*time.Minute), "esc")

	w, _ = w.update(tea.KeyMsg{Type: tea.KeyEsc})
	if w.editor.Focused() {
		t.Fatal("esc should blur the editor")
	}
	w, _ = w.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("i")})
	if !w.editor.Focused() {
		t.Fatal("i should focus the editor again")
	}
}

func TestWriteViewWithoutSession(t *testing.T) {
	s := newTestStore(t)
	w := newWriteModel(s, newTestEngine(t, s), 15*time.Minute)
	w.setSize(100, 40)

	v := w.view()
	if !strings.Contains(v, "15:00") || !strings.Contains(v, "Press n") {
		t.Fatalf("idle view missing countdown or hint:\n%s", v)
	}

	w.setSize(10, 10)
	if w.view() != "Terminal too small" {
		t.Fatal("expected too-small message")
	}
}

// ============================================================
// History view
// ============================================================

func seedHistory(t *testing.T, s *store.Store, e *session.Engine) {
	t.Helper()
	ctx := context.Background()

	a, err := e.StartWithTitle(ctx, "Morning pages", 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.UpdateContent(ctx, a.ID, "I think focus and planning help my goals."); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Complete(ctx, a.ID); err != nil {
		t.Fatal(err)
	}

	b, err := e.StartWithTitle(ctx, "Evening notes", 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Cancel(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
}

func loadHistory(t *testing.T, h historyModel) historyModel {
	t.Helper()
	msg := h.refresh()()
	data, ok := msg.(historyDataMsg)
	if !ok {
		t.Fatalf("refresh: got %#v", msg)
	}
	h, _ = h.update(data)
	return h
}

func TestHistoryRefresh(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s)
	seedHistory(t, s, e)

	h := newHistoryModel(s)
	h.setSize(100, 40)
	h = loadHistory(t, h)

	if len(h.sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(h.sessions))
	}
	if h.stats.TotalSessions != 2 || h.stats.CompletedSessions != 1 {
		t.Fatalf("stats = %+v", h.stats)
	}
	if !strings.Contains(h.view(), "Morning pages") {
		t.Fatal("list should show session titles")
	}
}

func TestHistorySearch(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s)
	seedHistory(t, s, e)

	h := newHistoryModel(s)
	h, _ = h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	if !h.searching || !h.capturing() {
		t.Fatal("/ should open search")
	}
	h, _ = h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("MORNING")})
	h, cmd := h.update(tea.KeyMsg{Type: tea.KeyEnter})
	if h.searching || h.query != "MORNING" {
		t.Fatalf("search not applied: searching=%v query=%q", h.searching, h.query)
	}

	data := cmd().(historyDataMsg)
	h, _ = h.update(data)
	if len(h.sessions) != 1 || h.sessions[0].Title != "Morning pages" {
		t.Fatalf("search results = %+v", h.sessions)
	}

	// esc clears the query
	h, cmd = h.update(tea.KeyMsg{Type: tea.KeyEsc})
	if h.query != "" || cmd == nil {
		t.Fatal("esc should clear the query and reload")
	}
}

func TestHistoryEnterShowsSummary(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s)
	seedHistory(t, s, e)
	h := loadHistory(t, newHistoryModel(s))

	_, cmd := h.update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter should open the summary")
	}
	msg, ok := cmd().(showSummaryMsg)
	if !ok {
		t.Fatal("expected showSummaryMsg")
	}
	if msg.session.ID != h.sessions[0].ID {
		t.Fatal("summary should be for the selected session")
	}
}

func TestHistoryCursorBounds(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s)
	seedHistory(t, s, e)
	h := loadHistory(t, newHistoryModel(s))

	h, _ = h.update(tea.KeyMsg{Type: tea.KeyUp})
	if h.cursor != 0 {
		t.Fatal("cursor should not go above 0")
	}
	for range 5 {
		h, _ = h.update(tea.KeyMsg{Type: tea.KeyDown})
	}
	if h.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", h.cursor)
	}
}

func TestHistoryDeleteConfirm(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s)
	seedHistory(t, s, e)
	h := loadHistory(t, newHistoryModel(s))

	h, _ = h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if !h.formActive || !h.capturing() {
		t.Fatal("d should open the delete confirmation")
	}
	if h.deletingID != h.sessions[0].ID {
		t.Fatal("confirmation should target the selected session")
	}

	h, _ = h.update(tea.KeyMsg{Type: tea.KeyEsc})
	if h.formActive {
		t.Fatal("esc should dismiss the confirmation")
	}
	if got, _ := s.Get(context.Background(), h.sessions[0].ID); got == nil {
		t.Fatal("dismissing must not delete")
	}
}

func TestHistoryDeleteLiveRefused(t *testing.T) {
	s := newTestStore(t)
	h := newHistoryModel(s)
	h.sessions = []session.Session{*liveSession("x", session.StateActive)}

	h, cmd := h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if h.formActive {
		t.Fatal("a live session cannot be deleted")
	}
	if st, ok := cmd().(statusMsg); !ok || !st.isError {
		t.Fatal("expected an error status")
	}
}

func TestHistoryDateRange(t *testing.T) {
	h := newHistoryModel(nil)

	from, to := h.dateRange()
	if to.Sub(from) != 7*24*time.Hour {
		t.Fatalf("range = %v, want 7 days", to.Sub(from))
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if !to.Equal(today.AddDate(0, 0, 1)) {
		t.Fatalf("range should end tomorrow, got %v", to)
	}

	h.offset = 1
	from2, to2 := h.dateRange()
	if !to2.Equal(from) || to2.Sub(from2) != 7*24*time.Hour {
		t.Fatal("offset should shift back one week")
	}
}

func TestHistoryRefreshOnFinishedEvent(t *testing.T) {
	h := newHistoryModel(nil)

	_, cmd := h.update(engineEventMsg{Type: session.TimerChanged})
	if cmd != nil {
		t.Fatal("timer ticks should not reload history")
	}
	done := liveSession("x", session.StateCompleted)
	_, cmd = h.update(engineEventMsg{Type: session.SessionStateChanged, SessionID: "x", Session: done})
	if cmd == nil {
		t.Fatal("a finished session should reload history")
	}
}

// ============================================================
// Summary view
// ============================================================

func sampleFinished() session.Session {
	end := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)
	return session.Session{
		ID:             "0190c0de-0000-7000-8000-00000000abcd",
		Title:          "Morning pages",
		Content:        "I think focus and planning help my goals.",
		StartTime:      end.Add(-15 * time.Minute),
		EndTime:        &end,
		Duration:       15 * time.Minute,
		TargetDuration: 15 * time.Minute,
		State:          session.StateCompleted,
		WordCount:      8,
		Summary: &analysis.Result{
			Mood:   analysis.MoodFocused,
			Themes: []string{"planning", "goals", "focus"},
			Source: analysis.SourceHeuristic,
		},
	}
}

// finishWithActivity completes a session that saw one rejected edit.
func finishWithActivity(t *testing.T, s *store.Store, e *session.Engine) session.Session {
	t.Helper()
	ctx := context.Background()
	ws, err := e.StartWithTitle(ctx, "Harbour notes", 10*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.UpdateContent(ctx, ws.ID, "The boats came in before noon."); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := e.ApplyEdit(ctx, ws.ID, "The boats"); ok {
		t.Fatal("shortening edit should be rejected")
	}
	done, err := e.Complete(ctx, ws.ID)
	if err != nil {
		t.Fatal(err)
	}
	return done
}

// runBatch executes cmd and every command of a batch it yields.
func runBatch(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		out = append(out, runBatch(c)...)
	}
	return out
}

func TestSummaryEmptyView(t *testing.T) {
	m := newSummaryModel(nil, nil)
	m.setSize(100, 40)
	if !strings.Contains(m.view(), "Finish a session") {
		t.Fatal("empty summary should explain itself")
	}
}

func TestSummaryShow(t *testing.T) {
	m := newSummaryModel(nil, nil)
	m.setSize(100, 40)
	m.show(sampleFinished())

	if m.session == nil || m.session.Title != "Morning pages" {
		t.Fatal("session not set")
	}
	if !strings.Contains(m.markdown, "## Analysis") || !strings.Contains(m.markdown, "**Mood:** focused") {
		t.Fatalf("markdown missing analysis:\n%s", m.markdown)
	}
	if m.view() == "" {
		t.Fatal("view should not be empty")
	}
}

func TestSummaryWithoutRenderer(t *testing.T) {
	m := newSummaryModel(nil, nil)
	m.setSize(100, 40)
	m.renderer = nil
	m.show(sampleFinished())

	if !strings.Contains(m.viewport.View(), "# Morning pages") {
		t.Fatalf("raw markdown expected without renderer:\n%s", m.viewport.View())
	}
}

func TestSummaryLateAnalysisReplaces(t *testing.T) {
	m := newSummaryModel(nil, nil)
	m.setSize(100, 40)

	bare := sampleFinished()
	bare.Summary = nil
	m.show(bare)
	if strings.Contains(m.markdown, "## Analysis") {
		t.Fatal("no analysis yet")
	}

	full := sampleFinished()
	m, _ = m.update(engineEventMsg{Type: session.AnalysisReady, SessionID: full.ID, Session: &full})
	if !strings.Contains(m.markdown, "## Analysis") {
		t.Fatal("late analysis should replace the summary")
	}

	other := sampleFinished()
	other.ID = "other"
	other.Title = "Other"
	m, _ = m.update(engineEventMsg{Type: session.AnalysisReady, SessionID: other.ID, Session: &other})
	if m.session.Title != "Morning pages" {
		t.Fatal("analysis for another session should not replace the summary")
	}
}

func TestSummaryLoadsActivity(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s)
	done := finishWithActivity(t, s, e)

	m := newSummaryModel(s, e)
	m.setSize(100, 40)
	cmd := m.show(done)
	if cmd == nil {
		t.Fatal("show should load the activity log")
	}
	loaded, ok := cmd().(activityLoadedMsg)
	if !ok || len(loaded.events) == 0 {
		t.Fatalf("expected activity, got %#v", loaded)
	}
	m, _ = m.update(loaded)
	if !strings.Contains(m.markdown, "## Activity") || !strings.Contains(m.markdown, "**Rejected edits:** 1") {
		t.Fatalf("markdown missing activity:\n%s", m.markdown)
	}

	// A timeline for a session no longer on screen is dropped.
	other := sampleFinished()
	m.show(other)
	m, _ = m.update(loaded)
	if strings.Contains(m.markdown, "## Activity") {
		t.Fatal("activity of another session should not be shown")
	}
}

func TestSummaryReanalyze(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s)
	done := finishWithActivity(t, s, e)

	done.Summary = nil
	if err := s.Update(context.Background(), &done); err != nil {
		t.Fatal(err)
	}

	m := newSummaryModel(s, e)
	m.setSize(100, 40)
	m.show(done)
	_, cmd := m.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})

	var updated bool
	for _, msg := range runBatch(cmd) {
		if st, ok := msg.(statusMsg); ok && st.text == "Analysis updated" {
			updated = true
		}
	}
	if !updated {
		t.Fatal("re-analysis should report success")
	}
	got, _ := s.Get(context.Background(), done.ID)
	if got == nil || got.Summary == nil {
		t.Fatal("re-analysis should persist a summary")
	}
}

func TestSummaryReanalyzeLiveSession(t *testing.T) {
	m := newSummaryModel(newTestStore(t), nil)
	m.setSize(100, 40)
	m.show(*liveSession("a", session.StateActive))

	_, cmd := m.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd != nil {
		t.Fatal("no engine, no re-analysis")
	}

	s := newTestStore(t)
	m = newSummaryModel(s, newTestEngine(t, s))
	m.setSize(100, 40)
	m.show(*liveSession("a", session.StateActive))
	_, cmd = m.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	msg, ok := cmd().(statusMsg)
	if !ok || !msg.isError || !strings.Contains(msg.text, "Finish the session") {
		t.Fatalf("expected an error status, got %#v", msg)
	}
}

// ============================================================
// Settings helpers
// ============================================================

func TestSecsToMin(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"900", "15"},
		{"60", "1"},
		{"0", "0"},
		{"90", "1"},
		{"abc", "abc"},
	}
	for _, tt := range tests {
		got := secsToMin(tt.in)
		if got != tt.want {
			t.Errorf("secsToMin(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMinToSecs(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"15", "900"},
		{"1", "60"},
		{"0", "0"},
		{"abc", "abc"},
	}
	for _, tt := range tests {
		got := minToSecs(tt.in)
		if got != tt.want {
			t.Errorf("minToSecs(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSettingValue(t *testing.T) {
	tests := []struct {
		key, val, want string
	}{
		{"default_duration", "900", "15 min"},
		{"inactivity_threshold", "30", "30 sec"},
		{"unknown_key", "hello", "hello"},
		{"default_duration", "abc", "abc"},
	}
	for _, tt := range tests {
		got := formatSettingValue(tt.key, tt.val)
		if got != tt.want {
			t.Errorf("formatSettingValue(%q, %q) = %q, want %q", tt.key, tt.val, got, tt.want)
		}
	}
}

func TestSettingsValidation(t *testing.T) {
	if validateMinutes("15") != nil || validateMinutes("60") != nil {
		t.Fatal("valid minutes rejected")
	}
	for _, bad := range []string{"0", "61", "abc", ""} {
		if validateMinutes(bad) == nil {
			t.Errorf("validateMinutes(%q) should fail", bad)
		}
	}
	if validatePositive("30") != nil {
		t.Fatal("30 should be valid")
	}
	for _, bad := range []string{"0", "-1", "x"} {
		if validatePositive(bad) == nil {
			t.Errorf("validatePositive(%q) should fail", bad)
		}
	}
}

func TestSettingsSave(t *testing.T) {
	s := newTestStore(t)
	m := newSettingsModel(s)
	*m.defaultDuration = "25"
	*m.inactivity = "45"

	if err := m.saveSettings(); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.GetSetting(context.Background(), "default_duration"); v != "1500" {
		t.Fatalf("default_duration = %q, want 1500", v)
	}
	if v, _ := s.GetSetting(context.Background(), "inactivity_threshold"); v != "45" {
		t.Fatalf("inactivity_threshold = %q, want 45", v)
	}

	msg := m.refresh()().(settingsDataMsg)
	m, _ = m.update(msg)
	m.setSize(100, 40)
	view := m.view()
	if !strings.Contains(view, "25 min") {
		t.Fatal("settings view should show the new value")
	}
	if !strings.Contains(view, "Session length") || !strings.Contains(view, "1 to 60 minutes") {
		t.Fatal("settings view should label rows and show the allowed range")
	}
}

// ============================================================
// Helpers
// ============================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{time.Second, "00:00:01"},
		{time.Minute, "00:01:00"},
		{time.Hour, "01:00:00"},
		{time.Hour + time.Minute + time.Second, "01:01:01"},
	}
	for _, tt := range tests {
		got := formatDuration(tt.d)
		if got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{-time.Second, "00:00"},
		{15 * time.Minute, "15:00"},
		{14*time.Minute + 59*time.Second + 500*time.Millisecond, "15:00"},
		{90 * time.Second, "01:30"},
		{time.Hour, "60:00"},
	}
	for _, tt := range tests {
		got := formatCountdown(tt.d)
		if got != tt.want {
			t.Errorf("formatCountdown(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if truncate("short", 10) != "short" {
		t.Fatal("short strings are unchanged")
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("ééééé", 3); got != "éé…" {
		t.Fatalf("truncate should count runes, got %q", got)
	}
	if truncate("abc", 0) != "abc" {
		t.Fatal("non-positive width leaves the string")
	}
	if shortID("0190c0de-0000-7000-8000-00000000abcd") != "0000abcd" || shortID("abc") != "abc" {
		t.Fatal("shortID")
	}
}

func TestViewNames(t *testing.T) {
	if len(viewNames) != 4 {
		t.Fatalf("expected 4 view names, got %d", len(viewNames))
	}
	expected := []string{"Write", "History", "Summary", "Settings"}
	for i, name := range expected {
		if viewNames[i] != name {
			t.Fatalf("viewNames[%d] = %q, want %q", i, viewNames[i], name)
		}
	}
}

// ============================================================
// App
// ============================================================

func newTestApp(t *testing.T) App {
	t.Helper()
	s := newTestStore(t)
	app := NewApp(s, newTestEngine(t, s), 15*time.Minute)
	m, _ := app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m.(App)
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t)
	if app.activeView != viewWrite {
		t.Fatal("default view should be write")
	}
	if app.sub == nil {
		t.Fatal("app should subscribe to engine events")
	}
	if app.isFormActive() {
		t.Fatal("no form should be active initially")
	}
	if app.Init() == nil {
		t.Fatal("Init should return commands")
	}
}

func TestAppTabKeys(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		key  string
		want viewState
	}{
		{"2", viewHistory},
		{"3", viewSummary},
		{"4", viewSettings},
		{"1", viewWrite},
	}
	for _, tt := range tests {
		m, _ := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(tt.key)})
		app = m.(App)
		if app.activeView != tt.want {
			t.Fatalf("after %q view = %d, want %d", tt.key, app.activeView, tt.want)
		}
	}

	m, _ := app.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.(App).activeView != viewHistory {
		t.Fatal("tab should cycle to the next view")
	}
}

func TestAppCtrlCQuits(t *testing.T) {
	app := newTestApp(t)
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("ctrl+c should quit")
	}
}

func TestAppRenderHeaderContainsAllTabs(t *testing.T) {
	app := newTestApp(t)
	header := app.renderHeader()
	for _, name := range viewNames {
		if !strings.Contains(header, name) {
			t.Fatalf("header missing tab %q", name)
		}
	}
	if !strings.Contains(header, "writingflow") {
		t.Fatal("header should contain the app name")
	}
}

func TestAppFooterShowsCountdown(t *testing.T) {
	app := newTestApp(t)
	if strings.Contains(app.renderFooter(), "●") {
		t.Fatal("no countdown without a session")
	}

	msg := app.write.start("footer", 20*time.Minute)()
	m, _ := app.Update(msg)
	app = m.(App)
	if !strings.Contains(app.renderFooter(), "20:00") {
		t.Fatalf("footer should show the countdown:\n%s", app.renderFooter())
	}
}

func TestAppLoadingState(t *testing.T) {
	s := newTestStore(t)
	app := NewApp(s, newTestEngine(t, s), 15*time.Minute)
	if app.View() != "Loading..." {
		t.Fatal("expected loading state before the first resize")
	}
}

func TestAppStatusMessage(t *testing.T) {
	app := newTestApp(t)
	m, _ := app.Update(statusMsg{text: "test status"})
	app = m.(App)
	if app.status != "test status" {
		t.Fatalf("status = %q", app.status)
	}
	if !strings.Contains(app.View(), "test status") {
		t.Fatal("status should be rendered")
	}
}

func TestAppEventKeepsListening(t *testing.T) {
	app := newTestApp(t)
	_, cmd := app.Update(engineEventMsg{Type: session.TimerChanged})
	if cmd == nil {
		t.Fatal("handling an event must wait for the next one")
	}
}

func TestAppAnalysisReadyShowsSummary(t *testing.T) {
	app := newTestApp(t)
	done := sampleFinished()

	m, _ := app.Update(engineEventMsg{Type: session.AnalysisReady, SessionID: done.ID, Session: &done, Analysis: done.Summary})
	app = m.(App)
	if app.activeView != viewSummary {
		t.Fatal("analysis should switch to the summary view")
	}
	if app.summary.session == nil || app.summary.session.ID != done.ID {
		t.Fatal("summary should show the analysed session")
	}
}

func TestAppSessionStartedShowsWrite(t *testing.T) {
	app := newTestApp(t)
	m, _ := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")})
	app = m.(App)

	msg := app.write.start("switch", 0)()
	m, _ = app.Update(msg)
	app = m.(App)
	if app.activeView != viewWrite {
		t.Fatal("starting a session should show the write view")
	}
	if !app.isFormActive() {
		t.Fatal("editor should capture keys while writing")
	}
}

func TestAppExportPicker(t *testing.T) {
	app := newTestApp(t)
	m, _ := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	app = m.(App)
	if !app.exportPicking {
		t.Fatal("e should open the export picker")
	}
	for range 5 {
		m, _ = app.Update(tea.KeyMsg{Type: tea.KeyDown})
		app = m.(App)
	}
	if app.exportCursor != len(exportFormats)-1 {
		t.Fatalf("cursor = %d", app.exportCursor)
	}

	// Markdown needs a summary on screen.
	m, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = m.(App)
	if app.exportPicking {
		t.Fatal("enter should close the picker")
	}
	if st, ok := cmd().(statusMsg); !ok || !st.isError {
		t.Fatal("markdown export without a summary should fail")
	}
}

func TestKeyMapHelp(t *testing.T) {
	if len(keys.ShortHelp()) == 0 {
		t.Fatal("ShortHelp should return bindings")
	}
	if len(keys.FullHelp()) != 4 {
		t.Fatalf("FullHelp should return 4 groups, got %d", len(keys.FullHelp()))
	}
}

func TestMoodStyle(t *testing.T) {
	for _, m := range analysis.Moods {
		if moodStyle(string(m)).Render(string(m)) == "" {
			t.Fatalf("mood %q rendered empty", m)
		}
	}
	if moodStyle("unknown").Render("x") == "" {
		t.Fatal("unknown mood should still render")
	}
}

func TestCountdownStyle(t *testing.T) {
	tests := []struct {
		name      string
		paused    bool
		remaining time.Duration
		want      lipgloss.TerminalColor
	}{
		{"writing", false, 10 * time.Minute, colorSuccess},
		{"last minute", false, 45 * time.Second, colorAccent},
		{"paused", true, 45 * time.Second, colorWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := countdownStyle(tt.paused, tt.remaining).GetForeground()
			if got != tt.want {
				t.Errorf("foreground = %v, want %v", got, tt.want)
			}
		})
	}
}

package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/writingflow/internal/session"
	"github.com/sadopc/writingflow/internal/store"
)

var durationChoices = []int{5, 10, 15, 20, 25, 30, 45, 60}

type writeModel struct {
	store  *store.Store
	engine *session.Engine
	timer  timerModel
	editor textarea.Model
	width  int
	height int

	// editorSession is the session whose text the editor holds.
	editorSession string

	defaultDuration time.Duration
	todayWords      int

	formActive  bool
	form        *huh.Form
	formTitle   *string
	formMinutes *string
}

func newWriteModel(s *store.Store, e *session.Engine, defaultDuration time.Duration) writeModel {
	ed := textarea.New()
	ed.Placeholder = "Start typing. Deleting is off while the clock runs."
	ed.ShowLineNumbers = false
	ed.CharLimit = 0
	ed.MaxHeight = 0
	ed.Blur()

	title, minutes := "", ""
	return writeModel{
		store:           s,
		engine:          e,
		editor:          ed,
		defaultDuration: defaultDuration,
		formTitle:       &title,
		formMinutes:     &minutes,
	}
}

func (w writeModel) Init() tea.Cmd {
	return tea.Batch(w.loadData(), w.recover())
}

func (w *writeModel) setSize(width, height int) {
	w.width = width
	w.height = height
	w.editor.SetWidth(max(20, width-8))
	w.editor.SetHeight(max(3, height-14))
}

// capturing reports whether keys belong to the editor or the start form.
func (w writeModel) capturing() bool {
	return w.formActive || w.editor.Focused()
}

type writeDataMsg struct {
	todayWords int
}

func (w writeModel) loadData() tea.Cmd {
	return func() tea.Msg {
		words, _ := w.store.GetTodayWords(context.Background(), time.Now())
		return writeDataMsg{todayWords: words}
	}
}

// recover re-attaches to a session left live by a previous run.
func (w writeModel) recover() tea.Cmd {
	return func() tea.Msg {
		s, err := w.engine.Recover(context.Background())
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Recover: %v", err), isError: true}
		}
		if s == nil || !s.State.Live() {
			return nil
		}
		return sessionStartedMsg{session: *s}
	}
}

func (w writeModel) update(msg tea.Msg) (writeModel, tea.Cmd) {
	if w.formActive && w.form != nil {
		return w.updateForm(msg)
	}

	switch msg := msg.(type) {
	case writeDataMsg:
		w.todayWords = msg.todayWords
		return w, nil

	case engineEventMsg:
		wasLive := w.timer.running()
		w.timer.apply(session.Event(msg))
		if wasLive && !w.timer.running() {
			w.editor.Blur()
			return w, w.loadData()
		}
		if w.timer.running() {
			w.adopt(*w.timer.session)
		}
		return w, nil

	case sessionStartedMsg:
		w.timer.track(msg.session)
		w.adopt(msg.session)
		cmd := w.editor.Focus()
		return w, cmd

	case tea.KeyMsg:
		return w.updateKeys(msg)
	}
	return w, nil
}

// adopt loads the text of s into the editor unless it already holds it.
func (w *writeModel) adopt(s session.Session) {
	if w.editorSession == s.ID {
		return
	}
	w.editorSession = s.ID
	w.editor.Reset()
	if s.Content != "" {
		w.editor.SetValue(s.Content)
	}
}

func (w writeModel) updateKeys(msg tea.KeyMsg) (writeModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Pause):
		return w, w.togglePause()
	case key.Matches(msg, keys.Finish):
		return w, w.finish()
	case key.Matches(msg, keys.Cancel):
		return w, w.abandon()
	}

	if w.editor.Focused() {
		if key.Matches(msg, keys.Back) {
			w.editor.Blur()
			return w, nil
		}
		return w.edit(msg)
	}

	switch {
	case key.Matches(msg, keys.New):
		if w.timer.running() {
			return w, statusCmd("A session is already running", true)
		}
		return w.showForm()
	case key.Matches(msg, keys.Focus):
		if w.timer.running() {
			cmd := w.editor.Focus()
			return w, cmd
		}
	}
	return w, nil
}

// edit feeds a keystroke to the editor and offers the result to the
// engine. A refused edit is rolled back.
func (w writeModel) edit(msg tea.KeyMsg) (writeModel, tea.Cmd) {
	prev := w.editor.Value()
	var cmd tea.Cmd
	w.editor, cmd = w.editor.Update(msg)
	next := w.editor.Value()
	if next == prev || !w.timer.running() {
		return w, cmd
	}

	s, ok, err := w.engine.ApplyEdit(context.Background(), w.timer.sessionID(), next)
	switch {
	case err != nil:
		w.editor.SetValue(prev)
		return w, statusCmd(fmt.Sprintf("Error: %v", err), true)
	case !ok:
		w.editor.SetValue(prev)
		return w, tea.Batch(cmd, statusCmd("Deleting is off while the clock runs. Keep going.", true))
	}
	w.timer.session = &s
	w.timer.idle = false
	w.timer.rejected = 0
	return w, cmd
}

func (w writeModel) togglePause() tea.Cmd {
	if !w.timer.running() {
		return nil
	}
	id, paused := w.timer.sessionID(), w.timer.paused()
	return func() tea.Msg {
		var err error
		if paused {
			_, err = w.engine.Resume(context.Background(), id)
		} else {
			_, err = w.engine.Pause(context.Background(), id)
		}
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
		}
		if paused {
			return statusMsg{text: "Resumed"}
		}
		return statusMsg{text: "Paused. Edits are unrestricted until you resume."}
	}
}

// finish completes the session. Analysis can be slow, so it runs off the
// update loop and its outcome arrives as an engine event.
func (w writeModel) finish() tea.Cmd {
	if !w.timer.running() {
		return nil
	}
	id := w.timer.sessionID()
	return func() tea.Msg {
		s, err := w.engine.Complete(context.Background(), id)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
		}
		return statusMsg{text: fmt.Sprintf("Session complete: %d words", s.WordCount)}
	}
}

func (w writeModel) abandon() tea.Cmd {
	if !w.timer.running() {
		return nil
	}
	id := w.timer.sessionID()
	return func() tea.Msg {
		if _, err := w.engine.Cancel(context.Background(), id); err != nil {
			return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
		}
		return statusMsg{text: "Session abandoned"}
	}
}

func (w writeModel) start(title string, target time.Duration) tea.Cmd {
	return func() tea.Msg {
		s, err := w.engine.StartWithTitle(context.Background(), title, target)
		if errors.Is(err, session.ErrSessionAlreadyActive) {
			return statusMsg{text: "A session is already running", isError: true}
		}
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
		}
		return sessionStartedMsg{session: s}
	}
}

func (w writeModel) showForm() (writeModel, tea.Cmd) {
	pref := int(w.preferredDuration() / time.Minute)
	*w.formTitle = ""
	*w.formMinutes = strconv.Itoa(pref)

	choices := durationChoices
	if !slices.Contains(choices, pref) {
		choices = append([]int{pref}, choices...)
	}
	opts := make([]huh.Option[string], 0, len(choices))
	for _, m := range choices {
		opts = append(opts, huh.NewOption(fmt.Sprintf("%d minutes", m), strconv.Itoa(m)))
	}

	w.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("leave empty for a dated title").
				Value(w.formTitle).
				Validate(func(s string) error {
					if utf8.RuneCountInString(s) > session.MaxTitleLength {
						return fmt.Errorf("at most %d characters", session.MaxTitleLength)
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Duration").
				Options(opts...).
				Value(w.formMinutes),
		).Title("New session"),
	).WithShowHelp(true).WithShowErrors(true)

	w.formActive = true
	return w, w.form.Init()
}

func (w writeModel) updateForm(msg tea.Msg) (writeModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			w.formActive = false
			w.form = nil
			return w, nil
		}
	}

	form, cmd := w.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		w.form = f
	}

	switch w.form.State {
	case huh.StateCompleted:
		w.formActive = false
		w.form = nil
		minutes, _ := strconv.Atoi(*w.formMinutes)
		return w, w.start(*w.formTitle, time.Duration(minutes)*time.Minute)
	case huh.StateAborted:
		w.formActive = false
		w.form = nil
		return w, nil
	}
	return w, cmd
}

// preferredDuration is the stored default, falling back to the configured
// one.
func (w writeModel) preferredDuration() time.Duration {
	d, err := w.store.GetDurationSetting(context.Background(), "default_duration")
	if err != nil || session.ValidateDuration(d) != nil {
		d = w.defaultDuration
	}
	return session.NormalizeDuration(d)
}

func (w writeModel) view() string {
	if w.width < 20 {
		return "Terminal too small"
	}

	contentWidth := w.width - 4

	if w.formActive && w.form != nil {
		return activePanelStyle.Width(contentWidth).Render(w.form.View())
	}

	timerPanel := w.renderTimerPanel(contentWidth)
	if !w.timer.running() {
		return lipgloss.JoinVertical(lipgloss.Left, timerPanel, w.renderTodayPanel(contentWidth))
	}
	return lipgloss.JoinVertical(lipgloss.Left, timerPanel, w.renderEditor(contentWidth))
}

func (w writeModel) renderTimerPanel(width int) string {
	if !w.timer.running() {
		content := lipgloss.JoinVertical(lipgloss.Center,
			timerStyle.Width(width-6).Render(formatCountdown(w.preferredDuration())),
			mutedStyle.Render("■  NO SESSION"),
			mutedStyle.Render("Press n to start writing"),
		)
		return panelStyle.Width(width).Render(content)
	}

	remaining := w.timer.remaining()
	clock := formatCountdown(remaining)

	timeDisplay := countdownStyle(w.timer.paused(), remaining).Width(width - 6).Render(clock)
	indicator := successStyle.Render("●  WRITING")
	if w.timer.paused() {
		indicator = warningStyle.Render("⏸  PAUSED")
	}

	s := w.timer.session
	info := highlightStyle.Render(s.Title) + mutedStyle.Render(fmt.Sprintf(
		"  %d words · %d chars · %.0f chars/min", s.WordCount, s.CharacterCount, s.AverageTypingSpeed))

	content := lipgloss.JoinVertical(lipgloss.Center, timeDisplay, indicator, info)
	return activePanelStyle.Width(width).Render(content)
}

func (w writeModel) renderEditor(width int) string {
	var hint string
	switch {
	case w.timer.idle:
		hint = nudgeStyle.Render("Keep writing…")
	case w.timer.rejected > 0:
		hint = errorStyle.Render("Deleting is off while the clock runs.")
	case !w.editor.Focused():
		hint = mutedStyle.Render("i: write  ctrl+p: pause  ctrl+s: finish  ctrl+x: abandon")
	default:
		hint = mutedStyle.Render("esc: leave editor  ctrl+p: pause  ctrl+s: finish")
	}
	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, w.editor.View(), "", hint))
}

func (w writeModel) renderTodayPanel(width int) string {
	title := titleStyle.Render("Today")
	words := highlightStyle.Render(fmt.Sprintf("%d words", w.todayWords))
	return panelStyle.Width(width).Render(fmt.Sprintf("%s  %s", title, words))
}

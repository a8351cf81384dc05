package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/sadopc/writingflow/internal/analysis"
	"github.com/sadopc/writingflow/internal/export"
	"github.com/sadopc/writingflow/internal/session"
	"github.com/sadopc/writingflow/internal/store"
)

// summaryModel shows one finished session, analysis and activity timeline
// included, as rendered Markdown in a scrollable viewport.
type summaryModel struct {
	store  *store.Store
	engine *session.Engine
	width  int
	height int

	session  *session.Session
	activity []session.ActivityEvent
	markdown string
	viewport viewport.Model
	renderer *glamour.TermRenderer
}

type activityLoadedMsg struct {
	sessionID string
	events    []session.ActivityEvent
}

func newSummaryModel(s *store.Store, e *session.Engine) summaryModel {
	return summaryModel{
		store:    s,
		engine:   e,
		viewport: viewport.New(0, 0),
		renderer: newRenderer(80),
	}
}

func newRenderer(wrap int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return nil
	}
	return r
}

func (m *summaryModel) setSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = max(10, w-8)
	m.viewport.Height = max(3, h-6)
	if r := newRenderer(m.viewport.Width); r != nil {
		m.renderer = r
	}
	m.render()
}

// show puts s on screen and returns a command loading its activity log.
// The timeline already loaded for the same session is kept meanwhile.
func (m *summaryModel) show(s session.Session) tea.Cmd {
	if m.session == nil || m.session.ID != s.ID {
		m.activity = nil
	}
	m.session = &s
	m.rebuild()
	m.viewport.GotoTop()
	return m.loadActivity(s.ID)
}

func (m summaryModel) loadActivity(id string) tea.Cmd {
	if m.store == nil {
		return nil
	}
	st := m.store
	return func() tea.Msg {
		events, err := st.ListActivity(context.Background(), id)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Activity: %v", err), isError: true}
		}
		return activityLoadedMsg{sessionID: id, events: events}
	}
}

// reanalyze asks the engine for a fresh analysis of the session on screen.
// The result arrives as an AnalysisReady event.
func (m summaryModel) reanalyze() tea.Cmd {
	if m.session == nil || m.engine == nil {
		return nil
	}
	if !m.session.State.Terminal() {
		return statusCmd("Finish the session before analyzing it again", true)
	}
	e, id := m.engine, m.session.ID
	return tea.Batch(
		statusCmd("Analyzing…", false),
		func() tea.Msg {
			_, err := e.Analyze(context.Background(), id)
			switch {
			case errors.Is(err, analysis.ErrTextTooShort):
				return statusMsg{text: "Nothing to analyze", isError: true}
			case err != nil:
				// AnalysisFailed carries the error to the status bar.
				return nil
			}
			return statusMsg{text: "Analysis updated"}
		},
	)
}

func (m *summaryModel) rebuild() {
	if m.session == nil {
		return
	}
	m.markdown = export.ToMarkdown(*m.session, m.activity...)
	m.render()
}

func (m *summaryModel) render() {
	if m.session == nil {
		return
	}
	content := m.markdown
	if m.renderer != nil {
		if out, err := m.renderer.Render(m.markdown); err == nil {
			content = out
		}
	}
	m.viewport.SetContent(content)
}

func (m summaryModel) update(msg tea.Msg) (summaryModel, tea.Cmd) {
	switch msg := msg.(type) {
	case engineEventMsg:
		// A late analysis for the session on screen replaces it.
		if msg.Type == session.AnalysisReady && msg.Session != nil &&
			m.session != nil && m.session.ID == msg.SessionID {
			return m, m.show(*msg.Session)
		}
		return m, nil

	case activityLoadedMsg:
		if m.session != nil && m.session.ID == msg.sessionID {
			m.activity = msg.events
			m.rebuild()
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Reanalyze) {
			return m, m.reanalyze()
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m summaryModel) view() string {
	w := m.width - 4
	if m.session == nil {
		return panelStyle.Width(w).Render(
			titleStyle.Render("Summary") + "\n\n" +
				mutedStyle.Render("Finish a session, or pick one in History, to see its analysis."),
		)
	}
	return panelStyle.Width(w).Render(m.viewport.View() + "\n" + mutedStyle.Render("  ↑/↓: scroll  r: re-analyze  e: export"))
}

package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/writingflow/internal/session"
	"github.com/sadopc/writingflow/internal/store"
)

const historyLimit = 50

type historyModel struct {
	store  *store.Store
	width  int
	height int

	sessions  []session.Session
	cursor    int
	summaries []store.DailySummary
	stats     store.Stats
	offset    int // 7-day blocks back from today (0 = current)

	chart barchart.Model

	searching bool
	search    textinput.Model
	query     string

	formActive    bool
	form          *huh.Form
	confirmDelete *bool
	deletingID    string
}

func newHistoryModel(s *store.Store) historyModel {
	ti := textinput.New()
	ti.Placeholder = "search titles and text"
	ti.CharLimit = 100

	confirm := false
	return historyModel{
		store:         s,
		chart:         barchart.New(60, 10),
		search:        ti,
		confirmDelete: &confirm,
	}
}

func (h *historyModel) setSize(w, ht int) {
	h.width = w
	h.height = ht
	h.search.Width = max(10, w-16)
}

func (h historyModel) capturing() bool {
	return h.formActive || h.searching
}

type historyDataMsg struct {
	sessions  []session.Session
	summaries []store.DailySummary
	stats     store.Stats
	err       error
}

func (h historyModel) refresh() tea.Cmd {
	query := h.query
	from, to := h.dateRange()
	return func() tea.Msg {
		ctx := context.Background()
		var msg historyDataMsg

		if query != "" {
			msg.sessions, msg.err = h.store.Search(ctx, query)
		} else {
			msg.sessions, msg.err = h.store.List(ctx, store.SessionFilter{Limit: historyLimit})
		}
		if msg.err != nil {
			return msg
		}
		msg.summaries, _ = h.store.GetDailySummary(ctx, from, to)
		msg.stats, _ = h.store.GetStats(ctx, time.Now())
		return msg
	}
}

// dateRange covers seven UTC days ending today, shifted back by offset
// weeks.
func (h historyModel) dateRange() (time.Time, time.Time) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := today.AddDate(0, 0, 1-7*h.offset)
	return end.AddDate(0, 0, -7), end
}

func (h historyModel) selected() (session.Session, bool) {
	if h.cursor < 0 || h.cursor >= len(h.sessions) {
		return session.Session{}, false
	}
	return h.sessions[h.cursor], true
}

func (h historyModel) update(msg tea.Msg) (historyModel, tea.Cmd) {
	if h.formActive && h.form != nil {
		return h.updateForm(msg)
	}

	switch msg := msg.(type) {
	case historyDataMsg:
		if msg.err != nil {
			return h, statusCmd(fmt.Sprintf("History: %v", msg.err), true)
		}
		h.sessions = msg.sessions
		h.summaries = msg.summaries
		h.stats = msg.stats
		if h.cursor >= len(h.sessions) {
			h.cursor = max(0, len(h.sessions)-1)
		}
		h.buildChart()
		return h, nil

	case engineEventMsg:
		// Finished sessions change the list and the chart.
		if msg.Type == session.SessionStateChanged && msg.Session != nil && msg.Session.State.Terminal() {
			return h, h.refresh()
		}
		if msg.Type == session.AnalysisReady {
			return h, h.refresh()
		}
		return h, nil

	case tea.KeyMsg:
		if h.searching {
			return h.updateSearch(msg)
		}
		return h.updateList(msg)
	}
	return h, nil
}

func (h historyModel) updateList(msg tea.KeyMsg) (historyModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if h.cursor > 0 {
			h.cursor--
		}
	case key.Matches(msg, keys.Down):
		if h.cursor < len(h.sessions)-1 {
			h.cursor++
		}
	case key.Matches(msg, keys.Left):
		h.offset++
		return h, h.refresh()
	case key.Matches(msg, keys.Right):
		if h.offset > 0 {
			h.offset--
		}
		return h, h.refresh()
	case key.Matches(msg, keys.Search):
		h.searching = true
		h.search.SetValue(h.query)
		cmd := h.search.Focus()
		return h, cmd
	case key.Matches(msg, keys.Back):
		if h.query != "" {
			h.query = ""
			h.cursor = 0
			return h, h.refresh()
		}
	case key.Matches(msg, keys.Enter):
		if s, ok := h.selected(); ok {
			return h, func() tea.Msg { return showSummaryMsg{session: s} }
		}
	case key.Matches(msg, keys.Delete):
		if s, ok := h.selected(); ok {
			return h.showDeleteForm(s)
		}
	}
	return h, nil
}

func (h historyModel) updateSearch(msg tea.KeyMsg) (historyModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Enter):
		h.searching = false
		h.search.Blur()
		h.query = strings.TrimSpace(h.search.Value())
		h.cursor = 0
		return h, h.refresh()
	case key.Matches(msg, keys.Back):
		h.searching = false
		h.search.Blur()
		return h, nil
	}
	var cmd tea.Cmd
	h.search, cmd = h.search.Update(msg)
	return h, cmd
}

func (h historyModel) showDeleteForm(s session.Session) (historyModel, tea.Cmd) {
	if s.State.Live() {
		return h, statusCmd("Finish or abandon the running session first", true)
	}
	*h.confirmDelete = false
	h.deletingID = s.ID
	h.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %q?", truncate(s.Title, 40))).
				Description("The text, its analysis and its activity log are removed.").
				Affirmative("Delete").
				Negative("Keep").
				Value(h.confirmDelete),
		),
	).WithShowHelp(true)
	h.formActive = true
	return h, h.form.Init()
}

func (h historyModel) updateForm(msg tea.Msg) (historyModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			h.formActive = false
			h.form = nil
			return h, nil
		}
	}

	form, cmd := h.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		h.form = f
	}

	switch h.form.State {
	case huh.StateCompleted:
		h.formActive = false
		h.form = nil
		if !*h.confirmDelete {
			return h, nil
		}
		return h, h.deleteSession(h.deletingID)
	case huh.StateAborted:
		h.formActive = false
		h.form = nil
		return h, nil
	}
	return h, cmd
}

func (h historyModel) deleteSession(id string) tea.Cmd {
	return tea.Sequence(
		func() tea.Msg {
			if err := h.store.Delete(context.Background(), id); err != nil {
				return statusMsg{text: fmt.Sprintf("Delete: %v", err), isError: true}
			}
			return statusMsg{text: "Session deleted"}
		},
		h.refresh(),
	)
}

func (h *historyModel) buildChart() {
	chartWidth := h.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 8
	if h.height > 36 {
		chartHeight = 12
	}

	h.chart = barchart.New(chartWidth, chartHeight)

	words := make(map[string]int, len(h.summaries))
	for _, s := range h.summaries {
		words[s.Date] = s.Words
	}

	from, to := h.dateRange()
	var bars []barchart.BarData
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		n := words[d.Format("2006-01-02")]
		style := barStyle
		if n == 0 {
			style = emptyBarStyle
		}
		bars = append(bars, barchart.BarData{
			Label:  d.Format("Mon 02"),
			Values: []barchart.BarValue{{Name: "words", Value: float64(n), Style: style}},
		})
	}

	h.chart.PushAll(bars)
	h.chart.Draw()
}

func (h historyModel) view() string {
	w := h.width - 4

	if h.formActive && h.form != nil {
		return activePanelStyle.Width(w).Render(h.form.View())
	}

	from, to := h.dateRange()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s – %s", from.Format("Jan 02"), to.AddDate(0, 0, -1).Format("Jan 02, 2006")))
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Words per day"), "  ", dateLabel,
	)

	var search string
	switch {
	case h.searching:
		search = h.search.View()
	case h.query != "":
		search = highlightStyle.Render(fmt.Sprintf("Results for %q", h.query)) + mutedStyle.Render("  esc: clear")
	}

	nav := mutedStyle.Render("  ↑/↓: select  enter: summary  /: search  d: delete  ←/→: week")

	parts := []string{header, "", h.chart.View(), "", h.renderStats(), ""}
	if search != "" {
		parts = append(parts, search, "")
	}
	parts = append(parts, h.renderList(w), "", nav)

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (h historyModel) renderStats() string {
	st := h.stats
	return fmt.Sprintf("  %s sessions  %s words  %s written  %s streak  %s completed",
		highlightStyle.Render(fmt.Sprintf("%d", st.TotalSessions)),
		highlightStyle.Render(fmt.Sprintf("%d", st.TotalWords)),
		highlightStyle.Render(formatDuration(st.ActiveTime)),
		highlightStyle.Render(fmt.Sprintf("%dd", st.CurrentStreak)),
		highlightStyle.Render(fmt.Sprintf("%.0f%%", st.CompletionRate*100)),
	)
}

func (h historyModel) renderList(w int) string {
	if len(h.sessions) == 0 {
		if h.query != "" {
			return mutedStyle.Render("  No sessions match")
		}
		return mutedStyle.Render("  No sessions yet")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-16s %-32s %7s %9s  %s", "Started", "Title", "Words", "Duration", "Mood")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 80))))

	// Keep the cursor visible when the list is taller than the panel.
	visible := max(3, h.height-24)
	start := 0
	if h.cursor >= visible {
		start = h.cursor - visible + 1
	}
	end := min(len(h.sessions), start+visible)

	for i := start; i < end; i++ {
		s := h.sessions[i]
		cursor := "  "
		style := normalItemStyle
		if i == h.cursor {
			cursor = "> "
			style = selectedItemStyle
		}

		mood := mutedStyle.Render(s.State.String())
		if s.Summary != nil {
			mood = moodStyle(string(s.Summary.Mood)).Render(string(s.Summary.Mood))
		}
		line := fmt.Sprintf("%s%-16s %-32s %7d %9s  ",
			cursor,
			s.StartTime.Local().Format("Jan 02 15:04"),
			truncate(s.Title, 32),
			s.WordCount,
			formatDuration(s.Duration),
		)
		rows = append(rows, style.Render(line)+mood)
	}
	return strings.Join(rows, "\n")
}

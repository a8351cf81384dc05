package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/writingflow/internal/events"
	"github.com/sadopc/writingflow/internal/export"
	"github.com/sadopc/writingflow/internal/session"
	"github.com/sadopc/writingflow/internal/store"
)

var exportFormats = []string{"CSV (all sessions)", "JSON (all sessions)", "Markdown (summary on screen)"}

// App is the root Bubble Tea model.
type App struct {
	store  *store.Store
	engine *session.Engine
	sub    *events.Subscription[session.Event]
	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	write    writeModel
	history  historyModel
	summary  summaryModel
	settings settingsModel

	help   help.Model
	status string
	isErr  bool
}

// NewApp builds the TUI around an engine. defaultDuration is used for new
// sessions when no default is stored in settings.
func NewApp(s *store.Store, e *session.Engine, defaultDuration time.Duration) App {
	h := help.New()
	h.ShowAll = false

	return App{
		store:      s,
		engine:     e,
		sub:        e.Subscribe(),
		activeView: viewWrite,
		write:      newWriteModel(s, e, defaultDuration),
		history:    newHistoryModel(s),
		summary:    newSummaryModel(s, e),
		settings:   newSettingsModel(s),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(a.sub),
		a.write.Init(),
		a.history.refresh(),
	)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.write.setSize(a.width, contentHeight)
		a.history.setSize(a.width, contentHeight)
		a.summary.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

		// Export picker
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (editor, form, search), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewWrite
			return a, a.write.loadData()
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewHistory
			return a, a.history.refresh()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewSummary
			return a, nil
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewSettings
			return a, a.settings.refresh()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			return a, a.refreshCurrentView()
		}

	case engineEventMsg:
		return a.handleEvent(msg)

	case sessionStartedMsg:
		a.activeView = viewWrite
		a.status = "Writing: " + msg.session.Title
		a.isErr = false
		var cmd tea.Cmd
		a.write, cmd = a.write.update(msg)
		return a, cmd

	case showSummaryMsg:
		a.activeView = viewSummary
		return a, a.summary.show(msg.session)

	case activityLoadedMsg:
		var cmd tea.Cmd
		a.summary, cmd = a.summary.update(msg)
		return a, cmd

	case statusMsg:
		a.status = msg.text
		a.isErr = msg.isError
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.isErr = false
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

// handleEvent fans an engine event out to every view and waits for the
// next one.
func (a App) handleEvent(msg engineEventMsg) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{waitForEvent(a.sub)}

	var cmd tea.Cmd
	a.write, cmd = a.write.update(msg)
	cmds = append(cmds, cmd)
	a.history, cmd = a.history.update(msg)
	cmds = append(cmds, cmd)
	a.summary, cmd = a.summary.update(msg)
	cmds = append(cmds, cmd)

	switch msg.Type {
	case session.TimerExpired:
		a.status = "Time's up \a"
		a.isErr = false
	case session.AnalysisReady:
		if msg.Session != nil {
			cmds = append(cmds, a.summary.show(*msg.Session))
			a.activeView = viewSummary
		}
	case session.AnalysisFailed:
		a.status = fmt.Sprintf("Analysis unavailable: %v", msg.Err)
		a.isErr = true
		cmds = append(cmds, a.loadSummary(msg.SessionID))
	}
	return a, tea.Batch(cmds...)
}

// loadSummary shows a finished session without analysis.
func (a App) loadSummary(id string) tea.Cmd {
	return func() tea.Msg {
		s, err := a.store.Get(context.Background(), id)
		if err != nil || s == nil {
			return nil
		}
		return showSummaryMsg{session: *s}
	}
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewWrite:
		a.write, cmd = a.write.update(msg)
	case viewHistory:
		a.history, cmd = a.history.update(msg)
	case viewSummary:
		a.summary, cmd = a.summary.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewWrite:
		return a.write.capturing()
	case viewHistory:
		return a.history.capturing()
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewWrite:
		return a.write.loadData()
	case viewHistory:
		return a.history.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewWrite:
		content = a.write.view()
	case viewHistory:
		content = a.history.view()
	case viewSummary:
		content = a.summary.view()
	case viewSettings:
		content = a.settings.view()
	}

	// Calculate available height for content
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("writingflow")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		if a.isErr {
			status = errorStyle.Render(" " + a.status)
		} else {
			status = mutedStyle.Render(" " + a.status)
		}
	}

	// Countdown indicator in footer
	timerInfo := ""
	if t := a.write.timer; t.running() {
		left := formatCountdown(t.remaining())
		timerInfo = successStyle.Render(" ● " + left)
		if t.paused() {
			timerInfo = warningStyle.Render(" ⏸ " + left)
		}
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export")
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	shown, activity := a.summary.session, a.summary.activity
	return func() tea.Msg {
		home, _ := os.UserHomeDir()
		dateStr := time.Now().Format("2006-01-02")

		if format == 2 {
			if shown == nil {
				return statusMsg{text: "Open a summary first", isError: true}
			}
			path := filepath.Join(home, fmt.Sprintf("writingflow-%s-%s.md", dateStr, shortID(shown.ID)))
			if err := os.WriteFile(path, []byte(export.ToMarkdown(*shown, activity...)), 0o644); err != nil {
				return statusMsg{text: fmt.Sprintf("Markdown error: %v", err), isError: true}
			}
			return exportDoneMsg{path: path}
		}

		sessions, err := a.store.List(context.Background(), store.SessionFilter{})
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}

		var path string
		if format == 0 {
			path = filepath.Join(home, fmt.Sprintf("writingflow-export-%s.csv", dateStr))
			if err := export.ToCSV(sessions, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		} else {
			path = filepath.Join(home, fmt.Sprintf("writingflow-export-%s.json", dateStr))
			if err := export.ToJSON(sessions, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		}

		return exportDoneMsg{path: path}
	}
}

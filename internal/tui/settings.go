package tui

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/writingflow/internal/session"
	"github.com/sadopc/writingflow/internal/store"
)

type settingsModel struct {
	store  *store.Store
	width  int
	height int

	settings   []store.Setting
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	defaultDuration *string
	inactivity      *string
}

func newSettingsModel(s *store.Store) settingsModel {
	dd, it := "", ""
	return settingsModel{
		store:           s,
		defaultDuration: &dd,
		inactivity:      &it,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings []store.Setting
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		settings, _ := s.store.GetAllSettings(context.Background())
		return settingsDataMsg{settings: settings}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.New):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.defaultDuration = secsToMin(s.getVal("default_duration", "900"))
	*s.inactivity = s.getVal("inactivity_threshold", "30")

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Default session length (min)").
				Value(s.defaultDuration).
				Validate(validateMinutes),
			huh.NewInput().
				Title("Nudge after inactivity (sec)").
				Description("Takes effect the next time writingflow starts.").
				Value(s.inactivity).
				Validate(validatePositive),
		).Title("Sessions"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		if err := s.saveSettings(); err != nil {
			return s, statusCmd(fmt.Sprintf("Settings: %v", err), true)
		}
		return s, tea.Batch(s.refresh(), statusCmd("Settings saved", false))
	}

	return s, cmd
}

func (s settingsModel) saveSettings() error {
	ctx := context.Background()
	if err := s.store.SetSetting(ctx, "default_duration", minToSecs(*s.defaultDuration)); err != nil {
		return err
	}
	return s.store.SetSetting(ctx, "inactivity_threshold", *s.inactivity)
}

func (s settingsModel) getVal(k, fallback string) string {
	v, err := s.store.GetSetting(context.Background(), k)
	if err != nil {
		return fallback
	}
	return v
}

var settingLabels = map[string]string{
	"default_duration":     "Session length",
	"inactivity_threshold": "Nudge after idle",
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return activePanelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	rows := []string{title, ""}
	for _, setting := range s.settings {
		name, ok := settingLabels[setting.Key]
		if !ok {
			name = setting.Key
		}
		label := lipgloss.NewStyle().Width(20).Render(name)
		value := highlightStyle.Render(formatSettingValue(setting.Key, setting.Value))
		rows = append(rows, "  "+label+" "+value)
	}
	rows = append(rows, "",
		mutedStyle.Render(fmt.Sprintf("Sessions run %d to %d minutes.",
			int(session.MinDuration/time.Minute), int(session.MaxDuration/time.Minute))),
		mutedStyle.Render("Press enter to edit settings"),
	)

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func formatSettingValue(k, v string) string {
	secs, err := strconv.Atoi(v)
	if err != nil {
		return v
	}
	switch k {
	case "default_duration":
		return fmt.Sprintf("%d min", secs/60)
	case "inactivity_threshold":
		return fmt.Sprintf("%d sec", secs)
	}
	return v
}

func validateMinutes(s string) error {
	mins, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("enter whole minutes")
	}
	return session.ValidateDuration(time.Duration(mins) * time.Minute)
}

func validatePositive(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a positive number")
	}
	return nil
}

func secsToMin(s string) string {
	if secs, err := strconv.Atoi(s); err == nil {
		return strconv.Itoa(secs / 60)
	}
	return s
}

func minToSecs(s string) string {
	if mins, err := strconv.Atoi(s); err == nil {
		return strconv.Itoa(mins * 60)
	}
	return s
}

package tui

import (
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nexport/opsdash/internal/config"
)

// SettingsPaneModel manages the settings form overlay: backend
// connection and the severity thresholds for the tunable widgets.
// Threshold changes apply on the next refresh, not retroactively.
type SettingsPaneModel struct {
	form        *huh.Form
	config      *config.DashboardConfig
	globalPath  string
	projectPath string
	width       int
	height      int
	visible     bool
	saved       bool
	err         error

	// Form field bindings (strings for Huh)
	saveTarget  string
	baseURL     string
	rowLimit    string
	gapWindow   string
	gapHigh     string
	devCritical string
	devHigh     string
}

// NewSettingsPaneModel creates a new settings pane.
func NewSettingsPaneModel(cfg *config.DashboardConfig, globalPath, projectPath string) SettingsPaneModel {
	gap := cfg.Widget("gap-expiry")
	dev := cfg.Widget("cost-deviation")

	m := SettingsPaneModel{
		config:      cfg,
		globalPath:  globalPath,
		projectPath: projectPath,

		saveTarget:  "global",
		baseURL:     cfg.Backend.BaseURL,
		rowLimit:    strconv.Itoa(cfg.Backend.RowLimit),
		gapWindow:   strconv.Itoa(gap.WindowDays),
		gapHigh:     strconv.FormatFloat(gap.HighAbove, 'f', -1, 64),
		devCritical: strconv.FormatFloat(dev.CriticalAbove, 'f', -1, 64),
		devHigh:     strconv.FormatFloat(dev.HighAbove, 'f', -1, 64),
	}

	m.buildForm()
	return m
}

// buildForm constructs the Huh form with all settings fields.
func (m *SettingsPaneModel) buildForm() {
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("saveTarget").
				Title("Save To").
				Options(
					huh.NewOption("Global (~/.opsdash/config.json)", "global"),
					huh.NewOption("Project (.opsdash/config.json)", "project"),
				).
				Value(&m.saveTarget),
		).Title("Save Target"),

		huh.NewGroup(
			huh.NewInput().
				Key("baseURL").
				Title("Backend URL").
				Value(&m.baseURL).
				Placeholder("http://localhost:8420"),

			huh.NewInput().
				Key("rowLimit").
				Title("Rows Per Card").
				Value(&m.rowLimit).
				Placeholder("5"),
		).Title("Backend"),

		huh.NewGroup(
			huh.NewInput().
				Key("gapWindow").
				Title("Gap Deadline Window (days)").
				Value(&m.gapWindow).
				Placeholder("7"),

			huh.NewInput().
				Key("gapHigh").
				Title("Gap Volume HIGH Above").
				Value(&m.gapHigh).
				Placeholder("10"),

			huh.NewInput().
				Key("devCritical").
				Title("Deviation CRITICAL Above (%)").
				Value(&m.devCritical).
				Placeholder("20"),

			huh.NewInput().
				Key("devHigh").
				Title("Deviation HIGH Above (%)").
				Value(&m.devHigh).
				Placeholder("5"),
		).Title("Thresholds"),
	)
}

// Init initializes the settings pane.
func (m SettingsPaneModel) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the settings pane.
func (m SettingsPaneModel) Update(msg tea.Msg) (SettingsPaneModel, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			// Cancel without saving
			m.visible = false
			m.saved = false
			return m, nil
		}
	}

	// Delegate to form
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	// Check if form is completed
	if m.form.State == huh.StateCompleted {
		if err := m.applyFormToConfig(); err != nil {
			m.err = err
			m.saved = false
			return m, cmd
		}

		targetPath := m.globalPath
		if m.saveTarget == "project" {
			targetPath = m.projectPath
		}

		if err := config.Save(m.config, targetPath); err != nil {
			m.err = err
			m.saved = false
		} else {
			m.saved = true
			m.err = nil
			m.visible = false
		}
	}

	return m, cmd
}

// applyFormToConfig parses form field values back into the config struct.
func (m *SettingsPaneModel) applyFormToConfig() error {
	limit, err := strconv.Atoi(m.rowLimit)
	if err != nil || limit <= 0 {
		return fmt.Errorf("rows per card must be a positive integer, got %q", m.rowLimit)
	}
	window, err := strconv.Atoi(m.gapWindow)
	if err != nil || window <= 0 {
		return fmt.Errorf("gap window must be a positive integer, got %q", m.gapWindow)
	}
	gapHigh, err := strconv.ParseFloat(m.gapHigh, 64)
	if err != nil {
		return fmt.Errorf("gap volume threshold must be numeric, got %q", m.gapHigh)
	}
	devCritical, err := strconv.ParseFloat(m.devCritical, 64)
	if err != nil {
		return fmt.Errorf("deviation CRITICAL threshold must be numeric, got %q", m.devCritical)
	}
	devHigh, err := strconv.ParseFloat(m.devHigh, 64)
	if err != nil {
		return fmt.Errorf("deviation HIGH threshold must be numeric, got %q", m.devHigh)
	}
	if devHigh > devCritical {
		return fmt.Errorf("deviation HIGH threshold %g exceeds CRITICAL threshold %g", devHigh, devCritical)
	}

	m.config.Backend.BaseURL = m.baseURL
	m.config.Backend.RowLimit = limit

	if m.config.Widgets == nil {
		m.config.Widgets = make(map[string]config.WidgetConfig)
	}
	gap := m.config.Widget("gap-expiry")
	gap.WindowDays = window
	gap.HighAbove = gapHigh
	m.config.Widgets["gap-expiry"] = gap

	dev := m.config.Widget("cost-deviation")
	dev.CriticalAbove = devCritical
	dev.HighAbove = devHigh
	m.config.Widgets["cost-deviation"] = dev

	return nil
}

// View renders the settings pane.
func (m SettingsPaneModel) View() string {
	if !m.visible {
		return ""
	}

	var content string

	if m.saved && m.form.State == huh.StateCompleted {
		content = StyleSevOK.Bold(true).Render("✓ Settings saved")
	} else if m.err != nil {
		content = StyleError.Bold(true).Render(fmt.Sprintf("✗ %v", m.err))
	} else {
		content = m.form.View()
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(m.width - 4).
		Height(m.height - 4)

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("62")).
		Render("⚙ Settings")

	return lipgloss.JoinVertical(lipgloss.Left, title, style.Render(content))
}

// SetSize updates the dimensions of the settings pane.
func (m *SettingsPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if m.form != nil {
		m.form.WithWidth(w - 8).WithHeight(h - 8)
	}
}

// SetVisible shows or hides the settings pane.
func (m *SettingsPaneModel) SetVisible(v bool) {
	m.visible = v
	m.saved = false
	m.err = nil

	if v && m.form != nil {
		// Rebuild form to reset state
		m.buildForm()
	}
}

// IsVisible returns whether the settings pane is currently visible.
func (m SettingsPaneModel) IsVisible() bool {
	return m.visible
}

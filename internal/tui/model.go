// Package tui renders the dashboard as a Bubble Tea program. The board
// is owned by the root model and mutated only inside Update, so probe
// goroutines never touch view state directly.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nexport/opsdash/internal/access"
	"github.com/nexport/opsdash/internal/config"
	"github.com/nexport/opsdash/internal/dashboard"
	"github.com/nexport/opsdash/internal/events"
)

// fetchDoneMsg signals that the probe fan-out returned.
type fetchDoneMsg struct{}

// Model is the root Bubble Tea model for the dashboard.
type Model struct {
	board    *dashboard.Board
	registry []dashboard.Descriptor
	caps     access.Capabilities
	runner   *dashboard.Runner

	sections     []SectionPaneModel
	statusBar    StatusBarModel
	settingsPane SettingsPaneModel
	spin         spinner.Model

	focusedIdx   int
	eventSub     <-chan events.Event
	width        int
	height       int
	quitting     bool
	fetching     bool
	showSettings bool
}

// New creates the root model for a resolved viewer. The board is built
// immediately, so disabled widgets never get a card or a probe.
func New(bus *events.Bus, runner *dashboard.Runner, registry []dashboard.Descriptor,
	caps access.Capabilities, cfg *config.DashboardConfig, globalPath, projectPath string) Model {

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	sections := make([]SectionPaneModel, 0, len(dashboard.Sections))
	for _, s := range dashboard.Sections {
		sections = append(sections, NewSectionPaneModel(s))
	}

	m := Model{
		board:        dashboard.NewBoard(registry, caps),
		registry:     registry,
		caps:         caps,
		runner:       runner,
		sections:     sections,
		statusBar:    NewStatusBarModel(caps.Label()),
		settingsPane: NewSettingsPaneModel(cfg, globalPath, projectPath),
		spin:         sp,
		eventSub:     bus.SubscribeAll(256),
		// Init issues the first fan-out, so the model is born mid-fetch;
		// Update runs on copies, so the flag must be set where the
		// runtime keeps the model, not inside a command constructor.
		fetching: true,
	}
	m.updateFocusStates()
	return m
}

// Init kicks off the spinner, the event wait loop, and the first fetch.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, waitForEvent(m.eventSub), m.fetchCmd())
}

// waitForEvent returns a command that waits for the next event from the event bus.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return nil // bus closed
		}
		return event
	}
}

// fetchCmd launches the probe fan-out for the current board. Outcomes
// arrive as settle events on the bus, never through this command. The
// caller flips m.fetching itself.
func (m Model) fetchCmd() tea.Cmd {
	widgets := m.board.Enabled()
	runner := m.runner
	return func() tea.Msg {
		_ = runner.Fetch(context.Background(), widgets)
		return fetchDoneMsg{}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// If settings panel is open, route all keys to it (modal behavior)
		if m.showSettings {
			switch msg.String() {
			case KeySettings, "esc":
				m.showSettings = false
				m.settingsPane.SetVisible(false)
			default:
				var cmd tea.Cmd
				m.settingsPane, cmd = m.settingsPane.Update(msg)
				cmds = append(cmds, cmd)

				// Check if settings pane closed itself (after save)
				if !m.settingsPane.IsVisible() {
					m.showSettings = false
				}
			}
			return m, tea.Batch(cmds...)
		}

		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			m.quitting = true
			return m, tea.Quit

		case KeySettings:
			m.showSettings = true
			m.settingsPane.SetVisible(true)
			cmds = append(cmds, m.settingsPane.Init())

		case KeyRefresh:
			// A refresh discards the board and fans out again. Settles
			// from the previous run target terminal cards, so restarting
			// mid-flight would double-apply; wait the current run out.
			if m.board.Done() && !m.fetching {
				m.board = dashboard.NewBoard(m.registry, m.caps)
				m.fetching = true
				m.refreshPanes()
				cmds = append(cmds, m.fetchCmd(), m.spin.Tick)
			}

		case KeyTab:
			m.focusedIdx = (m.focusedIdx + 1) % len(m.sections)
			m.updateFocusStates()

		case KeyShiftTab:
			m.focusedIdx = (m.focusedIdx + len(m.sections) - 1) % len(m.sections)
			m.updateFocusStates()

		case KeyPane1, KeyPane2, KeyPane3, KeyPane4:
			m.focusedIdx = int(msg.String()[0] - '1')
			m.updateFocusStates()

		default:
			var cmd tea.Cmd
			m.sections[m.focusedIdx], cmd = m.sections[m.focusedIdx].Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()
		m.settingsPane.SetSize(msg.Width, msg.Height)
		m.refreshPanes()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if !m.board.Done() || m.fetching {
			m.refreshPanes()
			cmds = append(cmds, cmd)
		}

	case events.ProbeStartedEvent:
		cmds = append(cmds, waitForEvent(m.eventSub))

	case events.ProbeSettledEvent:
		m.board.Apply(msg.ID, msg.Payload, msg.Failure)
		m.refreshPanes()
		cmds = append(cmds, waitForEvent(m.eventSub))

	case events.BoardDoneEvent:
		cmds = append(cmds, waitForEvent(m.eventSub))

	case fetchDoneMsg:
		m.fetching = false
		m.refreshPanes()
	}

	return m, tea.Batch(cmds...)
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if m.showSettings {
		return m.settingsPane.View()
	}

	banner := m.renderBanner()

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, m.sections[0].View(), m.sections[1].View())
	bottomRow := lipgloss.JoinHorizontal(lipgloss.Top, m.sections[2].View(), m.sections[3].View())

	return lipgloss.JoinVertical(lipgloss.Left,
		banner,
		topRow,
		bottomRow,
		m.statusBar.View(),
		HelpView(),
	)
}

// renderBanner renders the alert line. No banner claim is made until
// every scoped Critical widget has settled.
func (m Model) renderBanner() string {
	banner := m.board.Banner()
	switch banner.State {
	case dashboard.BannerCritical:
		return StyleBannerCritical.Render(fmt.Sprintf("⚠ %d critical item(s) need attention", banner.Count))
	case dashboard.BannerAllClear:
		return StyleBannerClear.Render("✓ All clear, nothing critical")
	default:
		return StyleBannerPending.Render(m.spin.View() + " Checking critical alerts...")
	}
}

// refreshPanes pushes current board state into every section pane and
// the status bar.
func (m *Model) refreshPanes() {
	spin := m.spin.View()
	for i := range m.sections {
		m.sections[i].Refresh(m.board, spin)
	}
	settled, total := m.board.Progress()
	m.statusBar.SetProgress(settled, total, m.board.Errored())
}

// computeLayout splits the screen into a 2x2 section grid with the
// banner above and the status and help lines below.
func (m *Model) computeLayout() {
	colWidth := m.width / 2
	availableHeight := m.height - 3 // banner, status bar, help bar
	rowHeight := availableHeight / 2

	for i := range m.sections {
		m.sections[i].SetSize(colWidth, rowHeight)
	}
	m.statusBar.SetWidth(m.width)
}

// updateFocusStates updates the focus state of all panes.
func (m *Model) updateFocusStates() {
	for i := range m.sections {
		m.sections[i].SetFocused(i == m.focusedIdx)
	}
}

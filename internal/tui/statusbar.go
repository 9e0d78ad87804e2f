package tui

import (
	"fmt"
	"strings"
)

// StatusBarModel tracks probe fan-out progress for the footer line.
type StatusBarModel struct {
	settled int
	total   int
	errored int
	viewer  string
	width   int
}

// NewStatusBarModel creates a status bar for the given viewer label.
func NewStatusBarModel(viewer string) StatusBarModel {
	return StatusBarModel{viewer: viewer}
}

// SetProgress updates the probe counters.
func (m *StatusBarModel) SetProgress(settled, total, errored int) {
	m.settled = settled
	m.total = total
	m.errored = errored
}

// SetWidth updates the bar width.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// View renders a one-line progress footer.
func (m StatusBarModel) View() string {
	if m.total == 0 {
		return StyleDim.Render(fmt.Sprintf(" %s · no widgets for your roles", m.viewer))
	}

	barWidth := min(m.width/3, 24)
	if barWidth < 4 {
		barWidth = 4
	}
	doneWidth := (m.settled * barWidth) / m.total
	bar := StyleSevOK.Render(strings.Repeat("=", doneWidth)) +
		StyleDim.Render(strings.Repeat(".", barWidth-doneWidth))

	line := fmt.Sprintf(" %s · [%s] %d/%d probes", m.viewer, bar, m.settled, m.total)
	if m.errored > 0 {
		line += StyleError.Render(fmt.Sprintf(" · %d failed", m.errored))
	}
	return line
}

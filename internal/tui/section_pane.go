package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/nexport/opsdash/internal/dashboard"
)

// SectionPaneModel renders one dashboard section as a bordered,
// scrollable pane. The board stays with the root model; card content is
// pushed in through Refresh after every settle.
type SectionPaneModel struct {
	section  dashboard.Section
	viewport viewport.Model
	width    int
	height   int
	focused  bool
}

// NewSectionPaneModel creates a pane for the given section.
func NewSectionPaneModel(section dashboard.Section) SectionPaneModel {
	return SectionPaneModel{
		section:  section,
		viewport: viewport.New(0, 0),
	}
}

// Update delegates keys to the viewport for scrolling when focused.
func (m SectionPaneModel) Update(msg tea.Msg) (SectionPaneModel, tea.Cmd) {
	var cmd tea.Cmd
	if _, ok := msg.(tea.KeyMsg); ok {
		if !m.focused {
			return m, nil
		}
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// Refresh rebuilds the pane content from the board. spin is the current
// spinner frame, shown next to anything still loading.
func (m *SectionPaneModel) Refresh(board *dashboard.Board, spin string) {
	var content string
	if m.section == dashboard.SectionTodo {
		content = renderTodo(board, spin)
	} else {
		content = renderCards(board, board.SectionWidgets(m.section), spin, "press r to reload")
	}
	m.viewport.SetContent(content)
}

// renderCards renders every enabled widget of a section in layout order.
// Skipped cards produce no output at all. errHint, when non-empty, is
// appended under error cards; the snapshot renderer leaves it empty.
func renderCards(board *dashboard.Board, ids []string, spin, errHint string) string {
	var b strings.Builder

	for _, id := range ids {
		d, ok := board.Descriptor(id)
		if !ok {
			continue
		}
		card, ok := board.Card(id)
		if !ok || card.Phase == dashboard.CardSkipped {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}

		switch card.Phase {
		case dashboard.CardLoading:
			b.WriteString(fmt.Sprintf("%s %s\n", spin, StyleDim.Render(d.Title)))

		case dashboard.CardError:
			b.WriteString(StyleTitle.Render(d.Title))
			b.WriteString("\n")
			b.WriteString(StyleError.Render("  ✗ " + card.Message))
			b.WriteString("\n")
			if errHint != "" {
				b.WriteString(StyleDim.Render("  " + errHint))
				b.WriteString("\n")
			}

		case dashboard.CardOK:
			b.WriteString(StyleTitle.Render(d.Title))
			b.WriteString("\n")
			b.WriteString(StyleSevOK.Render("  ✓ " + card.Message))
			b.WriteString("\n")

		case dashboard.CardRendered:
			header := fmt.Sprintf("%s %s  %s",
				SeverityIcon(card.Severity),
				StyleTitle.Render(d.Title),
				SeverityStyle(card.Severity).Render(fmt.Sprintf("%s · %d", card.Severity, card.Count)))
			b.WriteString(header)
			b.WriteString("\n")
			for _, line := range card.Lines {
				b.WriteString("  " + line + "\n")
			}
			if card.Link != "" {
				b.WriteString(StyleDim.Render("  → " + card.Link))
				b.WriteString("\n")
			}
		}
	}

	if b.Len() == 0 {
		return StyleDim.Render("Nothing to show")
	}
	return b.String()
}

// renderTodo renders the aggregated to-do list in probe completion order.
func renderTodo(board *dashboard.Board, spin string) string {
	var b strings.Builder

	entries := board.Todo()
	for _, entry := range entries {
		b.WriteString(fmt.Sprintf("%s %s %s\n",
			SeverityIcon(entry.Severity),
			SeverityStyle(entry.Severity).Render("["+entry.Label+"]"),
			entry.Text))
		if entry.Link != "" {
			b.WriteString(StyleDim.Render("  → " + entry.Link))
			b.WriteString("\n")
		}
	}

	// The loading placeholder lives only until the first entry lands.
	// Once the list has content it stays a list, even with probes still
	// airborne; the success state needs every probe settled and empty.
	switch {
	case len(entries) == 0 && !board.TodoSettled():
		b.WriteString(fmt.Sprintf("%s %s\n", spin, StyleDim.Render("collecting...")))
	case board.TodoEmpty():
		b.WriteString(StyleSevOK.Render("✓ All caught up"))
		b.WriteString("\n")
	}

	return b.String()
}

// View renders the pane with its section title and border.
func (m SectionPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	title := StyleTitle.Render(m.section.String())
	sep := strings.Repeat("─", min(m.width-2, lipgloss.Width(title)))

	inner := lipgloss.JoinVertical(lipgloss.Left, title, sep, m.viewport.View())

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}
	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(inner)
}

// SetSize updates the pane dimensions.
func (m *SectionPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h

	vpWidth := w - 4
	vpHeight := h - 4 // border, title, separator
	if vpWidth < 10 {
		vpWidth = 10
	}
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = vpWidth
	m.viewport.Height = vpHeight
}

// SetFocused updates the focus state.
func (m *SectionPaneModel) SetFocused(focused bool) {
	m.focused = focused
}

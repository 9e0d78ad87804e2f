package tui

import (
	"fmt"
	"strings"

	"github.com/nexport/opsdash/internal/dashboard"
)

// RenderSnapshot renders a settled board as text for headless one-shot
// runs. Output goes to a pipe as often as a terminal, so the lipgloss
// color profile downgrade is left to do its job.
func RenderSnapshot(board *dashboard.Board) string {
	var b strings.Builder

	banner := board.Banner()
	switch banner.State {
	case dashboard.BannerCritical:
		b.WriteString(fmt.Sprintf("⚠ %d critical item(s) need attention\n", banner.Count))
	case dashboard.BannerAllClear:
		b.WriteString("✓ All clear, nothing critical\n")
	default:
		b.WriteString("Critical alerts still pending\n")
	}
	b.WriteString("\n")

	for _, section := range dashboard.Sections {
		ids := board.SectionWidgets(section)
		if len(ids) == 0 && section != dashboard.SectionTodo {
			continue
		}

		b.WriteString(fmt.Sprintf("== %s ==\n", section))
		if section == dashboard.SectionTodo {
			b.WriteString(renderTodo(board, ""))
		} else {
			b.WriteString(renderCards(board, ids, "", ""))
		}
		b.WriteString("\n")
	}

	settled, total := board.Progress()
	b.WriteString(fmt.Sprintf("%d/%d probes settled", settled, total))
	if errored := board.Errored(); errored > 0 {
		b.WriteString(fmt.Sprintf(", %d failed", errored))
	}
	b.WriteString("\n")

	return b.String()
}

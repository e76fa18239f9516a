package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notification-engine/internal/theme"
)

// layout tracks terminal dimensions. The header and status bar take one
// line each.
type layout struct {
	width  int
	height int
}

func (l layout) contentHeight() int {
	if h := l.height - 2; h > 0 {
		return h
	}
	return 0
}

// header renders the title on the left and the badge on the right,
// filling the gap with the header background.
func (l layout) header(title, badge string) string {
	left := theme.HeaderStyle.Render(title)
	right := badge

	gap := max(l.width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	filler := lipgloss.NewStyle().
		Width(gap).
		Background(theme.HeaderStyle.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

// statusBar renders hints padded to the full width.
func (l layout) statusBar(hints string) string {
	rendered := theme.StatusBarStyle.Render(hints)

	gap := max(l.width-lipgloss.Width(rendered), 0)
	filler := lipgloss.NewStyle().
		Width(gap).
		Background(theme.StatusBarStyle.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

func (l layout) frame(header, content, status string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, status)
}

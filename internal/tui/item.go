package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notification-engine/internal/model"
	"github.com/nhle/notification-engine/internal/theme"
)

// notificationItem wraps a model.Notification for bubbles/list.
type notificationItem struct {
	n model.Notification
}

func (i notificationItem) FilterValue() string { return i.n.Title }
func (i notificationItem) Title() string       { return i.n.Title }
func (i notificationItem) Description() string { return i.n.Message }

// itemDelegate renders one notification per line.
type itemDelegate struct {
	now func() time.Time
}

func (d itemDelegate) Height() int                             { return 1 }
func (d itemDelegate) Spacing() int                            { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

// Render draws a notification as
// "<read marker><pin marker> CATEGORY PRIORITY title  age".
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(notificationItem)
	if !ok {
		return
	}
	n := it.n

	readMarker := "●"
	if n.IsRead {
		readMarker = " "
	}
	pinMarker := " "
	if n.IsPinned {
		pinMarker = "^"
	}

	category := theme.CategoryStyle(n.Category).Render(strings.ToUpper(string(n.Category)))
	priority := theme.PriorityStyle(n.Priority).Render(priorityLabel(n.Priority))

	age := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(relativeTime(d.now(), n.CreatedAt))

	archived := ""
	if n.IsArchived {
		archived = " [archived]"
	}

	line := fmt.Sprintf("%s%s %s %s %s%s  %s",
		readMarker, pinMarker, category, priority, n.Title, archived, age)

	if n.IsRead || n.IsArchived {
		line = theme.DimmedStyle.Render(line)
	}

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityUrgent:
		return "!!"
	case model.PriorityHigh:
		return "! "
	case model.PriorityMedium:
		return "- "
	default:
		return ". "
	}
}

// relativeTime returns a human-friendly age of t as seen at now.
func relativeTime(now, t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}

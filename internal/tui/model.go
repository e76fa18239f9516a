// Package tui is a terminal inbox over the notification engine.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notification-engine/internal/bridge"
	"github.com/nhle/notification-engine/internal/keys"
	"github.com/nhle/notification-engine/internal/model"
	"github.com/nhle/notification-engine/internal/notify"
	appsync "github.com/nhle/notification-engine/internal/sync"
	"github.com/nhle/notification-engine/internal/theme"
)

// Inbox is the slice of the engine the terminal inbox drives.
type Inbox interface {
	Filtered(f notify.Filter) []model.Notification
	UnreadCount() int
	MarkRead(id string)
	MarkAllRead()
	TogglePin(id string)
	ToggleArchive(id string)
	Delete(id string)
}

// StateSource publishes unread state changes.
type StateSource interface {
	Subscribe(fn func(bridge.State)) func()
}

// MailSync triggers and reports background mail polling.
type MailSync interface {
	RefreshAll()
	WaitForNextResult() tea.Cmd
}

// Options configures New. States and Mail are optional.
type Options struct {
	// UserID scopes the list to one owner. Empty shows everyone.
	UserID string
	States StateSource
	Mail   MailSync
	Clock  func() time.Time
}

// notificationsLoadedMsg carries a fresh copy of the filtered list.
type notificationsLoadedMsg struct {
	items  []model.Notification
	unread int
}

// stateMsg carries a bridge state change into the update loop.
type stateMsg bridge.State

// Model is the root Bubble Tea model.
type Model struct {
	inbox  Inbox
	mail   MailSync
	keys   *keys.KeyMap
	list   list.Model
	layout layout
	filter notify.Filter

	states      chan bridge.State
	unsubscribe func()

	unread     int
	statusLine string
	errLine    string
}

// New creates the inbox model. When opts.States is set the model
// subscribes immediately; the subscription ends when the user quits.
func New(inbox Inbox, opts Options) Model {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	l := list.New([]list.Item{}, itemDelegate{now: opts.Clock}, 80, 22)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	m := Model{
		inbox:       inbox,
		mail:        opts.Mail,
		keys:        keys.DefaultKeyMap(),
		list:        l,
		layout:      layout{width: 80, height: 24},
		filter:      notify.Filter{UserID: opts.UserID},
		unsubscribe: func() {},
	}

	if opts.States != nil {
		ch := make(chan bridge.State, 1)
		m.states = ch
		m.unsubscribe = opts.States.Subscribe(func(s bridge.State) {
			// Keep only the latest state; the UI reloads on every message.
			select {
			case ch <- s:
			default:
				select {
				case <-ch:
				default:
				}
				select {
				case ch <- s:
				default:
				}
			}
		})
	}
	return m
}

// Init loads the list and starts listening for state and sync messages.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.load()}
	if m.states != nil {
		cmds = append(cmds, m.waitForState())
	}
	if m.mail != nil {
		cmds = append(cmds, m.mail.WaitForNextResult())
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = layout{width: msg.Width, height: msg.Height}
		m.list.SetSize(msg.Width, m.layout.contentHeight())
		return m, nil

	case notificationsLoadedMsg:
		items := make([]list.Item, len(msg.items))
		for i, n := range msg.items {
			items[i] = notificationItem{n: n}
		}
		cmd := m.list.SetItems(items)
		if idx := m.list.Index(); idx >= len(items) && len(items) > 0 {
			m.list.Select(len(items) - 1)
		}
		m.unread = msg.unread
		return m, cmd

	case stateMsg:
		m.unread = msg.Unread
		return m, tea.Batch(m.load(), m.waitForState())

	case appsync.SyncResultMsg:
		switch {
		case msg.AuthError != nil:
			m.errLine = fmt.Sprintf("%s: %s", msg.AuthError.MailboxID, msg.AuthError.Message)
		case msg.Error != nil:
			m.errLine = fmt.Sprintf("%s: %v", msg.MailboxID, msg.Error)
		default:
			m.errLine = ""
			m.statusLine = fmt.Sprintf("%s synced, %d new", msg.MailboxID, msg.Added)
		}
		return m, tea.Batch(m.load(), m.mail.WaitForNextResult())

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.unsubscribe()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Read):
		if n, ok := m.selected(); ok {
			m.inbox.MarkRead(n.ID)
		}
		return m, m.load()

	case key.Matches(msg, m.keys.ReadAll):
		m.inbox.MarkAllRead()
		return m, m.load()

	case key.Matches(msg, m.keys.Pin):
		if n, ok := m.selected(); ok {
			m.inbox.TogglePin(n.ID)
		}
		return m, m.load()

	case key.Matches(msg, m.keys.Archive):
		if n, ok := m.selected(); ok {
			m.inbox.ToggleArchive(n.ID)
		}
		return m, m.load()

	case key.Matches(msg, m.keys.Delete):
		if n, ok := m.selected(); ok {
			m.inbox.Delete(n.ID)
		}
		return m, m.load()

	case key.Matches(msg, m.keys.UnreadOnly):
		m.filter.UnreadOnly = !m.filter.UnreadOnly
		return m, m.load()

	case key.Matches(msg, m.keys.Sync):
		if m.mail != nil {
			m.mail.RefreshAll()
			m.statusLine = "syncing mail..."
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) selected() (model.Notification, bool) {
	it, ok := m.list.SelectedItem().(notificationItem)
	if !ok {
		return model.Notification{}, false
	}
	return it.n, true
}

// load returns a command that reads the current filter from the inbox.
func (m Model) load() tea.Cmd {
	inbox, f := m.inbox, m.filter
	return func() tea.Msg {
		return notificationsLoadedMsg{
			items:  inbox.Filtered(f),
			unread: inbox.UnreadCount(),
		}
	}
}

func (m Model) waitForState() tea.Cmd {
	ch := m.states
	return func() tea.Msg {
		return stateMsg(<-ch)
	}
}

// View renders the inbox.
func (m Model) View() string {
	title := "Notifications"
	if m.filter.UnreadOnly {
		title += " (unread only)"
	}
	badge := theme.BadgeStyle.Render(fmt.Sprintf("%d unread", m.unread))

	return m.layout.frame(
		m.layout.header(title, badge),
		m.content(),
		m.layout.statusBar(m.statusText()),
	)
}

func (m Model) content() string {
	if len(m.list.Items()) > 0 {
		return m.list.View()
	}

	text := "No notifications."
	if m.filter.UnreadOnly {
		text = "No unread notifications.\nPress u to show everything."
	}
	return lipgloss.NewStyle().
		Width(m.layout.width).
		Height(m.layout.contentHeight()).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray).
		Render(text)
}

func (m Model) statusText() string {
	if m.errLine != "" {
		return theme.ErrorStyle.Render(m.errLine)
	}

	syncKey := m.keys.Sync.Help().Key
	hints := make([]string, 0, len(m.keys.ShortHelp()))
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		if h.Key == syncKey && m.mail == nil {
			continue
		}
		hints = append(hints, h.Key+" "+h.Desc)
	}
	line := strings.Join(hints, "  ")
	if m.statusLine != "" {
		line = m.statusLine + " | " + line
	}
	return line
}

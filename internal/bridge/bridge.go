// Package bridge turns chat and mail activity into notifications and
// tells subscribers when the unread count changes.
//
// Upstream stores are observed through their subscription hooks. Each
// mutation is diffed against the last observed size of every
// conversation or folder, and only the appended tail is classified, so
// messages present at Start are never notified. Mail is also keyed by
// Message-ID: a message whose id already backs a notification in the
// repository, such as one restored from a snapshot, is not notified again
// when a fresh mailbox re-fetches it.
//
// Subscribers are driven by a dirty-check loop rather than by repository
// events: every interval the unread count is recomputed and subscribers
// hear about it only when it changed. A consumer can therefore lag the
// repository by at most one interval.
package bridge

import (
	"context"
	"log/slog"
	netmail "net/mail"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nhle/notification-engine/internal/classify"
	"github.com/nhle/notification-engine/internal/model"
	"github.com/nhle/notification-engine/internal/notify"
)

// DefaultInterval is the dirty-check period used when none is configured.
const DefaultInterval = 2 * time.Second

// Metadata keys the bridge adds to synthesized notifications.
const (
	MetaConversationID = "conversation_id"
	MetaMessageID      = "message_id"
	MetaFolder         = "folder"
)

// ChatSource is the chat store as seen by the bridge.
type ChatSource interface {
	Sizes() map[string]int
	Messages(conversationID string) []model.ChatMessage
	Subscribe(fn func()) func()
}

// MailSource is the mailbox store as seen by the bridge.
type MailSource interface {
	Sizes() map[string]int
	Messages(folder string) []model.MailMessage
	Subscribe(fn func()) func()
}

// State is what subscribers receive.
type State struct {
	Unread           int                    `json:"unread"`
	UnreadByCategory map[model.Category]int `json:"unread_by_category"`
}

// Options configures a Bridge.
type Options struct {
	// CurrentUser is the local user; messages they send are skipped.
	CurrentUser string
	// RecipientUser owns synthesized notifications. Defaults to CurrentUser.
	RecipientUser string
	// SelfAddresses are the local user's mail addresses; mail from any of
	// them is skipped. Matching ignores display names and case.
	SelfAddresses []string
	// Interval is the dirty-check period. Defaults to DefaultInterval.
	Interval time.Duration
	Logger   *slog.Logger
}

// Bridge wires upstream stores to the notification repository.
type Bridge struct {
	repo       *notify.Repository
	query      *notify.Query
	classifier *classify.Classifier
	chats      ChatSource
	mail       MailSource

	currentUser string
	recipient   string
	self        map[string]struct{}
	interval    time.Duration
	logger      *slog.Logger

	// diffMu serializes upstream diffing so a tail is never inserted twice.
	diffMu    sync.Mutex
	chatSizes map[string]int
	mailSizes map[string]int
	mailIDs   map[string]struct{}

	mu          sync.Mutex
	running     bool
	stopCh      chan struct{}
	wg          sync.WaitGroup
	unsubscribe []func()
	subscribers map[int]func(State)
	nextSub     int
	lastUnread  int
}

// New creates a bridge. Either source may be nil when that upstream is
// not available.
func New(
	repo *notify.Repository,
	classifier *classify.Classifier,
	chats ChatSource,
	mail MailSource,
	opts Options,
) *Bridge {
	if opts.RecipientUser == "" {
		opts.RecipientUser = opts.CurrentUser
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if classifier == nil {
		classifier = classify.New()
	}

	self := make(map[string]struct{}, len(opts.SelfAddresses)+1)
	for _, a := range append([]string{opts.CurrentUser}, opts.SelfAddresses...) {
		if addr := mailAddress(a); addr != "" {
			self[addr] = struct{}{}
		}
	}

	return &Bridge{
		repo:        repo,
		query:       notify.NewQuery(repo),
		classifier:  classifier,
		chats:       chats,
		mail:        mail,
		currentUser: opts.CurrentUser,
		recipient:   opts.RecipientUser,
		self:        self,
		interval:    opts.Interval,
		logger:      opts.Logger,
		chatSizes:   make(map[string]int),
		mailSizes:   make(map[string]int),
		mailIDs:     make(map[string]struct{}),
		subscribers: make(map[int]func(State)),
	}
}

// Start primes the observed sizes, subscribes to the upstream stores and
// launches the dirty-check loop. The loop exits on Stop or when ctx is
// done. Calling Start on a running bridge does nothing.
func (b *Bridge) Start(ctx context.Context) {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.stopCh = make(chan struct{})
	b.lastUnread = b.query.UnreadCount()
	stopCh := b.stopCh
	b.mu.Unlock()

	b.prime()

	var unsubscribe []func()
	if b.chats != nil {
		unsubscribe = append(unsubscribe, b.chats.Subscribe(b.onChatChange))
	}
	if b.mail != nil {
		unsubscribe = append(unsubscribe, b.mail.Subscribe(b.onMailChange))
	}
	b.mu.Lock()
	b.unsubscribe = unsubscribe
	b.mu.Unlock()

	b.wg.Add(1)
	go b.loop(ctx, stopCh)

	b.logger.Info("bridge started",
		"interval", b.interval,
		"current_user", b.currentUser,
		"recipient", b.recipient,
	)
}

// Stop cancels the upstream subscriptions and the dirty-check loop.
// Subscribers stay registered.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	close(b.stopCh)
	unsubscribe := b.unsubscribe
	b.unsubscribe = nil
	b.mu.Unlock()

	for _, fn := range unsubscribe {
		fn()
	}
	b.wg.Wait()

	b.logger.Info("bridge stopped")
}

// Destroy stops the bridge and drops every subscriber.
func (b *Bridge) Destroy() {
	b.Stop()

	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.subscribers)
}

// Subscribe registers fn and calls it immediately with the current state.
// Later calls happen only when the unread count changes. The returned
// function removes the registration.
func (b *Bridge) Subscribe(fn func(State)) func() {
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subscribers[id] = fn
	b.mu.Unlock()

	fn(b.state())

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, id)
			b.mu.Unlock()
		})
	}
}

func (b *Bridge) loop(ctx context.Context, stopCh chan struct{}) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.checkUnread()
		}
	}
}

// checkUnread notifies subscribers when the unread count has moved since
// the last check.
func (b *Bridge) checkUnread() {
	st := b.state()

	b.mu.Lock()
	if st.Unread == b.lastUnread {
		b.mu.Unlock()
		return
	}
	b.lastUnread = st.Unread
	subs := b.subscriberList()
	b.mu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}

func (b *Bridge) state() State {
	st := State{
		Unread:           b.query.UnreadCount(),
		UnreadByCategory: make(map[model.Category]int, len(model.Categories)),
	}
	for _, cat := range model.Categories {
		if n := b.query.UnreadCountByCategory(cat); n > 0 {
			st.UnreadByCategory[cat] = n
		}
	}
	return st
}

// subscriberList must be called with mu held.
func (b *Bridge) subscriberList() []func(State) {
	ids := make([]int, 0, len(b.subscribers))
	for id := range b.subscribers {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]func(State), 0, len(ids))
	for _, id := range ids {
		out = append(out, b.subscribers[id])
	}
	return out
}

// prime records current upstream sizes and the mail ids already notified
// so existing messages are skipped.
func (b *Bridge) prime() {
	b.diffMu.Lock()
	defer b.diffMu.Unlock()

	for _, n := range b.repo.All() {
		if n.Metadata[MetaFolder] == "" {
			continue
		}
		if id := n.Metadata[MetaMessageID]; id != "" {
			b.mailIDs[id] = struct{}{}
		}
	}

	if b.chats != nil {
		b.chatSizes = b.chats.Sizes()
	}
	if b.mail != nil {
		b.mailSizes = b.mail.Sizes()
	}
}

func (b *Bridge) onChatChange() {
	b.diffMu.Lock()
	defer b.diffMu.Unlock()

	for conv, size := range b.chats.Sizes() {
		seen := b.chatSizes[conv]
		if size <= seen {
			continue
		}
		msgs := b.chats.Messages(conv)
		if seen > len(msgs) {
			seen = len(msgs)
		}
		for _, msg := range msgs[seen:] {
			b.notifyChat(msg)
		}
		b.chatSizes[conv] = len(msgs)
	}
}

func (b *Bridge) onMailChange() {
	b.diffMu.Lock()
	defer b.diffMu.Unlock()

	for folder, size := range b.mail.Sizes() {
		seen := b.mailSizes[folder]
		if size <= seen {
			continue
		}
		msgs := b.mail.Messages(folder)
		if seen > len(msgs) {
			seen = len(msgs)
		}
		for _, msg := range msgs[seen:] {
			b.notifyMail(msg)
		}
		b.mailSizes[folder] = len(msgs)
	}
}

func (b *Bridge) notifyChat(msg model.ChatMessage) {
	if b.currentUser != "" && msg.SenderID == b.currentUser {
		return
	}

	sender := msg.SenderName
	if sender == "" {
		sender = msg.SenderID
	}

	d, _ := b.classifier.Draft(b.recipient, model.RawMessage{
		Content: msg.Text,
		Sender:  sender,
		SentAt:  msg.SentAt,
	}, model.OriginChat)
	d.RelatedEntityID = msg.ConversationID
	d.RelatedEntityType = model.EntityChat
	d.Metadata[MetaConversationID] = msg.ConversationID
	d.Metadata[MetaMessageID] = msg.ID

	n := b.repo.Insert(d)
	b.logger.Debug("chat notification created",
		"id", n.ID,
		"conversation", msg.ConversationID,
		"priority", n.Priority,
	)
}

// notifyMail must be called with diffMu held.
func (b *Bridge) notifyMail(msg model.MailMessage) {
	if msg.MessageID != "" {
		if _, seen := b.mailIDs[msg.MessageID]; seen {
			b.logger.Debug("mail already notified", "message_id", msg.MessageID)
			return
		}
		b.mailIDs[msg.MessageID] = struct{}{}
	}
	if _, own := b.self[mailAddress(msg.From)]; own {
		return
	}

	d, r := b.classifier.Draft(b.recipient, model.RawMessage{
		Subject: msg.Subject,
		Content: msg.Content,
		Sender:  msg.From,
		SentAt:  msg.Date,
	}, model.OriginMail)
	d.Metadata[MetaMessageID] = msg.MessageID
	d.Metadata[MetaFolder] = msg.Folder

	n := b.repo.Insert(d)
	b.logger.Debug("mail notification created",
		"id", n.ID,
		"classification", r.Category,
		"priority", n.Priority,
	)
}

// mailAddress reduces "Name <addr>" or a bare address to its lowercased
// address. Values that do not parse are compared as written.
func mailAddress(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if a, err := netmail.ParseAddress(s); err == nil {
		return strings.ToLower(a.Address)
	}
	return strings.ToLower(s)
}

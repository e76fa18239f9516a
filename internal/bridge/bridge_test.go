package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notification-engine/internal/chat"
	"github.com/nhle/notification-engine/internal/classify"
	"github.com/nhle/notification-engine/internal/mailbox"
	"github.com/nhle/notification-engine/internal/model"
	"github.com/nhle/notification-engine/internal/notify"
)

type fixture struct {
	repo   *notify.Repository
	chats  *chat.Store
	mail   *mailbox.Store
	bridge *Bridge
}

func newFixture(t *testing.T, interval time.Duration) *fixture {
	t.Helper()

	f := &fixture{
		repo:  notify.NewRepository(),
		chats: chat.NewStore(nil),
		mail:  mailbox.NewStore(),
	}
	f.bridge = New(f.repo, classify.New("buildright.com"), f.chats, f.mail, Options{
		CurrentUser:   "me",
		RecipientUser: "u-owner",
		SelfAddresses: []string{"me@buildright.com"},
		Interval:      interval,
	})
	t.Cleanup(f.bridge.Destroy)
	return f
}

// recorder collects subscriber callbacks.
type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) record(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) unreads() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, 0, len(r.states))
	for _, s := range r.states {
		out = append(out, s.Unread)
	}
	return out
}

func TestExistingMessagesAreNotNotified(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.chats.Append("site-1", model.ChatMessage{SenderID: "sam", Text: "old news"})
	f.mail.Add(model.MailMessage{MessageID: "m0", Subject: "old mail"})

	f.bridge.Start(context.Background())
	assert.Zero(t, f.repo.Len())

	f.chats.Append("site-1", model.ChatMessage{SenderID: "sam", SenderName: "Sam", Text: "crane arrives at 9"})
	require.Equal(t, 1, f.repo.Len())

	n := f.repo.All()[0]
	assert.Equal(t, model.TypeChat, n.Type)
	assert.Equal(t, model.CategoryChat, n.Category)
	assert.Equal(t, "u-owner", n.UserID)
	assert.Equal(t, "New message from Sam", n.Title)
	assert.Equal(t, "crane arrives at 9", n.Message)
	assert.Equal(t, "site-1", n.RelatedEntityID)
	assert.Equal(t, model.EntityChat, n.RelatedEntityType)
	assert.Equal(t, "site-1", n.Metadata[MetaConversationID])
	assert.NotEmpty(t, n.Metadata[MetaMessageID])
}

func TestOwnMessagesAreSkipped(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.bridge.Start(context.Background())

	f.chats.Append("site-1", model.ChatMessage{SenderID: "me", Text: "on my way"})
	f.mail.Add(model.MailMessage{MessageID: "m1", From: "me", Subject: "note to self"})
	assert.Zero(t, f.repo.Len())

	f.chats.Append("site-1", model.ChatMessage{SenderID: "sam", Text: "ok"})
	assert.Equal(t, 1, f.repo.Len())
}

func TestOwnMailIsSkippedByAddress(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.bridge.Start(context.Background())

	f.mail.Add(model.MailMessage{MessageID: "<a@buildright.com>", From: "Me Myself <ME@buildright.com>", Subject: "draft"})
	f.mail.Add(model.MailMessage{MessageID: "<b@buildright.com>", From: "me@buildright.com", Subject: "draft 2"})
	assert.Zero(t, f.repo.Len())

	f.mail.Add(model.MailMessage{MessageID: "<c@buildright.com>", From: "Dana <dana@buildright.com>", Subject: "lunch"})
	assert.Equal(t, 1, f.repo.Len())
}

func TestRestartDoesNotRenotifyMail(t *testing.T) {
	first := newFixture(t, time.Hour)
	first.bridge.Start(context.Background())
	first.mail.Add(model.MailMessage{MessageID: "<1@vendor.com>", From: "pm@vendor.com", Subject: "Invoice 12"})
	require.Equal(t, 1, first.repo.Len())
	saved := first.repo.All()
	first.bridge.Destroy()

	// A restarted process restores its notifications but starts with an
	// empty mailbox that the poller refills.
	repo := notify.NewRepository()
	repo.Replace(saved)
	mail := mailbox.NewStore()
	br := New(repo, classify.New("buildright.com"), nil, mail, Options{CurrentUser: "me"})
	br.Start(context.Background())
	t.Cleanup(br.Destroy)

	mail.Add(model.MailMessage{MessageID: "<1@vendor.com>", From: "pm@vendor.com", Subject: "Invoice 12"})
	assert.Equal(t, 1, repo.Len(), "same Message-ID is notified once")

	mail.Add(model.MailMessage{MessageID: "<2@vendor.com>", From: "pm@vendor.com", Subject: "Invoice 13"})
	assert.Equal(t, 2, repo.Len())
}

func TestMailNotifications(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.bridge.Start(context.Background())

	f.mail.Add(model.MailMessage{
		MessageID: "<1@vendor.com>",
		Subject:   "URGENT: budget for PRJ-7",
		Content:   "The project budget is over.",
		From:      "pm@vendor.com",
	})
	f.mail.Add(model.MailMessage{
		MessageID: "<2@client.com>",
		Folder:    "Billing",
		Subject:   "Invoice 88",
		Content:   "Payment is due.",
		From:      "ap@acme.com",
	})
	// Duplicate ids never reach the bridge.
	f.mail.Add(model.MailMessage{MessageID: "<2@client.com>", Subject: "Invoice 88"})

	items := f.repo.All()
	require.Len(t, items, 2)

	invoice, project := items[0], items[1]

	assert.Equal(t, model.TypeProject, project.Type)
	assert.Equal(t, model.CategoryProject, project.Category)
	assert.Equal(t, model.PriorityUrgent, project.Priority)
	assert.Equal(t, "PRJ-7", project.RelatedEntityID)
	assert.Equal(t, model.EntityProject, project.RelatedEntityType)
	assert.Equal(t, mailbox.DefaultFolder, project.Metadata[MetaFolder])

	assert.Equal(t, model.CategoryBilling, invoice.Category)
	assert.Equal(t, model.TypeInfo, invoice.Type)
	assert.Equal(t, model.PriorityLow, invoice.Priority)
	assert.Equal(t, "Billing", invoice.Metadata[MetaFolder])
	assert.Equal(t, "<2@client.com>", invoice.Metadata[MetaMessageID])
}

func TestSubscribersHearOnlyUnreadChanges(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.bridge.Start(context.Background())

	rec := &recorder{}
	f.bridge.Subscribe(rec.record)
	assert.Equal(t, []int{0}, rec.unreads(), "called immediately")

	f.bridge.checkUnread()
	assert.Equal(t, []int{0}, rec.unreads(), "no change, no call")

	f.chats.Append("c", model.ChatMessage{SenderID: "sam", Text: "one"})
	f.chats.Append("c", model.ChatMessage{SenderID: "sam", Text: "two"})
	f.bridge.checkUnread()
	assert.Equal(t, []int{0, 2}, rec.unreads())

	// Pinning does not move the unread count.
	f.repo.TogglePin(f.repo.All()[0].ID)
	f.bridge.checkUnread()
	assert.Equal(t, []int{0, 2}, rec.unreads())

	f.repo.MarkAllRead()
	f.bridge.checkUnread()
	assert.Equal(t, []int{0, 2, 0}, rec.unreads())
}

func TestUnsubscribeAndDestroy(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.bridge.Start(context.Background())

	kept, dropped := &recorder{}, &recorder{}
	f.bridge.Subscribe(kept.record)
	unsubscribe := f.bridge.Subscribe(dropped.record)
	unsubscribe()

	f.chats.Append("c", model.ChatMessage{SenderID: "sam", Text: "hi"})
	f.bridge.checkUnread()
	assert.Equal(t, []int{0, 1}, kept.unreads())
	assert.Equal(t, []int{0}, dropped.unreads())

	f.bridge.Destroy()

	f.chats.Append("c", model.ChatMessage{SenderID: "sam", Text: "after destroy"})
	assert.Equal(t, 1, f.repo.Len(), "upstream no longer observed")

	f.repo.MarkAllRead()
	f.bridge.checkUnread()
	assert.Equal(t, []int{0, 1}, kept.unreads(), "subscribers cleared")
}

func TestStartIsIdempotent(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.bridge.Start(context.Background())
	f.bridge.Start(context.Background())

	f.chats.Append("c", model.ChatMessage{SenderID: "sam", Text: "once"})
	assert.Equal(t, 1, f.repo.Len(), "a second Start must not double-subscribe")
}

func TestDirtyCheckLoop(t *testing.T) {
	f := newFixture(t, 10*time.Millisecond)
	f.bridge.Start(context.Background())

	changed := make(chan State, 4)
	f.bridge.Subscribe(func(s State) {
		if s.Unread > 0 {
			changed <- s
		}
	})

	f.chats.Append("c", model.ChatMessage{SenderID: "sam", Text: "hello"})

	select {
	case s := <-changed:
		assert.Equal(t, 1, s.Unread)
		assert.Equal(t, map[model.Category]int{model.CategoryChat: 1}, s.UnreadByCategory)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber was not notified by the polling loop")
	}
}

func TestLoopStopsWithContext(t *testing.T) {
	f := newFixture(t, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	f.bridge.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		f.bridge.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after cancel")
	}
}

package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notification-engine/internal/mailbox"
	"github.com/nhle/notification-engine/internal/model"
	"github.com/nhle/notification-engine/internal/source/email"
)

type fakeFetcher struct {
	id   string
	msgs []model.MailMessage
	err  error
}

func (f *fakeFetcher) ID() string              { return f.id }
func (f *fakeFetcher) Interval() time.Duration { return time.Hour }
func (f *fakeFetcher) Fetch(context.Context) ([]model.MailMessage, error) {
	return f.msgs, f.err
}

func nextResult(t *testing.T, p *Poller) SyncResultMsg {
	t.Helper()
	select {
	case r := <-p.Results():
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sync result")
	}
	return SyncResultMsg{}
}

func TestPollerFetchesOnStart(t *testing.T) {
	box := mailbox.NewStore()
	p := New(box, nil)
	p.Register(&fakeFetcher{id: "office", msgs: []model.MailMessage{
		{MessageID: "1", Subject: "a"},
		{MessageID: "2", Subject: "b"},
	}})

	p.Start()
	t.Cleanup(p.Stop)

	r := nextResult(t, p)
	assert.Equal(t, "office", r.MailboxID)
	assert.Equal(t, 2, r.Fetched)
	assert.Equal(t, 2, r.Added)
	assert.NoError(t, r.Error)
	assert.Len(t, box.Messages(mailbox.DefaultFolder), 2)

	// A refresh fetches the same messages again; none are new.
	p.RefreshAll()
	r = nextResult(t, p)
	assert.Equal(t, 0, r.Added)

	statuses := p.Statuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, SyncIdle, statuses[0].State)
	assert.False(t, statuses[0].LastSync.IsZero())
}

func TestPollerReportsAuthErrors(t *testing.T) {
	p := New(mailbox.NewStore(), nil)
	p.Register(&fakeFetcher{id: "office", err: &email.AuthError{MailboxID: "office", Message: "denied"}})
	p.Register(&fakeFetcher{id: "billing", err: errors.New("connection reset")})

	p.Start()
	t.Cleanup(p.Stop)

	results := map[string]SyncResultMsg{}
	for range 2 {
		r := nextResult(t, p)
		results[r.MailboxID] = r
	}

	require.NotNil(t, results["office"].AuthError)
	assert.Equal(t, "office", results["office"].AuthError.MailboxID)
	assert.Nil(t, results["billing"].AuthError)
	assert.Error(t, results["billing"].Error)

	statuses := p.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, "billing", statuses[0].MailboxID)
	assert.Equal(t, SyncError, statuses[0].State)
	assert.Equal(t, "error", statuses[1].State.String())
}

func TestStopIsIdempotent(t *testing.T) {
	p := New(mailbox.NewStore(), nil)
	p.Stop()
	p.Start()
	p.Start()
	p.Stop()
	p.Stop()
}

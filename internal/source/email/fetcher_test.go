package email

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notification-engine/internal/mailbox"
	"github.com/nhle/notification-engine/internal/model"
)

type stubSource struct {
	messages []ParsedMessage
	err      error
	since    time.Time
	limit    int
}

func (s *stubSource) FetchMessages(_ context.Context, since time.Time, limit int) ([]ParsedMessage, error) {
	s.since = since
	s.limit = limit
	return s.messages, s.err
}

func newStubFetcher(src *stubSource, now time.Time) *Fetcher {
	return &Fetcher{
		cfg:    model.MailSourceConfig{ID: "site office", SinceDays: 3, PollIntervalSec: 60},
		client: src,
		now:    func() time.Time { return now },
	}
}

func TestFetchMapsMessages(t *testing.T) {
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	date := now.Add(-time.Hour)
	src := &stubSource{messages: []ParsedMessage{
		{
			Envelope: Envelope{MessageID: "<x@client.com>", Subject: "Invoice 42", From: "Dana <dana@client.com>", Date: date, UID: 7},
			TextBody: "  Payment due Friday.\n",
		},
		{
			Envelope: Envelope{Subject: "Newsletter", From: "news@vendor.com", UID: 9},
			HTMLBody: "<p>Hello &amp; welcome</p><br>bye",
		},
	}}
	f := newStubFetcher(src, now)

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, now.AddDate(0, 0, -3), src.since)
	assert.Equal(t, fetchLimit, src.limit)

	assert.Equal(t, model.MailMessage{
		MessageID: "<x@client.com>",
		Folder:    mailbox.DefaultFolder,
		Subject:   "Invoice 42",
		From:      "Dana <dana@client.com>",
		Content:   "Payment due Friday.",
		Date:      date,
	}, got[0])

	assert.Equal(t, "site_office-uid-9", got[1].MessageID)
	assert.Equal(t, "Hello & welcome\n\nbye", got[1].Content)
	assert.Equal(t, time.Minute, f.Interval())
	assert.Equal(t, "site office", f.ID())
}

func TestFetchWrapsAuthError(t *testing.T) {
	src := &stubSource{err: &AuthError{MailboxID: "site", Message: "bad password"}}
	f := newStubFetcher(src, time.Now())

	_, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.Contains(t, err.Error(), "fetching mail for site office")
}

func TestIsAuthError(t *testing.T) {
	assert.False(t, IsAuthError(errors.New("timeout")))
	assert.False(t, IsAuthError(nil))
	assert.True(t, IsAuthError(fmt.Errorf("poll: %w", &AuthError{MailboxID: "a"})))
}

func TestParseMIMEBody(t *testing.T) {
	raw := "From: pm@buildright.com\r\n" +
		"Subject: PRJ-12 update\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=XYZ\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Slab poured.\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>Slab poured.</p>\r\n" +
		"--XYZ--\r\n"

	text, html := parseMIMEBody([]byte(raw))
	assert.Equal(t, "Slab poured.", text)
	assert.Equal(t, "<p>Slab poured.</p>", html)
}

func TestFormatAddress(t *testing.T) {
	assert.Equal(t, "a@b.com", formatAddress("", "a@b.com"))
	assert.Equal(t, "Ann <a@b.com>", formatAddress(" Ann ", "a@b.com"))
	assert.Equal(t, "Ann", formatAddress("Ann", ""))
}

package email

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nhle/notification-engine/internal/mailbox"
	"github.com/nhle/notification-engine/internal/model"
)

// fetchLimit caps how many messages a single poll pulls.
const fetchLimit = 100

// messageSource is the part of IMAPClient a Fetcher depends on.
type messageSource interface {
	FetchMessages(ctx context.Context, since time.Time, limit int) ([]ParsedMessage, error)
}

// Fetcher pulls recent INBOX mail for one configured mailbox and maps it
// to mailbox records.
type Fetcher struct {
	cfg    model.MailSourceConfig
	client messageSource
	now    func() time.Time
}

// NewFetcher creates a fetcher for cfg authenticating with password.
func NewFetcher(cfg model.MailSourceConfig, password string) *Fetcher {
	return &Fetcher{
		cfg: cfg,
		client: NewIMAPClient(
			cfg.ID, cfg.Host, cfg.Port, cfg.Username, password, cfg.TLS,
		),
		now: time.Now,
	}
}

// ID returns the configured mailbox id.
func (f *Fetcher) ID() string { return f.cfg.ID }

// Interval returns the configured poll interval.
func (f *Fetcher) Interval() time.Duration {
	return time.Duration(f.cfg.PollIntervalSec) * time.Second
}

// Fetch returns the messages received within the configured window.
func (f *Fetcher) Fetch(ctx context.Context) ([]model.MailMessage, error) {
	days := f.cfg.SinceDays
	if days <= 0 {
		days = 7
	}
	since := f.now().AddDate(0, 0, -days)

	parsed, err := f.client.FetchMessages(ctx, since, fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("fetching mail for %s: %w", f.cfg.ID, err)
	}

	out := make([]model.MailMessage, 0, len(parsed))
	for _, p := range parsed {
		out = append(out, f.toMailMessage(p))
	}
	return out, nil
}

// toMailMessage converts a parsed IMAP message to a mailbox record.
func (f *Fetcher) toMailMessage(p ParsedMessage) model.MailMessage {
	content := p.TextBody
	if strings.TrimSpace(content) == "" && p.HTMLBody != "" {
		content = stripHTML(p.HTMLBody)
	}

	id := p.Envelope.MessageID
	if id == "" {
		id = fmt.Sprintf("%s-uid-%d", sanitizeID(f.cfg.ID), p.Envelope.UID)
	}

	return model.MailMessage{
		MessageID: id,
		Folder:    mailbox.DefaultFolder,
		Subject:   p.Envelope.Subject,
		From:      p.Envelope.From,
		Content:   strings.TrimSpace(content),
		Date:      p.Envelope.Date,
	}
}

var idUnsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeID replaces characters that are not safe in a message id.
func sanitizeID(s string) string {
	return idUnsafeChars.ReplaceAllString(s, "_")
}

// htmlTagPattern matches HTML tags for stripping.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes HTML tags from a string and decodes common
// entities, providing a basic plain-text rendering.
func stripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := html
	for _, tag := range []string{
		"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>",
	} {
		result = strings.ReplaceAll(result, tag, "\n")
	}

	result = htmlTagPattern.ReplaceAllString(result, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	result = replacer.Replace(result)

	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(result)
}

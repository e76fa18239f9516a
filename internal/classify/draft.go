package classify

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nhle/notification-engine/internal/crossref"
	"github.com/nhle/notification-engine/internal/model"
)

// previewLen bounds the notification message built from a mail body.
const previewLen = 280

// Metadata keys set on drafts built by Draft.
const (
	MetaOrigin         = "origin"
	MetaSender         = "sender"
	MetaClassification = "classification"
	MetaScore          = "score"
)

// Draft classifies raw and builds the notification draft owned by userID.
//
// Chat messages become chat notifications in the chat category. Everything
// else takes its type and category from the classification. The related
// entity is the most specific entity code found in the subject or content.
func (c *Classifier) Draft(userID string, raw model.RawMessage, origin model.Origin) (model.Draft, Result) {
	r := c.Classify(raw)

	d := model.Draft{
		Priority: r.Priority,
		UserID:   userID,
		Metadata: map[string]string{
			MetaOrigin:         string(origin),
			MetaClassification: string(r.Category),
			MetaScore:          strconv.Itoa(r.Score),
		},
	}
	if raw.Sender != "" {
		d.Metadata[MetaSender] = raw.Sender
	}

	switch origin {
	case model.OriginChat:
		d.Type = model.TypeChat
		d.Category = model.CategoryChat
		d.Title = "New message"
		if raw.Sender != "" {
			d.Title = "New message from " + raw.Sender
		}
		d.Message = raw.Content
	default:
		d.Type = NotificationType(r)
		d.Category = NotificationCategory(r.Category)
		d.Title = strings.TrimSpace(raw.Subject)
		if d.Title == "" {
			d.Title = "(no subject)"
		}
		d.Message = preview(raw.Content)
	}

	if ref, ok := crossref.FirstRef(raw.Subject, raw.Content); ok {
		d.RelatedEntityID = ref.ID
		d.RelatedEntityType = ref.Type
	}

	return d, r
}

// preview collapses whitespace and truncates s to previewLen runes.
func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= previewLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:previewLen-1]) + "…"
}

// Package classify maps raw inbound messages to a category and a priority.
//
// Category detection walks an ordered rule list and the first matching rule
// wins. The order is part of the contract: categories are mutually
// exclusive, so moving a rule changes which category a message receives.
// Priority is an additive score mapped through ScoreTable.
package classify

import (
	"strings"

	"github.com/nhle/notification-engine/internal/model"
)

// Category is the classifier's message category. It is finer grained than
// model.Category and is mapped onto it with NotificationCategory.
type Category string

const (
	CategoryProjectRelated      Category = "project-related"
	CategoryClientCommunication Category = "client-communication"
	CategoryInvoicePayment      Category = "invoice-payment"
	CategoryMeetingScheduling   Category = "meeting-scheduling"
	CategoryUrgentActionable    Category = "urgent-actionable"
	CategoryInternalTeam        Category = "internal-team"
	CategoryGeneral             Category = "general"
)

// Result is the outcome of classifying one message.
type Result struct {
	Category Category       `json:"category"`
	Score    int            `json:"score"`
	Priority model.Priority `json:"priority"`
}

// Message is the lowercased form of a raw message that rules match on.
type Message struct {
	Subject string
	Content string
	Sender  string
}

// NewMessage lowercases raw into the form rules match on.
func NewMessage(raw model.RawMessage) Message {
	return Message{
		Subject: strings.ToLower(raw.Subject),
		Content: strings.ToLower(raw.Content),
		Sender:  strings.ToLower(raw.Sender),
	}
}

// Rule is one entry of the ordered category list.
type Rule struct {
	Name     string
	Category Category
	Match    func(m Message, c *Classifier) bool
}

// Rules is the ordered category rule list. Evaluation stops at the first
// rule whose Match returns true.
var Rules = []Rule{
	{
		Name:     "project keywords",
		Category: CategoryProjectRelated,
		Match: func(m Message, _ *Classifier) bool {
			return containsAny(m.Subject, projectKeywords...) ||
				containsAny(m.Content, projectKeywords...)
		},
	},
	{
		Name:     "client sender or subject",
		Category: CategoryClientCommunication,
		Match: func(m Message, _ *Classifier) bool {
			return strings.Contains(m.Sender, "client") ||
				strings.Contains(m.Subject, "client")
		},
	},
	{
		Name:     "invoice or payment",
		Category: CategoryInvoicePayment,
		Match: func(m Message, _ *Classifier) bool {
			return containsAny(m.Subject, "invoice", "payment") ||
				containsAny(m.Content, "invoice", "payment")
		},
	},
	{
		Name:     "meeting or call",
		Category: CategoryMeetingScheduling,
		Match: func(m Message, _ *Classifier) bool {
			return containsAny(m.Subject, "meeting", "call") ||
				containsAny(m.Content, "meeting", "call")
		},
	},
	{
		Name:     "urgent wording",
		Category: CategoryUrgentActionable,
		Match: func(m Message, _ *Classifier) bool {
			return containsAny(m.Subject, urgentKeywords...) ||
				containsAny(m.Content, urgentKeywords...)
		},
	},
	{
		Name:     "internal sender",
		Category: CategoryInternalTeam,
		Match: func(m Message, c *Classifier) bool {
			return c.internalSender(m.Sender)
		},
	},
}

var (
	projectKeywords = []string{"project", "task", "milestone"}
	urgentKeywords  = []string{"urgent", "asap"}
)

// Classifier classifies raw messages. The zero value has no internal
// domains; use New to configure them.
type Classifier struct {
	internalDomains []string
}

// New creates a classifier that treats senders in any of the given
// domains as internal team members.
func New(internalDomains ...string) *Classifier {
	domains := make([]string, 0, len(internalDomains))
	for _, d := range internalDomains {
		d = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(d, "@")))
		if d != "" {
			domains = append(domains, d)
		}
	}
	return &Classifier{internalDomains: domains}
}

// Classify returns the category, score and priority for msg. Empty or
// unrecognizable input falls through to general / low.
func (c *Classifier) Classify(raw model.RawMessage) Result {
	m := NewMessage(raw)

	category := c.category(m)
	score := Score(m.Subject, category)
	return Result{
		Category: category,
		Score:    score,
		Priority: PriorityForScore(score),
	}
}

// category walks Rules in order and returns the first match.
func (c *Classifier) category(m Message) Category {
	for _, r := range Rules {
		if r.Match(m, c) {
			return r.Category
		}
	}
	return CategoryGeneral
}

// internalSender reports whether sender's address belongs to one of the
// configured internal domains.
func (c *Classifier) internalSender(sender string) bool {
	if c == nil || len(c.internalDomains) == 0 {
		return false
	}
	at := strings.LastIndex(sender, "@")
	if at < 0 {
		return false
	}
	domain := strings.TrimRight(sender[at+1:], "> ")
	for _, d := range c.internalDomains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

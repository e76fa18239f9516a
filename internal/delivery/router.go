// Package delivery decides, per channel, whether and how a classified
// notification should be surfaced. It makes routing decisions only; no
// transport is implemented here.
package delivery

import (
	"log/slog"
	"time"

	"github.com/nhle/notification-engine/internal/model"
	"github.com/nhle/notification-engine/internal/preference"
)

// Outcome is the routing result for one channel.
type Outcome string

const (
	// OutcomeDelivered means the channel should surface the notification now.
	OutcomeDelivered Outcome = "delivered"
	// OutcomeDisabled means the user switched the channel off.
	OutcomeDisabled Outcome = "disabled"
	// OutcomeDeferred means delivery is held for quiet hours or batching.
	OutcomeDeferred Outcome = "deferred"
	// OutcomeSuppressed means the notification must not be surfaced at all.
	OutcomeSuppressed Outcome = "suppressed"
)

// Reason explains a decision.
type Reason string

const (
	ReasonDelivered        Reason = "delivered"
	ReasonCategoryDisabled Reason = "category_disabled"
	ReasonFrequencyNever   Reason = "frequency_never"
	ReasonKeywordFiltered  Reason = "keyword_filtered"
	ReasonQuietHours       Reason = "quiet_hours"
	ReasonBatched          Reason = "batched"
)

// Decision is the routing result for a notification.
type Decision struct {
	NotificationID string                    `json:"notification_id"`
	UserID         string                    `json:"user_id"`
	Category       model.Category            `json:"category"`
	Channels       map[model.Channel]Outcome `json:"channels"`
	Reason         Reason                    `json:"reason"`
	Frequency      model.Frequency           `json:"frequency"`
}

// Delivered returns the channels that should surface the notification now,
// in routing order.
func (d Decision) Delivered() []model.Channel {
	var out []model.Channel
	for _, ch := range model.AllChannels {
		if d.Channels[ch] == OutcomeDelivered {
			out = append(out, ch)
		}
	}
	return out
}

// SettingsSource resolves the effective settings for a (user, category).
type SettingsSource interface {
	GetOrDefault(userID string, category model.Category) model.Settings
}

// Router consults stored preferences to route notifications.
type Router struct {
	settings SettingsSource
	logger   *slog.Logger
}

// NewRouter creates a router. logger may be nil.
func NewRouter(settings SettingsSource, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Router{settings: settings, logger: logger}
}

// Route decides per channel how n should be surfaced at instant at.
//
// Order of checks: category disabled or frequency never, then keyword
// gating, suppress every channel. Otherwise each switched-off channel is
// disabled, external channels are deferred during quiet hours or when the
// frequency batches, and in-app is delivered.
func (r *Router) Route(n model.Notification, at time.Time) Decision {
	s := r.settings.GetOrDefault(n.UserID, n.Category)

	d := Decision{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Category:       n.Category,
		Channels:       make(map[model.Channel]Outcome, len(model.AllChannels)),
		Frequency:      s.Frequency,
	}

	switch {
	case !s.Enabled:
		return r.suppressAll(d, ReasonCategoryDisabled)
	case s.Frequency == model.FrequencyNever:
		return r.suppressAll(d, ReasonFrequencyNever)
	case preference.Suppressed(s, n.Title, n.Message):
		return r.suppressAll(d, ReasonKeywordFiltered)
	}

	hold := Reason("")
	if preference.QuietHoursActive(s.QuietHours, at) {
		hold = ReasonQuietHours
	} else if s.Frequency != model.FrequencyImmediate && s.Frequency != "" {
		hold = ReasonBatched
	}

	d.Reason = ReasonDelivered
	for _, ch := range model.AllChannels {
		switch {
		case !s.Channels.Enabled(ch):
			d.Channels[ch] = OutcomeDisabled
		case ch != model.ChannelInApp && hold != "":
			d.Channels[ch] = OutcomeDeferred
			d.Reason = hold
		default:
			d.Channels[ch] = OutcomeDelivered
		}
	}

	r.logger.Debug("routed notification",
		"id", n.ID,
		"user", n.UserID,
		"category", n.Category,
		"reason", d.Reason,
	)
	return d
}

func (r *Router) suppressAll(d Decision, reason Reason) Decision {
	for _, ch := range model.AllChannels {
		d.Channels[ch] = OutcomeSuppressed
	}
	d.Reason = reason

	r.logger.Debug("suppressed notification",
		"id", d.NotificationID,
		"user", d.UserID,
		"category", d.Category,
		"reason", reason,
	)
	return d
}

package preference

import (
	"strings"
	"time"

	"github.com/nhle/notification-engine/internal/model"
)

// QuietHoursActive reports whether at falls inside the quiet-hours window,
// evaluated on the wall clock of qh.Timezone. The window is [Start, End).
// When End is not after Start the window wraps past midnight and is
// active when the time is at or after Start or before End.
//
// A disabled window, a malformed HH:MM value or an unknown timezone all
// report false, so a broken setting never hides a notification.
func QuietHoursActive(qh model.QuietHours, at time.Time) bool {
	if !qh.Enabled {
		return false
	}

	start, ok := parseClock(qh.Start)
	if !ok {
		return false
	}
	end, ok := parseClock(qh.End)
	if !ok {
		return false
	}

	loc := time.UTC
	if tz := strings.TrimSpace(qh.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return false
		}
		loc = l
	}

	local := at.In(loc)
	minute := local.Hour()*60 + local.Minute()

	if end <= start {
		return minute >= start || minute < end
	}
	return minute >= start && minute < end
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// Suppressed reports whether keyword gating hides a notification with the
// given title and message. Matching is a case-insensitive substring test
// on title and message together. Any exclude keyword match suppresses.
// A non-empty include list suppresses unless one of its keywords
// matches. Exclusion is checked first and wins. Blank keywords are
// ignored, so empty lists never suppress.
func Suppressed(s model.Settings, title, message string) bool {
	text := strings.ToLower(title + " " + message)

	if matchesAny(text, s.ExcludeKeywords) {
		return true
	}

	include := nonBlank(s.Keywords)
	if len(include) == 0 {
		return false
	}
	return !matchesAny(text, include)
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range nonBlank(keywords) {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// nonBlank returns the lowercased, trimmed keywords that are not empty.
func nonBlank(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

package model

import "time"

// Frequency controls batching of external delivery. It is stored only;
// no scheduler acts on it.
type Frequency string

const (
	FrequencyImmediate Frequency = "immediate"
	FrequencyHourly    Frequency = "hourly"
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyNever     Frequency = "never"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyImmediate, FrequencyHourly, FrequencyDaily,
		FrequencyWeekly, FrequencyNever:
		return true
	}
	return false
}

// Channel is a delivery surface.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelSMS   Channel = "sms"
)

// AllChannels lists the delivery surfaces in routing order.
var AllChannels = []Channel{ChannelInApp, ChannelEmail, ChannelPush, ChannelSMS}

// Channels toggles each delivery surface independently.
type Channels struct {
	InApp bool `json:"in_app"`
	Email bool `json:"email"`
	Push  bool `json:"push"`
	SMS   bool `json:"sms"`
}

// Enabled reports whether the given channel is switched on.
func (c Channels) Enabled(ch Channel) bool {
	switch ch {
	case ChannelInApp:
		return c.InApp
	case ChannelEmail:
		return c.Email
	case ChannelPush:
		return c.Push
	case ChannelSMS:
		return c.SMS
	}
	return false
}

// QuietHours is a local time-of-day window during which immediate
// external delivery is held back. Start and End are "HH:MM" strings.
type QuietHours struct {
	Enabled  bool   `json:"enabled"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Timezone string `json:"timezone"`
}

// Settings is the per (user, category) preference record.
type Settings struct {
	UserID          string     `json:"user_id"`
	Category        Category   `json:"category"`
	Enabled         bool       `json:"enabled"`
	Channels        Channels   `json:"channels"`
	Frequency       Frequency  `json:"frequency"`
	QuietHours      QuietHours `json:"quiet_hours"`
	Keywords        []string   `json:"keywords"`
	ExcludeKeywords []string   `json:"exclude_keywords"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// DefaultSettings returns the record callers substitute when no settings
// are stored for the pair: enabled, in-app only, immediate, quiet hours off.
func DefaultSettings(userID string, category Category) Settings {
	return Settings{
		UserID:    userID,
		Category:  category,
		Enabled:   true,
		Channels:  Channels{InApp: true},
		Frequency: FrequencyImmediate,
		QuietHours: QuietHours{
			Enabled:  false,
			Start:    "22:00",
			End:      "08:00",
			Timezone: "UTC",
		},
		Keywords:        []string{},
		ExcludeKeywords: []string{},
	}
}

// Clone returns a copy that shares no slices with s.
func (s Settings) Clone() Settings {
	c := s
	c.Keywords = append([]string{}, s.Keywords...)
	c.ExcludeKeywords = append([]string{}, s.ExcludeKeywords...)
	return c
}

// SettingsPatch is a shallow update; nil fields are left untouched.
type SettingsPatch struct {
	Enabled         *bool       `json:"enabled,omitempty"`
	Channels        *Channels   `json:"channels,omitempty"`
	Frequency       *Frequency  `json:"frequency,omitempty"`
	QuietHours      *QuietHours `json:"quiet_hours,omitempty"`
	Keywords        *[]string   `json:"keywords,omitempty"`
	ExcludeKeywords *[]string   `json:"exclude_keywords,omitempty"`
}

// Apply merges the non-nil fields of p into s and returns the result.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.Enabled != nil {
		s.Enabled = *p.Enabled
	}
	if p.Channels != nil {
		s.Channels = *p.Channels
	}
	if p.Frequency != nil {
		s.Frequency = *p.Frequency
	}
	if p.QuietHours != nil {
		s.QuietHours = *p.QuietHours
	}
	if p.Keywords != nil {
		s.Keywords = append([]string{}, (*p.Keywords)...)
	}
	if p.ExcludeKeywords != nil {
		s.ExcludeKeywords = append([]string{}, (*p.ExcludeKeywords)...)
	}
	return s
}

// Package preference stores per-user, per-category notification settings
// and role permissions, and evaluates the quiet-hours and keyword rules
// used by delivery routing.
package preference

import (
	"slices"
	"sync"
	"time"

	"github.com/nhle/notification-engine/internal/model"
)

type settingsKey struct {
	userID   string
	category model.Category
}

// Resolver holds one Settings record per (user, category) pair.
type Resolver struct {
	mu      sync.RWMutex
	records map[settingsKey]model.Settings
	now     func() time.Time
}

// NewResolver creates an empty resolver. now may be nil to use time.Now.
func NewResolver(now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		records: make(map[settingsKey]model.Settings),
		now:     now,
	}
}

// Get returns the stored settings or nil. It never fabricates a record;
// use GetOrDefault when a usable value is needed.
func (r *Resolver) Get(userID string, category model.Category) *model.Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.records[settingsKey{userID, category}]
	if !ok {
		return nil
	}
	c := s.Clone()
	return &c
}

// GetOrDefault returns the stored settings, or model.DefaultSettings when
// none exist. Nothing is stored.
func (r *Resolver) GetOrDefault(userID string, category model.Category) model.Settings {
	if s := r.Get(userID, category); s != nil {
		return *s
	}
	return model.DefaultSettings(userID, category)
}

// Upsert shallow-merges patch into the existing record and stamps
// UpdatedAt. If no record exists, the patch is applied to the defaults and
// both timestamps are set.
func (r *Resolver) Upsert(userID string, category model.Category, patch model.SettingsPatch) model.Settings {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := settingsKey{userID, category}
	now := r.now()

	s, ok := r.records[key]
	if !ok {
		s = model.DefaultSettings(userID, category)
		s.CreatedAt = now
	}
	s = patch.Apply(s.Clone())
	s.UserID = userID
	s.Category = category
	s.UpdatedAt = now

	r.records[key] = s
	return s.Clone()
}

// ResetAll removes every record for userID and returns how many were
// removed.
func (r *Resolver) ResetAll(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key := range r.records {
		if key.userID == userID {
			delete(r.records, key)
			removed++
		}
	}
	return removed
}

// ForUser returns all stored records for userID ordered by category.
func (r *Resolver) ForUser(userID string) []model.Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.Settings
	for key, s := range r.records {
		if key.userID == userID {
			out = append(out, s.Clone())
		}
	}
	sortSettings(out)
	return out
}

// All returns every stored record ordered by user then category.
func (r *Resolver) All() []model.Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Settings, 0, len(r.records))
	for _, s := range r.records {
		out = append(out, s.Clone())
	}
	sortSettings(out)
	return out
}

// Replace swaps the whole record set, e.g. when restoring a snapshot.
func (r *Resolver) Replace(records []model.Settings) {
	next := make(map[settingsKey]model.Settings, len(records))
	for _, s := range records {
		next[settingsKey{s.UserID, s.Category}] = s.Clone()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = next
}

func sortSettings(items []model.Settings) {
	slices.SortFunc(items, func(a, b model.Settings) int {
		if a.UserID != b.UserID {
			if a.UserID < b.UserID {
				return -1
			}
			return 1
		}
		return categoryIndex(a.Category) - categoryIndex(b.Category)
	})
}

func categoryIndex(c model.Category) int {
	if i := slices.Index(model.Categories, c); i >= 0 {
		return i
	}
	return len(model.Categories)
}

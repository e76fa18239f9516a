// Package notify owns the in-memory notification collection and the
// stateless query layer over it.
//
// Lookups by id that miss are silent no-ops. Stale ids are routine for a
// UI-facing store after concurrent deletes, so callers never need an
// existence check before writing.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/notification-engine/internal/model"
)

// Clock returns the current time.
type Clock func() time.Time

// Option configures a Repository.
type Option func(*Repository)

// WithClock overrides the time source used for CreatedAt and ReadAt.
func WithClock(c Clock) Option {
	return func(r *Repository) {
		r.now = c
	}
}

// WithIDGenerator overrides how notification ids are assigned.
func WithIDGenerator(gen func() string) Option {
	return func(r *Repository) {
		r.newID = gen
	}
}

// Repository is an ordered collection of notifications, most recent first.
// Records are values: every write replaces the stored element with a
// modified copy and every read hands out copies.
type Repository struct {
	mu    sync.RWMutex
	items []model.Notification
	now   Clock
	newID func() string
}

// NewRepository creates an empty repository.
func NewRepository(opts ...Option) *Repository {
	r := &Repository{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Insert assigns an id and creation time to d, clears the state flags and
// prepends the record. The stored notification is returned.
func (r *Repository) Insert(d model.Draft) model.Notification {
	n := model.Notification{
		ID:                r.newID(),
		Type:              d.Type,
		Category:          d.Category,
		Priority:          d.Priority,
		Title:             d.Title,
		Message:           d.Message,
		UserID:            d.UserID,
		RelatedEntityID:   d.RelatedEntityID,
		RelatedEntityType: d.RelatedEntityType,
		Metadata:          d.Metadata,
		ExpiresAt:         d.ExpiresAt,
		CreatedAt:         r.now(),
	}
	if n.Type == "" {
		n.Type = model.TypeInfo
	}
	if n.Priority == "" {
		n.Priority = model.PriorityLow
	}
	n = n.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append([]model.Notification{n}, r.items...)
	return n.Clone()
}

// MarkRead marks one notification read. Already-read notifications keep
// their original ReadAt.
func (r *Repository) MarkRead(id string) {
	r.update(id, func(n *model.Notification) {
		if n.IsRead {
			return
		}
		at := r.now()
		n.IsRead = true
		n.ReadAt = &at
	})
}

// MarkAllRead marks every notification read. Unlike MarkRead it stamps a
// fresh ReadAt on already-read items too; consumers rely on this.
func (r *Repository) MarkAllRead() {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := r.now()
	next := make([]model.Notification, len(r.items))
	for i, n := range r.items {
		n = n.Clone()
		stamp := at
		n.IsRead = true
		n.ReadAt = &stamp
		next[i] = n
	}
	r.items = next
}

// TogglePin flips the pinned flag.
func (r *Repository) TogglePin(id string) {
	r.update(id, func(n *model.Notification) {
		n.IsPinned = !n.IsPinned
	})
}

// ToggleArchive flips the archived flag.
func (r *Repository) ToggleArchive(id string) {
	r.update(id, func(n *model.Notification) {
		n.IsArchived = !n.IsArchived
	})
}

// Delete removes a notification by id.
func (r *Repository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, n := range r.items {
		if n.ID == id {
			next := make([]model.Notification, 0, len(r.items)-1)
			next = append(next, r.items[:i]...)
			r.items = append(next, r.items[i+1:]...)
			return
		}
	}
}

// SweepExpired removes every notification whose ExpiresAt is set and not
// after now, returning how many were removed.
func (r *Repository) SweepExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := make([]model.Notification, 0, len(r.items))
	for _, n := range r.items {
		if n.Expired(now) {
			continue
		}
		kept = append(kept, n)
	}
	removed := len(r.items) - len(kept)
	r.items = kept
	return removed
}

// Get returns a copy of the notification with the given id.
func (r *Repository) Get(id string) (model.Notification, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, n := range r.items {
		if n.ID == id {
			return n.Clone(), true
		}
	}
	return model.Notification{}, false
}

// All returns a copy of every notification in storage order.
func (r *Repository) All() []model.Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Notification, len(r.items))
	for i, n := range r.items {
		out[i] = n.Clone()
	}
	return out
}

// Len returns the number of stored notifications.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Replace swaps the whole collection, e.g. when restoring a snapshot.
// items must already be in storage order.
func (r *Repository) Replace(items []model.Notification) {
	next := make([]model.Notification, len(items))
	for i, n := range items {
		next[i] = n.Clone()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = next
}

// update applies fn to a copy of the notification with the given id and
// stores the copy in its place. Missing ids are ignored.
func (r *Repository) update(id string, fn func(n *model.Notification)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, n := range r.items {
		if n.ID != id {
			continue
		}
		n = n.Clone()
		fn(&n)
		r.items[i] = n
		return
	}
}

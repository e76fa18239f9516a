package notify

import (
	"cmp"
	"slices"
	"strings"

	"github.com/nhle/notification-engine/internal/model"
)

// Filter selects notifications. Zero-valued fields do not filter.
type Filter struct {
	Category   model.Category `form:"category" json:"category"`
	Query      string         `form:"q" json:"q"`
	UnreadOnly bool           `form:"unread" json:"unread"`
	Priority   model.Priority `form:"priority" json:"priority"`
	UserID     string         `form:"user" json:"user"`
}

// Stats is an aggregate view over the whole collection.
type Stats struct {
	Total      int                    `json:"total"`
	Unread     int                    `json:"unread"`
	ByCategory map[model.Category]int `json:"by_category"`
	ByPriority map[model.Priority]int `json:"by_priority"`
}

// Query is the stateless read layer. Every call pulls a fresh copy from
// the repository; nothing is cached between calls.
type Query struct {
	repo *Repository
}

// NewQuery creates a query layer over repo.
func NewQuery(repo *Repository) *Query {
	return &Query{repo: repo}
}

// UnreadCount returns the number of unread notifications.
func (q *Query) UnreadCount() int {
	count := 0
	for _, n := range q.repo.All() {
		if !n.IsRead {
			count++
		}
	}
	return count
}

// UnreadCountByCategory returns the number of unread notifications in cat.
func (q *Query) UnreadCountByCategory(cat model.Category) int {
	count := 0
	for _, n := range q.repo.All() {
		if !n.IsRead && n.Category == cat {
			count++
		}
	}
	return count
}

// Filtered sorts the full working copy and then applies, in order, the
// category, text query, unread, priority and user filters.
func (q *Query) Filtered(f Filter) []model.Notification {
	items := Sorted(q.repo.All())

	needle := strings.ToLower(strings.TrimSpace(f.Query))
	out := items[:0]
	for _, n := range items {
		if f.Category != "" && n.Category != f.Category {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(n.Title), needle) &&
			!strings.Contains(strings.ToLower(n.Message), needle) {
			continue
		}
		if f.UnreadOnly && n.IsRead {
			continue
		}
		if f.Priority != "" && n.Priority != f.Priority {
			continue
		}
		if f.UserID != "" && n.UserID != f.UserID {
			continue
		}
		out = append(out, n)
	}
	return out
}

// ByCategory returns the sorted notifications in cat.
func (q *Query) ByCategory(cat model.Category) []model.Notification {
	return q.Filtered(Filter{Category: cat})
}

// ByPriority returns the sorted notifications with priority p.
func (q *Query) ByPriority(p model.Priority) []model.Notification {
	return q.Filtered(Filter{Priority: p})
}

// Recent returns at most limit notifications in sorted order.
func (q *Query) Recent(limit int) []model.Notification {
	if limit <= 0 {
		return []model.Notification{}
	}
	items := Sorted(q.repo.All())
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

// Stats computes totals and breakdowns in a single pass.
func (q *Query) Stats() Stats {
	s := Stats{
		ByCategory: make(map[model.Category]int),
		ByPriority: make(map[model.Priority]int),
	}
	for _, n := range q.repo.All() {
		s.Total++
		if !n.IsRead {
			s.Unread++
		}
		s.ByCategory[n.Category]++
		s.ByPriority[n.Priority]++
	}
	return s
}

// Sorted orders items pinned first, then by CreatedAt descending. The sort
// is stable, so equal timestamps keep their storage order. items is
// sorted in place and returned.
func Sorted(items []model.Notification) []model.Notification {
	slices.SortStableFunc(items, func(a, b model.Notification) int {
		if a.IsPinned != b.IsPinned {
			if a.IsPinned {
				return -1
			}
			return 1
		}
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	return items
}

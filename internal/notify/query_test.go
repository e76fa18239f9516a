package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notification-engine/internal/model"
)

// assertSortContract checks pinned-before-unpinned and non-increasing
// CreatedAt within each pin group.
func assertSortContract(t *testing.T, items []model.Notification) {
	t.Helper()
	for i := 1; i < len(items); i++ {
		prev, cur := items[i-1], items[i]
		if prev.IsPinned != cur.IsPinned {
			assert.True(t, prev.IsPinned, "unpinned item %s before pinned item %s", prev.ID, cur.ID)
			continue
		}
		assert.False(t, cur.CreatedAt.After(prev.CreatedAt), "items %s and %s out of order", prev.ID, cur.ID)
	}
}

func seed(t *testing.T) (*Repository, *Query, map[string]model.Notification) {
	t.Helper()
	repo, _ := newTestRepository(t)
	byTitle := map[string]model.Notification{}
	for _, d := range []model.Draft{
		draft("Concrete pour scheduled", model.CategoryProject, model.PriorityHigh),
		draft("New chat from Dana", model.CategoryChat, model.PriorityMedium),
		draft("Invoice overdue", model.CategoryBilling, model.PriorityUrgent),
		draft("Inspection task assigned", model.CategoryTask, model.PriorityMedium),
		draft("Password changed", model.CategorySecurity, model.PriorityLow),
	} {
		n := repo.Insert(d)
		byTitle[n.Title] = n
	}
	return repo, NewQuery(repo), byTitle
}

func TestFilteredSortsPinnedFirstThenNewest(t *testing.T) {
	repo, q, byTitle := seed(t)
	oldest := byTitle["Concrete pour scheduled"]
	middle := byTitle["Invoice overdue"]
	repo.TogglePin(oldest.ID)
	repo.TogglePin(middle.ID)

	got := q.Filtered(Filter{})
	require.Len(t, got, 5)
	assert.Equal(t, middle.ID, got[0].ID)
	assert.Equal(t, oldest.ID, got[1].ID)
	assert.Equal(t, byTitle["Password changed"].ID, got[2].ID)
	assertSortContract(t, got)
}

func TestFilteredAppliesFiltersWithAnd(t *testing.T) {
	repo, q, byTitle := seed(t)
	repo.MarkRead(byTitle["New chat from Dana"].ID)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filter", Filter{}, []string{
			"Password changed", "Inspection task assigned", "Invoice overdue",
			"New chat from Dana", "Concrete pour scheduled",
		}},
		{"category", Filter{Category: model.CategoryChat}, []string{"New chat from Dana"}},
		{"query matches title case-insensitively", Filter{Query: "INVOICE"}, []string{"Invoice overdue"}},
		{"query matches message", Filter{Query: "pour scheduled body"}, []string{"Concrete pour scheduled"}},
		{"unread only", Filter{UnreadOnly: true, Category: model.CategoryChat}, []string{}},
		{"priority", Filter{Priority: model.PriorityMedium}, []string{"Inspection task assigned", "New chat from Dana"}},
		{"category and priority disagree", Filter{Category: model.CategoryBilling, Priority: model.PriorityLow}, []string{}},
		{"user", Filter{UserID: "someone-else"}, []string{}},
		{"blank query passes through", Filter{Query: "   ", Category: model.CategoryTask}, []string{"Inspection task assigned"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := q.Filtered(tt.filter)
			titles := make([]string, 0, len(got))
			for _, n := range got {
				titles = append(titles, n.Title)
			}
			assert.Equal(t, tt.want, titles)
			assertSortContract(t, got)
		})
	}
}

func TestUnreadCountMatchesUnreadFilter(t *testing.T) {
	repo, q, byTitle := seed(t)
	repo.MarkRead(byTitle["Invoice overdue"].ID)
	repo.MarkRead(byTitle["Password changed"].ID)

	assert.Equal(t, 3, q.UnreadCount())
	assert.Equal(t, q.UnreadCount(), len(q.Filtered(Filter{UnreadOnly: true})))
	assert.Equal(t, 1, q.UnreadCountByCategory(model.CategoryChat))
	assert.Equal(t, 0, q.UnreadCountByCategory(model.CategoryBilling))
}

func TestByCategoryAndPriority(t *testing.T) {
	_, q, _ := seed(t)

	assert.Len(t, q.ByCategory(model.CategoryProject), 1)
	assert.Len(t, q.ByPriority(model.PriorityMedium), 2)
	assert.Empty(t, q.ByCategory(model.CategoryUser))
}

func TestRecent(t *testing.T) {
	repo, q, byTitle := seed(t)
	repo.TogglePin(byTitle["Concrete pour scheduled"].ID)

	got := q.Recent(2)
	require.Len(t, got, 2)
	assert.Equal(t, "Concrete pour scheduled", got[0].Title)
	assert.Equal(t, "Password changed", got[1].Title)

	assert.Len(t, q.Recent(50), 5)
	assert.Empty(t, q.Recent(0))
}

func TestStats(t *testing.T) {
	repo, q, byTitle := seed(t)
	repo.MarkRead(byTitle["Password changed"].ID)

	s := q.Stats()
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 4, s.Unread)
	assert.Equal(t, 1, s.ByCategory[model.CategoryChat])
	assert.Equal(t, 2, s.ByPriority[model.PriorityMedium])
	assert.Equal(t, 1, s.ByPriority[model.PriorityUrgent])
}

func TestChatScenarioEndToEnd(t *testing.T) {
	repo, _ := newTestRepository(t)
	q := NewQuery(repo)

	n := repo.Insert(draft("Site chat", model.CategoryChat, model.PriorityMedium))

	got := q.Filtered(Filter{Category: model.CategoryChat})
	require.Len(t, got, 1)
	assert.Equal(t, n.ID, got[0].ID)

	repo.MarkAllRead()
	assert.Equal(t, 0, q.UnreadCount())
	stored, _ := repo.Get(n.ID)
	assert.NotNil(t, stored.ReadAt)
}

package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notification-engine/internal/model"
	"github.com/nhle/notification-engine/tests/testutil"
)

var epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// newTestRepository returns a repository whose clock advances one minute
// per call, so every insert has a distinct CreatedAt.
func newTestRepository(t *testing.T) (*Repository, *testutil.Clock) {
	t.Helper()
	clock := testutil.NewClock(epoch)
	return NewRepository(WithClock(clock.Ticking(time.Minute))), clock
}

func draft(title string, cat model.Category, p model.Priority) model.Draft {
	return model.Draft{
		Type:     model.TypeInfo,
		Category: cat,
		Priority: p,
		Title:    title,
		Message:  title + " body",
		UserID:   "u1",
	}
}

// assertReadInvariant checks that ReadAt is set exactly when IsRead is.
func assertReadInvariant(t *testing.T, items []model.Notification) {
	t.Helper()
	for _, n := range items {
		assert.Equal(t, n.IsRead, n.ReadAt != nil, "notification %s", n.ID)
	}
}

func TestInsertAssignsIdentityAndPrepends(t *testing.T) {
	repo, _ := newTestRepository(t)

	first := repo.Insert(draft("first", model.CategoryChat, model.PriorityMedium))
	second := repo.Insert(draft("second", model.CategoryProject, model.PriorityHigh))

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.IsRead)
	assert.False(t, first.IsPinned)
	assert.False(t, first.IsArchived)
	assert.Nil(t, first.ReadAt)
	assert.True(t, second.CreatedAt.After(first.CreatedAt))

	all := repo.All()
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)
}

func TestInsertDefaultsTypeAndPriority(t *testing.T) {
	repo, _ := newTestRepository(t)

	n := repo.Insert(model.Draft{Title: "bare", UserID: "u1"})
	assert.Equal(t, model.TypeInfo, n.Type)
	assert.Equal(t, model.PriorityLow, n.Priority)
}

func TestMarkRead(t *testing.T) {
	repo, _ := newTestRepository(t)
	n := repo.Insert(draft("a", model.CategoryChat, model.PriorityLow))

	repo.MarkRead(n.ID)
	got, ok := repo.Get(n.ID)
	require.True(t, ok)
	require.True(t, got.IsRead)
	require.NotNil(t, got.ReadAt)
	firstRead := *got.ReadAt

	repo.MarkRead(n.ID)
	got, _ = repo.Get(n.ID)
	assert.Equal(t, firstRead, *got.ReadAt, "second MarkRead must not restamp")

	repo.MarkRead("missing")
	assertReadInvariant(t, repo.All())
}

func TestMarkAllReadRestampsEveryItem(t *testing.T) {
	repo, _ := newTestRepository(t)
	a := repo.Insert(draft("a", model.CategoryChat, model.PriorityLow))
	repo.Insert(draft("b", model.CategoryTask, model.PriorityLow))

	repo.MarkRead(a.ID)
	before, _ := repo.Get(a.ID)

	repo.MarkAllRead()

	for _, n := range repo.All() {
		assert.True(t, n.IsRead)
	}
	after, _ := repo.Get(a.ID)
	assert.True(t, after.ReadAt.After(*before.ReadAt))
	assertReadInvariant(t, repo.All())
}

func TestTogglePinTwiceRestoresState(t *testing.T) {
	repo, _ := newTestRepository(t)
	n := repo.Insert(draft("a", model.CategoryChat, model.PriorityLow))

	repo.TogglePin(n.ID)
	got, _ := repo.Get(n.ID)
	assert.True(t, got.IsPinned)

	repo.TogglePin(n.ID)
	got, _ = repo.Get(n.ID)
	assert.False(t, got.IsPinned)
}

func TestPinAndArchiveAreIndependent(t *testing.T) {
	repo, _ := newTestRepository(t)
	n := repo.Insert(draft("a", model.CategoryChat, model.PriorityLow))

	repo.TogglePin(n.ID)
	repo.ToggleArchive(n.ID)

	got, _ := repo.Get(n.ID)
	assert.True(t, got.IsPinned)
	assert.True(t, got.IsArchived)

	repo.ToggleArchive(n.ID)
	got, _ = repo.Get(n.ID)
	assert.True(t, got.IsPinned)
	assert.False(t, got.IsArchived)
}

func TestUnknownIDsAreNoOps(t *testing.T) {
	repo, _ := newTestRepository(t)
	n := repo.Insert(draft("a", model.CategoryChat, model.PriorityLow))
	before := repo.All()

	repo.MarkRead("nope")
	repo.TogglePin("nope")
	repo.ToggleArchive("nope")
	repo.Delete("nope")

	assert.Equal(t, before, repo.All())
	_, ok := repo.Get("nope")
	assert.False(t, ok)
	_, ok = repo.Get(n.ID)
	assert.True(t, ok)
}

func TestDelete(t *testing.T) {
	repo, _ := newTestRepository(t)
	a := repo.Insert(draft("a", model.CategoryChat, model.PriorityLow))
	b := repo.Insert(draft("b", model.CategoryChat, model.PriorityLow))
	c := repo.Insert(draft("c", model.CategoryChat, model.PriorityLow))

	repo.Delete(b.ID)

	all := repo.All()
	require.Len(t, all, 2)
	assert.Equal(t, c.ID, all[0].ID)
	assert.Equal(t, a.ID, all[1].ID)
}

func TestSweepExpired(t *testing.T) {
	repo, _ := newTestRepository(t)
	now := epoch.Add(time.Hour)
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	expired := draft("expired", model.CategorySystem, model.PriorityLow)
	expired.ExpiresAt = &past
	boundary := draft("boundary", model.CategorySystem, model.PriorityLow)
	boundary.ExpiresAt = &now
	later := draft("later", model.CategorySystem, model.PriorityLow)
	later.ExpiresAt = &future

	repo.Insert(expired)
	repo.Insert(boundary)
	kept := repo.Insert(later)
	forever := repo.Insert(draft("forever", model.CategorySystem, model.PriorityLow))

	removed := repo.SweepExpired(now)
	assert.Equal(t, 2, removed)

	all := repo.All()
	require.Len(t, all, 2)
	assert.Equal(t, forever.ID, all[0].ID)
	assert.Equal(t, kept.ID, all[1].ID)
}

func TestReadsDoNotAliasState(t *testing.T) {
	repo, _ := newTestRepository(t)
	d := draft("a", model.CategoryChat, model.PriorityLow)
	d.Metadata = map[string]string{"source": "chat"}
	n := repo.Insert(d)

	d.Metadata["source"] = "mutated draft"
	all := repo.All()
	all[0].Metadata["source"] = "mutated copy"
	all[0].IsPinned = true

	got, _ := repo.Get(n.ID)
	assert.Equal(t, "chat", got.Metadata["source"])
	assert.False(t, got.IsPinned)
}

func TestReplace(t *testing.T) {
	repo, _ := newTestRepository(t)
	repo.Insert(draft("old", model.CategoryChat, model.PriorityLow))

	repo.Replace([]model.Notification{
		{ID: "n2", Title: "two", CreatedAt: epoch.Add(2 * time.Minute)},
		{ID: "n1", Title: "one", CreatedAt: epoch.Add(time.Minute)},
	})

	assert.Equal(t, 2, repo.Len())
	_, ok := repo.Get("n1")
	assert.True(t, ok)
}

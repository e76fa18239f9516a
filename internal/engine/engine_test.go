package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notification-engine/internal/classify"
	"github.com/nhle/notification-engine/internal/delivery"
	"github.com/nhle/notification-engine/internal/model"
	"github.com/nhle/notification-engine/internal/notify"
	"github.com/nhle/notification-engine/tests/testutil"
)

func ptr[T any](v T) *T { return &v }

func newTestEngine(t *testing.T) (*Engine, *testutil.Clock) {
	t.Helper()
	clock := testutil.NewClock(time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC))
	return New(Options{
		InternalDomains: []string{"buildright.com"},
		Clock:           clock.Now,
	}), clock
}

func TestChatScenario(t *testing.T) {
	e, _ := newTestEngine(t)

	n := e.AddNotification(model.Draft{
		Type:     model.TypeChat,
		Category: model.CategoryChat,
		Priority: model.PriorityMedium,
		Title:    "New message",
		Message:  "Foundation pour moved to Friday",
		UserID:   "u1",
	})

	got := e.Filtered(notify.Filter{Category: model.CategoryChat})
	require.Len(t, got, 1)
	assert.Equal(t, n.ID, got[0].ID)
	assert.Equal(t, 1, e.UnreadCount())
	assert.Equal(t, 1, e.UnreadCountByCategory(model.CategoryChat))

	e.MarkAllRead()
	assert.Zero(t, e.UnreadCount())
	stored, ok := e.Get(n.ID)
	require.True(t, ok)
	assert.NotNil(t, stored.ReadAt)
}

func TestWritesOnUnknownIDsAreNoOps(t *testing.T) {
	e, _ := newTestEngine(t)
	e.AddNotification(model.Draft{Title: "a", UserID: "u1"})
	before := e.Snapshot().Notifications

	e.MarkRead("missing")
	e.TogglePin("missing")
	e.ToggleArchive("missing")
	e.Delete("missing")

	assert.Equal(t, before, e.Snapshot().Notifications)

	_, ok := e.Route("missing")
	assert.False(t, ok)
}

func TestIngestClassifiesAndInserts(t *testing.T) {
	e, _ := newTestEngine(t)

	n, r := e.Ingest("u1", model.RawMessage{
		Subject: "URGENT: budget",
		Content: "The project budget is over",
		Sender:  "pm@vendor.com",
	}, model.OriginMail)

	assert.Equal(t, classify.CategoryProjectRelated, r.Category)
	assert.Equal(t, 6, r.Score)
	assert.Equal(t, model.PriorityUrgent, n.Priority)
	assert.Equal(t, model.CategoryProject, n.Category)
	assert.Equal(t, []model.Notification{n}, e.ByPriority(model.PriorityUrgent))
	assert.Equal(t, []model.Notification{n}, e.ByCategory(model.CategoryProject))
	assert.Equal(t, 1, e.Stats().ByPriority[model.PriorityUrgent])
}

func TestSettingsRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t)

	assert.Nil(t, e.GetSettings("u1", model.CategoryBilling))

	e.UpdateSettings("u1", model.CategoryBilling, model.SettingsPatch{Enabled: ptr(false)})
	s := e.GetSettings("u1", model.CategoryBilling)
	require.NotNil(t, s)
	assert.False(t, s.Enabled)
	assert.Equal(t, "u1", s.UserID)
	assert.Equal(t, model.CategoryBilling, s.Category)

	assert.Equal(t, 1, e.ResetSettings("u1"))
	assert.Nil(t, e.GetSettings("u1", model.CategoryBilling))
}

func TestRouteUsesOwnerSettings(t *testing.T) {
	e, _ := newTestEngine(t)
	n := e.AddNotification(model.Draft{Category: model.CategoryBilling, Title: "Invoice", UserID: "u1"})

	d, ok := e.Route(n.ID)
	require.True(t, ok)
	assert.Equal(t, delivery.ReasonDelivered, d.Reason)

	e.UpdateSettings("u1", model.CategoryBilling, model.SettingsPatch{Frequency: ptr(model.FrequencyNever)})
	d, _ = e.Route(n.ID)
	assert.Equal(t, delivery.ReasonFrequencyNever, d.Reason)
	assert.Equal(t, delivery.OutcomeSuppressed, d.Channels[model.ChannelInApp])
}

func TestPermissions(t *testing.T) {
	e, _ := newTestEngine(t)

	p := e.GetPermission(model.RoleEmployee, model.CategoryChat)
	require.NotNil(t, p)
	assert.True(t, p.CanSend)

	e.UpdatePermission(model.RoleEmployee, model.CategoryChat, model.PermissionPatch{CanSend: ptr(false)})
	assert.False(t, e.GetPermission(model.RoleEmployee, model.CategoryChat).CanSend)
}

func TestClearExpired(t *testing.T) {
	e, clock := newTestEngine(t)
	soon := clock.Now().Add(time.Minute)
	e.AddNotification(model.Draft{Title: "expiring", ExpiresAt: &soon})
	e.AddNotification(model.Draft{Title: "kept"})

	assert.Zero(t, e.ClearExpired())
	clock.Advance(time.Minute)
	assert.Equal(t, 1, e.ClearExpired())
	assert.Len(t, e.Recent(10), 1)
}

func TestSnapshotRestore(t *testing.T) {
	src, _ := newTestEngine(t)
	src.AddNotification(model.Draft{Title: "kept", UserID: "u1"})
	src.UpdateSettings("u1", model.CategoryChat, model.SettingsPatch{Keywords: &[]string{"crane"}})
	src.UpdatePermission(model.RoleClient, model.CategoryTask, model.PermissionPatch{CanReceive: ptr(true)})

	snap := src.Snapshot()

	dst, _ := newTestEngine(t)
	dst.Restore(snap)

	assert.Equal(t, snap.Notifications, dst.Snapshot().Notifications)
	assert.Equal(t, []string{"crane"}, dst.GetSettings("u1", model.CategoryChat).Keywords)
	assert.True(t, dst.GetPermission(model.RoleClient, model.CategoryTask).CanReceive)

	// An empty permission list keeps the seeded table.
	dst.Restore(model.Snapshot{})
	assert.NotNil(t, dst.GetPermission(model.RoleAdmin, model.CategoryChat))
	assert.Zero(t, dst.Stats().Total)
}

// Package engine composes the notification repository, the preference
// and permission tables, the classifier and the delivery router behind a
// single read/write surface.
package engine

import (
	"log/slog"
	"time"

	"github.com/nhle/notification-engine/internal/classify"
	"github.com/nhle/notification-engine/internal/delivery"
	"github.com/nhle/notification-engine/internal/model"
	"github.com/nhle/notification-engine/internal/notify"
	"github.com/nhle/notification-engine/internal/preference"
)

// Options configures an Engine.
type Options struct {
	// InternalDomains are the sender domains treated as internal team.
	InternalDomains []string
	// Permissions seeds the role table. Nil uses the built-in defaults.
	Permissions []model.Permission
	// Clock overrides time.Now.
	Clock  func() time.Time
	Logger *slog.Logger
}

// Engine is the application core.
type Engine struct {
	repo        *notify.Repository
	query       *notify.Query
	settings    *preference.Resolver
	permissions *preference.Permissions
	router      *delivery.Router
	classifier  *classify.Classifier
	now         func() time.Time
	logger      *slog.Logger
}

// New builds an engine with empty state.
func New(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Permissions == nil {
		opts.Permissions = preference.DefaultPermissions()
	}

	repo := notify.NewRepository(notify.WithClock(opts.Clock))
	settings := preference.NewResolver(opts.Clock)

	return &Engine{
		repo:        repo,
		query:       notify.NewQuery(repo),
		settings:    settings,
		permissions: preference.NewPermissions(opts.Permissions),
		router:      delivery.NewRouter(settings, opts.Logger),
		classifier:  classify.New(opts.InternalDomains...),
		now:         opts.Clock,
		logger:      opts.Logger,
	}
}

// Repository exposes the notification store for the change bridge.
func (e *Engine) Repository() *notify.Repository { return e.repo }

// Classifier exposes the configured classifier for the change bridge.
func (e *Engine) Classifier() *classify.Classifier { return e.classifier }

func (e *Engine) UnreadCount() int { return e.query.UnreadCount() }

func (e *Engine) UnreadCountByCategory(cat model.Category) int {
	return e.query.UnreadCountByCategory(cat)
}

func (e *Engine) Filtered(f notify.Filter) []model.Notification { return e.query.Filtered(f) }

func (e *Engine) ByCategory(cat model.Category) []model.Notification {
	return e.query.ByCategory(cat)
}

func (e *Engine) ByPriority(p model.Priority) []model.Notification {
	return e.query.ByPriority(p)
}

func (e *Engine) Recent(limit int) []model.Notification { return e.query.Recent(limit) }

func (e *Engine) Stats() notify.Stats { return e.query.Stats() }

// Get returns one notification by id.
func (e *Engine) Get(id string) (model.Notification, bool) { return e.repo.Get(id) }

// GetSettings returns the stored settings or nil; it never substitutes
// defaults.
func (e *Engine) GetSettings(userID string, cat model.Category) *model.Settings {
	return e.settings.Get(userID, cat)
}

// GetPermission returns the role's permission for cat or nil.
func (e *Engine) GetPermission(role model.Role, cat model.Category) *model.Permission {
	return e.permissions.Get(role, cat)
}

// AddNotification inserts a caller-built notification.
func (e *Engine) AddNotification(d model.Draft) model.Notification {
	n := e.repo.Insert(d)
	e.logger.Debug("notification added",
		"id", n.ID,
		"user", n.UserID,
		"category", n.Category,
		"priority", n.Priority,
	)
	return n
}

func (e *Engine) MarkRead(id string) { e.repo.MarkRead(id) }

func (e *Engine) MarkAllRead() { e.repo.MarkAllRead() }

func (e *Engine) TogglePin(id string) { e.repo.TogglePin(id) }

func (e *Engine) ToggleArchive(id string) { e.repo.ToggleArchive(id) }

func (e *Engine) Delete(id string) { e.repo.Delete(id) }

// ClearExpired removes notifications whose expiry has passed and returns
// how many were removed.
func (e *Engine) ClearExpired() int {
	removed := e.repo.SweepExpired(e.now())
	if removed > 0 {
		e.logger.Info("expired notifications cleared", "count", removed)
	}
	return removed
}

// UpdateSettings merges patch into the user's settings for cat.
func (e *Engine) UpdateSettings(userID string, cat model.Category, patch model.SettingsPatch) model.Settings {
	return e.settings.Upsert(userID, cat, patch)
}

// ResetSettings drops every stored setting for the user and returns how
// many were removed.
func (e *Engine) ResetSettings(userID string) int {
	return e.settings.ResetAll(userID)
}

// UpdatePermission merges patch into the role's permission for cat.
func (e *Engine) UpdatePermission(role model.Role, cat model.Category, patch model.PermissionPatch) model.Permission {
	return e.permissions.Update(role, cat, patch)
}

// Ingest classifies raw and inserts the resulting notification for userID.
func (e *Engine) Ingest(userID string, raw model.RawMessage, origin model.Origin) (model.Notification, classify.Result) {
	d, r := e.classifier.Draft(userID, raw, origin)
	n := e.repo.Insert(d)
	e.logger.Debug("message ingested",
		"id", n.ID,
		"origin", origin,
		"classification", r.Category,
		"score", r.Score,
	)
	return n, r
}

// Route returns the delivery decision for the notification with id, as
// of now. It reports false when the id is unknown.
func (e *Engine) Route(id string) (delivery.Decision, bool) {
	n, ok := e.repo.Get(id)
	if !ok {
		return delivery.Decision{}, false
	}
	return e.router.Route(n, e.now()), true
}

// Snapshot copies the whole engine state.
func (e *Engine) Snapshot() model.Snapshot {
	return model.Snapshot{
		Notifications: e.repo.All(),
		Settings:      e.settings.All(),
		Permissions:   e.permissions.All(),
		TakenAt:       e.now(),
	}
}

// Restore replaces the engine state with s. An empty permission list
// keeps the current table.
func (e *Engine) Restore(s model.Snapshot) {
	e.repo.Replace(s.Notifications)
	e.settings.Replace(s.Settings)
	if len(s.Permissions) > 0 {
		e.permissions.Replace(s.Permissions)
	}
	e.logger.Info("state restored",
		"notifications", len(s.Notifications),
		"settings", len(s.Settings),
		"permissions", len(s.Permissions),
	)
}

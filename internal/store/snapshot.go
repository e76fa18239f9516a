package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/notification-engine/internal/model"
)

// Timestamps are stored as Unix nanoseconds so a snapshot round trip
// returns the exact instant; 0 stands for the zero time.

type notificationRow struct {
	ID                string        `db:"id"`
	Position          int           `db:"position"`
	Type              string        `db:"type"`
	Category          string        `db:"category"`
	Priority          string        `db:"priority"`
	Title             string        `db:"title"`
	Message           string        `db:"message"`
	IsRead            int           `db:"is_read"`
	IsArchived        int           `db:"is_archived"`
	IsPinned          int           `db:"is_pinned"`
	UserID            string        `db:"user_id"`
	RelatedEntityID   string        `db:"related_entity_id"`
	RelatedEntityType string        `db:"related_entity_type"`
	Metadata          string        `db:"metadata"`
	CreatedAt         int64         `db:"created_at"`
	ReadAt            sql.NullInt64 `db:"read_at"`
	ExpiresAt         sql.NullInt64 `db:"expires_at"`
}

type settingsRow struct {
	UserID          string `db:"user_id"`
	Category        string `db:"category"`
	Enabled         int    `db:"enabled"`
	Channels        string `db:"channels"`
	Frequency       string `db:"frequency"`
	QuietHours      string `db:"quiet_hours"`
	Keywords        string `db:"keywords"`
	ExcludeKeywords string `db:"exclude_keywords"`
	CreatedAt       int64  `db:"created_at"`
	UpdatedAt       int64  `db:"updated_at"`
}

type permissionRow struct {
	Role         string `db:"role"`
	Category     string `db:"category"`
	CanReceive   int    `db:"can_receive"`
	CanConfigure int    `db:"can_configure"`
	CanSend      int    `db:"can_send"`
	CanManage    int    `db:"can_manage"`
	Restrictions string `db:"restrictions"`
}

// SaveSnapshot replaces every persisted row with the contents of snap in
// a single transaction.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap model.Snapshot) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"notifications", "settings", "permissions", "snapshot_meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	if err := insertNotifications(ctx, tx, snap.Notifications); err != nil {
		return err
	}
	if err := insertSettings(ctx, tx, snap.Settings); err != nil {
		return err
	}
	if err := insertPermissions(ctx, tx, snap.Permissions); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO snapshot_meta (id, taken_at) VALUES (1, ?)",
		toNanos(snap.TakenAt),
	); err != nil {
		return fmt.Errorf("writing snapshot meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads every persisted row back into a snapshot.
// Notifications keep the order they were saved in.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context) (model.Snapshot, error) {
	var snap model.Snapshot

	var nrows []notificationRow
	if err := s.db.SelectContext(ctx, &nrows, `
		SELECT id, position, type, category, priority, title, message,
			is_read, is_archived, is_pinned, user_id,
			related_entity_id, related_entity_type, metadata,
			created_at, read_at, expires_at
		FROM notifications ORDER BY position`); err != nil {
		return model.Snapshot{}, fmt.Errorf("querying notifications: %w", err)
	}
	for _, r := range nrows {
		n, err := r.toModel()
		if err != nil {
			return model.Snapshot{}, err
		}
		snap.Notifications = append(snap.Notifications, n)
	}

	var srows []settingsRow
	if err := s.db.SelectContext(ctx, &srows, `
		SELECT user_id, category, enabled, channels, frequency, quiet_hours,
			keywords, exclude_keywords, created_at, updated_at
		FROM settings ORDER BY user_id, category`); err != nil {
		return model.Snapshot{}, fmt.Errorf("querying settings: %w", err)
	}
	for _, r := range srows {
		st, err := r.toModel()
		if err != nil {
			return model.Snapshot{}, err
		}
		snap.Settings = append(snap.Settings, st)
	}

	var prows []permissionRow
	if err := s.db.SelectContext(ctx, &prows, `
		SELECT role, category, can_receive, can_configure, can_send,
			can_manage, restrictions
		FROM permissions ORDER BY role, category`); err != nil {
		return model.Snapshot{}, fmt.Errorf("querying permissions: %w", err)
	}
	for _, r := range prows {
		p, err := r.toModel()
		if err != nil {
			return model.Snapshot{}, err
		}
		snap.Permissions = append(snap.Permissions, p)
	}

	var takenAt int64
	err := s.db.GetContext(ctx, &takenAt, "SELECT taken_at FROM snapshot_meta WHERE id = 1")
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return model.Snapshot{}, fmt.Errorf("reading snapshot meta: %w", err)
	default:
		snap.TakenAt = fromNanos(takenAt)
	}

	return snap, nil
}

func insertNotifications(ctx context.Context, tx *sqlx.Tx, items []model.Notification) error {
	const query = `
		INSERT INTO notifications (
			id, position, type, category, priority, title, message,
			is_read, is_archived, is_pinned, user_id,
			related_entity_id, related_entity_type, metadata,
			created_at, read_at, expires_at
		) VALUES (
			:id, :position, :type, :category, :priority, :title, :message,
			:is_read, :is_archived, :is_pinned, :user_id,
			:related_entity_id, :related_entity_type, :metadata,
			:created_at, :read_at, :expires_at
		)`

	for i, n := range items {
		metadata, err := json.Marshal(n.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for notification %s: %w", n.ID, err)
		}

		row := notificationRow{
			ID:                n.ID,
			Position:          i,
			Type:              string(n.Type),
			Category:          string(n.Category),
			Priority:          string(n.Priority),
			Title:             n.Title,
			Message:           n.Message,
			IsRead:            boolToInt(n.IsRead),
			IsArchived:        boolToInt(n.IsArchived),
			IsPinned:          boolToInt(n.IsPinned),
			UserID:            n.UserID,
			RelatedEntityID:   n.RelatedEntityID,
			RelatedEntityType: string(n.RelatedEntityType),
			Metadata:          string(metadata),
			CreatedAt:         toNanos(n.CreatedAt),
			ReadAt:            nullNanos(n.ReadAt),
			ExpiresAt:         nullNanos(n.ExpiresAt),
		}
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("inserting notification %s: %w", n.ID, err)
		}
	}
	return nil
}

func insertSettings(ctx context.Context, tx *sqlx.Tx, items []model.Settings) error {
	const query = `
		INSERT INTO settings (
			user_id, category, enabled, channels, frequency, quiet_hours,
			keywords, exclude_keywords, created_at, updated_at
		) VALUES (
			:user_id, :category, :enabled, :channels, :frequency, :quiet_hours,
			:keywords, :exclude_keywords, :created_at, :updated_at
		)`

	for _, st := range items {
		row := settingsRow{
			UserID:    st.UserID,
			Category:  string(st.Category),
			Enabled:   boolToInt(st.Enabled),
			Frequency: string(st.Frequency),
			CreatedAt: toNanos(st.CreatedAt),
			UpdatedAt: toNanos(st.UpdatedAt),
		}

		fields := []struct {
			dest *string
			v    any
		}{
			{&row.Channels, st.Channels},
			{&row.QuietHours, st.QuietHours},
			{&row.Keywords, st.Keywords},
			{&row.ExcludeKeywords, st.ExcludeKeywords},
		}
		for _, f := range fields {
			encoded, err := marshalString(f.v)
			if err != nil {
				return fmt.Errorf("marshaling settings %s/%s: %w", st.UserID, st.Category, err)
			}
			*f.dest = encoded
		}

		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("inserting settings %s/%s: %w", st.UserID, st.Category, err)
		}
	}
	return nil
}

func insertPermissions(ctx context.Context, tx *sqlx.Tx, items []model.Permission) error {
	const query = `
		INSERT INTO permissions (
			role, category, can_receive, can_configure, can_send,
			can_manage, restrictions
		) VALUES (
			:role, :category, :can_receive, :can_configure, :can_send,
			:can_manage, :restrictions
		)`

	for _, p := range items {
		restrictions, err := marshalString(p.Restrictions)
		if err != nil {
			return fmt.Errorf("marshaling restrictions %s/%s: %w", p.Role, p.Category, err)
		}

		row := permissionRow{
			Role:         string(p.Role),
			Category:     string(p.Category),
			CanReceive:   boolToInt(p.CanReceive),
			CanConfigure: boolToInt(p.CanConfigure),
			CanSend:      boolToInt(p.CanSend),
			CanManage:    boolToInt(p.CanManage),
			Restrictions: restrictions,
		}
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("inserting permission %s/%s: %w", p.Role, p.Category, err)
		}
	}
	return nil
}

func (r notificationRow) toModel() (model.Notification, error) {
	n := model.Notification{
		ID:                r.ID,
		Type:              model.NotificationType(r.Type),
		Category:          model.Category(r.Category),
		Priority:          model.Priority(r.Priority),
		Title:             r.Title,
		Message:           r.Message,
		IsRead:            r.IsRead != 0,
		IsArchived:        r.IsArchived != 0,
		IsPinned:          r.IsPinned != 0,
		UserID:            r.UserID,
		RelatedEntityID:   r.RelatedEntityID,
		RelatedEntityType: model.EntityType(r.RelatedEntityType),
		CreatedAt:         fromNanos(r.CreatedAt),
		ReadAt:            fromNullNanos(r.ReadAt),
		ExpiresAt:         fromNullNanos(r.ExpiresAt),
	}
	if err := json.Unmarshal([]byte(r.Metadata), &n.Metadata); err != nil {
		return model.Notification{}, fmt.Errorf("unmarshaling metadata for notification %s: %w", r.ID, err)
	}
	return n, nil
}

func (r settingsRow) toModel() (model.Settings, error) {
	st := model.Settings{
		UserID:    r.UserID,
		Category:  model.Category(r.Category),
		Enabled:   r.Enabled != 0,
		Frequency: model.Frequency(r.Frequency),
		CreatedAt: fromNanos(r.CreatedAt),
		UpdatedAt: fromNanos(r.UpdatedAt),
	}

	fields := []struct {
		raw  string
		dest any
	}{
		{r.Channels, &st.Channels},
		{r.QuietHours, &st.QuietHours},
		{r.Keywords, &st.Keywords},
		{r.ExcludeKeywords, &st.ExcludeKeywords},
	}
	for _, f := range fields {
		if err := json.Unmarshal([]byte(f.raw), f.dest); err != nil {
			return model.Settings{}, fmt.Errorf("unmarshaling settings %s/%s: %w", r.UserID, r.Category, err)
		}
	}
	return st, nil
}

func (r permissionRow) toModel() (model.Permission, error) {
	p := model.Permission{
		Role:         model.Role(r.Role),
		Category:     model.Category(r.Category),
		CanReceive:   r.CanReceive != 0,
		CanConfigure: r.CanConfigure != 0,
		CanSend:      r.CanSend != 0,
		CanManage:    r.CanManage != 0,
	}
	if err := json.Unmarshal([]byte(r.Restrictions), &p.Restrictions); err != nil {
		return model.Permission{}, fmt.Errorf("unmarshaling restrictions %s/%s: %w", r.Role, r.Category, err)
	}
	return p, nil
}

func marshalString(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func nullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toNanos(*t), Valid: true}
}

func fromNullNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}

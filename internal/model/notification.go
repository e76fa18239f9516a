package model

import "time"

// NotificationType is the informational kind of a notification. It only
// affects presentation, never routing.
type NotificationType string

const (
	TypeChat    NotificationType = "chat"
	TypeSuccess NotificationType = "success"
	TypeWarning NotificationType = "warning"
	TypeError   NotificationType = "error"
	TypeProject NotificationType = "project"
	TypeTask    NotificationType = "task"
	TypeSystem  NotificationType = "system"
	TypeInfo    NotificationType = "info"
)

// Category is the coarse bucket used for preference lookup and filtering.
type Category string

const (
	CategoryChat     Category = "chat"
	CategoryProject  Category = "project"
	CategoryTask     Category = "task"
	CategorySystem   Category = "system"
	CategoryUser     Category = "user"
	CategorySecurity Category = "security"
	CategoryBilling  Category = "billing"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryChat,
	CategoryProject,
	CategoryTask,
	CategorySystem,
	CategoryUser,
	CategorySecurity,
	CategoryBilling,
}

// Priority is the urgency tier of a notification.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists every priority from least to most urgent.
var Priorities = []Priority{
	PriorityLow,
	PriorityMedium,
	PriorityHigh,
	PriorityUrgent,
}

// EntityType identifies what a notification's related entity points at.
type EntityType string

const (
	EntityProject  EntityType = "project"
	EntityTask     EntityType = "task"
	EntityChat     EntityType = "chat"
	EntityUser     EntityType = "user"
	EntityDocument EntityType = "document"
)

// Notification is one deliverable item owned by a single user.
type Notification struct {
	// ID is the unique identifier, immutable once assigned.
	ID string `json:"id" db:"id"`

	Type     NotificationType `json:"type" db:"type"`
	Category Category         `json:"category" db:"category"`
	Priority Priority         `json:"priority" db:"priority"`

	Title   string `json:"title" db:"title"`
	Message string `json:"message" db:"message"`

	IsRead     bool `json:"is_read" db:"is_read"`
	IsArchived bool `json:"is_archived" db:"is_archived"`
	IsPinned   bool `json:"is_pinned" db:"is_pinned"`

	// UserID is the owner. Notifications are never shared.
	UserID string `json:"user_id" db:"user_id"`

	// RelatedEntityID and RelatedEntityType form a navigation-only link.
	RelatedEntityID   string     `json:"related_entity_id,omitempty" db:"related_entity_id"`
	RelatedEntityType EntityType `json:"related_entity_type,omitempty" db:"related_entity_type"`

	// Metadata carries source details such as conversation or message ids.
	Metadata map[string]string `json:"metadata,omitempty" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// ReadAt is non-nil exactly when IsRead is true.
	ReadAt *time.Time `json:"read_at,omitempty" db:"read_at"`

	// ExpiresAt makes the notification eligible for the expiry sweep once
	// it is not after the sweep instant.
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`
}

// Expired reports whether n has an expiry that is at or before now.
func (n Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && !n.ExpiresAt.After(now)
}

// Clone returns a deep copy so callers can never alias repository state.
func (n Notification) Clone() Notification {
	c := n
	if n.ReadAt != nil {
		t := *n.ReadAt
		c.ReadAt = &t
	}
	if n.ExpiresAt != nil {
		t := *n.ExpiresAt
		c.ExpiresAt = &t
	}
	if n.Metadata != nil {
		c.Metadata = make(map[string]string, len(n.Metadata))
		for k, v := range n.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}

// Draft is the caller-supplied part of a notification. Identity, creation
// time and state flags are assigned on insert.
type Draft struct {
	Type              NotificationType  `json:"type"`
	Category          Category          `json:"category"`
	Priority          Priority          `json:"priority"`
	Title             string            `json:"title"`
	Message           string            `json:"message"`
	UserID            string            `json:"user_id"`
	RelatedEntityID   string            `json:"related_entity_id,omitempty"`
	RelatedEntityType EntityType        `json:"related_entity_type,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	ExpiresAt         *time.Time        `json:"expires_at,omitempty"`
}

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case TypeChat, TypeSuccess, TypeWarning, TypeError,
		TypeProject, TypeTask, TypeSystem, TypeInfo:
		return true
	}
	return false
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	for _, known := range Priorities {
		if p == known {
			return true
		}
	}
	return false
}

// Valid reports whether e is a known related entity type.
func (e EntityType) Valid() bool {
	switch e {
	case EntityProject, EntityTask, EntityChat, EntityUser, EntityDocument:
		return true
	}
	return false
}

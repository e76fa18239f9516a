package model

import "time"

// Snapshot is the full persisted state of the engine.
type Snapshot struct {
	Notifications []Notification `json:"notifications"`
	Settings      []Settings     `json:"settings"`
	Permissions   []Permission   `json:"permissions"`
	TakenAt       time.Time      `json:"taken_at"`
}

package database

import (
	"database/sql"
	"time"
)

// Dispatch trigger kinds.
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
	TriggerTest      = "test"
)

// Delivery outcomes.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Dispatch records one end-to-end blessing cycle: which holiday, what text
// was composed, and whether an image made it out.
type Dispatch struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`

	Holiday   string         `db:"holiday"`
	Blessing  string         `db:"blessing"`
	ImagePath sql.NullString `db:"image_path"`
	Trigger   string         `db:"trigger_kind"`
}

// Delivery records the outcome of sending one dispatch to one target.
type Delivery struct {
	ID         uint      `db:"id"`
	DispatchID uint      `db:"dispatch_id"`
	CreatedAt  time.Time `db:"created_at"`

	Platform string         `db:"platform"`
	Kind     string         `db:"kind"`
	TargetID string         `db:"target_id"`
	Status   string         `db:"status"`
	Error    sql.NullString `db:"error"`
}

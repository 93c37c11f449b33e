package models

import (
	"time"

	"github.com/google/uuid"
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Log levels for run-scoped journal entries
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// SearchRun records one execution of a saved search: which session it
// produced, what it found and how it ended.
type SearchRun struct {
	ID            int64      `json:"id" db:"id"`
	SessionID     uuid.UUID  `json:"session_id" db:"session_id"`
	SearchName    string     `json:"search_name" db:"search_name"`
	Location      string     `json:"location" db:"location"`
	StartedAt     time.Time  `json:"started_at" db:"started_at"`
	FinishedAt    *time.Time `json:"finished_at" db:"finished_at"`
	Status        string     `json:"status" db:"status"`
	ListingsFound int        `json:"listings_found" db:"listings_found"`
	SnapshotKey   string     `json:"snapshot_key" db:"snapshot_key"`
}

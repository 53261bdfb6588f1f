package models

import (
	"encoding/json"
	"time"
)

type CommandType string

const (
	CmdCheckNow      CommandType = "check_now"
	CmdPause         CommandType = "pause"
	CmdResume        CommandType = "resume"
	CmdRunEnrichment CommandType = "run_enrichment"
	CmdRunLiveness   CommandType = "run_liveness"
)

// Command is an operational instruction queued in the local SQLite store
// and picked up by the scheduler's poll loop.
type Command struct {
	ID          int64           `json:"id" db:"id"`
	Command     CommandType     `json:"command" db:"command"`
	Params      json.RawMessage `json:"params" db:"params"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at" db:"processed_at"`
}

type CommandParams struct {
	AlertID string `json:"alert_id,omitempty"`
}

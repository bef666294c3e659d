package model

import "time"

// RunStatus represents the current state of a compliance run.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusLocalizing RunStatus = "localizing"
	RunStatusExtracting RunStatus = "extracting"
	RunStatusResolving  RunStatus = "resolving"
	RunStatusEvaluating RunStatus = "evaluating"
	RunStatusComplete   RunStatus = "complete"
	RunStatusFailed     RunStatus = "failed"
	RunStatusCancelled  RunStatus = "cancelled"
)

// Run represents a single compliance check for one listing.
type Run struct {
	ID        string            `json:"id"`
	Listing   ListingInput      `json:"listing"`
	Status    RunStatus         `json:"status"`
	Report    *ComplianceReport `json:"report,omitempty"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// PhaseStatus represents the current state of a pipeline phase.
type PhaseStatus string

const (
	PhaseStatusRunning  PhaseStatus = "running"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
	PhaseStatusSkipped  PhaseStatus = "skipped"
)

// PhaseResult holds the outcome of one pipeline phase, kept on the report for
// audit.
type PhaseResult struct {
	Name     string         `json:"name"`
	Status   PhaseStatus    `json:"status"`
	Duration int64          `json:"duration_ms"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

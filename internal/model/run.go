package model

import "time"

// RunStatus represents the current state of a download run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one invocation of the download pipeline against a data version.
type Run struct {
	ID          string     `json:"id" yaml:"id"`
	DataVersion string     `json:"data_version" yaml:"data_version"`
	Status      RunStatus  `json:"status" yaml:"status"`
	Result      *RunResult `json:"result,omitempty" yaml:"result,omitempty"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" yaml:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	Districts int           `json:"districts" yaml:"districts"`
	Fetched   int           `json:"fetched" yaml:"fetched"`
	Cached    int           `json:"cached" yaml:"cached"`
	Phases    []PhaseResult `json:"phases" yaml:"phases"`
}

// RunPhase represents a phase within a run.
type RunPhase struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	Name      string       `json:"name"`
	Status    PhaseStatus  `json:"status"`
	Result    *PhaseResult `json:"result,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// PhaseStatus represents the current state of a pipeline phase.
type PhaseStatus string

const (
	PhaseStatusRunning  PhaseStatus = "running"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
	PhaseStatusSkipped  PhaseStatus = "skipped"
)

// PhaseResult holds the outcome of a pipeline phase.
// Fetched counts network calls; Cached counts resources already on disk.
type PhaseResult struct {
	Name     string      `json:"name" yaml:"name"`
	Status   PhaseStatus `json:"status" yaml:"status"`
	Duration int64       `json:"duration_ms" yaml:"duration_ms"`
	Fetched  int         `json:"fetched" yaml:"fetched"`
	Cached   int         `json:"cached" yaml:"cached"`
	Error    string      `json:"error,omitempty" yaml:"error,omitempty"`
}

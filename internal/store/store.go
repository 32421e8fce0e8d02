// Package store records download runs and their phases. The ledger is
// advisory: the file cache alone decides what gets fetched.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/broadband-cli/internal/model"
)

// ErrRunNotFound is returned when a run or phase id does not exist.
var ErrRunNotFound = eris.New("run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status      model.RunStatus `json:"status,omitempty"`
	DataVersion string          `json:"data_version,omitempty"`
	Limit       int             `json:"limit,omitempty"`
	Offset      int             `json:"offset,omitempty"`
}

// defaultListLimit applies when RunFilter.Limit is not positive.
const defaultListLimit = 100

// Store defines the persistence interface for the run ledger.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, dataVersion string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	// UpdateRunResult stores the result and marks the run complete.
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	// FailRun stores the partial result and error message and marks the run failed.
	FailRun(ctx context.Context, runID string, result *model.RunResult, msg string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Phases
	CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error)
	CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error
	ListPhases(ctx context.Context, runID string) ([]model.RunPhase, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

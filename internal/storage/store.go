// Package storage persists assignments, generated artifacts, processing
// steps and LLM usage. SQLStore serves SQLite and Postgres; MemoryStore
// backs tests and dry runs.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahrav/go-grader/internal/configuration"
	"github.com/ahrav/go-grader/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// StepRecord is the persisted status of one processing step.
type StepRecord struct {
	Step   domain.Step       `json:"step"`
	Status domain.StepStatus `json:"status"`
}

// Store is everything the grader persists.
type Store interface {
	SaveAssignment(ctx context.Context, a *domain.Assignment) error
	LoadAssignment(ctx context.Context, id string) (*domain.Assignment, error)
	AssignmentStatus(ctx context.Context, id string) (domain.ProcessStatus, error)

	SaveRubric(ctx context.Context, r *domain.Rubric) error
	LoadRubric(ctx context.Context, assignmentID string) (*domain.Rubric, error)
	SaveStudentFeedback(ctx context.Context, f *domain.StudentFeedback) error
	ListStudentFeedback(ctx context.Context, assignmentID string) ([]domain.StudentFeedback, error)
	SaveAssignmentSummary(ctx context.Context, s *domain.AssignmentSummary) error
	LoadSummary(ctx context.Context, assignmentID string) (*domain.AssignmentSummary, error)

	InsertUsage(ctx context.Context, rec *domain.UsageRecord) error
	ListUsage(ctx context.Context, assignmentID string) ([]domain.UsageRecord, error)

	UpdateStep(ctx context.Context, assignmentID string, step domain.Step, status domain.StepStatus) error
	ListSteps(ctx context.Context, assignmentID string) ([]StepRecord, error)
	UpdateStatus(ctx context.Context, subject domain.Processable, status domain.ProcessStatus) error

	Close() error
}

// Open returns the store selected by cfg, migrated and ready for use.
func Open(ctx context.Context, cfg configuration.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case DriverSQLite, DriverPostgres:
		s, err := OpenSQL(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ahrav/go-grader/internal/domain"
)

// MemoryStore is a process-local Store. Values are deep-copied on the way in
// and out so callers never share state with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	assignments map[string]*domain.Assignment
	statuses    map[string]domain.ProcessStatus
	workStatus  map[string]domain.ProcessStatus
	rubrics     map[string]*domain.Rubric
	feedback    map[string]*domain.StudentFeedback // by student work id
	summaries   map[string]*domain.AssignmentSummary
	usage       []domain.UsageRecord
	steps       map[string]map[domain.Step]domain.StepStatus
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assignments: make(map[string]*domain.Assignment),
		statuses:    make(map[string]domain.ProcessStatus),
		workStatus:  make(map[string]domain.ProcessStatus),
		rubrics:     make(map[string]*domain.Rubric),
		feedback:    make(map[string]*domain.StudentFeedback),
		summaries:   make(map[string]*domain.AssignmentSummary),
		steps:       make(map[string]map[domain.Step]domain.StepStatus),
	}
}

func (m *MemoryStore) SaveAssignment(_ context.Context, a *domain.Assignment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[a.ID] = copyAssignment(a)
	if _, ok := m.statuses[a.ID]; !ok {
		m.statuses[a.ID] = domain.StatusPending
	}
	return nil
}

func (m *MemoryStore) LoadAssignment(_ context.Context, id string) (*domain.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[id]
	if !ok {
		return nil, fmt.Errorf("assignment %s: %w", id, ErrNotFound)
	}
	return copyAssignment(a), nil
}

func (m *MemoryStore) AssignmentStatus(_ context.Context, id string) (domain.ProcessStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.statuses[id]
	if !ok {
		return "", fmt.Errorf("assignment %s: %w", id, ErrNotFound)
	}
	return st, nil
}

func (m *MemoryStore) SaveRubric(_ context.Context, r *domain.Rubric) error {
	if err := r.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rubrics[r.AssignmentID] = copyRubric(r)
	return nil
}

func (m *MemoryStore) LoadRubric(_ context.Context, assignmentID string) (*domain.Rubric, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rubrics[assignmentID]
	if !ok {
		return nil, fmt.Errorf("rubric for %s: %w", assignmentID, ErrNotFound)
	}
	return copyRubric(r), nil
}

func (m *MemoryStore) SaveStudentFeedback(_ context.Context, f *domain.StudentFeedback) error {
	if err := f.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedback[f.StudentWorkID] = copyFeedback(f)
	return nil
}

func (m *MemoryStore) ListStudentFeedback(_ context.Context, assignmentID string) ([]domain.StudentFeedback, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[assignmentID]
	if !ok {
		return nil, nil
	}
	var out []domain.StudentFeedback
	for _, w := range a.StudentWorks {
		if f, ok := m.feedback[w.ID]; ok {
			out = append(out, *copyFeedback(f))
		}
	}
	return out, nil
}

func (m *MemoryStore) SaveAssignmentSummary(_ context.Context, s *domain.AssignmentSummary) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *s
	c.Items = append([]domain.FeedbackItem(nil), s.Items...)
	m.summaries[s.AssignmentID] = &c
	return nil
}

func (m *MemoryStore) LoadSummary(_ context.Context, assignmentID string) (*domain.AssignmentSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.summaries[assignmentID]
	if !ok {
		return nil, fmt.Errorf("summary for %s: %w", assignmentID, ErrNotFound)
	}
	c := *s
	c.Items = append([]domain.FeedbackItem(nil), s.Items...)
	return &c, nil
}

func (m *MemoryStore) InsertUsage(_ context.Context, rec *domain.UsageRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage = append(m.usage, *rec)
	return nil
}

func (m *MemoryStore) ListUsage(_ context.Context, assignmentID string) ([]domain.UsageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	owned := map[string]bool{assignmentID: true}
	if a, ok := m.assignments[assignmentID]; ok {
		for _, w := range a.StudentWorks {
			owned[w.ID] = true
		}
	}
	var out []domain.UsageRecord
	for _, rec := range m.usage {
		if owned[rec.TrackableID] {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) UpdateStep(_ context.Context, assignmentID string, step domain.Step, status domain.StepStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	steps, ok := m.steps[assignmentID]
	if !ok {
		steps = make(map[domain.Step]domain.StepStatus)
		m.steps[assignmentID] = steps
	}
	steps[step] = status
	return nil
}

func (m *MemoryStore) ListSteps(_ context.Context, assignmentID string) ([]StepRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return orderSteps(m.steps[assignmentID]), nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, subject domain.Processable, status domain.ProcessStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch s := subject.(type) {
	case *domain.Assignment:
		if _, ok := m.assignments[s.ID]; !ok {
			return fmt.Errorf("%s %s: %w", s.Kind(), s.ID, ErrNotFound)
		}
		m.statuses[s.ID] = status
	case *domain.StudentWork:
		a, ok := m.assignments[s.AssignmentID]
		if !ok || !containsWork(a, s.ID) {
			return fmt.Errorf("%s %s: %w", s.Kind(), s.ID, ErrNotFound)
		}
		m.workStatus[s.ID] = status
	}
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

func containsWork(a *domain.Assignment, id string) bool {
	for _, w := range a.StudentWorks {
		if w.ID == id {
			return true
		}
	}
	return false
}

func copyAssignment(a *domain.Assignment) *domain.Assignment {
	c := *a
	c.StudentWorks = append([]domain.StudentWork(nil), a.StudentWorks...)
	return &c
}

func copyRubric(r *domain.Rubric) *domain.Rubric {
	c := *r
	c.Criteria = make([]domain.Criterion, len(r.Criteria))
	for i, cr := range r.Criteria {
		cr.Levels = append([]domain.Level(nil), cr.Levels...)
		c.Criteria[i] = cr
	}
	return &c
}

func copyFeedback(f *domain.StudentFeedback) *domain.StudentFeedback {
	c := *f
	c.Items = append([]domain.FeedbackItem(nil), f.Items...)
	c.CriterionLevels = append([]domain.CriterionLevel(nil), f.CriterionLevels...)
	return &c
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*SQLStore)(nil)

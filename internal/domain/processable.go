package domain

// ProcessableKind names the variant of a Processable.
type ProcessableKind string

// Processable variants.
const (
	KindAssignment  ProcessableKind = "assignment"
	KindStudentWork ProcessableKind = "student_work"
	KindSummary     ProcessableKind = "assignment_summary"
)

// Processable is the subject of one pipeline run. The set of implementations
// is closed: Assignment, StudentWork and SummarySubject.
type Processable interface {
	Kind() ProcessableKind
	// ProcessableID identifies the subject for usage records and broadcasts.
	ProcessableID() string
	// ParentAssignmentID is the assignment the subject belongs to.
	ParentAssignmentID() string

	processable()
}

// SummarySubject is the input of the summary stage: the assignment together
// with every successfully generated piece of student feedback.
type SummarySubject struct {
	Assignment *Assignment
	Feedbacks  []StudentFeedback
}

func (a *Assignment) Kind() ProcessableKind      { return KindAssignment }
func (a *Assignment) ProcessableID() string      { return a.ID }
func (a *Assignment) ParentAssignmentID() string { return a.ID }
func (a *Assignment) processable()               {}

func (w *StudentWork) Kind() ProcessableKind      { return KindStudentWork }
func (w *StudentWork) ProcessableID() string      { return w.ID }
func (w *StudentWork) ParentAssignmentID() string { return w.AssignmentID }
func (w *StudentWork) processable()               {}

func (s *SummarySubject) Kind() ProcessableKind { return KindSummary }

// ProcessableID returns the assignment id; summaries are tracked against it.
func (s *SummarySubject) ProcessableID() string      { return s.Assignment.ID }
func (s *SummarySubject) ParentAssignmentID() string { return s.Assignment.ID }
func (s *SummarySubject) processable()               {}

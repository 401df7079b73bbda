package domain

// ProcessType identifies which LLM task a pipeline performs.
type ProcessType string

// Process types, also used as the request type on usage records.
const (
	ProcessGenerateRubric          ProcessType = "generate_rubric"
	ProcessGenerateStudentFeedback ProcessType = "generate_student_feedback"
	ProcessGenerateSummaryFeedback ProcessType = "generate_summary_feedback"
	// ProcessAssignment is the aggregate type recorded for a whole run.
	ProcessAssignment ProcessType = "assignment_processing"
)

// ProcessStatus is the lifecycle status of a pipeline run or an assignment.
type ProcessStatus string

// Process statuses.
const (
	StatusPending    ProcessStatus = "pending"
	StatusInProgress ProcessStatus = "in_progress"
	StatusCompleted  ProcessStatus = "completed"
	StatusFailed     ProcessStatus = "failed"
)

// IsTerminal reports whether no further transitions are expected.
func (s ProcessStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Step is a user-visible phase of assignment processing.
type Step string

// Processing steps in the order they are reported.
const (
	StepAssignmentSaved     Step = "assignment_saved"
	StepCreatingRubric      Step = "creating_rubric"
	StepGeneratingFeedback  Step = "generating_feedback"
	StepSummarizingFeedback Step = "summarizing_feedback"
)

// Steps lists all processing steps in display order.
func Steps() []Step {
	return []Step{StepAssignmentSaved, StepCreatingRubric, StepGeneratingFeedback, StepSummarizingFeedback}
}

// StepStatus mirrors ProcessStatus for a single step.
type StepStatus = ProcessStatus

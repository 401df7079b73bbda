package domain

// FeedbackKind distinguishes strengths from improvement opportunities.
type FeedbackKind string

// Feedback item kinds.
const (
	FeedbackStrength    FeedbackKind = "strength"
	FeedbackOpportunity FeedbackKind = "opportunity"
)

// FeedbackItem is a single observation about student work or the class as a whole.
type FeedbackItem struct {
	Kind        FeedbackKind `json:"kind"               validate:"required,oneof=strength opportunity"`
	Title       string       `json:"title"              validate:"required"`
	Description string       `json:"description"        validate:"required"`
	Evidence    string       `json:"evidence,omitempty"`
}

// CriterionLevel records which rubric level a submission reached for a criterion.
type CriterionLevel struct {
	CriterionTitle string `json:"criterion_title" validate:"required"`
	LevelTitle     string `json:"level_title"     validate:"required"`
	Explanation    string `json:"explanation"`
}

// StudentFeedback is the graded result for one submission.
type StudentFeedback struct {
	ID                  string           `json:"id"                   validate:"required"`
	StudentWorkID       string           `json:"student_work_id"      validate:"required"`
	QualitativeFeedback string           `json:"qualitative_feedback" validate:"required"`
	Items               []FeedbackItem   `json:"items"                validate:"dive"`
	CriterionLevels     []CriterionLevel `json:"criterion_levels"     validate:"dive"`
}

// Validate checks the feedback payload.
func (f *StudentFeedback) Validate() error {
	return validateStruct(ErrInvalidFeedback, f)
}

// AssignmentSummary is the class-wide qualitative summary for an assignment.
type AssignmentSummary struct {
	ID                  string         `json:"id"                   validate:"required"`
	AssignmentID        string         `json:"assignment_id"        validate:"required"`
	StudentWorkCount    int            `json:"student_work_count"   validate:"gte=0"`
	QualitativeInsights string         `json:"qualitative_insights" validate:"required"`
	Items               []FeedbackItem `json:"items"                validate:"dive"`
}

// Validate checks the summary payload.
func (s *AssignmentSummary) Validate() error {
	return validateStruct(ErrInvalidSummary, s)
}

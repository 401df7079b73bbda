package domain

// FeedbackTone controls the register of generated feedback.
type FeedbackTone string

// Supported feedback tones.
const (
	ToneEncouraging FeedbackTone = "encouraging"
	ToneNeutral     FeedbackTone = "neutral"
	ToneCritical    FeedbackTone = "critical"
)

// User identifies the account an assignment and its LLM usage are billed to.
type User struct {
	ID    string `json:"id"              yaml:"id"              validate:"required"`
	Email string `json:"email,omitempty" yaml:"email,omitempty" validate:"omitempty,email"`
}

// Assignment is the teacher-authored task being graded together with the
// student submissions collected for it.
type Assignment struct {
	ID           string        `json:"id"            yaml:"id"            validate:"required"`
	UserID       string        `json:"user_id"       yaml:"user_id"       validate:"required"`
	Title        string        `json:"title"         yaml:"title"         validate:"required"`
	Subject      string        `json:"subject"       yaml:"subject"`
	GradeLevel   string        `json:"grade_level"   yaml:"grade_level"`
	Instructions string        `json:"instructions"  yaml:"instructions"  validate:"required"`
	FeedbackTone FeedbackTone  `json:"feedback_tone" yaml:"feedback_tone" validate:"required,oneof=encouraging neutral critical"`
	StudentWorks []StudentWork `json:"student_works" yaml:"student_works" validate:"dive"`
}

// Validate checks the assignment and every attached submission.
func (a *Assignment) Validate() error {
	return validateStruct(ErrInvalidAssignment, a)
}

// StudentWork is a single submitted document for an assignment.
type StudentWork struct {
	ID           string `json:"id"            yaml:"id"            validate:"required"`
	AssignmentID string `json:"assignment_id" yaml:"assignment_id" validate:"required"`
	Title        string `json:"title"         yaml:"title"`
	Content      string `json:"content"       yaml:"content"       validate:"required"`
}

// Validate checks that the submission carries content and ownership.
func (w *StudentWork) Validate() error {
	return validateStruct(ErrInvalidStudentWork, w)
}

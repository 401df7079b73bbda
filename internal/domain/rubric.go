package domain

// Level is one performance band of a rubric criterion.
type Level struct {
	Title       string `json:"title"       validate:"required"`
	Description string `json:"description" validate:"required"`
	Points      int    `json:"points"      validate:"gte=0"`
	Position    int    `json:"position"    validate:"gte=0"`
}

// Criterion is a single graded dimension of a rubric.
type Criterion struct {
	Title       string  `json:"title"       validate:"required"`
	Description string  `json:"description" validate:"required"`
	Position    int     `json:"position"    validate:"gte=0"`
	Levels      []Level `json:"levels"      validate:"required,min=1,dive"`
}

// Rubric is the grading instrument generated for an assignment.
type Rubric struct {
	ID           string      `json:"id"            validate:"required"`
	AssignmentID string      `json:"assignment_id" validate:"required"`
	Criteria     []Criterion `json:"criteria"      validate:"required,min=1,dive"`
}

// Validate enforces that a rubric has at least one criterion and that every
// criterion has at least one level.
func (r *Rubric) Validate() error {
	return validateStruct(ErrInvalidRubric, r)
}

// CriterionTitles returns the criterion titles in position order as stored.
func (r *Rubric) CriterionTitles() []string {
	titles := make([]string, 0, len(r.Criteria))
	for _, c := range r.Criteria {
		titles = append(titles, c.Title)
	}
	return titles
}

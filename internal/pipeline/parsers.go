package pipeline

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ahrav/go-grader/internal/domain"
	llmerrors "github.com/ahrav/go-grader/internal/llm/errors"
)

const snippetLen = 200

// newID generates payload ids.
var newID = uuid.NewString

// extractJSON returns the JSON object embedded in model output. It accepts a
// bare object, an object inside a fenced code block, or an object surrounded
// by prose.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if start := strings.Index(s, "```"); start >= 0 {
		rest := s[start+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	first, last := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}')
	if first >= 0 && last > first {
		return s[first : last+1]
	}
	return s
}

func decodeJSON(raw string, v any) error {
	body := extractJSON(raw)
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return &llmerrors.JSONParseError{Message: "response is not a JSON object", Snippet: truncate(raw, snippetLen), Cause: err}
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func invalidPayload(field string, err error) error {
	return &llmerrors.ValidationError{Field: field, Message: err.Error()}
}

type rubricPayload struct {
	Criteria []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Levels      []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Points      int    `json:"points"`
		} `json:"levels"`
	} `json:"criteria"`
}

// ParseRubric decodes a rubric for the context's assignment. Criteria and
// levels are positioned in the order the model returned them.
func ParseRubric(raw string, pctx *Context) (*domain.Rubric, error) {
	var p rubricPayload
	if err := decodeJSON(raw, &p); err != nil {
		return nil, err
	}
	r := &domain.Rubric{
		ID:           newID(),
		AssignmentID: pctx.Subject.ParentAssignmentID(),
		Criteria:     make([]domain.Criterion, 0, len(p.Criteria)),
	}
	for i, c := range p.Criteria {
		crit := domain.Criterion{
			Title:       strings.TrimSpace(c.Title),
			Description: strings.TrimSpace(c.Description),
			Position:    i,
			Levels:      make([]domain.Level, 0, len(c.Levels)),
		}
		for j, l := range c.Levels {
			crit.Levels = append(crit.Levels, domain.Level{
				Title:       strings.TrimSpace(l.Title),
				Description: strings.TrimSpace(l.Description),
				Points:      l.Points,
				Position:    j,
			})
		}
		r.Criteria = append(r.Criteria, crit)
	}
	if err := r.Validate(); err != nil {
		return nil, invalidPayload("rubric", err)
	}
	return r, nil
}

type feedbackPayload struct {
	QualitativeFeedback string                  `json:"qualitative_feedback"`
	QualitativeInsights string                  `json:"qualitative_insights"`
	FeedbackItems       []domain.FeedbackItem   `json:"feedback_items"`
	CriterionLevels     []domain.CriterionLevel `json:"criterion_levels"`
}

func normalizeItems(items []domain.FeedbackItem) []domain.FeedbackItem {
	out := make([]domain.FeedbackItem, 0, len(items))
	for _, it := range items {
		it.Kind = domain.FeedbackKind(strings.ToLower(strings.TrimSpace(string(it.Kind))))
		it.Title = strings.TrimSpace(it.Title)
		it.Description = strings.TrimSpace(it.Description)
		it.Evidence = strings.TrimSpace(it.Evidence)
		out = append(out, it)
	}
	return out
}

// ParseStudentFeedback decodes feedback for the context's student work.
func ParseStudentFeedback(raw string, pctx *Context) (*domain.StudentFeedback, error) {
	var p feedbackPayload
	if err := decodeJSON(raw, &p); err != nil {
		return nil, err
	}
	f := &domain.StudentFeedback{
		ID:                  newID(),
		StudentWorkID:       pctx.Subject.ProcessableID(),
		QualitativeFeedback: strings.TrimSpace(p.QualitativeFeedback),
		Items:               normalizeItems(p.FeedbackItems),
		CriterionLevels:     p.CriterionLevels,
	}
	if err := f.Validate(); err != nil {
		return nil, invalidPayload("student_feedback", err)
	}
	return f, nil
}

// ParseSummary decodes the class summary for the context's assignment.
func ParseSummary(raw string, pctx *Context) (*domain.AssignmentSummary, error) {
	var p feedbackPayload
	if err := decodeJSON(raw, &p); err != nil {
		return nil, err
	}
	count := 0
	if s, ok := pctx.Subject.(*domain.SummarySubject); ok {
		count = len(s.Feedbacks)
	}
	s := &domain.AssignmentSummary{
		ID:                  newID(),
		AssignmentID:        pctx.Subject.ParentAssignmentID(),
		StudentWorkCount:    count,
		QualitativeInsights: strings.TrimSpace(p.QualitativeInsights),
		Items:               normalizeItems(p.FeedbackItems),
	}
	if err := s.Validate(); err != nil {
		return nil, invalidPayload("assignment_summary", err)
	}
	return s, nil
}

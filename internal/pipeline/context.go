// Package pipeline runs one LLM task (rubric, student feedback or summary)
// as a fixed sequence of stages over a single mutable Context, and converts
// every outcome into a Result value at its boundary.
package pipeline

import (
	"maps"
	"time"

	"github.com/ahrav/go-grader/internal/domain"
	"github.com/ahrav/go-grader/internal/llm/transport"
	"github.com/ahrav/go-grader/internal/prompt"
)

// Parent holds the records a subject depends on but does not own.
type Parent struct {
	Assignment *domain.Assignment
	// Rubric is required when grading student work.
	Rubric *domain.Rubric
}

// Context is the state of one pipeline run. It is owned by exactly one run
// and is not safe for concurrent use.
type Context struct {
	Subject     domain.Processable
	ProcessType domain.ProcessType
	Parent      Parent

	PromptInput prompt.Input
	Prompt      string
	Response    *transport.Response
	// Parsed holds the validated payload produced by the parse stage.
	Parsed any
	// JSONRetried is set once the generator has been re-invoked after a
	// JSON parse failure.
	JSONRetried bool

	SavedRubric   *domain.Rubric
	SavedFeedback *domain.StudentFeedback
	SavedSummary  *domain.AssignmentSummary

	Status    domain.ProcessStatus
	StartedAt time.Time

	metrics map[string]any
	errors  []string
}

// NewContext returns a pending context for subject.
func NewContext(subject domain.Processable, pt domain.ProcessType, parent Parent) *Context {
	return &Context{
		Subject:     subject,
		ProcessType: pt,
		Parent:      parent,
		Status:      domain.StatusPending,
		metrics:     make(map[string]any),
	}
}

// UserID is the user the run's LLM usage is billed to.
func (c *Context) UserID() string {
	if c.Parent.Assignment != nil {
		return c.Parent.Assignment.UserID
	}
	if a, ok := c.Subject.(*domain.Assignment); ok {
		return a.UserID
	}
	if s, ok := c.Subject.(*domain.SummarySubject); ok && s.Assignment != nil {
		return s.Assignment.UserID
	}
	return ""
}

// SetMetric records a metric, replacing any previous value.
func (c *Context) SetMetric(key string, value any) {
	c.metrics[key] = value
}

// AddMetric adds delta to an integer metric.
func (c *Context) AddMetric(key string, delta int64) {
	cur, _ := c.metrics[key].(int64)
	c.metrics[key] = cur + delta
}

// Metric returns a single metric.
func (c *Context) Metric(key string) (any, bool) {
	v, ok := c.metrics[key]
	return v, ok
}

// Metrics returns a copy of the metrics collected so far.
func (c *Context) Metrics() map[string]any {
	return maps.Clone(c.metrics)
}

// AddError appends an error message.
func (c *Context) AddError(msg string) {
	c.errors = append(c.errors, msg)
}

// Errors returns a copy of the recorded error messages.
func (c *Context) Errors() []string {
	return append([]string(nil), c.errors...)
}

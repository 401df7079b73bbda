// Package prompt turns domain entities into prompt inputs and renders them
// into the text sent to the model.
package prompt

import (
	"errors"
	"fmt"

	"github.com/ahrav/go-grader/internal/domain"
)

// ErrMissingContext is returned when an input cannot be built because the
// subject's parent data is absent.
var ErrMissingContext = errors.New("prompt input is missing required context")

// ErrUnsupportedProcess is returned for a subject and process type pair that
// has no prompt.
var ErrUnsupportedProcess = errors.New("unsupported process type for subject")

// Request carries everything a builder may read: the subject, the process
// type and the parent records of the subject.
type Request struct {
	Subject     domain.Processable
	ProcessType domain.ProcessType
	// Assignment is the parent assignment; required for student feedback.
	Assignment *domain.Assignment
	// Rubric is required for student feedback.
	Rubric *domain.Rubric
}

// Input is the structured data a template renders.
type Input struct {
	ProcessType  domain.ProcessType
	Title        string
	Subject      string
	GradeLevel   string
	Instructions string
	Tone         domain.FeedbackTone

	Criteria []domain.Criterion

	StudentWorkTitle   string
	StudentWorkContent string

	Feedbacks    []domain.StudentFeedback
	StudentCount int
}

// Builder produces prompt inputs. Implementations must be pure.
type Builder interface {
	Build(req Request) (Input, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(Request) (Input, error)

// Build implements Builder.
func (f BuilderFunc) Build(req Request) (Input, error) { return f(req) }

// DefaultBuilder builds inputs for the three grading process types.
var DefaultBuilder Builder = BuilderFunc(Build)

// Build is the default input builder.
func Build(req Request) (Input, error) {
	switch subject := req.Subject.(type) {
	case *domain.Assignment:
		if req.ProcessType != domain.ProcessGenerateRubric {
			break
		}
		return assignmentInput(subject, req.ProcessType), nil

	case *domain.StudentWork:
		if req.ProcessType != domain.ProcessGenerateStudentFeedback {
			break
		}
		if req.Assignment == nil || req.Rubric == nil {
			return Input{}, fmt.Errorf("%w: student work %s needs its assignment and rubric", ErrMissingContext, subject.ID)
		}
		in := assignmentInput(req.Assignment, req.ProcessType)
		in.Criteria = req.Rubric.Criteria
		in.StudentWorkTitle = subject.Title
		in.StudentWorkContent = subject.Content
		return in, nil

	case *domain.SummarySubject:
		if req.ProcessType != domain.ProcessGenerateSummaryFeedback {
			break
		}
		if subject.Assignment == nil {
			return Input{}, fmt.Errorf("%w: summary needs its assignment", ErrMissingContext)
		}
		in := assignmentInput(subject.Assignment, req.ProcessType)
		in.Feedbacks = subject.Feedbacks
		in.StudentCount = len(subject.Feedbacks)
		return in, nil

	case nil:
		return Input{}, fmt.Errorf("%w: nil subject", ErrMissingContext)
	}
	return Input{}, fmt.Errorf("%w: %s for %T", ErrUnsupportedProcess, req.ProcessType, req.Subject)
}

func assignmentInput(a *domain.Assignment, pt domain.ProcessType) Input {
	return Input{
		ProcessType:  pt,
		Title:        a.Title,
		Subject:      a.Subject,
		GradeLevel:   a.GradeLevel,
		Instructions: a.Instructions,
		Tone:         a.FeedbackTone,
	}
}

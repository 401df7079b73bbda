package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-grader/internal/domain"
)

func testAssignment() *domain.Assignment {
	return &domain.Assignment{
		ID:           "a-1",
		UserID:       "u-1",
		Title:        "Photosynthesis essay",
		Subject:      "Biology",
		GradeLevel:   "9th grade",
		Instructions: "Explain how plants turn light into chemical energy.",
		FeedbackTone: domain.ToneEncouraging,
	}
}

func testRubric() *domain.Rubric {
	return &domain.Rubric{
		ID:           "r-1",
		AssignmentID: "a-1",
		Criteria: []domain.Criterion{{
			Title:       "Accuracy",
			Description: "Scientific facts are correct",
			Levels: []domain.Level{
				{Title: "Exemplary", Description: "No errors", Points: 4},
				{Title: "Developing", Description: "Several errors", Points: 2},
			},
		}},
	}
}

func TestBuildPerProcessType(t *testing.T) {
	a := testAssignment()
	work := &domain.StudentWork{ID: "sw-1", AssignmentID: "a-1", Title: "My essay", Content: "Chlorophyll absorbs light."}

	in, err := Build(Request{Subject: a, ProcessType: domain.ProcessGenerateRubric})
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis essay", in.Title)
	assert.Empty(t, in.Criteria)

	in, err = Build(Request{Subject: work, ProcessType: domain.ProcessGenerateStudentFeedback, Assignment: a, Rubric: testRubric()})
	require.NoError(t, err)
	assert.Equal(t, "Chlorophyll absorbs light.", in.StudentWorkContent)
	assert.Len(t, in.Criteria, 1)
	assert.Equal(t, domain.ToneEncouraging, in.Tone)

	feedbacks := []domain.StudentFeedback{{ID: "f-1", StudentWorkID: "sw-1", QualitativeFeedback: "Good"}}
	in, err = Build(Request{
		Subject:     &domain.SummarySubject{Assignment: a, Feedbacks: feedbacks},
		ProcessType: domain.ProcessGenerateSummaryFeedback,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, in.StudentCount)
}

func TestBuildErrors(t *testing.T) {
	work := &domain.StudentWork{ID: "sw-1", AssignmentID: "a-1", Content: "x"}

	_, err := Build(Request{Subject: work, ProcessType: domain.ProcessGenerateStudentFeedback})
	require.ErrorIs(t, err, ErrMissingContext)

	_, err = Build(Request{Subject: testAssignment(), ProcessType: domain.ProcessGenerateSummaryFeedback})
	require.ErrorIs(t, err, ErrUnsupportedProcess)

	_, err = Build(Request{ProcessType: domain.ProcessGenerateRubric})
	require.ErrorIs(t, err, ErrMissingContext)
}

func TestTemplateRendererRendersEveryProcessType(t *testing.T) {
	r, err := NewTemplateRenderer()
	require.NoError(t, err)
	a := testAssignment()

	out, err := r.Render(Input{ProcessType: domain.ProcessGenerateRubric, Title: a.Title, Instructions: a.Instructions, Subject: a.Subject})
	require.NoError(t, err)
	assert.Contains(t, out, "Photosynthesis essay")
	assert.Contains(t, out, `"criteria"`)

	in, err := Build(Request{
		Subject:     &domain.StudentWork{ID: "sw-1", AssignmentID: "a-1", Content: "Chlorophyll absorbs light."},
		ProcessType: domain.ProcessGenerateStudentFeedback,
		Assignment:  a,
		Rubric:      testRubric(),
	})
	require.NoError(t, err)
	out, err = r.Render(in)
	require.NoError(t, err)
	assert.Contains(t, out, "1. Accuracy: Scientific facts are correct")
	assert.Contains(t, out, "Exemplary (4 pts)")
	assert.Contains(t, out, "Chlorophyll absorbs light.")
	assert.Contains(t, out, "encouraging tone")

	out, err = r.Render(Input{
		ProcessType: domain.ProcessGenerateSummaryFeedback,
		Title:       a.Title,
		Feedbacks: []domain.StudentFeedback{{
			QualitativeFeedback: "Clear structure",
			Items:               []domain.FeedbackItem{{Kind: domain.FeedbackStrength, Title: "Structure", Description: "Well organized"}},
		}},
		StudentCount: 1,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Feedback for 1 student submission(s)")
	assert.Contains(t, out, "[STRENGTH] Structure: Well organized")

	out, err = r.Render(Input{ProcessType: domain.ProcessGenerateSummaryFeedback, Title: a.Title})
	require.NoError(t, err)
	assert.Contains(t, out, "No student submissions were graded")
}

func TestTemplateRendererUnknownProcess(t *testing.T) {
	r, err := NewTemplateRenderer()
	require.NoError(t, err)

	_, err = r.Render(Input{ProcessType: domain.ProcessAssignment})
	require.ErrorIs(t, err, ErrUnsupportedProcess)
}

package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-grader/internal/domain"
)

func validAssignment() *domain.Assignment {
	return &domain.Assignment{
		ID:           "a-1",
		UserID:       "u-1",
		Title:        "Persuasive essay",
		Instructions: "Write a persuasive essay about school uniforms.",
		FeedbackTone: domain.ToneEncouraging,
		StudentWorks: []domain.StudentWork{
			{ID: "w-1", AssignmentID: "a-1", Content: "Uniforms are good because..."},
		},
	}
}

func TestAssignmentValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(a *domain.Assignment)
		wantErr bool
	}{
		{name: "valid", mutate: func(*domain.Assignment) {}},
		{name: "no students is valid", mutate: func(a *domain.Assignment) { a.StudentWorks = nil }},
		{name: "missing title", mutate: func(a *domain.Assignment) { a.Title = "" }, wantErr: true},
		{name: "unknown tone", mutate: func(a *domain.Assignment) { a.FeedbackTone = "sarcastic" }, wantErr: true},
		{
			name:    "student work without content",
			mutate:  func(a *domain.Assignment) { a.StudentWorks[0].Content = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAssignment()
			tt.mutate(a)
			err := a.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidAssignment)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestRubricValidate(t *testing.T) {
	r := &domain.Rubric{
		ID:           "r-1",
		AssignmentID: "a-1",
		Criteria: []domain.Criterion{{
			Title:       "Thesis",
			Description: "Clear claim",
			Levels:      []domain.Level{{Title: "Exceeds", Description: "Precise", Points: 4}},
		}},
	}
	require.NoError(t, r.Validate())
	assert.Equal(t, []string{"Thesis"}, r.CriterionTitles())

	r.Criteria[0].Levels = nil
	assert.ErrorIs(t, r.Validate(), domain.ErrInvalidRubric)

	r.Criteria = nil
	assert.ErrorIs(t, r.Validate(), domain.ErrInvalidRubric)
}

func TestProcessableVariants(t *testing.T) {
	a := validAssignment()
	w := &a.StudentWorks[0]
	s := &domain.SummarySubject{Assignment: a}

	cases := []struct {
		p        domain.Processable
		kind     domain.ProcessableKind
		id       string
		parentID string
	}{
		{a, domain.KindAssignment, "a-1", "a-1"},
		{w, domain.KindStudentWork, "w-1", "a-1"},
		{s, domain.KindSummary, "a-1", "a-1"},
	}
	for _, c := range cases {
		assert.Equal(t, c.kind, c.p.Kind())
		assert.Equal(t, c.id, c.p.ProcessableID())
		assert.Equal(t, c.parentID, c.p.ParentAssignmentID())
	}
}

func TestMicroUSDString(t *testing.T) {
	assert.Equal(t, "$0.002800", domain.MicroUSD(2800).String())
	assert.Equal(t, "$1.500000", domain.MicroUSD(1_500_000).String())
	assert.Equal(t, "-$0.000001", domain.MicroUSD(-1).String())
	assert.True(t, domain.MicroUSD(0).IsZero())
	assert.Equal(t, domain.MicroUSD(5), domain.MicroUSD(2).Add(3))
}

func TestProcessStatusIsTerminal(t *testing.T) {
	assert.False(t, domain.StatusPending.IsTerminal())
	assert.False(t, domain.StatusInProgress.IsTerminal())
	assert.True(t, domain.StatusCompleted.IsTerminal())
	assert.True(t, domain.StatusFailed.IsTerminal())
	assert.Len(t, domain.Steps(), 4)
}

package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-grader/internal/domain"
	llmerrors "github.com/ahrav/go-grader/internal/llm/errors"
	"github.com/ahrav/go-grader/internal/llm/transport"
)

const rubricJSON = `{"criteria":[{"title":"Accuracy","description":"Facts are correct","levels":[
	{"title":"Strong","description":"No errors","points":4},
	{"title":"Weak","description":"Many errors","points":1}]}]}`

const feedbackJSON = `{"qualitative_feedback":"Clear and well argued.",
	"feedback_items":[{"kind":"Strength","title":"Structure","description":"Logical flow"}],
	"criterion_levels":[{"criterion_title":"Accuracy","level_title":"Strong"}]}`

type fakeGenerator struct {
	mu      sync.Mutex
	texts   []string
	errs    []error
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, req *transport.Request) (*transport.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := len(g.prompts)
	g.prompts = append(g.prompts, req.Prompt)
	if i < len(g.errs) && g.errs[i] != nil {
		return nil, g.errs[i]
	}
	text := g.texts[min(i, len(g.texts)-1)]
	return &transport.Response{
		Text: text, Model: "claude-3-5-haiku-latest", Provider: "anthropic",
		InputTokens: 100, OutputTokens: 50,
	}, nil
}

type fakeTracker struct {
	records []*domain.UsageRecord
	err     error
}

func (f *fakeTracker) Record(
	_ context.Context, resp *transport.Response, trackable domain.Processable, userID string, pt domain.ProcessType,
) (*domain.UsageRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	rec := &domain.UsageRecord{
		TrackableKind: trackable.Kind(), TrackableID: trackable.ProcessableID(), UserID: userID,
		Model: resp.Model, RequestType: pt, TokenCount: resp.TotalTokens(), Cost: 600,
	}
	f.records = append(f.records, rec)
	return rec, nil
}

type broadcast struct {
	subjectID string
	status    domain.ProcessStatus
}

type recordingBroadcaster struct {
	sent []broadcast
	err  error
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, s domain.Processable, status domain.ProcessStatus, _ map[string]any) error {
	b.sent = append(b.sent, broadcast{s.ProcessableID(), status})
	return b.err
}

type recordingMetrics struct {
	calls     []map[string]any
	successes []bool
	err       error
}

func (m *recordingMetrics) Record(_ context.Context, _ domain.Processable, _ domain.ProcessType, metrics map[string]any, success bool) error {
	m.calls = append(m.calls, metrics)
	m.successes = append(m.successes, success)
	return m.err
}

type memStore struct {
	rubrics   []*domain.Rubric
	feedbacks []*domain.StudentFeedback
	summaries []*domain.AssignmentSummary
	err       error
}

func (s *memStore) SaveRubric(_ context.Context, r *domain.Rubric) error {
	if s.err != nil {
		return s.err
	}
	s.rubrics = append(s.rubrics, r)
	return nil
}

func (s *memStore) SaveStudentFeedback(_ context.Context, f *domain.StudentFeedback) error {
	if s.err != nil {
		return s.err
	}
	s.feedbacks = append(s.feedbacks, f)
	return nil
}

func (s *memStore) SaveAssignmentSummary(_ context.Context, sum *domain.AssignmentSummary) error {
	if s.err != nil {
		return s.err
	}
	s.summaries = append(s.summaries, sum)
	return nil
}

func testAssignment() *domain.Assignment {
	return &domain.Assignment{
		ID: "a-1", UserID: "u-1", Title: "Essay", Instructions: "Write an essay.",
		FeedbackTone: domain.ToneNeutral,
		StudentWorks: []domain.StudentWork{{ID: "sw-1", AssignmentID: "a-1", Content: "My essay."}},
	}
}

func rubricContext(a *domain.Assignment) *Context {
	return NewContext(a, domain.ProcessGenerateRubric, Parent{Assignment: a})
}

func TestRubricPipelineSuccess(t *testing.T) {
	gen := &fakeGenerator{texts: []string{rubricJSON}}
	tracker := &fakeTracker{}
	bc := &recordingBroadcaster{}
	rec := &recordingMetrics{}
	store := &memStore{}
	p := NewRubricPipeline(Deps{Generator: gen, Tracker: tracker, Broadcaster: bc, Metrics: rec}, store)

	assert.Equal(t, []string{
		StagePromptInput, StageStarted, StageGenerate, StageParse, StageStorage, StageCompleted, StageMetrics,
	}, p.Stages())
	assert.Equal(t, Critical, p.Criticality())

	a := testAssignment()
	pctx := rubricContext(a)
	res := p.Run(context.Background(), pctx)

	require.True(t, res.Success(), res.Errors())
	assert.Empty(t, res.Errors())
	require.NotNil(t, res.Data())
	assert.Equal(t, "a-1", res.Data().AssignmentID)
	assert.Equal(t, "Accuracy", res.Data().Criteria[0].Title)
	assert.Equal(t, 1, res.Data().Criteria[0].Levels[1].Position)
	require.Len(t, store.rubrics, 1)
	assert.Same(t, store.rubrics[0], res.Data())
	assert.Equal(t, domain.StatusCompleted, pctx.Status)

	assert.Equal(t, []broadcast{{"a-1", domain.StatusInProgress}, {"a-1", domain.StatusCompleted}}, bc.sent)

	require.Len(t, tracker.records, 1)
	assert.Equal(t, "u-1", tracker.records[0].UserID)
	assert.Equal(t, domain.ProcessGenerateRubric, tracker.records[0].RequestType)

	m := res.Metrics()
	assert.Equal(t, int64(150), m[MetricTokensUsed])
	assert.Equal(t, int64(600), m[MetricCost])
	assert.Equal(t, "claude-3-5-haiku-latest", m[MetricModel])
	assert.Contains(t, m, MetricTotalDuration)
	assert.Contains(t, m, StageGenerate+"_duration_ms")
	require.Len(t, rec.calls, 1)
	assert.Equal(t, []bool{true}, rec.successes)
	assert.Equal(t, int64(150), rec.calls[0][MetricTokensUsed])

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Write an essay.")
}

func TestPipelineAcceptsFencedJSON(t *testing.T) {
	gen := &fakeGenerator{texts: []string{"Here is the rubric:\n```json\n" + rubricJSON + "\n```\nGood luck!"}}
	p := NewRubricPipeline(Deps{Generator: gen}, &memStore{})

	res := p.Run(context.Background(), rubricContext(testAssignment()))
	require.True(t, res.Success(), res.Errors())
	assert.Len(t, gen.prompts, 1)
}

func TestPipelineRetriesInvalidJSONOnce(t *testing.T) {
	gen := &fakeGenerator{texts: []string{"Sorry, here you go: criteria are accuracy", rubricJSON}}
	tracker := &fakeTracker{}
	p := NewRubricPipeline(Deps{Generator: gen, Tracker: tracker}, &memStore{})

	res := p.Run(context.Background(), rubricContext(testAssignment()))
	require.True(t, res.Success(), res.Errors())
	require.Len(t, gen.prompts, 2)
	assert.True(t, strings.HasSuffix(gen.prompts[1], "with no commentary before or after it."))
	assert.True(t, strings.HasPrefix(gen.prompts[1], gen.prompts[0]))

	m := res.Metrics()
	assert.Equal(t, true, m[MetricJSONRetry])
	assert.Equal(t, int64(300), m[MetricTokensUsed])
	assert.Equal(t, int64(1200), m[MetricCost])
	assert.Len(t, tracker.records, 2)
}

func TestPipelineFailsAfterSecondInvalidJSON(t *testing.T) {
	gen := &fakeGenerator{texts: []string{"not json", "still not json"}}
	tracker := &fakeTracker{}
	rec := &recordingMetrics{}
	store := &memStore{}
	p := NewRubricPipeline(Deps{Generator: gen, Tracker: tracker, Metrics: rec}, store)

	res := p.Run(context.Background(), rubricContext(testAssignment()))
	require.False(t, res.Success())
	assert.Nil(t, res.Data())
	assert.Len(t, gen.prompts, 2)
	require.Len(t, res.Errors(), 1)
	assert.Contains(t, res.Errors()[0], "failed to parse model output as JSON")
	assert.Empty(t, store.rubrics)

	// Both billed calls reach the recorder as one failed run.
	assert.Len(t, tracker.records, 2)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, []bool{false}, rec.successes)
	assert.Equal(t, int64(300), rec.calls[0][MetricTokensUsed])
	assert.Equal(t, int64(1200), rec.calls[0][MetricCost])
	assert.Equal(t, int64(2), rec.calls[0]["llm_calls"])
	assert.Contains(t, rec.calls[0], MetricTotalDuration)
}

func TestFailedRunRecordsMetrics(t *testing.T) {
	providerErr := &llmerrors.ProviderError{Provider: "google", Type: llmerrors.ErrorTypeServiceUnavailable}

	t.Run("student feedback", func(t *testing.T) {
		rec := &recordingMetrics{}
		a := testAssignment()
		p := NewStudentFeedbackPipeline(Deps{Generator: &fakeGenerator{errs: []error{providerErr}}, Metrics: rec}, &memStore{})

		res := p.Run(context.Background(), NewContext(&a.StudentWorks[0], domain.ProcessGenerateStudentFeedback,
			Parent{Assignment: a, Rubric: &domain.Rubric{ID: "r-1", AssignmentID: "a-1"}}))
		require.False(t, res.Success())
		assert.Equal(t, []bool{false}, rec.successes)
	})

	t.Run("recorder error is ignored", func(t *testing.T) {
		rec := &recordingMetrics{err: errors.New("exporter down")}
		p := NewRubricPipeline(Deps{Generator: &fakeGenerator{errs: []error{providerErr}}, Metrics: rec}, &memStore{})

		res := p.Run(context.Background(), rubricContext(testAssignment()))
		require.False(t, res.Success())
		require.Len(t, res.Errors(), 1)
		assert.Contains(t, res.Errors()[0], "generate:")
		assert.Len(t, rec.calls, 1)
	})

	t.Run("panic", func(t *testing.T) {
		rec := &recordingMetrics{}
		boom := NewStage("boom", func(context.Context, *Context) (*Context, error) { panic("nil map") })
		p := New(NameRubric, Critical, func(pctx *Context) *domain.Rubric { return pctx.SavedRubric }, nil, boom).
			WithMetrics(rec)

		res := p.Run(context.Background(), rubricContext(testAssignment()))
		require.False(t, res.Success())
		assert.Equal(t, []bool{false}, rec.successes)
	})
}

func TestPipelineDoesNotRetryInvalidShape(t *testing.T) {
	gen := &fakeGenerator{texts: []string{`{"criteria":[]}`}}
	p := NewRubricPipeline(Deps{Generator: gen}, &memStore{})

	res := p.Run(context.Background(), rubricContext(testAssignment()))
	require.False(t, res.Success())
	assert.Len(t, gen.prompts, 1)
	assert.Contains(t, res.Errors()[0], "validation failed for field rubric")
}

func TestPipelineConvertsStageErrors(t *testing.T) {
	providerErr := &llmerrors.ProviderError{Provider: "anthropic", Type: llmerrors.ErrorTypeAuth, Message: "bad key"}

	tests := []struct {
		name      string
		gen       *fakeGenerator
		tracker   *fakeTracker
		store     *memStore
		wantError string
	}{
		{
			name:      "generator",
			gen:       &fakeGenerator{errs: []error{providerErr}},
			store:     &memStore{},
			wantError: "generate:",
		},
		{
			name:      "usage tracking",
			gen:       &fakeGenerator{texts: []string{rubricJSON}},
			tracker:   &fakeTracker{err: &llmerrors.UnknownModelError{Model: "mystery"}},
			store:     &memStore{},
			wantError: "unknown model: mystery",
		},
		{
			name:      "storage",
			gen:       &fakeGenerator{texts: []string{rubricJSON}},
			store:     &memStore{err: errors.New("constraint violation")},
			wantError: "constraint violation",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := Deps{Generator: tt.gen}
			if tt.tracker != nil {
				deps.Tracker = tt.tracker
			}
			bc := &recordingBroadcaster{}
			deps.Broadcaster = bc
			pctx := rubricContext(testAssignment())

			res := NewRubricPipeline(deps, tt.store).Run(context.Background(), pctx)
			require.False(t, res.Success())
			assert.Nil(t, res.Data())
			require.Len(t, res.Errors(), 1)
			assert.Contains(t, res.Errors()[0], tt.wantError)
			assert.Contains(t, res.Metrics(), StagePromptInput+"_duration_ms")
			assert.Equal(t, domain.StatusFailed, pctx.Status)
			assert.Equal(t, []broadcast{{"a-1", domain.StatusInProgress}}, bc.sent)
		})
	}
}

func TestPipelineRecoversFromPanic(t *testing.T) {
	boom := NewStage("boom", func(context.Context, *Context) (*Context, error) { panic("nil map") })
	p := New(NameRubric, Critical, func(pctx *Context) *domain.Rubric { return pctx.SavedRubric }, nil, boom)

	res := p.Run(context.Background(), rubricContext(testAssignment()))
	require.False(t, res.Success())
	assert.Contains(t, res.Errors()[0], "panic in rubric pipeline: nil map")
}

func TestBroadcastFailureIsIgnored(t *testing.T) {
	gen := &fakeGenerator{texts: []string{rubricJSON}}
	bc := &recordingBroadcaster{err: errors.New("redis down")}
	p := NewRubricPipeline(Deps{Generator: gen, Broadcaster: bc}, &memStore{})

	res := p.Run(context.Background(), rubricContext(testAssignment()))
	require.True(t, res.Success(), res.Errors())
	assert.Len(t, bc.sent, 2)
}

func TestStudentFeedbackPipeline(t *testing.T) {
	gen := &fakeGenerator{texts: []string{feedbackJSON}}
	bc := &recordingBroadcaster{}
	store := &memStore{}
	p := NewStudentFeedbackPipeline(Deps{Generator: gen, Broadcaster: bc}, store)

	assert.Equal(t, NonCritical, p.Criticality())
	assert.NotContains(t, p.Stages(), StageStarted)
	assert.NotContains(t, p.Stages(), StageCompleted)

	a := testAssignment()
	rubric := &domain.Rubric{ID: "r-1", AssignmentID: "a-1", Criteria: []domain.Criterion{{
		Title: "Accuracy", Description: "Facts", Levels: []domain.Level{{Title: "Strong", Description: "No errors", Points: 4}},
	}}}
	work := &a.StudentWorks[0]
	res := p.Run(context.Background(), NewContext(work, domain.ProcessGenerateStudentFeedback, Parent{Assignment: a, Rubric: rubric}))

	require.True(t, res.Success(), res.Errors())
	assert.Equal(t, "sw-1", res.Data().StudentWorkID)
	assert.Equal(t, domain.FeedbackStrength, res.Data().Items[0].Kind)
	assert.Empty(t, bc.sent)
	assert.Len(t, store.feedbacks, 1)
	assert.Contains(t, gen.prompts[0], "Accuracy")
}

func TestStudentFeedbackPipelineNeedsRubric(t *testing.T) {
	p := NewStudentFeedbackPipeline(Deps{Generator: &fakeGenerator{texts: []string{feedbackJSON}}}, &memStore{})
	a := testAssignment()

	res := p.Run(context.Background(), NewContext(&a.StudentWorks[0], domain.ProcessGenerateStudentFeedback, Parent{Assignment: a}))
	require.False(t, res.Success())
	assert.Contains(t, res.Errors()[0], "missing required context")
}

func TestSummaryPipeline(t *testing.T) {
	gen := &fakeGenerator{texts: []string{`{"qualitative_insights":"Most students cited evidence well.","feedback_items":[]}`}}
	store := &memStore{}
	p := NewSummaryPipeline(Deps{Generator: gen}, store)
	a := testAssignment()
	subject := &domain.SummarySubject{Assignment: a, Feedbacks: []domain.StudentFeedback{
		{ID: "f-1", StudentWorkID: "sw-1", QualitativeFeedback: "Good work"},
	}}

	res := p.Run(context.Background(), NewContext(subject, domain.ProcessGenerateSummaryFeedback, Parent{Assignment: a}))
	require.True(t, res.Success(), res.Errors())
	assert.Equal(t, 1, res.Data().StudentWorkCount)
	assert.Equal(t, "a-1", res.Data().AssignmentID)
	assert.Len(t, store.summaries, 1)
}

func TestResultIsImmutable(t *testing.T) {
	metrics := map[string]any{"k": 1}
	res := Failed[domain.Rubric]([]string{"boom"}, metrics)
	metrics["k"] = 2
	res.Metrics()["k"] = 3
	res.Errors()[0] = "changed"

	assert.Equal(t, 1, res.Metrics()["k"])
	assert.Equal(t, []string{"boom"}, res.Errors())
	assert.Nil(t, res.Data())

	assert.Equal(t, []string{unknownFailure}, Failed[domain.Rubric](nil, nil).Errors())
	ok := Succeeded(&domain.Rubric{ID: "r"}, nil)
	assert.True(t, ok.Success())
	assert.Empty(t, ok.Errors())
	assert.NotNil(t, ok.Metrics())
}

func TestExtractJSON(t *testing.T) {
	tests := map[string]string{
		`{"a":1}`:                        `{"a":1}`,
		"```json\n{\"a\":1}\n```":        `{"a":1}`,
		"```\n{\"a\":1}\n```":            `{"a":1}`,
		"Sure! {\"a\":1} Hope it helps.": `{"a":1}`,
		"no json here":                   "no json here",
	}
	for in, want := range tests {
		assert.Equal(t, want, extractJSON(in), in)
	}
}

func TestParseErrorSnippetKeepsRunesWhole(t *testing.T) {
	// One ASCII byte shifts every two-byte rune across the cut point.
	raw := "x" + strings.Repeat("é", snippetLen)
	_, err := ParseRubric(raw, rubricContext(testAssignment()))

	var parseErr *llmerrors.JSONParseError
	require.ErrorAs(t, err, &parseErr)
	assert.True(t, utf8.ValidString(parseErr.Snippet))
	assert.LessOrEqual(t, len(parseErr.Snippet), snippetLen)
	assert.Equal(t, snippetLen-1, len(parseErr.Snippet))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc"},
		{"aé", 2, "a"},
		{"日本語", 4, "日"},
		{"日本語", 6, "日本"},
		{"", 5, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncate(tt.in, tt.n), "truncate(%q, %d)", tt.in, tt.n)
	}
}

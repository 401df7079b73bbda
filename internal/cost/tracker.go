package cost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-grader/internal/domain"
	"github.com/ahrav/go-grader/internal/llm/transport"
)

var (
	// ErrNilResponse is returned when Record is called without a response.
	ErrNilResponse = errors.New("cannot track usage of a nil response")
	// ErrNilTrackable is returned when Record is called without a subject.
	ErrNilTrackable = errors.New("cannot track usage without a trackable")
	// ErrMissingUser is returned when Record is called without a user id.
	ErrMissingUser = errors.New("cannot track usage without a user")
)

// UsageStore persists usage records.
type UsageStore interface {
	InsertUsage(ctx context.Context, rec *domain.UsageRecord) error
}

// Tracker prices each successful LLM response and appends a usage record.
type Tracker struct {
	calc   *Calculator
	store  UsageStore
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(f func() string) TrackerOption {
	return func(t *Tracker) { t.newID = f }
}

// NewTracker creates a tracker writing to store.
func NewTracker(calc *Calculator, store UsageStore, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		calc:   calc,
		store:  store,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: slog.Default().With("component", "cost_tracker"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record computes the cost of resp and persists one usage record attributed
// to trackable and userID. The provider is taken from the registry entry of
// the response's model; nothing is written when the model is unknown.
func (t *Tracker) Record(
	ctx context.Context,
	resp *transport.Response,
	trackable domain.Processable,
	userID string,
	requestType domain.ProcessType,
) (*domain.UsageRecord, error) {
	switch {
	case resp == nil:
		return nil, ErrNilResponse
	case trackable == nil:
		return nil, ErrNilTrackable
	case userID == "":
		return nil, ErrMissingUser
	}
	entry, err := t.calc.registry.Lookup(resp.Model)
	if err != nil {
		return nil, fmt.Errorf("price response: %w", err)
	}

	rec := &domain.UsageRecord{
		ID:            t.newID(),
		TrackableKind: trackable.Kind(),
		TrackableID:   trackable.ProcessableID(),
		UserID:        userID,
		Provider:      entry.Provider,
		Model:         resp.Model,
		RequestType:   requestType,
		InputTokens:   resp.InputTokens,
		OutputTokens:  resp.OutputTokens,
		TokenCount:    resp.TotalTokens(),
		Cost:          Price(entry, resp.InputTokens, resp.OutputTokens),
		CreatedAt:     t.now().UTC(),
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if err := t.store.InsertUsage(ctx, rec); err != nil {
		return nil, fmt.Errorf("save usage record: %w", err)
	}

	t.logger.DebugContext(ctx, "usage recorded",
		"trackable_kind", rec.TrackableKind,
		"trackable_id", rec.TrackableID,
		"model", rec.Model,
		"tokens", rec.TokenCount,
		"cost", rec.Cost.String(),
	)
	return rec, nil
}

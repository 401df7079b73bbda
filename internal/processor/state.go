package processor

import (
	"errors"
	"fmt"
	"slices"
)

// ErrIllegalTransition is returned for a state change the run state machine forbids.
var ErrIllegalTransition = errors.New("illegal state transition")

// State is the lifecycle state of one assignment run.
type State string

// Run states.
const (
	StateNotStarted         State = "not_started"
	StateRubricInProgress   State = "rubric_in_progress"
	StateFeedbackInProgress State = "feedback_in_progress"
	StateSummaryInProgress  State = "summary_in_progress"
	StateCompleted          State = "completed"
	StateFailed             State = "failed"
)

var transitions = map[State][]State{
	StateNotStarted:         {StateRubricInProgress, StateFailed},
	StateRubricInProgress:   {StateFeedbackInProgress, StateFailed},
	StateFeedbackInProgress: {StateSummaryInProgress, StateFailed},
	StateSummaryInProgress:  {StateCompleted, StateFailed},
}

// CanTransitionTo reports whether next may follow s.
func (s State) CanTransitionTo(next State) bool {
	return slices.Contains(transitions[s], next)
}

// IsTerminal reports whether the run has finished.
func (s State) IsTerminal() bool { return s == StateCompleted || s == StateFailed }

type stateMachine struct {
	current State
}

func (m *stateMachine) transition(next State) error {
	if !m.current.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, m.current, next)
	}
	m.current = next
	return nil
}

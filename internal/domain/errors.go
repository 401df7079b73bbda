package domain

import "errors"

// ErrInvalidAssignment indicates that an assignment is missing required data.
var ErrInvalidAssignment = errors.New("invalid assignment")

// ErrInvalidStudentWork indicates that a student submission is malformed.
var ErrInvalidStudentWork = errors.New("invalid student work")

// ErrInvalidRubric indicates that a generated rubric failed validation.
var ErrInvalidRubric = errors.New("invalid rubric")

// ErrInvalidFeedback indicates that generated student feedback failed validation.
var ErrInvalidFeedback = errors.New("invalid student feedback")

// ErrInvalidSummary indicates that a generated assignment summary failed validation.
var ErrInvalidSummary = errors.New("invalid assignment summary")

// ErrInvalidUsageRecord indicates that a usage record is missing required data.
var ErrInvalidUsageRecord = errors.New("invalid usage record")

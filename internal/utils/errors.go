package utils

import "fmt"

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// InsufficientDataError signals a series too short for the requested window
// or regression. It aborts only the step that raised it, not the whole batch.
type InsufficientDataError struct {
	Op     string
	Needed int
	Got    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: need at least %d points, got %d", e.Op, e.Needed, e.Got)
}

// ValidationError signals malformed, duplicate, or missing input rows. It is
// fatal and surfaced before any detection runs.
type ValidationError struct {
	Field string
	Row   int
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("invalid input: %s (row %d): %s", e.Field, e.Row, e.Msg)
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Msg)
}

// DegenerateSeriesError signals a zero-variance baseline window. The
// detector recovers locally by skipping z-score evaluation at that point.
type DegenerateSeriesError struct {
	Index int
}

func (e *DegenerateSeriesError) Error() string {
	return fmt.Sprintf("degenerate series: zero-variance baseline at index %d", e.Index)
}

// EstimationDegenerateError signals that a regression standard error is
// unavailable. Callers recover by downgrading the report status, never by
// aborting.
type EstimationDegenerateError struct {
	Reason string
}

func (e *EstimationDegenerateError) Error() string {
	return fmt.Sprintf("degenerate estimation: %s", e.Reason)
}

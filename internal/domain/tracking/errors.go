package tracking

import (
	"errors"
	"fmt"
)

// ErrBudgetExceeded is returned by the source gateway once the session's
// call budget is spent. Callers treat it as "no more data available" and
// continue with partial results.
var ErrBudgetExceeded = errors.New("source call budget exceeded")

// ErrSourceUnavailable wraps platform client failures (network, auth,
// 4xx/5xx). Control flow is identical to ErrBudgetExceeded; it exists so
// diagnostics can tell the two apart.
var ErrSourceUnavailable = errors.New("source unavailable")

// FailureReason classifies a hard trace failure
type FailureReason string

const (
	ReasonInvalidInput FailureReason = "invalid_input"
	ReasonNoDataFound  FailureReason = "no_data_found"
)

// Failure is the only error a tracing session surfaces to the caller.
// Everything else degrades confidence instead of failing.
type Failure struct {
	Reason FailureReason
	Input  string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("trace failed (%s): %q", f.Reason, f.Input)
}

// FailureOf extracts a *Failure from an error chain, if present
func FailureOf(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

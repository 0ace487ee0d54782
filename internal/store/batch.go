package store

import "fmt"

// BatchResult reports the outcome of one operation within a fan-out
// batch. Err is nil on success.
type BatchResult struct {
	Key string
	Err error
}

// BatchError reports a batch in which some operations failed while
// others succeeded. The batch always runs to completion; one item's
// failure never cancels its siblings.
type BatchError struct {
	Op     string
	Total  int
	Failed []BatchResult
}

// NewBatchError returns nil when every result succeeded.
func NewBatchError(op string, results []BatchResult) *BatchError {
	var failed []BatchResult
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &BatchError{Op: op, Total: len(results), Failed: failed}
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s: %d of %d operations failed: %v",
		e.Op, len(e.Failed), e.Total, e.Failed[0].Err)
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, r := range e.Failed {
		errs[i] = r.Err
	}
	return errs
}

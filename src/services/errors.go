package services

import "fmt"

// StateError marks an operation attempted on a record that is not in the
// required state, e.g. issuing an invoice for an unpaid record. Nothing is
// mutated when a StateError is returned.
type StateError struct {
	Op     string
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// ConcurrencyError marks a failure to acquire the document numbering lock
// within the bounded wait. No number is allocated.
type ConcurrencyError struct {
	Prefix string
	Year   int
	Err    error
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("sequence lock for %s-%d not acquired: %v", e.Prefix, e.Year, e.Err)
}

func (e *ConcurrencyError) Unwrap() error {
	return e.Err
}

// RenderError marks a failure of the external document renderer. No status
// or number change is committed for the failed call.
type RenderError struct {
	Document string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Document, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

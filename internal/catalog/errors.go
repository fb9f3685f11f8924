package catalog

import "fmt"

// NoMatchError indicates that no supplier offers the requested specialty.
type NoMatchError struct {
	Specialty string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no supplier found for specialty %q", e.Specialty)
}

// CSVError indicates a malformed catalog CSV file.
type CSVError struct {
	Line    int
	Message string
	Cause   error
}

func (e *CSVError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("csv line %d: %s", e.Line, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("csv: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("csv: %s", e.Message)
}

func (e *CSVError) Unwrap() error {
	return e.Cause
}

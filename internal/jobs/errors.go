package jobs

import "fmt"

// NotFoundError indicates an operation referenced an unknown job id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("job not found: %s", e.ID)
}

// TransitionError indicates an event that is not legal in the job's current status.
type TransitionError struct {
	From  Status
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition: %s on %s", e.Event, e.From)
}

// DuplicateError indicates a job id that already exists in the store.
type DuplicateError struct {
	ID string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("job already exists: %s", e.ID)
}

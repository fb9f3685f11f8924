package orchestrator

import (
	"fmt"
	"strings"
)

// ValidationError represents a rejected job request. No job is created.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("validation error: %s (%s)", e.Message, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

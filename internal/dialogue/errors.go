package dialogue

import "fmt"

// EngineError represents a failed or timed-out dialogue model round trip.
type EngineError struct {
	Message string
	Cause   error
}

func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("dialogue engine failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("dialogue engine failed: %s", e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// ExtractionParseError means the termination marker was present but the
// payload after it could not be used. The call still ends normally.
type ExtractionParseError struct {
	Message string
	Payload string
	Cause   error
}

func (e *ExtractionParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("extraction parse error: %s", e.Message)
}

func (e *ExtractionParseError) Unwrap() error {
	return e.Cause
}

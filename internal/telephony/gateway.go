// Package telephony is the boundary to the voice provider: placing calls,
// instructing live calls, ending them and interpreting provider callbacks.
package telephony

import (
	"context"
	"fmt"

	"github.com/jonathan/procurement-caller/internal/types"
)

// Gateway places, instructs and terminates provider calls.
type Gateway interface {
	// PlaceCall dials the supplier into the job's conference and returns the
	// provider call reference. The reference of a call that was created is
	// only known once PlaceCall returns, so callers that cannot afford to lose
	// it pass a context without a deadline and bound their own wait.
	PlaceCall(ctx context.Context, req CallRequest) (string, error)
	// Instruct replaces what the live call is doing with action.
	Instruct(ctx context.Context, jobID, callRef string, action Action) error
	// EndCall terminates the call.
	EndCall(ctx context.Context, callRef string) error
}

// CallRequest describes an outbound call for one job.
type CallRequest struct {
	JobID          string
	To             string
	ConferenceName string
	Language       types.Language
}

// ProviderError represents a failed request to the telephony provider.
type ProviderError struct {
	Op    string
	Cause error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("telephony provider %s failed: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("telephony provider %s failed", e.Op)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

package jobs

import (
	"time"

	"github.com/jonathan/procurement-caller/internal/types"
)

// Snapshot is the read model served to polling clients.
type Snapshot struct {
	ID            string                  `json:"id"`
	Status        Status                  `json:"status"`
	Supplier      types.Supplier          `json:"supplier"`
	Items         []types.OrderItem       `json:"items"`
	Language      types.Language          `json:"language"`
	Transcript    []types.TranscriptEntry `json:"transcript"`
	ExtractedData *types.ExtractedData    `json:"extractedData"`
	FailureReason string                  `json:"failureReason,omitempty"`
	CreatedAt     time.Time               `json:"createdAt"`
	UpdatedAt     time.Time               `json:"updatedAt"`
}

// Snapshot projects the job into its read model. Transcript is never nil so
// it always serializes as an array.
func (j Job) Snapshot() Snapshot {
	transcript := j.Transcript
	if transcript == nil {
		transcript = []types.TranscriptEntry{}
	}
	return Snapshot{
		ID:            j.ID,
		Status:        j.Status,
		Supplier:      j.Supplier,
		Items:         j.Items,
		Language:      j.Language,
		Transcript:    transcript,
		ExtractedData: j.Extracted,
		FailureReason: j.FailureReason,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
	}
}

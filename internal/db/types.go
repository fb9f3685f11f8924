package db

import (
	"time"

	"github.com/jonathan/procurement-caller/internal/jobs"
	"github.com/jonathan/procurement-caller/internal/types"
)

// CallRecord is an archived, finished call.
type CallRecord struct {
	JobID            string                  `json:"jobId"`
	Status           string                  `json:"status"`
	SupplierID       string                  `json:"supplierId"`
	SupplierName     string                  `json:"supplierName"`
	PhoneNumber      string                  `json:"phoneNumber"`
	Language         string                  `json:"language"`
	Items            []types.OrderItem       `json:"items"`
	Transcript       []types.TranscriptEntry `json:"transcript"`
	ConfirmationID   *string                 `json:"confirmationId"`
	DeliveryEstimate *string                 `json:"deliveryEstimate"`
	FailureReason    string                  `json:"failureReason,omitempty"`
	CreatedAt        time.Time               `json:"createdAt"`
	EndedAt          time.Time               `json:"endedAt"`
}

// RecordFromSnapshot converts the final snapshot of a job into its archive row.
func RecordFromSnapshot(s jobs.Snapshot) CallRecord {
	rec := CallRecord{
		JobID:         s.ID,
		Status:        string(s.Status),
		SupplierID:    s.Supplier.SupplierID,
		SupplierName:  s.Supplier.SupplierName,
		PhoneNumber:   s.Supplier.PhoneNumber,
		Language:      string(s.Language),
		Items:         s.Items,
		Transcript:    s.Transcript,
		FailureReason: s.FailureReason,
		CreatedAt:     s.CreatedAt,
		EndedAt:       s.UpdatedAt,
	}
	if rec.Items == nil {
		rec.Items = []types.OrderItem{}
	}
	if rec.Transcript == nil {
		rec.Transcript = []types.TranscriptEntry{}
	}
	if s.ExtractedData != nil {
		rec.ConfirmationID = s.ExtractedData.ConfirmationID
		rec.DeliveryEstimate = s.ExtractedData.DeliveryEstimate
	}
	return rec
}

// Snapshot rebuilds a job snapshot from the archived row.
func (r CallRecord) Snapshot() jobs.Snapshot {
	snap := jobs.Snapshot{
		ID:     r.JobID,
		Status: jobs.Status(r.Status),
		Supplier: types.Supplier{
			SupplierID:   r.SupplierID,
			SupplierName: r.SupplierName,
			PhoneNumber:  r.PhoneNumber,
		},
		Items:         r.Items,
		Language:      types.Language(r.Language),
		Transcript:    r.Transcript,
		FailureReason: r.FailureReason,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.EndedAt,
	}
	if r.ConfirmationID != nil || r.DeliveryEstimate != nil {
		snap.ExtractedData = &types.ExtractedData{
			ConfirmationID:   r.ConfirmationID,
			DeliveryEstimate: r.DeliveryEstimate,
		}
	}
	return snap
}

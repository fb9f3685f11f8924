package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jonathan/procurement-caller/internal/jobs"
)

// DefaultListLimit caps ListCalls when no limit is given.
const DefaultListLimit = 100

// SaveCall archives the final snapshot of a job. Saving the same job twice
// overwrites the earlier row.
func (db *DB) SaveCall(ctx context.Context, snapshot jobs.Snapshot) error {
	rec := RecordFromSnapshot(snapshot)

	itemsJSON, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}
	transcriptJSON, err := json.Marshal(rec.Transcript)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO call_records (job_id, status, supplier_id, supplier_name, phone_number, language,
		                           items, transcript, confirmation_id, delivery_estimate, failure_reason,
		                           created_at, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (job_id) DO UPDATE SET
		     status = EXCLUDED.status,
		     transcript = EXCLUDED.transcript,
		     confirmation_id = EXCLUDED.confirmation_id,
		     delivery_estimate = EXCLUDED.delivery_estimate,
		     failure_reason = EXCLUDED.failure_reason,
		     ended_at = EXCLUDED.ended_at`,
		rec.JobID, rec.Status, rec.SupplierID, rec.SupplierName, rec.PhoneNumber, rec.Language,
		itemsJSON, transcriptJSON, rec.ConfirmationID, rec.DeliveryEstimate, rec.FailureReason,
		rec.CreatedAt, rec.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save call %s: %w", rec.JobID, err)
	}
	return nil
}

// GetCall returns one archived call, or nil if it is not archived.
func (db *DB) GetCall(ctx context.Context, jobID string) (*CallRecord, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT job_id, status, supplier_id, supplier_name, phone_number, language, items, transcript,
		        confirmation_id, delivery_estimate, failure_reason, created_at, ended_at
		 FROM call_records WHERE job_id = $1`,
		jobID,
	)
	rec, err := scanCall(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get call %s: %w", jobID, err)
	}
	return rec, nil
}

// ListCalls returns archived calls, most recently ended first.
func (db *DB) ListCalls(ctx context.Context, limit int) ([]CallRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := db.pool.Query(ctx,
		`SELECT job_id, status, supplier_id, supplier_name, phone_number, language, items, transcript,
		        confirmation_id, delivery_estimate, failure_reason, created_at, ended_at
		 FROM call_records ORDER BY ended_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	defer rows.Close()

	calls := []CallRecord{}
	for rows.Next() {
		rec, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}
		calls = append(calls, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	return calls, nil
}

func scanCall(row pgx.Row) (*CallRecord, error) {
	var rec CallRecord
	var itemsJSON, transcriptJSON []byte
	err := row.Scan(&rec.JobID, &rec.Status, &rec.SupplierID, &rec.SupplierName, &rec.PhoneNumber,
		&rec.Language, &itemsJSON, &transcriptJSON, &rec.ConfirmationID, &rec.DeliveryEstimate,
		&rec.FailureReason, &rec.CreatedAt, &rec.EndedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &rec.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items: %w", err)
	}
	if err := json.Unmarshal(transcriptJSON, &rec.Transcript); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	return &rec, nil
}

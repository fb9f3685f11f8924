package server

import (
	"encoding/json"
	"net/http"

	"github.com/jonathan/procurement-caller/internal/jobs"
	"github.com/jonathan/procurement-caller/internal/orchestrator"
)

const maxJSONBody = 1 << 20

// JobResponse is returned when a job is created or ended.
type JobResponse struct {
	JobID         string      `json:"job_id"`
	Status        jobs.Status `json:"status"`
	FailureReason string      `json:"failureReason,omitempty"`
}

// handleCreateJob validates the order, picks a supplier and places the call.
// The supplier pool defaults to the imported catalog and items that only
// name a productId are filled in from it.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.JobRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		s.errorFor(w, &ErrValidation{Field: "body", Message: err.Error()})
		return
	}
	if len(req.SupplierPool) == 0 {
		req.SupplierPool = s.catalog.Suppliers()
	}
	req.Items = s.catalog.HydrateItems(req.Items)

	snap, err := s.orch.InitiateJob(r.Context(), req)
	if err != nil {
		s.errorFor(w, err)
		return
	}

	s.jsonResponse(w, http.StatusAccepted, JobResponse{
		JobID:         snap.ID,
		Status:        snap.Status,
		FailureReason: snap.FailureReason,
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	snap, err := s.orch.Job(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, snap)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	list, err := s.orch.Jobs(r.Context())
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"jobs": list, "count": len(list)})
}

// handleEndJob hangs up the job's call. Ending a finished job returns its
// final status.
func (s *Server) handleEndJob(w http.ResponseWriter, r *http.Request) {
	snap, err := s.orch.EndCall(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, JobResponse{
		JobID:         snap.ID,
		Status:        snap.Status,
		FailureReason: snap.FailureReason,
	})
}

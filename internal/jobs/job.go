// Package jobs provides the call-job record, its state machine and the job repository.
package jobs

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/procurement-caller/internal/types"
)

// conferencePrefix prefixes the job id to form the per-job conference name.
const conferencePrefix = "Job_"

// Job is the unit of work for one procurement call.
type Job struct {
	ID             string
	Status         Status
	Supplier       types.Supplier
	Items          []types.OrderItem
	Language       types.Language
	History        []types.Turn
	Transcript     []types.TranscriptEntry
	Extracted      *types.ExtractedData
	CallRef        string
	HasAgentJoined bool
	FailureReason  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// New creates a job in the connecting state with a fresh id.
func New(supplier types.Supplier, items []types.OrderItem, lang types.Language, now time.Time) *Job {
	return &Job{
		ID:        uuid.New().String(),
		Status:    StatusConnecting,
		Supplier:  supplier,
		Items:     append([]types.OrderItem(nil), items...),
		Language:  lang,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ConferenceName returns the conference identifier used to correlate
// provider events with the job.
func ConferenceName(id string) string {
	return conferencePrefix + id
}

// IDFromConference recovers the job id from a conference name.
func IDFromConference(name string) (string, bool) {
	if !strings.HasPrefix(name, conferencePrefix) || len(name) == len(conferencePrefix) {
		return "", false
	}
	return strings.TrimPrefix(name, conferencePrefix), true
}

// Apply moves the job along the state machine. On an illegal edge the status
// is left unchanged and *TransitionError is returned.
func (j *Job) Apply(ev Event) error {
	to, err := Transition(j.Status, ev)
	if err != nil {
		return err
	}
	j.Status = to
	return nil
}

// AppendAgentTurn records an utterance of the purchasing agent.
func (j *Job) AppendAgentTurn(text string, at time.Time) {
	j.History = append(j.History, types.Turn{Role: types.RoleModel, Text: text})
	j.Transcript = append(j.Transcript, types.TranscriptEntry{Speaker: types.SpeakerAgent, Text: text, Timestamp: at})
}

// AppendSupplierTurn records a transcribed reply of the supplier.
func (j *Job) AppendSupplierTurn(text string, at time.Time) {
	j.History = append(j.History, types.Turn{Role: types.RoleUser, Text: text})
	j.Transcript = append(j.Transcript, types.TranscriptEntry{Speaker: types.SpeakerSupplier, Text: text, Timestamp: at})
}

// Clone returns a deep copy that shares no slices with j.
func (j *Job) Clone() Job {
	cp := *j
	cp.Items = append([]types.OrderItem(nil), j.Items...)
	cp.History = append([]types.Turn(nil), j.History...)
	cp.Transcript = append([]types.TranscriptEntry(nil), j.Transcript...)
	if j.Extracted != nil {
		ex := *j.Extracted
		cp.Extracted = &ex
	}
	return cp
}

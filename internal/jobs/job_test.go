package jobs

import (
	"testing"
	"time"

	"github.com/jonathan/procurement-caller/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJob() *Job {
	return New(
		types.Supplier{SupplierID: "S1", PhoneNumber: "+15550001", Specialty: "Produce"},
		[]types.OrderItem{{Product: types.Product{ProductID: "P1"}}},
		types.LanguageEnglish,
		time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	)
}

func TestNew(t *testing.T) {
	job := newTestJob()
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, StatusConnecting, job.Status)
	assert.Empty(t, job.Transcript)
	assert.Empty(t, job.History)
	assert.Nil(t, job.Extracted)
	assert.False(t, job.HasAgentJoined)
	assert.NotEqual(t, job.ID, newTestJob().ID)
}

func TestConferenceName_RoundTrip(t *testing.T) {
	assert.Equal(t, "Job_abc", ConferenceName("abc"))

	id, ok := IDFromConference("Job_abc")
	require.True(t, ok)
	assert.Equal(t, "abc", id)

	_, ok = IDFromConference("Job_")
	assert.False(t, ok)
	_, ok = IDFromConference("Other_abc")
	assert.False(t, ok)
}

func TestApply(t *testing.T) {
	job := newTestJob()
	require.NoError(t, job.Apply(EventAgentJoined))
	assert.Equal(t, StatusAgentSpeaking, job.Status)

	require.NoError(t, job.Apply(EventEndRequested))
	assert.Equal(t, StatusCallEnded, job.Status)

	assert.Error(t, job.Apply(EventAnswered))
	assert.Equal(t, StatusCallEnded, job.Status)
}

func TestAppendTurns(t *testing.T) {
	job := newTestJob()
	at := time.Now()
	job.AppendAgentTurn("hello", at)
	job.AppendSupplierTurn("hola", at)

	require.Len(t, job.History, 2)
	assert.Equal(t, types.Turn{Role: types.RoleModel, Text: "hello"}, job.History[0])
	assert.Equal(t, types.Turn{Role: types.RoleUser, Text: "hola"}, job.History[1])

	require.Len(t, job.Transcript, 2)
	assert.Equal(t, types.SpeakerAgent, job.Transcript[0].Speaker)
	assert.Equal(t, types.SpeakerSupplier, job.Transcript[1].Speaker)
	assert.Equal(t, at, job.Transcript[1].Timestamp)
}

func TestClone_IsDeep(t *testing.T) {
	job := newTestJob()
	job.AppendAgentTurn("hello", time.Now())
	id := "X1"
	job.Extracted = &types.ExtractedData{ConfirmationID: &id}

	cp := job.Clone()
	cp.Transcript[0].Text = "changed"
	cp.History = append(cp.History, types.Turn{Role: types.RoleUser, Text: "extra"})
	other := "Y2"
	cp.Extracted.ConfirmationID = &other

	assert.Equal(t, "hello", job.Transcript[0].Text)
	assert.Len(t, job.History, 1)
	assert.Equal(t, "X1", *job.Extracted.ConfirmationID)
}

func TestSnapshot(t *testing.T) {
	job := newTestJob()
	snap := job.Snapshot()
	assert.Equal(t, job.ID, snap.ID)
	assert.Equal(t, StatusConnecting, snap.Status)
	assert.NotNil(t, snap.Transcript)
	assert.Empty(t, snap.Transcript)
	assert.Nil(t, snap.ExtractedData)
}

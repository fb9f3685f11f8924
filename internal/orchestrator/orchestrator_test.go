package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonathan/procurement-caller/internal/catalog"
	"github.com/jonathan/procurement-caller/internal/dialogue"
	"github.com/jonathan/procurement-caller/internal/jobs"
	"github.com/jonathan/procurement-caller/internal/llm"
	"github.com/jonathan/procurement-caller/internal/telephony"
	"github.com/jonathan/procurement-caller/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	orch     *Orchestrator
	store    *jobs.MemoryStore
	gateway  *MockGateway
	llm      *MockLLMClient
	archiver *MockArchiver
	clock    *fakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		gateway:  &MockGateway{},
		llm:      &MockLLMClient{},
		archiver: &MockArchiver{},
		clock:    newFakeClock(),
	}
	h.store = jobs.NewMemoryStore().WithClock(h.clock.Now)
	engine := dialogue.NewEngine(h.llm)
	h.orch = New(h.store, h.gateway, engine, Options{
		TurnTimeout:     time.Second,
		ProviderTimeout: time.Second,
		Archiver:        h.archiver,
		Now:             h.clock.Now,
	})
	return h
}

func intPtr(n int) *int { return &n }

func produceRequest() JobRequest {
	return JobRequest{
		Items:     []types.OrderItem{{Product: types.Product{ProductID: "P1"}, Quantity: intPtr(5)}},
		Specialty: "Produce",
		SupplierPool: []types.Supplier{
			{SupplierID: "S1", SupplierName: "Fresh Farms", Specialty: "Produce", PhoneNumber: "+15550001"},
		},
	}
}

func (h *harness) startJob(t *testing.T) jobs.Snapshot {
	t.Helper()
	snap, err := h.orch.InitiateJob(context.Background(), produceRequest())
	require.NoError(t, err)
	return snap
}

func (h *harness) join(t *testing.T, id string) *telephony.Action {
	t.Helper()
	action, err := h.orch.OnParticipantJoined(context.Background(), id, "CA-"+id)
	require.NoError(t, err)
	return action
}

func (h *harness) get(t *testing.T, id string) jobs.Snapshot {
	t.Helper()
	snap, err := h.orch.Job(context.Background(), id)
	require.NoError(t, err)
	return snap
}

func TestEndToEnd_ConfirmationExtracted(t *testing.T) {
	h := newHarness(t)
	h.llm.GenerateChatFunc = func(_ context.Context, _ string, history []llm.Message, _ llm.ModelTier) (string, error) {
		require.Equal(t, "Sí, confirmado, número AX1, 3 días", history[len(history)-1].Text)
		return `[END_CALL] {"confirmationId":"AX1","deliveryEstimate":"3 days"} Thank you, goodbye.`, nil
	}

	snap := h.startJob(t)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, jobs.StatusConnecting, snap.Status)
	assert.Equal(t, "S1", snap.Supplier.SupplierID)

	placed := h.gateway.Placed()
	require.Len(t, placed, 1)
	assert.Equal(t, "Job_"+snap.ID, placed[0].ConferenceName)
	assert.Equal(t, "+15550001", placed[0].To)

	action := h.join(t, snap.ID)
	require.NotNil(t, action)
	assert.True(t, action.Gather)
	assert.Contains(t, action.Say, "5 x P1")

	joined := h.get(t, snap.ID)
	assert.Equal(t, jobs.StatusAgentSpeaking, joined.Status)
	assert.Len(t, joined.Transcript, 1)

	action, err := h.orch.OnSpeechReceived(context.Background(), snap.ID, "Sí, confirmado, número AX1, 3 días")
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.True(t, action.Hangup)
	assert.Equal(t, "Thank you, goodbye.", action.Say)

	final := h.get(t, snap.ID)
	assert.Equal(t, jobs.StatusCallEnded, final.Status)
	require.NotNil(t, final.ExtractedData)
	assert.Equal(t, "AX1", *final.ExtractedData.ConfirmationID)
	assert.Equal(t, "3 days", *final.ExtractedData.DeliveryEstimate)
	require.Len(t, final.Transcript, 3)
	assert.Equal(t, types.SpeakerSupplier, final.Transcript[1].Speaker)
	assert.Equal(t, types.SpeakerAgent, final.Transcript[2].Speaker)

	h.orch.Wait()
	saved := h.archiver.Saved()
	require.Len(t, saved, 1)
	assert.Equal(t, jobs.StatusCallEnded, saved[0].Status)
}

func TestInitiateJob_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *JobRequest)
	}{
		{name: "no items", mutate: func(r *JobRequest) { r.Items = nil }},
		{name: "no specialty", mutate: func(r *JobRequest) { r.Specialty = "" }},
		{name: "no supplier pool", mutate: func(r *JobRequest) { r.SupplierPool = nil }},
		{name: "item without product id", mutate: func(r *JobRequest) { r.Items[0].Product.ProductID = "" }},
		{name: "zero quantity", mutate: func(r *JobRequest) { r.Items[0].Quantity = intPtr(0) }},
		{name: "unsupported language", mutate: func(r *JobRequest) { r.Language = "fr" }},
		{name: "supplier without phone", mutate: func(r *JobRequest) { r.SupplierPool[0].PhoneNumber = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			req := produceRequest()
			tt.mutate(&req)

			_, err := h.orch.InitiateJob(context.Background(), req)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Empty(t, h.gateway.Placed())

			list, err := h.orch.Jobs(context.Background())
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestInitiateJob_NoMatch(t *testing.T) {
	h := newHarness(t)
	req := produceRequest()
	req.Specialty = "Seafood"

	_, err := h.orch.InitiateJob(context.Background(), req)
	var nm *catalog.NoMatchError
	require.True(t, errors.As(err, &nm))
	assert.Equal(t, "Seafood", nm.Specialty)
	assert.Empty(t, h.gateway.Placed())
}

func TestInitiateJob_FirstMatchingSupplierAndLanguage(t *testing.T) {
	h := newHarness(t)
	req := produceRequest()
	req.Language = types.LanguageSpanish
	req.SupplierPool = []types.Supplier{
		{SupplierID: "A1", Specialty: "Dairy", PhoneNumber: "+1"},
		{SupplierID: "P1", Specialty: "Produce", PhoneNumber: "+2"},
		{SupplierID: "P2", Specialty: "Produce", PhoneNumber: "+3"},
	}

	snap, err := h.orch.InitiateJob(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "P1", snap.Supplier.SupplierID)
	assert.Equal(t, types.LanguageSpanish, snap.Language)
	assert.Equal(t, types.LanguageSpanish, h.gateway.Placed()[0].Language)
}

func TestInitiateJob_PlacementFailure(t *testing.T) {
	h := newHarness(t)
	h.gateway.PlaceCallFunc = func(context.Context, telephony.CallRequest) (string, error) {
		return "", &telephony.ProviderError{Op: "place call", Cause: errors.New("invalid credentials")}
	}

	snap, err := h.orch.InitiateJob(context.Background(), produceRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, jobs.StatusError, snap.Status)
	assert.Equal(t, ReasonPlacementFailed, snap.FailureReason)

	h.orch.Wait()
	assert.Len(t, h.archiver.Saved(), 1)
}

func TestInitiateJob_EndedWhileDialing(t *testing.T) {
	h := newHarness(t)
	h.gateway.PlaceCallFunc = func(ctx context.Context, req telephony.CallRequest) (string, error) {
		_, err := h.orch.EndCall(ctx, req.JobID)
		require.NoError(t, err)
		return "CA-late", nil
	}

	snap := h.startJob(t)
	assert.Equal(t, jobs.StatusCallEnded, snap.Status)
	assert.Equal(t, []string{"CA-late"}, h.gateway.Ended())
}

func TestInitiateJob_LatePlacementIsHungUp(t *testing.T) {
	h := newHarness(t)
	h.orch = New(h.store, h.gateway, dialogue.NewEngine(h.llm), Options{
		ProviderTimeout: 20 * time.Millisecond,
		Archiver:        h.archiver,
		Now:             h.clock.Now,
	})
	release := make(chan struct{})
	h.gateway.PlaceCallFunc = func(ctx context.Context, req telephony.CallRequest) (string, error) {
		<-release
		return "CA-late", nil
	}

	snap, err := h.orch.InitiateJob(context.Background(), produceRequest())
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusError, snap.Status)
	assert.Equal(t, ReasonPlacementFailed, snap.FailureReason)
	assert.Empty(t, h.gateway.Ended())

	close(release)
	h.orch.Wait()

	job, err := h.store.Get(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusError, job.Status)
	assert.Equal(t, "CA-late", job.CallRef)
	assert.Equal(t, []string{"CA-late"}, h.gateway.Ended())
}

func TestInitiateJob_LatePlacementFailureNeedsNoHangup(t *testing.T) {
	h := newHarness(t)
	h.orch = New(h.store, h.gateway, dialogue.NewEngine(h.llm), Options{
		ProviderTimeout: 20 * time.Millisecond,
		Now:             h.clock.Now,
	})
	release := make(chan struct{})
	h.gateway.PlaceCallFunc = func(context.Context, telephony.CallRequest) (string, error) {
		<-release
		return "", &telephony.ProviderError{Op: "place call", Cause: errors.New("busy")}
	}

	snap, err := h.orch.InitiateJob(context.Background(), produceRequest())
	require.NoError(t, err)
	close(release)
	h.orch.Wait()

	assert.Equal(t, jobs.StatusError, h.get(t, snap.ID).Status)
	assert.Empty(t, h.gateway.Ended())
}

func TestInitiateJob_SlowProviderCallIsEnded(t *testing.T) {
	api := &slowCallAPI{delay: 300 * time.Millisecond, sid: "CA-live"}
	gw, err := telephony.NewTwilioGatewayWithAPI(api, telephony.TwilioConfig{
		FromNumber:    "+15550000",
		PublicBaseURL: "https://calls.example.com",
	})
	require.NoError(t, err)

	store := jobs.NewMemoryStore()
	orch := New(store, gw, dialogue.NewEngine(&MockLLMClient{}), Options{ProviderTimeout: 50 * time.Millisecond})

	snap, err := orch.InitiateJob(context.Background(), produceRequest())
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusError, snap.Status)

	orch.Wait()
	job, err := store.Get(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, "CA-live", job.CallRef)
	assert.Equal(t, []string{"CA-live"}, api.Updated())
}

func TestInitiateJob_ClientCancelDoesNotAbortPlacement(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.gateway.PlaceCallFunc = func(callCtx context.Context, req telephony.CallRequest) (string, error) {
		cancel()
		if err := callCtx.Err(); err != nil {
			return "", err
		}
		return "CA-" + req.JobID, nil
	}

	snap, err := h.orch.InitiateJob(ctx, produceRequest())
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusConnecting, snap.Status)
	job, err := h.store.Get(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, "CA-"+snap.ID, job.CallRef)
}

func TestOnParticipantJoined_Idempotent(t *testing.T) {
	h := newHarness(t)
	snap := h.startJob(t)

	first := h.join(t, snap.ID)
	require.NotNil(t, first)
	second := h.join(t, snap.ID)
	assert.Nil(t, second)

	got := h.get(t, snap.ID)
	assert.Len(t, got.Transcript, 1)
	assert.Equal(t, jobs.StatusAgentSpeaking, got.Status)
}

func TestOnParticipantJoined_UnknownJob(t *testing.T) {
	h := newHarness(t)

	action, err := h.orch.OnParticipantJoined(context.Background(), "missing", "CA1")
	assert.NoError(t, err)
	assert.Nil(t, action)
}

func TestOnParticipantJoined_AfterAnswered(t *testing.T) {
	h := newHarness(t)
	snap := h.startJob(t)
	require.NoError(t, h.orch.OnProviderStatus(context.Background(), snap.ID, telephony.StateInProgress))

	action := h.join(t, snap.ID)
	require.NotNil(t, action)
	assert.Len(t, h.get(t, snap.ID).Transcript, 1)
}

func TestOnPromptDelivered(t *testing.T) {
	h := newHarness(t)
	snap := h.startJob(t)

	// Before the opening there is nothing to deliver.
	require.NoError(t, h.orch.OnPromptDelivered(context.Background(), snap.ID))
	assert.Equal(t, jobs.StatusConnecting, h.get(t, snap.ID).Status)

	h.join(t, snap.ID)
	require.NoError(t, h.orch.OnPromptDelivered(context.Background(), snap.ID))
	assert.Equal(t, jobs.StatusListeningForResponse, h.get(t, snap.ID).Status)

	var nf *jobs.NotFoundError
	assert.True(t, errors.As(h.orch.OnPromptDelivered(context.Background(), "missing"), &nf))
}

func TestOnSpeechReceived_ContinuesConversation(t *testing.T) {
	h := newHarness(t)
	snap := h.startJob(t)
	h.join(t, snap.ID)
	require.NoError(t, h.orch.OnPromptDelivered(context.Background(), snap.ID))

	action, err := h.orch.OnSpeechReceived(context.Background(), snap.ID, "Yes, we have onions.")
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.True(t, action.Gather)
	assert.False(t, action.Hangup)
	assert.Equal(t, "Could you confirm the delivery date?", action.Say)

	got := h.get(t, snap.ID)
	assert.Equal(t, jobs.StatusAgentSpeaking, got.Status)
	assert.Len(t, got.Transcript, 3)
	assert.Nil(t, got.ExtractedData)
}

func TestOnSpeechReceived_UnknownJob(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.OnSpeechReceived(context.Background(), "missing", "hello")
	var nf *jobs.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestOnSpeechReceived_TerminalJobHangsUp(t *testing.T) {
	h := newHarness(t)
	snap := h.startJob(t)
	h.join(t, snap.ID)
	_, err := h.orch.EndCall(context.Background(), snap.ID)
	require.NoError(t, err)

	action, err := h.orch.OnSpeechReceived(context.Background(), snap.ID, "hello?")
	require.NoError(t, err)
	assert.Equal(t, telephony.HangupOnly(), action)

	got := h.get(t, snap.ID)
	assert.Equal(t, jobs.StatusCallEnded, got.Status)
	assert.Len(t, got.Transcript, 1)
}

func TestOnSpeechReceived_EngineFailure(t *testing.T) {
	h := newHarness(t)
	h.llm.GenerateChatFunc = func(context.Context, string, []llm.Message, llm.ModelTier) (string, error) {
		return "", errors.New("upstream unavailable")
	}
	snap := h.startJob(t)
	h.join(t, snap.ID)

	action, err := h.orch.OnSpeechReceived(context.Background(), snap.ID, "Hello?")
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.True(t, action.Hangup)
	assert.Equal(t, dialogue.ApologyLine(types.LanguageEnglish), action.Say)

	got := h.get(t, snap.ID)
	assert.Equal(t, jobs.StatusError, got.Status)
	assert.Equal(t, ReasonEngineFailed, got.FailureReason)
	assert.Nil(t, got.ExtractedData)
}

func TestOnSpeechReceived_EngineTimeout(t *testing.T) {
	h := newHarness(t)
	h.orch.opts.TurnTimeout = 20 * time.Millisecond
	h.llm.GenerateChatFunc = func(ctx context.Context, _ string, _ []llm.Message, _ llm.ModelTier) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	snap := h.startJob(t)
	h.join(t, snap.ID)

	action, err := h.orch.OnSpeechReceived(context.Background(), snap.ID, "Hello?")
	require.NoError(t, err)
	assert.True(t, action.Hangup)
	assert.Equal(t, jobs.StatusError, h.get(t, snap.ID).Status)
}

func TestOnSpeechReceived_MalformedPayloadStillEnds(t *testing.T) {
	h := newHarness(t)
	h.llm.GenerateChatFunc = func(context.Context, string, []llm.Message, llm.ModelTier) (string, error) {
		return `[END_CALL] {"confirmationId": AX1 } Thanks, bye.`, nil
	}
	snap := h.startJob(t)
	h.join(t, snap.ID)

	action, err := h.orch.OnSpeechReceived(context.Background(), snap.ID, "AX1, three days")
	require.NoError(t, err)
	assert.True(t, action.Hangup)
	assert.Equal(t, "Thanks, bye.", action.Say)

	got := h.get(t, snap.ID)
	assert.Equal(t, jobs.StatusCallEnded, got.Status)
	assert.Nil(t, got.ExtractedData)
}

func TestOnSpeechReceived_EmptyTextIsSilence(t *testing.T) {
	h := newHarness(t)
	snap := h.startJob(t)
	h.join(t, snap.ID)

	action, err := h.orch.OnSpeechReceived(context.Background(), snap.ID, "   ")
	require.NoError(t, err)
	assert.True(t, action.Hangup)
	assert.Equal(t, dialogue.NoResponseLine(types.LanguageEnglish), action.Say)

	got := h.get(t, snap.ID)
	assert.Equal(t, jobs.StatusError, got.Status)
	assert.Equal(t, ReasonNoResponse, got.FailureReason)
}

func TestOnSilence_TerminalAndUnknown(t *testing.T) {
	h := newHarness(t)
	snap := h.startJob(t)
	_, err := h.orch.EndCall(context.Background(), snap.ID)
	require.NoError(t, err)

	action, err := h.orch.OnSilence(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, telephony.HangupOnly(), action)
	assert.Equal(t, jobs.StatusCallEnded, h.get(t, snap.ID).Status)

	_, err = h.orch.OnSilence(context.Background(), "missing")
	var nf *jobs.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestOnSpeechReceived_ConcurrentEventsSerialized(t *testing.T) {
	h := newHarness(t)
	var inFlight, maxInFlight int32
	var calls int32
	h.llm.GenerateChatFunc = func(context.Context, string, []llm.Message, llm.ModelTier) (string, error) {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return fmt.Sprintf("reply %d", atomic.AddInt32(&calls, 1)), nil
	}
	snap := h.startJob(t)
	h.join(t, snap.ID)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.orch.OnSpeechReceived(context.Background(), snap.ID, fmt.Sprintf("utterance %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))

	job, err := h.store.Get(context.Background(), snap.ID)
	require.NoError(t, err)
	require.Len(t, job.History, 9)
	for i, turn := range job.History {
		if i%2 == 0 {
			assert.Equal(t, types.RoleModel, turn.Role, "turn %d", i)
		} else {
			assert.Equal(t, types.RoleUser, turn.Role, "turn %d", i)
		}
	}
}

func TestOnProviderStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	snap := h.startJob(t)

	require.NoError(t, h.orch.OnProviderStatus(ctx, snap.ID, telephony.StateRinging))
	assert.Equal(t, jobs.StatusConnecting, h.get(t, snap.ID).Status)

	require.NoError(t, h.orch.OnProviderStatus(ctx, snap.ID, telephony.StateInProgress))
	assert.Equal(t, jobs.StatusAgentSpeaking, h.get(t, snap.ID).Status)

	h.join(t, snap.ID)
	require.NoError(t, h.orch.OnPromptDelivered(ctx, snap.ID))

	// A late answered event does not move the conversation backwards.
	require.NoError(t, h.orch.OnProviderStatus(ctx, snap.ID, telephony.StateAnswered))
	assert.Equal(t, jobs.StatusListeningForResponse, h.get(t, snap.ID).Status)

	require.NoError(t, h.orch.OnProviderStatus(ctx, snap.ID, telephony.StateCompleted))
	assert.Equal(t, jobs.StatusCallEnded, h.get(t, snap.ID).Status)

	// Terminal states are never left.
	require.NoError(t, h.orch.OnProviderStatus(ctx, snap.ID, telephony.StateRinging))
	require.NoError(t, h.orch.OnProviderStatus(ctx, snap.ID, telephony.StateFailed))
	assert.Equal(t, jobs.StatusCallEnded, h.get(t, snap.ID).Status)

	h.orch.Wait()
	assert.Len(t, h.archiver.Saved(), 1)
}

func TestOnProviderStatus_NoAnswerEndsConnectingJob(t *testing.T) {
	h := newHarness(t)
	snap := h.startJob(t)

	require.NoError(t, h.orch.OnProviderStatus(context.Background(), snap.ID, telephony.StateNoAnswer))
	assert.Equal(t, jobs.StatusCallEnded, h.get(t, snap.ID).Status)
}

func TestOnProviderStatus_UnknownJobAndState(t *testing.T) {
	h := newHarness(t)
	var nf *jobs.NotFoundError

	assert.True(t, errors.As(h.orch.OnProviderStatus(context.Background(), "missing", telephony.StateCompleted), &nf))
	assert.True(t, errors.As(h.orch.OnProviderStatus(context.Background(), "missing", telephony.CallState("weird")), &nf))

	snap := h.startJob(t)
	require.NoError(t, h.orch.OnProviderStatus(context.Background(), snap.ID, telephony.CallState("weird")))
	assert.Equal(t, jobs.StatusConnecting, h.get(t, snap.ID).Status)
}

func TestEndCall_Idempotent(t *testing.T) {
	h := newHarness(t)
	snap := h.startJob(t)
	h.join(t, snap.ID)

	first, err := h.orch.EndCall(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCallEnded, first.Status)

	second, err := h.orch.EndCall(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCallEnded, second.Status)

	assert.Equal(t, []string{"CA-" + snap.ID}, h.gateway.Ended())
	h.orch.Wait()
	assert.Len(t, h.archiver.Saved(), 1)
}

func TestEndCall_ProviderFailureIsSoft(t *testing.T) {
	h := newHarness(t)
	h.gateway.EndCallFunc = func(context.Context, string) error {
		return &telephony.ProviderError{Op: "end call", Cause: errors.New("already completed")}
	}
	snap := h.startJob(t)

	got, err := h.orch.EndCall(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCallEnded, got.Status)
}

func TestEndCall_UnknownJob(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.EndCall(context.Background(), "missing")
	var nf *jobs.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestArchiverFailureDoesNotAffectJob(t *testing.T) {
	h := newHarness(t)
	h.archiver.err = errors.New("database down")
	snap := h.startJob(t)

	got, err := h.orch.EndCall(context.Background(), snap.ID)
	require.NoError(t, err)
	h.orch.Wait()
	assert.Equal(t, jobs.StatusCallEnded, got.Status)
	assert.Len(t, h.archiver.Saved(), 1)
}

func TestJobs_NewestFirst(t *testing.T) {
	h := newHarness(t)
	first := h.startJob(t)
	h.clock.Advance(time.Second)
	second := h.startJob(t)

	list, err := h.orch.Jobs(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

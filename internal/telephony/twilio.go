package telephony

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// CallAPI is the subset of the Twilio REST API used by TwilioGateway.
type CallAPI interface {
	CreateCall(params *openapi.CreateCallParams) (*openapi.ApiV2010Call, error)
	UpdateCall(sid string, params *openapi.UpdateCallParams) (*openapi.ApiV2010Call, error)
}

// TwilioConfig holds the account settings of the Twilio gateway.
type TwilioConfig struct {
	AccountSID    string
	AuthToken     string
	FromNumber    string
	PublicBaseURL string
	GatherTimeout int
	RingTimeout   int
}

// TwilioGateway implements Gateway with the Twilio Programmable Voice API.
type TwilioGateway struct {
	api      CallAPI
	from     string
	ring     int
	renderer Renderer
}

// NewTwilioGateway creates a gateway authenticated with the account credentials.
func NewTwilioGateway(cfg TwilioConfig) (*TwilioGateway, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("twilio account SID and auth token are required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return NewTwilioGatewayWithAPI(client.Api, cfg)
}

// NewTwilioGatewayWithAPI creates a gateway over an existing API client.
func NewTwilioGatewayWithAPI(api CallAPI, cfg TwilioConfig) (*TwilioGateway, error) {
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("twilio from number is required")
	}
	if cfg.PublicBaseURL == "" {
		return nil, fmt.Errorf("public base URL is required for provider callbacks")
	}
	ring := cfg.RingTimeout
	if ring <= 0 {
		ring = 30
	}
	return &TwilioGateway{
		api:  api,
		from: cfg.FromNumber,
		ring: ring,
		renderer: Renderer{
			Callbacks:     Callbacks{BaseURL: cfg.PublicBaseURL},
			GatherTimeout: cfg.GatherTimeout,
		},
	}, nil
}

// Renderer returns the TwiML renderer configured for this gateway.
func (g *TwilioGateway) Renderer() Renderer {
	return g.renderer
}

// PlaceCall dials req.To and bridges the call into req.ConferenceName.
func (g *TwilioGateway) PlaceCall(ctx context.Context, req CallRequest) (string, error) {
	doc, err := g.renderer.ConferenceTwiML(req.JobID, req.ConferenceName)
	if err != nil {
		return "", &ProviderError{Op: "place call", Cause: err}
	}

	params := &openapi.CreateCallParams{}
	params.SetTo(req.To)
	params.SetFrom(g.from)
	params.SetTwiml(doc)
	params.SetTimeout(g.ring)
	params.SetStatusCallback(g.renderer.Callbacks.Status(req.JobID))
	params.SetStatusCallbackEvent([]string{"initiated", "ringing", "answered", "completed"})
	params.SetStatusCallbackMethod("POST")

	call, err := withContext(ctx, func() (*openapi.ApiV2010Call, error) {
		return g.api.CreateCall(params)
	})
	if err != nil {
		return "", &ProviderError{Op: "place call", Cause: err}
	}
	if call == nil || call.Sid == nil || *call.Sid == "" {
		return "", &ProviderError{Op: "place call", Cause: fmt.Errorf("response carries no call SID")}
	}
	return *call.Sid, nil
}

// Instruct redirects the live call to the TwiML rendered from action.
func (g *TwilioGateway) Instruct(ctx context.Context, jobID, callRef string, action Action) error {
	if callRef == "" {
		return &ProviderError{Op: "instruct call", Cause: fmt.Errorf("empty call reference")}
	}
	doc, err := g.renderer.Render(jobID, &action)
	if err != nil {
		return &ProviderError{Op: "instruct call", Cause: err}
	}

	params := &openapi.UpdateCallParams{}
	params.SetTwiml(doc)

	if _, err := withContext(ctx, func() (*openapi.ApiV2010Call, error) {
		return g.api.UpdateCall(callRef, params)
	}); err != nil {
		return &ProviderError{Op: "instruct call", Cause: err}
	}
	return nil
}

// EndCall marks the call completed, which hangs it up.
func (g *TwilioGateway) EndCall(ctx context.Context, callRef string) error {
	if callRef == "" {
		return &ProviderError{Op: "end call", Cause: fmt.Errorf("empty call reference")}
	}
	params := &openapi.UpdateCallParams{}
	params.SetStatus("completed")

	if _, err := withContext(ctx, func() (*openapi.ApiV2010Call, error) {
		return g.api.UpdateCall(callRef, params)
	}); err != nil {
		return &ProviderError{Op: "end call", Cause: err}
	}
	return nil
}

// withContext bounds a blocking REST request by ctx. The request itself is
// not interrupted; its result is discarded once ctx is done.
func withContext(ctx context.Context, fn func() (*openapi.ApiV2010Call, error)) (*openapi.ApiV2010Call, error) {
	type result struct {
		call *openapi.ApiV2010Call
		err  error
	}
	done := make(chan result, 1)
	go func() {
		call, err := fn()
		done <- result{call: call, err: err}
	}()

	select {
	case r := <-done:
		return r.call, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

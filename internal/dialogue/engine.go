// Package dialogue drives the purchasing agent's side of a call: it asks the
// dialogue model for the next utterance and recognises the final one.
package dialogue

import (
	"context"
	"strings"

	"github.com/jonathan/procurement-caller/internal/llm"
	"github.com/jonathan/procurement-caller/internal/types"
)

// TurnEngine produces the agent's next reply for a conversation.
type TurnEngine interface {
	NextTurn(ctx context.Context, order Order, history []types.Turn) (Reply, error)
}

// Engine is a TurnEngine backed by an llm.Client.
type Engine struct {
	client llm.Client
	tier   llm.ModelTier
	marker string
}

// Option configures an Engine.
type Option func(*Engine)

// WithTier selects the model tier used for turns.
func WithTier(tier llm.ModelTier) Option {
	return func(e *Engine) { e.tier = tier }
}

// WithMarker overrides the termination marker.
func WithMarker(marker string) Option {
	return func(e *Engine) {
		if marker != "" {
			e.marker = marker
		}
	}
}

// NewEngine creates an engine using the standard tier and DefaultMarker.
func NewEngine(client llm.Client, opts ...Option) *Engine {
	e := &Engine{
		client: client,
		tier:   llm.TierStandard,
		marker: DefaultMarker,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Marker returns the termination marker the engine instructs the model to use.
func (e *Engine) Marker() string {
	return e.marker
}

// NextTurn sends the history to the model and parses its reply.
// Any failure of the round trip, including ctx expiry, is an *EngineError.
func (e *Engine) NextTurn(ctx context.Context, order Order, history []types.Turn) (Reply, error) {
	system, err := SystemInstruction(order, e.marker)
	if err != nil {
		return Reply{}, &EngineError{Message: "failed to build system instruction", Cause: err}
	}

	messages := make([]llm.Message, 0, len(history))
	for _, turn := range history {
		role := llm.RoleUser
		if turn.Role == types.RoleModel {
			role = llm.RoleModel
		}
		messages = append(messages, llm.Message{Role: role, Text: turn.Text})
	}

	raw, err := e.client.GenerateChat(ctx, system, messages, e.tier)
	if err != nil {
		return Reply{}, &EngineError{Message: "failed to generate reply", Cause: err}
	}
	if strings.TrimSpace(raw) == "" {
		return Reply{}, &EngineError{Message: "empty reply"}
	}

	return ParseReply(raw, e.marker), nil
}

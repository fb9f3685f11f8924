package telephony

import "strings"

// CallState is a coarse provider call status as delivered by status callbacks.
type CallState string

// Provider call states.
const (
	StateQueued     CallState = "queued"
	StateInitiated  CallState = "initiated"
	StateRinging    CallState = "ringing"
	StateAnswered   CallState = "answered"
	StateInProgress CallState = "in-progress"
	StateCompleted  CallState = "completed"
	StateBusy       CallState = "busy"
	StateFailed     CallState = "failed"
	StateNoAnswer   CallState = "no-answer"
	StateCanceled   CallState = "canceled"
)

var knownStates = map[CallState]bool{
	StateQueued: true, StateInitiated: true, StateRinging: true,
	StateAnswered: true, StateInProgress: true, StateCompleted: true,
	StateBusy: true, StateFailed: true, StateNoAnswer: true, StateCanceled: true,
}

// ParseCallState normalises a provider status string.
func ParseCallState(s string) (CallState, bool) {
	state := CallState(strings.ToLower(strings.TrimSpace(s)))
	return state, knownStates[state]
}

// Pending reports whether the call has not been picked up yet.
func (s CallState) Pending() bool {
	return s == StateQueued || s == StateInitiated || s == StateRinging
}

// Live reports whether the call has been answered and is ongoing.
func (s CallState) Live() bool {
	return s == StateAnswered || s == StateInProgress
}

// Terminal reports whether the provider considers the call over.
func (s CallState) Terminal() bool {
	switch s {
	case StateCompleted, StateBusy, StateFailed, StateNoAnswer, StateCanceled:
		return true
	}
	return false
}

package telephony

import "github.com/jonathan/procurement-caller/internal/types"

// Action tells the provider what to do next on a live call.
type Action struct {
	Say      string
	Language types.Language
	// Gather captures the supplier's spoken reply after Say.
	Gather bool
	// Hangup ends the call after Say.
	Hangup bool
}

// SpeakAndGather says text and waits for the reply.
func SpeakAndGather(text string, lang types.Language) *Action {
	return &Action{Say: text, Language: lang, Gather: true}
}

// SpeakAndHangup says text, if any, and ends the call.
func SpeakAndHangup(text string, lang types.Language) *Action {
	return &Action{Say: text, Language: lang, Hangup: true}
}

// HangupOnly ends the call without speaking.
func HangupOnly() *Action {
	return &Action{Hangup: true}
}

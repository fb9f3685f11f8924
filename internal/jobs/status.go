package jobs

// Status is the lifecycle state of a call job.
type Status string

// Job statuses. CallEnded and Error are terminal.
const (
	StatusConnecting           Status = "connecting"
	StatusAgentSpeaking        Status = "agentSpeaking"
	StatusListeningForResponse Status = "listeningForResponse"
	StatusProcessingResponse   Status = "processingResponse"
	StatusCallEnded            Status = "callEnded"
	StatusError                Status = "error"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCallEnded || s == StatusError
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusConnecting, StatusAgentSpeaking, StatusListeningForResponse,
		StatusProcessingResponse, StatusCallEnded, StatusError:
		return true
	}
	return false
}

// Event is an input to the job state machine.
type Event string

// State machine events.
const (
	EventRinging              Event = "ringing"               // provider reports the call is ringing
	EventAnswered             Event = "answered"              // provider reports the call was answered
	EventAgentJoined          Event = "agent_joined"          // supplier joined the conference, opening prompt spoken
	EventPromptDelivered      Event = "prompt_delivered"      // speak-and-gather handed to the provider
	EventSpeechReceived       Event = "speech_received"       // transcribed supplier reply arrived
	EventAgentReplied         Event = "agent_replied"         // dialogue engine produced a non-final reply
	EventConversationFinished Event = "conversation_finished" // dialogue engine produced the termination marker
	EventProviderEnded        Event = "provider_ended"        // provider reports a terminal call state
	EventEndRequested         Event = "end_requested"         // user asked to end the call
	EventFailed               Event = "failed"                // unrecoverable failure
)

type edge struct {
	from  Status
	event Event
}

var transitions = map[edge]Status{
	{StatusConnecting, EventRinging}:     StatusConnecting,
	{StatusConnecting, EventAnswered}:    StatusAgentSpeaking,
	{StatusConnecting, EventAgentJoined}: StatusAgentSpeaking,

	{StatusAgentSpeaking, EventAgentJoined}:     StatusAgentSpeaking,
	{StatusAgentSpeaking, EventPromptDelivered}: StatusListeningForResponse,
	{StatusAgentSpeaking, EventSpeechReceived}:  StatusProcessingResponse,

	{StatusListeningForResponse, EventSpeechReceived}: StatusProcessingResponse,

	{StatusProcessingResponse, EventAgentReplied}:         StatusAgentSpeaking,
	{StatusProcessingResponse, EventConversationFinished}: StatusCallEnded,
}

// Transition returns the status reached from `from` on event ev.
// It is a pure function; illegal edges return *TransitionError and leave the
// caller's status untouched.
func Transition(from Status, ev Event) (Status, error) {
	if from.Terminal() {
		return from, &TransitionError{From: from, Event: ev}
	}

	// Edges reachable from every non-terminal state.
	switch ev {
	case EventProviderEnded, EventEndRequested:
		return StatusCallEnded, nil
	case EventFailed:
		return StatusError, nil
	}

	to, ok := transitions[edge{from, ev}]
	if !ok {
		return from, &TransitionError{From: from, Event: ev}
	}
	return to, nil
}

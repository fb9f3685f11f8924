package telephony

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/twilio/twilio-go/twiml"
)

// Callbacks derives the per-job webhook URLs from the public base URL.
type Callbacks struct {
	BaseURL string
}

func (c Callbacks) jobURL(jobID, hook string) string {
	return fmt.Sprintf("%s/webhooks/jobs/%s/%s", strings.TrimRight(c.BaseURL, "/"), jobID, hook)
}

// Conference is called when a participant joins the job's conference.
func (c Callbacks) Conference(jobID string) string { return c.jobURL(jobID, "conference") }

// Gather receives the supplier's transcribed reply.
func (c Callbacks) Gather(jobID string) string { return c.jobURL(jobID, "gather") }

// Status receives call status changes.
func (c Callbacks) Status(jobID string) string { return c.jobURL(jobID, "status") }

// Renderer turns actions into TwiML documents.
type Renderer struct {
	Callbacks Callbacks
	// GatherTimeout is the silence window in seconds before the gather gives up.
	GatherTimeout int
}

// Render produces the TwiML for action on the job's call. A nil action
// renders an empty response, which leaves the call as it is.
func (r Renderer) Render(jobID string, action *Action) (string, error) {
	var verbs []twiml.Element
	if action != nil {
		verbs = r.verbs(jobID, *action)
	}
	doc, err := twiml.Voice(verbs)
	if err != nil {
		return "", fmt.Errorf("failed to render TwiML: %w", err)
	}
	return doc, nil
}

func (r Renderer) verbs(jobID string, action Action) []twiml.Element {
	locale := action.Language.Locale()

	var say twiml.Element
	if action.Say != "" {
		say = &twiml.VoiceSay{Message: action.Say, Language: locale}
	}

	if action.Gather && !action.Hangup {
		gather := &twiml.VoiceGather{
			Input:               "speech",
			Action:              r.Callbacks.Gather(jobID),
			Method:              "POST",
			Language:            locale,
			SpeechTimeout:       "auto",
			Timeout:             strconv.Itoa(r.gatherTimeout()),
			ActionOnEmptyResult: "true",
		}
		if say != nil {
			gather.InnerElements = []twiml.Element{say}
		}
		return []twiml.Element{gather}
	}

	var verbs []twiml.Element
	if say != nil {
		verbs = append(verbs, say)
	}
	if action.Hangup {
		verbs = append(verbs, &twiml.VoiceHangup{})
	}
	return verbs
}

func (r Renderer) gatherTimeout() int {
	if r.GatherTimeout <= 0 {
		return 5
	}
	return r.GatherTimeout
}

// ConferenceTwiML joins the callee into the named conference and asks for
// participant-join callbacks.
func (r Renderer) ConferenceTwiML(jobID, conferenceName string) (string, error) {
	dial := &twiml.VoiceDial{
		InnerElements: []twiml.Element{
			&twiml.VoiceConference{
				Name:                   conferenceName,
				StatusCallback:         r.Callbacks.Conference(jobID),
				StatusCallbackEvent:    "join",
				StatusCallbackMethod:   "POST",
				StartConferenceOnEnter: "true",
				EndConferenceOnExit:    "true",
			},
		},
	}
	doc, err := twiml.Voice([]twiml.Element{dial})
	if err != nil {
		return "", fmt.Errorf("failed to render conference TwiML: %w", err)
	}
	return doc, nil
}

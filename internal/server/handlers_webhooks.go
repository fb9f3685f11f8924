package server

import (
	"context"
	"net/http"

	"github.com/jonathan/procurement-caller/internal/logger"
	"github.com/jonathan/procurement-caller/internal/telephony"
	"github.com/sirupsen/logrus"
)

// Form fields posted by the provider.
const (
	formCallSid        = "CallSid"
	formCallStatus     = "CallStatus"
	formSpeechResult   = "SpeechResult"
	formCallbackEvent  = "StatusCallbackEvent"
	eventParticipantIn = "participant-join"
)

// handleConferenceEvent reacts to conference callbacks. On participant-join
// the opening line is pushed to the live call; the response body is ignored
// by the provider.
func (s *Server) handleConferenceEvent(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if err := r.ParseForm(); err != nil {
		s.errorFor(w, &ErrValidation{Field: "body", Message: "invalid form body"})
		return
	}
	log := logger.WithJob(jobID).WithField("event", r.PostForm.Get(formCallbackEvent))

	if r.PostForm.Get(formCallbackEvent) != eventParticipantIn {
		log.Debug("Ignoring conference event")
		s.emptyTwiML(w, jobID)
		return
	}

	callRef := r.PostForm.Get(formCallSid)
	action, err := s.orch.OnParticipantJoined(r.Context(), jobID, callRef)
	if err != nil {
		log.WithError(err).Error("Join event failed")
	}
	if action != nil {
		s.deliver(r.Context(), jobID, callRef, *action, log)
	}
	s.emptyTwiML(w, jobID)
}

// deliver pushes action to the live call and records the prompt delivery.
func (s *Server) deliver(ctx context.Context, jobID, callRef string, action telephony.Action, log *logrus.Entry) {
	callCtx, cancel := context.WithTimeout(ctx, s.instructTTL)
	defer cancel()
	if err := s.gateway.Instruct(callCtx, jobID, callRef, action); err != nil {
		log.WithError(err).Error("Failed to instruct call")
		return
	}
	if action.Gather && !action.Hangup {
		if err := s.orch.OnPromptDelivered(ctx, jobID); err != nil {
			log.WithError(err).Warn("Failed to record prompt delivery")
		}
	}
}

// handleGather receives the supplier's transcribed reply, or an empty result
// when the gather window closed in silence, and answers with the next TwiML.
func (s *Server) handleGather(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if err := r.ParseForm(); err != nil {
		s.errorFor(w, &ErrValidation{Field: "body", Message: "invalid form body"})
		return
	}

	action, err := s.orch.OnSpeechReceived(r.Context(), jobID, r.PostForm.Get(formSpeechResult))
	if err != nil {
		if HTTPStatus(err) == http.StatusNotFound {
			s.errorFor(w, err)
			return
		}
		logger.WithJob(jobID).WithError(err).Error("Speech event failed")
		action = telephony.HangupOnly()
	}

	doc, err := s.renderer.Render(jobID, action)
	if err != nil {
		s.errorFor(w, err)
		return
	}
	if action != nil && action.Gather && !action.Hangup {
		if err := s.orch.OnPromptDelivered(r.Context(), jobID); err != nil {
			logger.WithJob(jobID).WithError(err).Warn("Failed to record prompt delivery")
		}
	}
	s.writeTwiML(w, doc)
}

// handleCallStatus maps provider call status callbacks onto the job.
func (s *Server) handleCallStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if err := r.ParseForm(); err != nil {
		s.errorFor(w, &ErrValidation{Field: "body", Message: "invalid form body"})
		return
	}

	raw := r.PostForm.Get(formCallStatus)
	if raw == "" {
		s.errorFor(w, &ErrValidation{Field: formCallStatus, Message: "is required"})
		return
	}
	state, _ := telephony.ParseCallState(raw)
	if err := s.orch.OnProviderStatus(r.Context(), jobID, state); err != nil {
		s.errorFor(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) emptyTwiML(w http.ResponseWriter, jobID string) {
	doc, err := s.renderer.Render(jobID, nil)
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.writeTwiML(w, doc)
}

func (s *Server) writeTwiML(w http.ResponseWriter, doc string) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(doc)); err != nil {
		logger.L().WithError(err).Error("Error writing TwiML response")
	}
}

// Package orchestrator owns the lifecycle of call jobs. It turns provider
// events into state-machine transitions, consults the dialogue engine and
// tells the telephony gateway what to do next.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/procurement-caller/internal/catalog"
	"github.com/jonathan/procurement-caller/internal/dialogue"
	"github.com/jonathan/procurement-caller/internal/jobs"
	"github.com/jonathan/procurement-caller/internal/logger"
	"github.com/jonathan/procurement-caller/internal/telephony"
	"github.com/jonathan/procurement-caller/internal/types"
	"github.com/sirupsen/logrus"
)

// Neutral failure messages surfaced through polling.
const (
	ReasonPlacementFailed = "the call could not be placed"
	ReasonEngineFailed    = "the agent could not continue the conversation"
	ReasonNoResponse      = "no response from supplier"
	ReasonStuck           = "the call stopped making progress"
)

// Archiver receives the final snapshot of every job that reaches a terminal state.
type Archiver interface {
	SaveCall(ctx context.Context, snapshot jobs.Snapshot) error
}

// Options tune the orchestrator. Zero values select the defaults.
type Options struct {
	TurnTimeout     time.Duration
	ProviderTimeout time.Duration
	DefaultLanguage types.Language
	Archiver        Archiver
	Now             func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TurnTimeout <= 0 {
		o.TurnTimeout = 15 * time.Second
	}
	if o.ProviderTimeout <= 0 {
		o.ProviderTimeout = 10 * time.Second
	}
	if !o.DefaultLanguage.Valid() {
		o.DefaultLanguage = types.LanguageEnglish
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Orchestrator coordinates jobs, the telephony gateway and the dialogue engine.
type Orchestrator struct {
	repo    jobs.Repository
	gateway telephony.Gateway
	engine  dialogue.TurnEngine
	opts    Options

	background sync.WaitGroup
}

// New creates an orchestrator over the given collaborators.
func New(repo jobs.Repository, gateway telephony.Gateway, engine dialogue.TurnEngine, opts Options) *Orchestrator {
	return &Orchestrator{
		repo:    repo,
		gateway: gateway,
		engine:  engine,
		opts:    opts.withDefaults(),
	}
}

// Job returns the current snapshot of a job.
func (o *Orchestrator) Job(ctx context.Context, id string) (jobs.Snapshot, error) {
	job, err := o.repo.Get(ctx, id)
	if err != nil {
		return jobs.Snapshot{}, err
	}
	return job.Snapshot(), nil
}

// Jobs returns snapshots of all jobs, newest first.
func (o *Orchestrator) Jobs(ctx context.Context) ([]jobs.Snapshot, error) {
	list, err := o.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]jobs.Snapshot, 0, len(list))
	for _, job := range list {
		out = append(out, job.Snapshot())
	}
	return out, nil
}

// InitiateJob validates the request, selects a supplier, stores a new job and
// places its call. A placement failure marks the job as error but still
// returns its snapshot so the caller can poll it.
func (o *Orchestrator) InitiateJob(ctx context.Context, req JobRequest) (jobs.Snapshot, error) {
	if err := req.Validate(); err != nil {
		return jobs.Snapshot{}, err
	}
	lang := req.Language
	if lang == "" {
		lang = o.opts.DefaultLanguage
	}

	supplier, err := catalog.SelectSupplier(req.Specialty, req.SupplierPool)
	if err != nil {
		return jobs.Snapshot{}, err
	}

	job := jobs.New(supplier, req.Items, lang, o.opts.Now())
	if err := o.repo.Create(ctx, job); err != nil {
		return jobs.Snapshot{}, err
	}
	log := logger.WithJob(job.ID)
	log.WithFields(logrus.Fields{
		"supplier_id": supplier.SupplierID,
		"items":       len(req.Items),
		"language":    lang,
	}).Info("Job created")

	err = o.repo.Process(ctx, job.ID, func(rec *jobs.Record) error {
		return o.placeCall(ctx, rec, log)
	})
	if err != nil {
		return jobs.Snapshot{}, err
	}
	return o.Job(ctx, job.ID)
}

type placement struct {
	ref string
	err error
}

// placeCall dials the supplier. The request runs detached from ctx so a client
// disconnect cannot abort a call the provider may already be dialing; after
// ProviderTimeout the job fails and a late SID is hung up by reclaimLateCall.
func (o *Orchestrator) placeCall(ctx context.Context, rec *jobs.Record, log *logrus.Entry) error {
	job := rec.View()
	req := telephony.CallRequest{
		JobID:          job.ID,
		To:             job.Supplier.PhoneNumber,
		ConferenceName: jobs.ConferenceName(job.ID),
		Language:       job.Language,
	}

	detached := context.WithoutCancel(ctx)
	result := make(chan placement, 1)
	go func() {
		ref, err := o.gateway.PlaceCall(detached, req)
		result <- placement{ref: ref, err: err}
	}()

	timer := time.NewTimer(o.opts.ProviderTimeout)
	defer timer.Stop()

	var placed placement
	select {
	case placed = <-result:
	case <-timer.C:
		log.WithField("timeout", o.opts.ProviderTimeout).Error("Call placement timed out")
		o.failRecord(rec, ReasonPlacementFailed, log)
		o.background.Add(1)
		go o.reclaimLateCall(job.ID, result, log)
		return nil
	}

	if placed.err != nil {
		log.WithError(placed.err).Error("Call placement failed")
		o.failRecord(rec, ReasonPlacementFailed, log)
		return nil
	}

	var endedMeanwhile bool
	_ = rec.Update(func(j *jobs.Job) error {
		j.CallRef = placed.ref
		endedMeanwhile = j.Status.Terminal()
		return nil
	})
	log.WithField("call_ref", placed.ref).Info("Call placed")

	if endedMeanwhile {
		// The job was ended while dialing; do not leave the call ringing.
		o.hangup(detached, placed.ref, log)
	}
	return nil
}

// reclaimLateCall waits for a placement that outlived ProviderTimeout. A SID
// that still arrives is recorded on the job and the call is hung up, since the
// job has already failed and will ignore the supplier joining.
func (o *Orchestrator) reclaimLateCall(jobID string, result <-chan placement, log *logrus.Entry) {
	defer o.background.Done()

	placed := <-result
	if placed.err != nil || placed.ref == "" {
		log.WithError(placed.err).Debug("Late call placement produced no call")
		return
	}

	ctx := context.Background()
	job, err := o.repo.Update(ctx, jobID, func(j *jobs.Job) error {
		if j.CallRef == "" {
			j.CallRef = placed.ref
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("Could not record late call reference")
	}
	log.WithField("call_ref", placed.ref).Warn("Call placed after timeout")

	if err != nil || job.Status.Terminal() {
		o.hangup(ctx, placed.ref, log)
	}
}

// OnParticipantJoined handles the supplier joining the job's conference and
// returns the opening speak-and-gather action. Duplicate join events and
// unknown jobs yield a nil action.
func (o *Orchestrator) OnParticipantJoined(ctx context.Context, jobID, callRef string) (*telephony.Action, error) {
	log := logger.WithJob(jobID)
	var action *telephony.Action

	err := o.repo.Process(ctx, jobID, func(rec *jobs.Record) error {
		job := rec.View()
		if job.HasAgentJoined || job.Status.Terminal() {
			log.WithField("status", job.Status).Debug("Ignoring join event")
			return nil
		}

		order := orderOf(job)
		opening, err := dialogue.OpeningLine(order)
		if err != nil {
			log.WithError(err).Error("Failed to build opening line")
			if o.failRecord(rec, ReasonEngineFailed, log) {
				action = telephony.SpeakAndHangup(dialogue.ApologyLine(job.Language), job.Language)
			}
			return nil
		}

		err = rec.Update(func(j *jobs.Job) error {
			if err := j.Apply(jobs.EventAgentJoined); err != nil {
				return err
			}
			j.HasAgentJoined = true
			if j.CallRef == "" {
				j.CallRef = callRef
			}
			j.AppendAgentTurn(opening, o.opts.Now())
			return nil
		})
		if err != nil {
			log.WithError(err).Warn("Join event rejected")
			return nil
		}
		log.WithField("status", jobs.StatusAgentSpeaking).Info("Supplier joined, opening delivered")
		action = telephony.SpeakAndGather(opening, job.Language)
		return nil
	})

	var nf *jobs.NotFoundError
	if errors.As(err, &nf) {
		log.Warn("Join event for unknown job")
		return nil, nil
	}
	return action, err
}

// OnPromptDelivered records that a speak-and-gather instruction was handed
// to the provider.
func (o *Orchestrator) OnPromptDelivered(ctx context.Context, jobID string) error {
	_, err := o.repo.Update(ctx, jobID, func(j *jobs.Job) error {
		return j.Apply(jobs.EventPromptDelivered)
	})
	var te *jobs.TransitionError
	if errors.As(err, &te) {
		logger.WithJob(jobID).WithError(err).Debug("Prompt delivery not recorded")
		return nil
	}
	return err
}

// OnSpeechReceived handles a transcribed supplier reply and returns what the
// agent does next. An empty text is treated as silence.
func (o *Orchestrator) OnSpeechReceived(ctx context.Context, jobID, text string) (*telephony.Action, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return o.OnSilence(ctx, jobID)
	}
	log := logger.WithJob(jobID)
	var action *telephony.Action

	err := o.repo.Process(ctx, jobID, func(rec *jobs.Record) error {
		if rec.View().Status.Terminal() {
			action = telephony.HangupOnly()
			return nil
		}

		err := rec.Update(func(j *jobs.Job) error {
			if err := j.Apply(jobs.EventSpeechReceived); err != nil {
				return err
			}
			j.AppendSupplierTurn(text, o.opts.Now())
			return nil
		})
		if err != nil {
			log.WithError(err).Warn("Speech event rejected")
			return nil
		}

		job := rec.View()
		turnCtx, cancel := context.WithTimeout(ctx, o.opts.TurnTimeout)
		defer cancel()

		reply, err := o.engine.NextTurn(turnCtx, orderOf(job), job.History)
		if err != nil {
			log.WithError(err).WithField("timeout", errors.Is(err, context.DeadlineExceeded)).Error("Dialogue engine failed")
			if o.failRecord(rec, ReasonEngineFailed, log) {
				action = telephony.SpeakAndHangup(dialogue.ApologyLine(job.Language), job.Language)
			} else {
				action = telephony.HangupOnly()
			}
			return nil
		}

		action = o.applyReply(rec, reply, job.Language, log)
		return nil
	})
	return action, err
}

func (o *Orchestrator) applyReply(rec *jobs.Record, reply dialogue.Reply, lang types.Language, log *logrus.Entry) *telephony.Action {
	if reply.Terminal {
		if reply.ParseErr != nil {
			log.WithError(reply.ParseErr).Warn("Could not extract order confirmation")
		}
		err := rec.Update(func(j *jobs.Job) error {
			if err := j.Apply(jobs.EventConversationFinished); err != nil {
				return err
			}
			j.Extracted = reply.Extracted
			if reply.Text != "" {
				j.AppendAgentTurn(reply.Text, o.opts.Now())
			}
			return nil
		})
		if err != nil {
			log.WithError(err).Warn("Job ended while the agent was replying")
			return telephony.HangupOnly()
		}
		log.WithFields(logrus.Fields{
			"status":    jobs.StatusCallEnded,
			"extracted": reply.Extracted != nil,
		}).Info("Conversation finished")
		o.archive(rec.View())
		return telephony.SpeakAndHangup(reply.Text, lang)
	}

	err := rec.Update(func(j *jobs.Job) error {
		if err := j.Apply(jobs.EventAgentReplied); err != nil {
			return err
		}
		j.AppendAgentTurn(reply.Text, o.opts.Now())
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("Job ended while the agent was replying")
		return telephony.HangupOnly()
	}
	log.WithField("status", jobs.StatusAgentSpeaking).Debug("Agent replied")
	return telephony.SpeakAndGather(reply.Text, lang)
}

// OnSilence handles a gather window that elapsed without speech: the job
// fails and the call ends with a short notice.
func (o *Orchestrator) OnSilence(ctx context.Context, jobID string) (*telephony.Action, error) {
	log := logger.WithJob(jobID)
	var action *telephony.Action

	err := o.repo.Process(ctx, jobID, func(rec *jobs.Record) error {
		job := rec.View()
		if !o.failRecord(rec, ReasonNoResponse, log) {
			action = telephony.HangupOnly()
			return nil
		}
		action = telephony.SpeakAndHangup(dialogue.NoResponseLine(job.Language), job.Language)
		return nil
	})
	return action, err
}

// OnProviderStatus maps a provider call state onto the job. Terminal
// provider states end the job from any live status.
func (o *Orchestrator) OnProviderStatus(ctx context.Context, jobID string, state telephony.CallState) error {
	var ev jobs.Event
	switch {
	case state.Pending():
		ev = jobs.EventRinging
	case state.Live():
		ev = jobs.EventAnswered
	case state.Terminal():
		ev = jobs.EventProviderEnded
	default:
		logger.WithJob(jobID).WithField("call_state", state).Warn("Ignoring unknown call state")
		if _, err := o.repo.Get(ctx, jobID); err != nil {
			return err
		}
		return nil
	}

	job, err := o.repo.Update(ctx, jobID, func(j *jobs.Job) error {
		return j.Apply(ev)
	})
	log := logger.WithJob(jobID).WithField("call_state", state)

	var te *jobs.TransitionError
	switch {
	case errors.As(err, &te):
		log.WithField("status", job.Status).Debug("Call state does not change the job")
		return nil
	case err != nil:
		return err
	}

	log.WithField("status", job.Status).Info("Call state applied")
	if job.Status.Terminal() {
		o.archive(job)
	}
	return nil
}

// EndCall terminates the job's call at the user's request. The job ends even
// when the provider request fails; ending a finished job is a no-op.
func (o *Orchestrator) EndCall(ctx context.Context, jobID string) (jobs.Snapshot, error) {
	job, err := o.repo.Get(ctx, jobID)
	if err != nil {
		return jobs.Snapshot{}, err
	}
	if job.Status.Terminal() {
		return job.Snapshot(), nil
	}
	log := logger.WithJob(jobID)

	if job.CallRef != "" {
		o.hangup(ctx, job.CallRef, log)
	}

	job, err = o.repo.Update(ctx, jobID, func(j *jobs.Job) error {
		return j.Apply(jobs.EventEndRequested)
	})
	var te *jobs.TransitionError
	switch {
	case errors.As(err, &te):
		return job.Snapshot(), nil
	case err != nil:
		return jobs.Snapshot{}, err
	}

	log.WithField("status", job.Status).Info("Call ended on request")
	o.archive(job)
	return job.Snapshot(), nil
}

// hangup asks the gateway to end a call. Failures are logged only.
func (o *Orchestrator) hangup(ctx context.Context, callRef string, log *logrus.Entry) {
	callCtx, cancel := context.WithTimeout(ctx, o.opts.ProviderTimeout)
	defer cancel()
	if err := o.gateway.EndCall(callCtx, callRef); err != nil {
		log.WithError(err).Warn("Provider could not end the call")
	}
}

// failRecord moves the job to error with a neutral reason. Returns false when
// the job had already finished.
func (o *Orchestrator) failRecord(rec *jobs.Record, reason string, log *logrus.Entry) bool {
	err := rec.Update(func(j *jobs.Job) error {
		if err := j.Apply(jobs.EventFailed); err != nil {
			return err
		}
		j.FailureReason = reason
		return nil
	})
	if err != nil {
		log.WithError(err).Debug("Job already finished")
		return false
	}
	log.WithFields(logrus.Fields{"status": jobs.StatusError, "reason": reason}).Warn("Job failed")
	o.archive(rec.View())
	return true
}

// archive hands a finished job to the archiver without blocking the caller.
func (o *Orchestrator) archive(job jobs.Job) {
	if o.opts.Archiver == nil {
		return
	}
	snapshot := job.Snapshot()
	o.background.Add(1)
	go func() {
		defer o.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), o.opts.ProviderTimeout)
		defer cancel()
		if err := o.opts.Archiver.SaveCall(ctx, snapshot); err != nil {
			logger.WithJob(snapshot.ID).WithError(err).Error("Failed to archive call")
		}
	}()
}

// Wait blocks until pending archive writes and late call cleanups have finished.
func (o *Orchestrator) Wait() {
	o.background.Wait()
}

func orderOf(job jobs.Job) dialogue.Order {
	return dialogue.Order{Supplier: job.Supplier, Items: job.Items, Language: job.Language}
}

package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/jonathan/procurement-caller/internal/jobs"
	"github.com/jonathan/procurement-caller/internal/logger"
)

var errProgressed = errors.New("job progressed")

// FailStuckJobs marks as error every live job whose last update is older than
// olderThan, and asks the provider to end its call. Returns the number of jobs failed.
func (o *Orchestrator) FailStuckJobs(ctx context.Context, olderThan time.Duration) (int, error) {
	list, err := o.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := o.opts.Now().Add(-olderThan)

	failed := 0
	for _, candidate := range list {
		if candidate.Status.Terminal() || !candidate.UpdatedAt.Before(cutoff) {
			continue
		}
		log := logger.WithJob(candidate.ID)

		job, err := o.repo.Update(ctx, candidate.ID, func(j *jobs.Job) error {
			if !j.UpdatedAt.Equal(candidate.UpdatedAt) {
				return errProgressed
			}
			if err := j.Apply(jobs.EventFailed); err != nil {
				return err
			}
			j.FailureReason = ReasonStuck
			return nil
		})
		if err != nil {
			// Races with live events are expected; the next sweep picks it up again.
			log.WithError(err).Debug("Stuck job changed before it could be failed")
			continue
		}

		log.WithField("idle_since", candidate.UpdatedAt).Warn("Found stuck job and marked it as failed")
		failed++
		if job.CallRef != "" {
			o.hangup(ctx, job.CallRef, log)
		}
		o.archive(job)
	}
	return failed, nil
}

// WatchStuckJobs runs FailStuckJobs every interval until ctx is done.
func (o *Orchestrator) WatchStuckJobs(ctx context.Context, interval, olderThan time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := o.FailStuckJobs(ctx, olderThan); err != nil {
				logger.L().WithError(err).Error("Error failing stuck jobs")
			}
		}
	}
}

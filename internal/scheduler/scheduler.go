// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/relaycrm/dispatch-backend/internal/observability"
	"github.com/relaycrm/dispatch-backend/internal/queue"
	"github.com/relaycrm/dispatch-backend/internal/repository"
)

// lookahead is how far past "now" a tick reaches. Anything due inside the
// window is handed to the broker immediately with a TTL equal to its
// remaining delay, so a dispatch due between two ticks still fires on time.
const lookahead = 10 * time.Minute

// Scheduler ticks on a cron spec and moves due scheduled dispatches into the
// delay queue. The scheduled→processing flip happens before the publish and
// is guarded in SQL, so overlapping ticks cannot double-queue one row.
type Scheduler struct {
	Scheduled repository.ScheduledDispatchRepositoryInterface
	Queue     queue.Publisher
	Log       zerolog.Logger
}

// Run installs the tick and blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context, spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { s.Tick(ctx) }); err != nil {
		return fmt.Errorf("invalid scheduler spec %q: %w", spec, err)
	}
	c.Start()
	s.Log.Info().Str("spec", spec).Msg("scheduler running")

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	return ctx.Err()
}

// Tick selects everything due inside the lookahead window and publishes each
// row into the delay queue with its remaining delay as the message TTL.
func (s *Scheduler) Tick(ctx context.Context) {
	now := time.Now()
	due, err := s.Scheduled.DueBetween(now, now.Add(lookahead))
	if err != nil {
		s.Log.Error().Err(err).Msg("selecting due dispatches failed")
		return
	}

	for _, d := range due {
		won, err := s.Scheduled.MarkProcessing(d.ID)
		if err != nil {
			s.Log.Error().Err(err).Int("scheduled_id", d.ID).Msg("flipping dispatch to processing failed")
			continue
		}
		if !won {
			// Another tick got here first.
			continue
		}

		env, err := queue.NewEnvelope(queue.KindDelayedDispatch, repository.NewULID(), "",
			queue.DelayedDispatchPayload{ScheduledDispatchID: d.ID})
		if err != nil {
			s.Log.Error().Err(err).Int("scheduled_id", d.ID).Msg("building delayed envelope failed")
			continue
		}
		if err := s.Queue.PublishDelayed(env, time.Until(d.PublishDate)); err != nil {
			s.Log.Error().Err(err).Int("scheduled_id", d.ID).Msg("publishing to delay queue failed")
			continue
		}

		observability.SchedulerPicks.Inc()
		s.Log.Info().Int("scheduled_id", d.ID).Str("channel", d.Channel.String()).
			Time("publish_date", d.PublishDate).Msg("dispatch queued for delayed publish")
	}
}

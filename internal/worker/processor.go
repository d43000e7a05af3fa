// internal/worker/processor.go
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/relaycrm/dispatch-backend/internal/model"
	"github.com/relaycrm/dispatch-backend/internal/queue"
	"github.com/relaycrm/dispatch-backend/internal/repository"
	"github.com/relaycrm/dispatch-backend/internal/service"
)

// ErrTransient marks failures worth one broker redelivery: breaker-open
// provider protection and cancelled rate-limit waits. Everything else is
// recorded on the job and acked.
var ErrTransient = errors.New("transient failure")

// Processor executes queued dispatch jobs. Provider calls run behind a shared
// rate limiter and circuit breaker, so one misbehaving channel API degrades
// into fast failures instead of a stuck consumer.
type Processor struct {
	Dispatch    *service.DispatchService
	Resolver    *service.ResolverService
	Jobs        repository.JobRepositoryInterface
	Credentials repository.CredentialRepositoryInterface
	Limiter     *rate.Limiter
	Breaker     *gobreaker.CircuitBreaker
	Log         zerolog.Logger
}

// ChannelSend runs one single-channel job. A send failure finishes the job as
// failed and, for fan-out children, appends one line to the parent job's log;
// the message is still consumed so the broker never replays a recorded
// failure.
func (p *Processor) ChannelSend(ctx context.Context, env queue.Envelope) error {
	var payload queue.ChannelSendPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("channel-send payload: %w", err)
	}

	if err := p.Jobs.MarkRunning(env.JobID); err != nil {
		p.Log.Error().Err(err).Str("job_id", env.JobID).Msg("marking job running failed")
	}

	if p.Limiter != nil {
		waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := p.Limiter.Wait(waitCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("%w: rate limit wait: %v", ErrTransient, err)
		}
	}

	res, err := p.Breaker.Execute(func() (any, error) {
		note, err := p.Dispatch.ExecuteChannel(ctx, payload.Request)
		return note, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		// Provider protection, not a job outcome. Leave the job running and
		// let redelivery retry once the breaker closes.
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if err != nil {
		p.Log.Warn().Err(err).Str("job_id", env.JobID).Msg("channel send failed")
		if env.ParentJobID != "" {
			if logErr := p.Jobs.AppendLog(env.ParentJobID, fmt.Sprintf("job %s: %v", env.JobID, err)); logErr != nil {
				p.Log.Error().Err(logErr).Str("job_id", env.ParentJobID).Msg("appending to parent job log failed")
			}
		}
		p.finish(env.JobID, model.JobFailed)
		return nil
	}

	// An empty resolution is a success with a note, not a failure.
	if note, ok := res.(string); ok && note != "" {
		p.logLine(env.JobID, note)
	}
	p.finish(env.JobID, model.JobDone)
	p.pace(ctx, payload.Request)
	return nil
}

// MassFanout resolves a search mask into contact ids and spawns one child
// channel-send job per contact. The parent finishes as soon as the children
// are queued; child failures land in this job's log.
func (p *Processor) MassFanout(ctx context.Context, env queue.Envelope) error {
	var payload queue.MassFanoutPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("mass-fanout payload: %w", err)
	}

	if err := p.Jobs.MarkRunning(env.JobID); err != nil {
		p.Log.Error().Err(err).Str("job_id", env.JobID).Msg("marking job running failed")
	}

	ids, err := p.Resolver.ResolveSearchIDs(payload.Request.SearchMask)
	if err != nil {
		p.logLine(env.JobID, fmt.Sprintf("search resolution failed: %v", err))
		p.finish(env.JobID, model.JobFailed)
		return nil
	}
	if len(ids) == 0 {
		p.logLine(env.JobID, "no contacts matched")
		p.finish(env.JobID, model.JobDone)
		return nil
	}

	for _, id := range ids {
		child := payload.Request
		child.SearchMask = ""
		child.To = strconv.Itoa(id)
		child.Type = model.TargetContact
		if _, err := p.Dispatch.EnqueueJob(queue.KindChannelSend, child, env.JobID); err != nil {
			p.logLine(env.JobID, fmt.Sprintf("queueing contact %d failed: %v", id, err))
			p.finish(env.JobID, model.JobFailed)
			return nil
		}
	}

	p.logLine(env.JobID, fmt.Sprintf("queued %d sends", len(ids)))
	p.finish(env.JobID, model.JobDone)
	return nil
}

// pace sleeps between consecutive queued sends. The request's interval wins;
// otherwise the channel's configured interval applies.
func (p *Processor) pace(ctx context.Context, req model.DispatchRequest) {
	seconds := req.Interval
	if seconds == 0 && len(req.Channels) == 1 {
		if ch, err := model.ParseChannel(req.Channels[0]); err == nil {
			if settings, err := p.Credentials.GetChannelSettings(ch); err == nil {
				seconds = settings.IntervalSeconds
			}
		}
	}
	if seconds <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(seconds) * time.Second):
	}
}

func (p *Processor) finish(jobID string, status model.JobStatus) {
	if err := p.Jobs.Finish(jobID, status); err != nil {
		p.Log.Error().Err(err).Str("job_id", jobID).Msg("finishing job failed")
	}
}

func (p *Processor) logLine(jobID, line string) {
	if err := p.Jobs.AppendLog(jobID, line); err != nil {
		p.Log.Error().Err(err).Str("job_id", jobID).Msg("appending job log failed")
	}
}

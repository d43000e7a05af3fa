// internal/service/dispatch_service.go
package service

import (
	"context"

	"github.com/rs/zerolog"

	appErrors "github.com/relaycrm/dispatch-backend/internal/errors"
	"github.com/relaycrm/dispatch-backend/internal/model"
	"github.com/relaycrm/dispatch-backend/internal/observability"
	"github.com/relaycrm/dispatch-backend/internal/queue"
	"github.com/relaycrm/dispatch-backend/internal/repository"
)

// DispatchService is the front door for send-to-channels. It validates the
// request once, then routes it down one of three paths: synchronous send for
// a single recipient, queued jobs for fan-outs, or scheduled rows for a
// future publish date.
type DispatchService struct {
	Senders      map[model.Channel]Sender
	Compositions repository.CompositionRepositoryInterface
	Scheduled    repository.ScheduledDispatchRepositoryInterface
	Jobs         repository.JobRepositoryInterface
	Queue        queue.Publisher
	Log          zerolog.Logger
}

// Result is the caller-facing outcome of one dispatch request.
type Result struct {
	Success bool   `json:"success"`
	Status  int    `json:"-"`
	Message string `json:"message,omitempty"`
}

func okResult(message string) Result {
	return Result{Success: true, Status: 200, Message: message}
}

func errResult(err error) Result {
	return Result{Success: false, Status: appErrors.HTTPStatus(err), Message: err.Error()}
}

// Dispatch runs one send-to-channels request end to end. Validation covers
// every requested channel before anything is sent or queued, so a typo in the
// second channel cannot leave the first half-delivered.
func (s *DispatchService) Dispatch(ctx context.Context, req model.DispatchRequest) Result {
	channels, err := s.validate(req)
	if err != nil {
		observability.Dispatches.WithLabelValues(s.mode(req), "rejected").Inc()
		return errResult(err)
	}

	var res Result
	switch {
	case req.ScheduledAt != nil:
		res = s.schedule(req, channels)
	case req.SearchMask != "":
		res = s.enqueuePerChannel(req, channels, queue.KindMassFanout)
	case req.Type != model.TargetContact || len(req.ToList()) > 1:
		res = s.enqueuePerChannel(req, channels, queue.KindChannelSend)
	default:
		res = s.sendNow(ctx, req, channels)
	}

	outcome := "ok"
	switch {
	case res.Status == 206:
		outcome = "partial"
	case !res.Success:
		outcome = "error"
	}
	observability.Dispatches.WithLabelValues(s.mode(req), outcome).Inc()
	return res
}

func (s *DispatchService) mode(req model.DispatchRequest) string {
	switch {
	case req.ScheduledAt != nil:
		return "scheduled"
	case req.SearchMask != "":
		return "mass"
	case req.Type != model.TargetContact || len(req.ToList()) > 1:
		return "queued"
	}
	return "sync"
}

// validate parses the channel list and checks the composition carries an item
// for each one. Unknown channel names and missing items both reject the whole
// request up front.
func (s *DispatchService) validate(req model.DispatchRequest) ([]model.Channel, error) {
	if req.CompositionID == 0 {
		return nil, appErrors.NewValidation("composition_id is required")
	}
	if len(req.Channels) == 0 {
		return nil, appErrors.NewValidation("at least one channel is required")
	}
	comp, err := s.Compositions.GetByID(req.CompositionID)
	if err != nil {
		return nil, appErrors.NewStoreUnavailable(err)
	}
	if comp == nil {
		return nil, appErrors.NewValidation("composition %d not found", req.CompositionID)
	}
	items, err := s.Compositions.ListItems(req.CompositionID)
	if err != nil {
		return nil, appErrors.NewStoreUnavailable(err)
	}
	hasItem := make(map[model.Channel]bool, len(items))
	for _, item := range items {
		hasItem[item.Channel] = true
	}

	channels := make([]model.Channel, 0, len(req.Channels))
	for _, name := range req.Channels {
		ch, err := model.ParseChannel(name)
		if err != nil {
			return nil, appErrors.NewValidation("unknown channel: %s", name)
		}
		if !hasItem[ch] {
			return nil, appErrors.NewValidation("Composition doesn't have item for channel %s", ch)
		}
		channels = append(channels, ch)
	}

	// Every requested channel has its item, which is the Finished condition.
	if comp.Status == model.CompositionPending {
		if err := s.Compositions.UpdateStatus(comp.ID, model.CompositionFinished); err != nil {
			s.Log.Error().Err(err).Int("composition_id", comp.ID).Msg("flipping composition to finished failed")
		}
	}
	return channels, nil
}

// sendNow is the synchronous single-recipient path. Channels run in request
// order; the first failing channel aborts the rest, and a partial failure
// inside one channel surfaces as 206.
func (s *DispatchService) sendNow(ctx context.Context, req model.DispatchRequest, channels []model.Channel) Result {
	var note string
	for _, ch := range channels {
		sender := s.Senders[ch]
		if err := sender.ValidatePreconditions(req); err != nil {
			return errResult(err)
		}
		single := req
		single.Channels = []string{ch.String()}
		n, err := sender.Send(ctx, single)
		if err != nil {
			return errResult(err)
		}
		if n != "" {
			note = n
		}
	}
	return okResult(note)
}

// schedule persists one scheduled_dispatches row per channel; the cron tick
// picks them up inside their publish window.
func (s *DispatchService) schedule(req model.DispatchRequest, channels []model.Channel) Result {
	for _, ch := range channels {
		d := &model.ScheduledDispatch{
			CompositionID: req.CompositionID,
			Channel:       ch,
			To:            req.To,
			Type:          req.Type,
			Subject:       req.Subject,
			PublishDate:   *req.ScheduledAt,
		}
		if err := s.Scheduled.Create(d); err != nil {
			return errResult(appErrors.NewStoreUnavailable(err))
		}
		s.Log.Info().Int("scheduled_id", d.ID).Str("channel", ch.String()).
			Time("publish_date", d.PublishDate).Msg("dispatch scheduled")
	}
	return okResult("scheduled")
}

// enqueuePerChannel creates one queued job per channel, before any recipient
// resolution happens; the worker resolves when the job runs.
func (s *DispatchService) enqueuePerChannel(req model.DispatchRequest, channels []model.Channel, kind queue.JobKind) Result {
	for _, ch := range channels {
		single := req
		single.Channels = []string{ch.String()}
		if _, err := s.EnqueueJob(kind, single, ""); err != nil {
			return errResult(err)
		}
	}
	return okResult("queued")
}

// EnqueueJob records a job row and publishes its envelope on the work queue.
// The row exists before the publish so a consumed envelope always finds its
// job.
func (s *DispatchService) EnqueueJob(kind queue.JobKind, req model.DispatchRequest, parentJobID string) (string, error) {
	job := &model.Job{Kind: string(kind), ParentJobID: parentJobID}
	if err := s.Jobs.Create(job); err != nil {
		return "", appErrors.NewStoreUnavailable(err)
	}

	var payload any
	switch kind {
	case queue.KindMassFanout:
		payload = queue.MassFanoutPayload{Request: req}
	default:
		payload = queue.ChannelSendPayload{Request: req}
	}
	env, err := queue.NewEnvelope(kind, job.ID, parentJobID, payload)
	if err != nil {
		return "", err
	}
	if err := s.Queue.PublishJob(env); err != nil {
		return "", appErrors.NewUpstream(err, "publish job %s: %v", job.ID, err)
	}
	s.Log.Info().Str("job_id", job.ID).Str("kind", string(kind)).Msg("job queued")
	return job.ID, nil
}

// ExecuteChannel runs one single-channel request through its sender. The
// worker calls this for queued jobs; the synchronous path goes through
// sendNow and never lands here. The returned note carries an informational
// outcome ("no contacts matched") the worker records on the job log.
func (s *DispatchService) ExecuteChannel(ctx context.Context, req model.DispatchRequest) (string, error) {
	if len(req.Channels) != 1 {
		return "", appErrors.NewValidation("channel job must carry exactly one channel, got %d", len(req.Channels))
	}
	ch, err := model.ParseChannel(req.Channels[0])
	if err != nil {
		return "", appErrors.NewValidation("unknown channel: %s", req.Channels[0])
	}
	sender, ok := s.Senders[ch]
	if !ok {
		return "", appErrors.NewValidation("channel %s is not configured", ch)
	}
	if err := sender.ValidatePreconditions(req); err != nil {
		return "", err
	}
	return sender.Send(ctx, req)
}

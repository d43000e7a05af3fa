// internal/scheduler/consumer.go
package scheduler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	appErrors "github.com/relaycrm/dispatch-backend/internal/errors"
	"github.com/relaycrm/dispatch-backend/internal/model"
	"github.com/relaycrm/dispatch-backend/internal/queue"
	"github.com/relaycrm/dispatch-backend/internal/repository"
	"github.com/relaycrm/dispatch-backend/internal/service"
)

// Consumer handles delayed-dispatch messages surfacing from the delay queue.
type Consumer struct {
	Scheduled    repository.ScheduledDispatchRepositoryInterface
	Credentials  repository.CredentialRepositoryInterface
	Orchestrator *service.DispatchService
	Log          zerolog.Logger
}

// Handle runs one due scheduled dispatch through the orchestrator. The row
// flips to published whether or not the dispatch succeeded; a failed dispatch
// is logged at error level and never re-fires on its own, operators re-trigger
// manually. A returned error means the message itself could not be processed
// and gets dropped without requeue.
func (c *Consumer) Handle(ctx context.Context, payload queue.DelayedDispatchPayload) error {
	d, err := c.Scheduled.GetByID(payload.ScheduledDispatchID)
	if err != nil {
		return appErrors.NewStoreUnavailable(err)
	}
	if d == nil {
		return fmt.Errorf("scheduled dispatch %d not found", payload.ScheduledDispatchID)
	}

	req, err := c.buildRequest(d)
	if err != nil {
		return err
	}

	res := c.Orchestrator.Dispatch(ctx, req)
	if !res.Success {
		c.Log.Error().Int("scheduled_id", d.ID).Str("channel", d.Channel.String()).
			Str("message", res.Message).Msg("scheduled dispatch failed downstream")
	}

	if err := c.Scheduled.MarkPublished(d.ID); err != nil {
		return appErrors.NewStoreUnavailable(err)
	}
	c.Log.Info().Int("scheduled_id", d.ID).Bool("dispatch_ok", res.Success).Msg("scheduled dispatch published")
	return nil
}

// buildRequest reconstitutes the dispatch request, resolving the mail-from
// identity reference when one is attached.
func (c *Consumer) buildRequest(d *model.ScheduledDispatch) (model.DispatchRequest, error) {
	req := model.DispatchRequest{
		CompositionID: d.CompositionID,
		Channels:      []string{d.Channel.String()},
		To:            d.To,
		Type:          d.Type,
		Subject:       d.Subject,
	}
	if d.IdentityID != 0 {
		ident, err := c.Credentials.GetIdentity(d.IdentityID)
		if err != nil {
			return model.DispatchRequest{}, appErrors.NewStoreUnavailable(err)
		}
		if ident == nil {
			return model.DispatchRequest{}, fmt.Errorf("sender identity %d not found", d.IdentityID)
		}
		req.From = ident.Email
	}
	return req, nil
}

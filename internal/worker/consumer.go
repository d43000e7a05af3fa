// internal/worker/consumer.go
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"github.com/relaycrm/dispatch-backend/internal/model"
	"github.com/relaycrm/dispatch-backend/internal/queue"
)

// DelayedHandler consumes scheduled dispatches surfacing from the delay
// queue.
type DelayedHandler interface {
	Handle(ctx context.Context, payload queue.DelayedDispatchPayload) error
}

// Consumer drains the work queue with manual acks. A malformed frame is
// dropped, a transient failure gets exactly one redelivery, everything else
// is acked after its handler recorded the outcome.
type Consumer struct {
	Queue   *queue.Client
	Proc    *Processor
	Delayed DelayedHandler
	Log     zerolog.Logger
}

func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.Queue.Consume()
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}
	c.Log.Info().Msg("worker consuming")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("broker closed the delivery stream")
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	env, err := queue.Decode(d.Body)
	if err != nil {
		c.Log.Error().Err(err).Msg("dropping undecodable message")
		d.Nack(false, false)
		return
	}

	err = c.route(ctx, env)
	switch {
	case err == nil:
		d.Ack(false)
	case errors.Is(err, ErrTransient) && !d.Redelivered:
		c.Log.Warn().Err(err).Str("job_id", env.JobID).Msg("requeueing after transient failure")
		d.Nack(false, true)
	default:
		c.Log.Error().Err(err).Str("job_id", env.JobID).Str("kind", string(env.Kind)).Msg("dropping job after failure")
		// A dropped job must not stay "running" forever; record the drop
		// before the terminal nack. Delayed dispatches carry no job row.
		if env.Kind == queue.KindChannelSend || env.Kind == queue.KindMassFanout {
			c.Proc.logLine(env.JobID, fmt.Sprintf("dropped: %v", err))
			c.Proc.finish(env.JobID, model.JobFailed)
		}
		d.Nack(false, false)
	}
}

func (c *Consumer) route(ctx context.Context, env queue.Envelope) error {
	switch env.Kind {
	case queue.KindChannelSend:
		return c.Proc.ChannelSend(ctx, env)
	case queue.KindMassFanout:
		return c.Proc.MassFanout(ctx, env)
	case queue.KindDelayedDispatch:
		var payload queue.DelayedDispatchPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return fmt.Errorf("delayed-dispatch payload: %w", err)
		}
		return c.Delayed.Handle(ctx, payload)
	}
	return fmt.Errorf("unknown job kind %q", env.Kind)
}

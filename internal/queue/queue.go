// internal/queue/queue.go
package queue

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/streadway/amqp"

	"github.com/relaycrm/dispatch-backend/internal/observability"
)

// Broker topology: one durable work queue fed by a direct exchange, plus one
// delay queue whose dead-letter exchange points back at the work queue with
// routing key "delayed". A message published to the delay queue with a
// per-message TTL surfaces on the work queue when the TTL expires — the
// broker is the timer, no countdown process runs per job.
const (
	Exchange          = "dispatch"
	WorkQueue         = "dispatch_jobs"
	DelayQueue        = "dispatch_jobs_delay"
	RoutingKeySend    = "send"
	RoutingKeyDelayed = "delayed"
)

// Publisher is the narrow surface services enqueue through.
type Publisher interface {
	PublishJob(env Envelope) error
	PublishDelayed(env Envelope, delay time.Duration) error
}

// Client owns one AMQP connection and channel with an explicit open/close
// lifecycle. It is constructed in main and injected; nothing imports it as
// ambient state.
type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func Dial(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return &Client{conn: conn, ch: ch}, nil
}

func (c *Client) Close() error {
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// DeclareTopology is idempotent; every binary declares on startup.
func (c *Client) DeclareTopology() error {
	if err := c.ch.ExchangeDeclare(Exchange, "direct", true, false, false, false, nil); err != nil {
		return err
	}

	if _, err := c.ch.QueueDeclare(WorkQueue, true, false, false, false, nil); err != nil {
		return err
	}
	if err := c.ch.QueueBind(WorkQueue, RoutingKeySend, Exchange, false, nil); err != nil {
		return err
	}
	if err := c.ch.QueueBind(WorkQueue, RoutingKeyDelayed, Exchange, false, nil); err != nil {
		return err
	}

	_, err := c.ch.QueueDeclare(DelayQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    Exchange,
		"x-dead-letter-routing-key": RoutingKeyDelayed,
	})
	return err
}

// PublishJob places an envelope on the work queue for immediate consumption.
func (c *Client) PublishJob(env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	err = c.ch.Publish(Exchange, RoutingKeySend, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		observability.QueuePublishes.WithLabelValues(WorkQueue, "error").Inc()
		return err
	}
	observability.QueuePublishes.WithLabelValues(WorkQueue, "ok").Inc()
	return nil
}

// PublishDelayed parks an envelope on the delay queue with a per-message
// expiration equal to the remaining delay. Expired messages dead-letter into
// the work queue. A non-positive delay expires within one broker round-trip.
func (c *Client) PublishDelayed(env Envelope, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	err = c.ch.Publish("", DelayQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Expiration:   strconv.FormatInt(delay.Milliseconds(), 10),
		Body:         body,
	})
	if err != nil {
		observability.QueuePublishes.WithLabelValues(DelayQueue, "error").Inc()
		return err
	}
	observability.QueuePublishes.WithLabelValues(DelayQueue, "ok").Inc()
	return nil
}

// Consume opens a manual-ack delivery stream over the work queue.
func (c *Client) Consume() (<-chan amqp.Delivery, error) {
	return c.ch.Consume(WorkQueue, "", false, false, false, false, nil)
}

var _ Publisher = (*Client)(nil)

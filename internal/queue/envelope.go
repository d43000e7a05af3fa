// internal/queue/envelope.go
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/relaycrm/dispatch-backend/internal/model"
)

// EnvelopeVersion is bumped whenever a payload shape changes, keeping
// producer and worker in lock-step across deploys.
const EnvelopeVersion = 1

type JobKind string

const (
	KindChannelSend     JobKind = "channel-send"
	KindMassFanout      JobKind = "mass-fanout"
	KindDelayedDispatch JobKind = "delayed-dispatch"
)

// Envelope is the typed frame every message on the work queue travels in.
type Envelope struct {
	Version     int             `json:"version"`
	Kind        JobKind         `json:"kind"`
	JobID       string          `json:"job_id"`
	ParentJobID string          `json:"parent_job_id,omitempty"`
	Payload     json.RawMessage `json:"payload"`
}

// ChannelSendPayload executes one channel send. Request.Channels always holds
// exactly one channel; recipient resolution happens in the worker.
type ChannelSendPayload struct {
	Request model.DispatchRequest `json:"request"`
}

// MassFanoutPayload resolves a search mask into contact ids and spawns one
// child channel-send job per contact, parented to this job.
type MassFanoutPayload struct {
	Request model.DispatchRequest `json:"request"`
}

// DelayedDispatchPayload travels through the delay queue and surfaces on the
// work queue once its TTL expires.
type DelayedDispatchPayload struct {
	ScheduledDispatchID int `json:"scheduled_dispatch_id"`
}

// NewEnvelope wraps a payload, stamping the current version.
func NewEnvelope(kind JobKind, jobID, parentJobID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Version:     EnvelopeVersion,
		Kind:        kind,
		JobID:       jobID,
		ParentJobID: parentJobID,
		Payload:     raw,
	}, nil
}

// Decode parses a raw body and rejects frames from a different version.
func Decode(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed envelope: %w", err)
	}
	if env.Version != EnvelopeVersion {
		return Envelope{}, fmt.Errorf("unsupported envelope version %d", env.Version)
	}
	return env, nil
}

// internal/queue/envelope_test.go
package queue_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycrm/dispatch-backend/internal/model"
	"github.com/relaycrm/dispatch-backend/internal/queue"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	env, err := queue.NewEnvelope(queue.KindChannelSend, "job-1", "parent-1", queue.ChannelSendPayload{
		Request: model.DispatchRequest{CompositionID: 7, Channels: []string{"SMS"}, To: "1", Type: model.TargetContact},
	})
	require.NoError(t, err)

	body, err := json.Marshal(env)
	require.NoError(t, err)
	decoded, err := queue.Decode(body)
	require.NoError(t, err)

	assert.Equal(t, queue.KindChannelSend, decoded.Kind)
	assert.Equal(t, "job-1", decoded.JobID)
	assert.Equal(t, "parent-1", decoded.ParentJobID)

	var payload queue.ChannelSendPayload
	require.NoError(t, json.Unmarshal(decoded.Payload, &payload))
	assert.Equal(t, 7, payload.Request.CompositionID)
	assert.Equal(t, []string{"SMS"}, payload.Request.Channels)
}

func TestDecodeRejectsForeignVersion(t *testing.T) {
	body := []byte(`{"version":99,"kind":"channel-send","job_id":"x","payload":{}}`)
	_, err := queue.Decode(body)
	assert.Error(t, err, "a version 99 frame must not be accepted")
}

func TestDecodeRejectsMalformedBody(t *testing.T) {
	_, err := queue.Decode([]byte("not json"))
	assert.Error(t, err)
}

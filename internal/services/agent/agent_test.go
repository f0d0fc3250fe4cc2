package agent

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetsim/emergency-brake/internal/model/messages"
	"github.com/fleetsim/emergency-brake/pkg/rabbitmq"
)

type capturePublisher struct {
	mu       sync.Mutex
	queues   []string
	payloads [][]byte
}

func (p *capturePublisher) Publish(queue string, payload []byte) error {
	return p.PublishDurable(queue, payload)
}

func (p *capturePublisher) PublishDurable(queue string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queues = append(p.queues, queue)
	p.payloads = append(p.payloads, append([]byte(nil), payload...))
	return nil
}

func (p *capturePublisher) Close() {}

func (p *capturePublisher) onQueue(queue string) [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out [][]byte
	for i, q := range p.queues {
		if q == queue {
			out = append(out, p.payloads[i])
		}
	}
	return out
}

type recordingBrake struct {
	applied []string
}

func (b *recordingBrake) Apply(_ context.Context, vehicleID string) error {
	b.applied = append(b.applied, vehicleID)
	return nil
}

func command(t *testing.T, commandID, vehicleID string) []byte {
	t.Helper()
	b, err := json.Marshal(messages.BrakeCommand{
		Command:   messages.CommandBrake,
		CommandID: commandID,
		VehicleID: vehicleID,
		Reason:    "critical-near",
		Timestamp: time.Now(),
	})
	require.NoError(t, err)
	return b
}

func TestHandleCommandAppliesBrakeAndReports(t *testing.T) {
	pub := &capturePublisher{}
	brake := &recordingBrake{}
	svc := NewService("V1", nil, pub, brake)

	decision, err := svc.HandleCommand(messages.QueueBrakeCommands, command(t, "cmd-1", "V1"))
	require.NoError(t, err)
	assert.Equal(t, rabbitmq.Accept, decision)
	assert.Equal(t, []string{"V1"}, brake.applied)

	statuses := pub.onQueue(messages.QueueBrakeStatus)
	require.Len(t, statuses, 1)
	var status messages.BrakeStatus
	require.NoError(t, json.Unmarshal(statuses[0], &status))
	assert.Equal(t, "V1", status.VehicleID)
	assert.Equal(t, messages.StatusBrakeApplied, status.Status)

	events := pub.onQueue(messages.QueueEvents)
	require.Len(t, events, 2, "received + processing audit messages")
	var evt messages.LogEvent
	require.NoError(t, json.Unmarshal(events[0], &evt))
	assert.Equal(t, "emergency_brake_service", evt.LogSender)
	assert.Equal(t, "V1", evt.VehicleID)
}

func TestHandleCommandIgnoresOtherVehicles(t *testing.T) {
	pub := &capturePublisher{}
	brake := &recordingBrake{}
	svc := NewService("V1", nil, pub, brake)

	decision, err := svc.HandleCommand(messages.QueueBrakeCommands, command(t, "cmd-1", "V2"))
	require.NoError(t, err)
	assert.Equal(t, rabbitmq.Accept, decision)
	assert.Empty(t, brake.applied)
	assert.Empty(t, pub.onQueue(messages.QueueBrakeStatus))
}

func TestHandleCommandDropsRedelivery(t *testing.T) {
	pub := &capturePublisher{}
	brake := &recordingBrake{}
	svc := NewService("V1", nil, pub, brake)

	payload := command(t, "cmd-1", "V1")
	_, err := svc.HandleCommand(messages.QueueBrakeCommands, payload)
	require.NoError(t, err)
	_, err = svc.HandleCommand(messages.QueueBrakeCommands, payload)
	require.NoError(t, err)

	assert.Equal(t, []string{"V1"}, brake.applied, "same command id brakes once")
	assert.Len(t, pub.onQueue(messages.QueueBrakeStatus), 1)

	// A fresh command id is a new brake.
	_, err = svc.HandleCommand(messages.QueueBrakeCommands, command(t, "cmd-2", "V1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"V1", "V1"}, brake.applied)
}

func TestHandleCommandIgnoresUnknownCommandAndGarbage(t *testing.T) {
	pub := &capturePublisher{}
	brake := &recordingBrake{}
	svc := NewService("V1", nil, pub, brake)

	for _, payload := range [][]byte{
		[]byte("{nope"),
		[]byte(`{"command":"accelerate","vehicle_id":"V1"}`),
	} {
		decision, err := svc.HandleCommand(messages.QueueBrakeCommands, payload)
		assert.Equal(t, rabbitmq.Accept, decision, "malformed or foreign commands never requeue")
		assert.NoError(t, err)
	}
	assert.Empty(t, brake.applied)
}

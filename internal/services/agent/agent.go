// Package agent is the remote vehicle side of the braking pipeline: it
// consumes brake commands addressed to its vehicle, applies the brake, and
// reports back over the status and events queues.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/fleetsim/emergency-brake/internal/model"
	"github.com/fleetsim/emergency-brake/internal/model/messages"
	"github.com/fleetsim/emergency-brake/pkg/dedup"
	"github.com/fleetsim/emergency-brake/pkg/rabbitmq"
)

// Brake actually applies the brake on the vehicle hardware or simulator.
type Brake interface {
	Apply(ctx context.Context, vehicleID string) error
}

// NoopBrake is the simulator stand-in for real actuation.
type NoopBrake struct{}

func (NoopBrake) Apply(_ context.Context, vehicleID string) error {
	log.Printf("agent: brake applied on %s", vehicleID)
	return nil
}

// Service consumes brake_commands for one vehicle id. Commands carry a
// command id, so redeliveries of an already-executed command are dropped
// instead of braking twice.
type Service struct {
	vehicleID string
	consumer  rabbitmq.IConsumer
	publisher rabbitmq.IPublisher
	brake     Brake
	deduper   *dedup.Deduper
	now       func() time.Time
}

func NewService(vehicleID string, consumer rabbitmq.IConsumer, publisher rabbitmq.IPublisher, brake Brake) *Service {
	s := &Service{
		vehicleID: vehicleID,
		consumer:  consumer,
		publisher: publisher,
		brake:     brake,
		deduper:   dedup.New(10*time.Minute, 20000),
		now:       time.Now,
	}
	if consumer != nil {
		consumer.SetHandler(s.HandleCommand)
	}
	return s
}

func (s *Service) Start(ctx context.Context) {
	s.consumer.Consume(ctx)
	s.publisher.Close()
}

// HandleCommand processes one brake command delivery.
func (s *Service) HandleCommand(queue string, payload []byte) (rabbitmq.Decision, error) {
	s.publishEvent("Received brake command")

	var cmd messages.BrakeCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		log.Printf("agent: %v", &model.MalformedMessage{Queue: queue, Err: err})
		return rabbitmq.Accept, nil
	}
	if cmd.Command != messages.CommandBrake {
		return rabbitmq.Accept, nil
	}
	if cmd.VehicleID != s.vehicleID {
		log.Printf("agent: brake command for %s, but this agent is %s. Ignoring.", cmd.VehicleID, s.vehicleID)
		return rabbitmq.Accept, nil
	}
	if !s.deduper.ShouldProcess(cmd.CommandID) {
		log.Printf("agent: duplicate command %s, already executed", cmd.CommandID)
		return rabbitmq.Accept, nil
	}

	s.publishEvent("Processing valid brake command")
	log.Printf("agent: BRAKE COMMAND RECEIVED for %s (%s)", cmd.VehicleID, cmd.Reason)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.brake.Apply(ctx, cmd.VehicleID); err != nil {
		// Actuation is simulated; a failure is reported, not retried.
		log.Printf("agent: WARN: applying brake on %s: %v", cmd.VehicleID, err)
	}

	s.publishStatus(cmd.VehicleID)
	return rabbitmq.Accept, nil
}

func (s *Service) publishStatus(vehicleID string) {
	msg := messages.BrakeStatus{
		VehicleID: vehicleID,
		Status:    messages.StatusBrakeApplied,
		Timestamp: s.now().UTC(),
	}
	b, _ := json.Marshal(msg)
	if err := s.publisher.PublishDurable(messages.QueueBrakeStatus, b); err != nil {
		log.Printf("agent: publish brake status: %v", err)
		return
	}
	log.Printf("agent: sent brake success for %s", vehicleID)
}

func (s *Service) publishEvent(text string) {
	msg := messages.LogEvent{
		VehicleID:  s.vehicleID,
		LogSender:  "emergency_brake_service",
		LogMessage: fmt.Sprintf("'%s' in %s", text, s.vehicleID),
		Timestamp:  s.now().UTC(),
	}
	b, _ := json.Marshal(msg)
	if err := s.publisher.Publish(messages.QueueEvents, b); err != nil {
		log.Printf("agent: publish event: %v", err)
	}
}

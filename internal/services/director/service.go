package director

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/fleetsim/emergency-brake/internal/model"
	"github.com/fleetsim/emergency-brake/internal/model/messages"
	"github.com/fleetsim/emergency-brake/internal/storage"
	"github.com/fleetsim/emergency-brake/pkg/dedup"
	"github.com/fleetsim/emergency-brake/pkg/rabbitmq"
)

// Event types recorded in the audit log.
const (
	eventTypeBrake      = "emergency_break"
	eventTypeDeviation  = "distance_deviation"
	eventTypeBrakeAck   = "brake_status"
	eventTypeLocation   = "location_tracker"
	eventTypeUnknownMsg = "unknown_message"
	eventTypeError      = "error"
)

// Service is the fleet coordinator: it consumes processed distances, runs
// the decision engine and the brake coordinator, keeps the fleet state, and
// records everything in the audit log.
type Service struct {
	fleet     *FleetState
	engine    *Engine
	coord     *Coordinator
	tracker   *TrackerClient
	events    *storage.EventStore
	publisher rabbitmq.IPublisher
	deduper   *dedup.Deduper
	now       func() time.Time
	cooldown  time.Duration
}

type Option func(*Service)

// WithClock injects a clock; tests use it to drive cooldown expiry without
// wall-clock waits.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithCooldown(d time.Duration) Option {
	return func(s *Service) { s.cooldown = d }
}

func NewService(events *storage.EventStore, publisher rabbitmq.IPublisher, tracker *TrackerClient, opts ...Option) *Service {
	s := &Service{
		fleet:     NewFleetState(),
		engine:    NewEngine(),
		tracker:   tracker,
		events:    events,
		publisher: publisher,
		deduper:   dedup.New(10*time.Minute, 20000),
		now:       time.Now,
		cooldown:  DefaultCooldown,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.coord = NewCoordinator(s.cooldown, s.now)
	return s
}

// HandleDistance processes one ProcessedDistance delivery: update the fleet
// view, evaluate the rules, and coordinate a brake command if needed.
func (s *Service) HandleDistance(queue string, payload []byte) (rabbitmq.Decision, error) {
	var pd messages.ProcessedDistance
	if err := json.Unmarshal(payload, &pd); err != nil {
		metricMalformed.Inc()
		log.Printf("director: %v", &model.MalformedMessage{Queue: queue, Err: err})
		return rabbitmq.Accept, nil
	}
	if pd.VehicleID == "" {
		metricMalformed.Inc()
		log.Printf("director: dropping distance message without vehicle_id")
		return rabbitmq.Accept, nil
	}
	s.processDistance(pd)
	return rabbitmq.Accept, nil
}

// processDistance is the decision path shared by the queue consumer and the
// HTTP ingest endpoint.
//
// The tracker is consulted before taking the vehicle lock and the command is
// published after releasing it; the lock only covers the in-memory
// read-decide-write sequence.
func (s *Service) processDistance(pd messages.ProcessedDistance) {
	// Best-effort deviation input; never blocks or fails the decision.
	trackerDist := s.trackerDistance(pd.VehicleID)

	var (
		res        model.DecisionResult
		dev        *Deviation
		cmd        *messages.BrakeCommand
		suppressed bool
	)
	s.fleet.Update(pd.VehicleID, func(st *model.VehicleState) {
		st.FrontDistance = pd.FrontDistanceM
		st.RearDistance = pd.RearDistanceM
		st.FrontRate = pd.FrontVelocityMps
		st.RearRate = pd.RearVelocityMps

		res, dev = s.engine.Evaluate(pd.VehicleID, pd.FrontDistanceM, pd.FrontVelocityMps, trackerDist)
		cmd, suppressed = s.coord.OnDecision(st, res)
	})

	s.recordDecision(res, dev, suppressed)
	if cmd != nil {
		s.publishCommand(cmd)
	}
}

func (s *Service) trackerDistance(vehicleID string) *float64 {
	ctx, cancel := context.WithTimeout(context.Background(), trackerTimeout)
	defer cancel()
	dist, err := s.tracker.FrontDistance(ctx, vehicleID)
	if err != nil {
		log.Printf("director: WARN: %v", err)
		return nil
	}
	return dist
}

func (s *Service) recordDecision(res model.DecisionResult, dev *Deviation, suppressed bool) {
	outcome := "safe"
	if res.Triggered {
		outcome = res.Reason
	}
	metricDecisions.WithLabelValues(outcome).Inc()

	// The deviation case is always logged, whatever the trigger outcome.
	if dev != nil {
		metricDeviations.Inc()
		s.append(eventTypeDeviation, dev.String())
	}
	if suppressed {
		log.Printf("director: suppressed repeat trigger for %s (cooldown)", res.VehicleID)
	}
}

func (s *Service) publishCommand(cmd *messages.BrakeCommand) {
	b, err := json.Marshal(cmd)
	if err != nil {
		s.append(eventTypeError, fmt.Sprintf("marshal brake command for %s: %v", cmd.VehicleID, err))
		return
	}
	if err := s.publisher.PublishDurable(messages.QueueBrakeCommands, b); err != nil {
		// Not yet delivered: log and audit, the open cooldown still
		// debounces repeat triggers.
		log.Printf("director: publish brake command for %s: %v", cmd.VehicleID, err)
		s.append(eventTypeError, fmt.Sprintf("failed to publish brake command: %v", err))
		return
	}
	metricBrakeCommands.Inc()
	log.Printf("director: published emergency brake for %s: %s", cmd.VehicleID, cmd.Reason)
	s.append(eventTypeBrake, fmt.Sprintf("Published brake for %s: %s", cmd.VehicleID, cmd.Reason))
}

// HandleStatus processes a BrakeStatus acknowledgment from a vehicle agent.
// Deliveries are at-least-once: exact redeliveries are dropped by payload
// hash, and a replay after the machine left command_sent is a no-op anyway.
func (s *Service) HandleStatus(queue string, payload []byte) (rabbitmq.Decision, error) {
	if !s.deduper.ShouldProcess(dedup.HashPayload(payload)) {
		return rabbitmq.Accept, nil
	}

	var status messages.BrakeStatus
	if err := json.Unmarshal(payload, &status); err != nil {
		metricMalformed.Inc()
		log.Printf("director: %v", &model.MalformedMessage{Queue: queue, Err: err})
		return rabbitmq.Accept, nil
	}
	if status.VehicleID == "" {
		metricMalformed.Inc()
		return rabbitmq.Accept, nil
	}

	var applied bool
	s.fleet.Update(status.VehicleID, func(st *model.VehicleState) {
		applied = s.coord.OnStatus(status.VehicleID, st)
	})
	if applied {
		log.Printf("director: brake acknowledged by %s", status.VehicleID)
		s.append(eventTypeBrakeAck, fmt.Sprintf("%s reported %s", status.VehicleID, status.Status))
	}
	return rabbitmq.Accept, nil
}

// HandleEvent records generic audit messages: service logs, tracker pings,
// and anything unrecognized.
func (s *Service) HandleEvent(queue string, payload []byte) (rabbitmq.Decision, error) {
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		metricMalformed.Inc()
		log.Printf("director: %v", &model.MalformedMessage{Queue: queue, Err: err})
		return rabbitmq.Accept, nil
	}

	switch {
	case raw["log_message"] != nil:
		var evt messages.LogEvent
		_ = json.Unmarshal(payload, &evt)
		sender := evt.LogSender
		if sender == "" {
			sender = "unknown"
		}
		vehicle := evt.VehicleID
		if vehicle == "" {
			vehicle = "unknown"
		}
		s.append(sender, fmt.Sprintf("[%s] %s", vehicle, evt.LogMessage))
	case raw["lat"] != nil && raw["lng"] != nil:
		var ping messages.LocationPing
		_ = json.Unmarshal(payload, &ping)
		s.append(eventTypeLocation, fmt.Sprintf("%s at (%v, %v)", ping.VehicleID, *ping.Lat, *ping.Lng))
	default:
		log.Printf("director: unknown message format on %s", queue)
		s.append(eventTypeUnknownMsg, string(payload))
	}
	return rabbitmq.Accept, nil
}

// append writes to the audit log; a persistence failure is logged and never
// blocks the decision or command path.
func (s *Service) append(eventType, details string) {
	if err := s.events.Append(eventType, details); err != nil {
		log.Printf("director: %v", err)
	}
}

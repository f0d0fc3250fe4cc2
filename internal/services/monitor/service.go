package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/fleetsim/emergency-brake/internal/model"
	"github.com/fleetsim/emergency-brake/internal/model/messages"
	"github.com/fleetsim/emergency-brake/pkg/rabbitmq"
)

// Service is the distance monitor: it fuses raw sensor samples into per-side
// distances, derives closing rates, and publishes the processed result for
// the director's decision stage.
type Service struct {
	consumer  rabbitmq.IConsumer
	publisher rabbitmq.IPublisher
	fuser     *Fuser
	estimator *VelocityEstimator
	now       func() time.Time
}

func NewService(consumer rabbitmq.IConsumer, publisher rabbitmq.IPublisher, fuser *Fuser) *Service {
	s := &Service{
		consumer:  consumer,
		publisher: publisher,
		fuser:     fuser,
		estimator: NewVelocityEstimator(),
		now:       time.Now,
	}
	if consumer != nil {
		consumer.SetHandler(s.handleSample)
	}
	return s
}

// Start blocks on the consume loop until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.consumer.Consume(ctx)
	s.publisher.Close()
}

// handleSample processes one raw sensor message. Malformed payloads are
// accepted and logged so they cannot loop as poison messages; only a failed
// downstream publish is rejected for redelivery.
func (s *Service) handleSample(queue string, payload []byte) (rabbitmq.Decision, error) {
	var sample messages.SensorSample
	if err := json.Unmarshal(payload, &sample); err != nil {
		merr := &model.MalformedMessage{Queue: queue, Err: err}
		log.Printf("monitor: %v", merr)
		return rabbitmq.Accept, nil
	}
	if sample.VehicleID == "" {
		log.Printf("monitor: dropping sample without vehicle_id on %s", queue)
		return rabbitmq.Accept, nil
	}

	if err := s.Process(&sample); err != nil {
		// Transient transport failure: leave the sample for redelivery.
		return rabbitmq.Reject, err
	}
	return rabbitmq.Accept, nil
}

// Process runs one sample through fuse -> estimate -> publish. Shared by the
// queue consumer and the HTTP ingest endpoint.
func (s *Service) Process(sample *messages.SensorSample) error {
	ts := sample.Timestamp
	if ts.IsZero() {
		ts = s.now().UTC()
	}

	fused := s.fuser.Fuse(sample.VehicleID, readingsFromSample(sample), ts)
	velocity := s.estimator.Observe(fused)

	out := messages.ProcessedDistance{
		VehicleID:        fused.VehicleID,
		FrontDistanceM:   fused.Front,
		RearDistanceM:    fused.Rear,
		FrontVelocityMps: velocity.FrontMps,
		RearVelocityMps:  velocity.RearMps,
		Timestamp:        ts,
	}
	b, err := json.Marshal(out)
	if err != nil {
		return err
	}
	if err := s.publisher.PublishDurable(messages.QueueDistanceData, b); err != nil {
		log.Printf("monitor: publish processed data for %s: %v", fused.VehicleID, err)
		return err
	}
	log.Printf("monitor: published processed data for %s (front=%s rear=%s)",
		fused.VehicleID, fmtDist(fused.Front), fmtDist(fused.Rear))
	return nil
}

func fmtDist(d *float64) string {
	if d == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2fm", *d)
}

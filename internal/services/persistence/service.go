// Package persistence archives processed distances in InfluxDB for offline
// analysis. It sits off the safety path: a write failure is logged and the
// pipeline carries on.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/fleetsim/emergency-brake/internal/model"
	"github.com/fleetsim/emergency-brake/internal/model/messages"
	"github.com/fleetsim/emergency-brake/pkg/rabbitmq"
)

type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

type Service struct {
	consumer rabbitmq.IConsumer
	client   influxdb2.Client
	writer   *Writer
}

func NewService(consumer rabbitmq.IConsumer, cfg InfluxConfig) (*Service, error) {
	if cfg.URL == "" || cfg.Token == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx config incomplete")
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	writer := NewWriter(client.WriteAPI(cfg.Org, cfg.Bucket))

	s := &Service{consumer: consumer, client: client, writer: writer}
	if consumer != nil {
		consumer.SetHandler(s.handleDistance)
	}
	return s, nil
}

func (s *Service) Start(ctx context.Context) {
	s.consumer.Consume(ctx)
	s.client.Close()
}

func (s *Service) handleDistance(queue string, payload []byte) (rabbitmq.Decision, error) {
	var pd messages.ProcessedDistance
	if err := json.Unmarshal(payload, &pd); err != nil {
		log.Printf("persistence: %v", &model.MalformedMessage{Queue: queue, Err: err})
		return rabbitmq.Accept, nil
	}
	if pd.VehicleID == "" {
		return rabbitmq.Accept, nil
	}

	fields := map[string]any{}
	putField(fields, "front_distance_m", pd.FrontDistanceM)
	putField(fields, "rear_distance_m", pd.RearDistanceM)
	putField(fields, "front_velocity_mps", pd.FrontVelocityMps)
	putField(fields, "rear_velocity_mps", pd.RearVelocityMps)
	if len(fields) == 0 {
		// Nothing measurable in this sample.
		return rabbitmq.Accept, nil
	}

	point := influxdb2.NewPoint(
		"vehicle_distance",
		map[string]string{"vehicle_id": pd.VehicleID},
		fields,
		pd.Timestamp,
	)
	s.writer.api.WritePoint(point)
	s.writer.MarkIngest(pd.VehicleID)
	return rabbitmq.Accept, nil
}

func putField(fields map[string]any, key string, v *float64) {
	if v != nil {
		fields[key] = *v
	}
}

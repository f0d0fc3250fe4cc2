package monitor

import (
	"time"

	"github.com/fleetsim/emergency-brake/internal/model"
	"github.com/fleetsim/emergency-brake/internal/model/messages"
)

// SensorType identifies a contributing proximity sensor.
type SensorType string

const (
	SensorUltrasonic SensorType = "ultrasonic"
	SensorRadar      SensorType = "radar"
	SensorCamera     SensorType = "camera"
	SensorLidar      SensorType = "lidar"
)

// Reading is one sensor's contribution, in meters. A nil side is excluded
// from that side's average.
type Reading struct {
	Front *float64
	Rear  *float64
}

// Fuser combines concurrent per-sensor distance estimates into one front and
// one rear distance per vehicle. The default is an unweighted arithmetic
// mean over whatever sensors reported, which deliberately conflates sensor
// precisions; per-sensor weights are an explicit option, not a hidden
// default.
type Fuser struct {
	weights map[SensorType]float64
}

type FuserOption func(*Fuser)

// WithWeights enables precision weighting. Sensors absent from the table get
// weight 1.
func WithWeights(w map[SensorType]float64) FuserOption {
	return func(f *Fuser) { f.weights = w }
}

func NewFuser(opts ...FuserOption) *Fuser {
	f := &Fuser{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fuse averages the present, non-nil readings per side. A side nobody
// reported fuses to nil, never to zero.
func (f *Fuser) Fuse(vehicleID string, readings map[SensorType]Reading, ts time.Time) model.FusedDistance {
	out := model.FusedDistance{VehicleID: vehicleID, Timestamp: ts}
	out.Front = f.average(readings, func(r Reading) *float64 { return r.Front })
	out.Rear = f.average(readings, func(r Reading) *float64 { return r.Rear })
	return out
}

func (f *Fuser) average(readings map[SensorType]Reading, side func(Reading) *float64) *float64 {
	var sum, weight float64
	for sensor, r := range readings {
		v := side(r)
		if v == nil {
			continue
		}
		w := f.weightFor(sensor)
		sum += *v * w
		weight += w
	}
	if weight == 0 {
		return nil
	}
	avg := sum / weight
	return &avg
}

func (f *Fuser) weightFor(sensor SensorType) float64 {
	if f.weights == nil {
		return 1
	}
	if w, ok := f.weights[sensor]; ok && w > 0 {
		return w
	}
	return 1
}

// readingsFromSample maps the wire sample onto per-sensor readings,
// converting ultrasonic centimeters to meters. Radar only ever reports the
// forward object.
func readingsFromSample(s *messages.SensorSample) map[SensorType]Reading {
	readings := make(map[SensorType]Reading, 4)
	if u := s.Ultrasonic; u != nil {
		readings[SensorUltrasonic] = Reading{
			Front: cmToM(u.FrontDistanceCm),
			Rear:  cmToM(u.RearDistanceCm),
		}
	}
	if r := s.Radar; r != nil {
		readings[SensorRadar] = Reading{Front: r.ObjectDistanceM}
	}
	if c := s.Camera; c != nil {
		readings[SensorCamera] = Reading{Front: c.FrontEstimateM, Rear: c.RearEstimateM}
	}
	if l := s.Lidar; l != nil {
		readings[SensorLidar] = Reading{Front: l.FrontEstimateM, Rear: l.RearEstimateM}
	}
	return readings
}

func cmToM(cm *float64) *float64 {
	if cm == nil {
		return nil
	}
	m := *cm / 100.0
	return &m
}

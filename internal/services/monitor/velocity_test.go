package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetsim/emergency-brake/internal/model"
)

func TestObserveFirstSampleHasNoRate(t *testing.T) {
	est := NewVelocityEstimator()
	v := est.Observe(model.FusedDistance{
		VehicleID: "v1",
		Front:     f(45.0),
		Timestamp: time.Now(),
	})
	assert.Nil(t, v.FrontMps)
	assert.Nil(t, v.RearMps)
}

func TestObserveComputesSignedRate(t *testing.T) {
	est := NewVelocityEstimator()
	t0 := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	est.Observe(model.FusedDistance{VehicleID: "v1", Front: f(45.0), Rear: f(10.0), Timestamp: t0})
	v := est.Observe(model.FusedDistance{
		VehicleID: "v1",
		Front:     f(38.0),
		Rear:      f(12.0),
		Timestamp: t0.Add(time.Second),
	})

	require.NotNil(t, v.FrontMps)
	assert.InDelta(t, -7.0, *v.FrontMps, 1e-9) // gap shrinking: negative
	require.NotNil(t, v.RearMps)
	assert.InDelta(t, 2.0, *v.RearMps, 1e-9) // gap growing: positive
}

func TestObserveVehiclesAreIndependent(t *testing.T) {
	est := NewVelocityEstimator()
	t0 := time.Now()

	est.Observe(model.FusedDistance{VehicleID: "v1", Front: f(40.0), Timestamp: t0})
	v := est.Observe(model.FusedDistance{VehicleID: "v2", Front: f(20.0), Timestamp: t0.Add(time.Second)})
	assert.Nil(t, v.FrontMps, "first sample for v2 must not borrow v1's history")
}

func TestObserveNonPositiveElapsed(t *testing.T) {
	est := NewVelocityEstimator()
	t0 := time.Now()

	est.Observe(model.FusedDistance{VehicleID: "v1", Front: f(40.0), Timestamp: t0})

	tests := []struct {
		name string
		ts   time.Time
	}{
		{"identical timestamp", t0},
		{"timestamp going backwards", t0.Add(-time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := est.Observe(model.FusedDistance{VehicleID: "v1", Front: f(30.0), Timestamp: tt.ts})
			assert.Nil(t, v.FrontMps)
		})
	}
}

func TestObserveSideMissingFromEitherSample(t *testing.T) {
	est := NewVelocityEstimator()
	t0 := time.Now()

	est.Observe(model.FusedDistance{VehicleID: "v1", Front: f(40.0), Timestamp: t0})
	v := est.Observe(model.FusedDistance{VehicleID: "v1", Rear: f(5.0), Timestamp: t0.Add(time.Second)})

	assert.Nil(t, v.FrontMps, "current sample lost the front side")
	assert.Nil(t, v.RearMps, "previous sample never had a rear side")
}

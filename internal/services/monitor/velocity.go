package monitor

import (
	"sync"

	"github.com/fleetsim/emergency-brake/internal/model"
)

// VelocityEstimator derives a closing rate from consecutive fused samples.
// It keeps only the single previous FusedDistance per vehicle, not a window.
//
// Sign convention, applied at every call site: the rate is
// (current - previous) / elapsed, so a shrinking gap yields a negative rate
// and "closing" always means rate < 0.
type VelocityEstimator struct {
	mu   sync.Mutex
	prev map[string]model.FusedDistance
}

func NewVelocityEstimator() *VelocityEstimator {
	return &VelocityEstimator{prev: make(map[string]model.FusedDistance)}
}

// Observe records fused as the latest sample for its vehicle and returns the
// per-side rates against the previous one. A side's rate is nil until both
// samples carry that side and the elapsed time is positive. Arrival order,
// not sample timestamps, decides which sample is "previous".
func (e *VelocityEstimator) Observe(fused model.FusedDistance) model.VelocityEstimate {
	e.mu.Lock()
	prev, seen := e.prev[fused.VehicleID]
	e.prev[fused.VehicleID] = fused
	e.mu.Unlock()

	var est model.VelocityEstimate
	if !seen {
		return est
	}
	elapsed := fused.Timestamp.Sub(prev.Timestamp).Seconds()
	if elapsed <= 0 {
		return est
	}
	est.FrontMps = rate(prev.Front, fused.Front, elapsed)
	est.RearMps = rate(prev.Rear, fused.Rear, elapsed)
	return est
}

func rate(prev, cur *float64, elapsed float64) *float64 {
	if prev == nil || cur == nil {
		return nil
	}
	r := (*cur - *prev) / elapsed
	return &r
}

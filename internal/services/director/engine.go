package director

import (
	"fmt"
	"math"

	"github.com/fleetsim/emergency-brake/internal/model"
)

// Rule thresholds. Comparisons are strict at every boundary: a distance of
// exactly 20.0m or a rate of exactly -3 m/s does not trigger.
const (
	criticalDistanceM = 20.0
	criticalRateMps   = -3.0
	warningDistanceM  = 40.0
	warningRateMps    = -5.0
	deviationLimitM   = 20.0
)

// Deviation is reported when the tracker-derived distance and the fused
// distance disagree by more than the limit. It is recorded as an event
// whatever the trigger outcome.
type Deviation struct {
	VehicleID string
	TrackerM  float64
	FusedM    float64
	DeltaM    float64
}

func (d Deviation) String() string {
	return fmt.Sprintf("Vehicle %s: LT=%.1fm, DM=%.1fm, delta=%.1fm",
		d.VehicleID, d.TrackerM, d.FusedM, d.DeltaM)
}

// Engine applies the ordered safety rules to a (distance, closing-rate)
// pair. It has no state of its own; per-vehicle serialization is the
// caller's job.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Evaluate runs the rules in order, first match wins:
//
//  1. front < 20m and rate < -3 m/s  -> "critical-near"
//  2. front < 40m and rate < -5 m/s  -> "warning-near"
//  3. |tracker - front| > 20m        -> "deviation"
//
// Rules 1-2 short-circuit to not-triggered when distance or rate is nil.
// trackerDistance is the advisory cross-check value; pass nil when the
// collaborator was unavailable and rule 3 is skipped. The closing-rate
// convention is negative-means-closing throughout.
func (e *Engine) Evaluate(vehicleID string, distance, rate, trackerDistance *float64) (model.DecisionResult, *Deviation) {
	res := model.DecisionResult{VehicleID: vehicleID, Distance: distance, Rate: rate}

	if distance != nil && rate != nil {
		switch {
		case *distance < criticalDistanceM && *rate < criticalRateMps:
			res.Triggered = true
			res.Reason = model.ReasonCriticalNear
			return res, nil
		case *distance < warningDistanceM && *rate < warningRateMps:
			res.Triggered = true
			res.Reason = model.ReasonWarningNear
			return res, nil
		}
	}

	if trackerDistance != nil && distance != nil {
		delta := math.Abs(*trackerDistance - *distance)
		if delta > deviationLimitM {
			res.Triggered = true
			res.Reason = model.ReasonDeviation
			return res, &Deviation{
				VehicleID: vehicleID,
				TrackerM:  *trackerDistance,
				FusedM:    *distance,
				DeltaM:    delta,
			}
		}
	}

	return res, nil
}

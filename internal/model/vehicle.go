package model

import "time"

// VehicleState is the fleet-wide view of one vehicle. An entry is created on
// the first message for its id and lives for the process lifetime.
//
// Braking is derived, not stored: the flag is true iff now is before
// BrakeExpiry. Whoever sets the expiry owns scheduling its own clear, which
// happens lazily on the next read or decision rather than via a timer.
type VehicleState struct {
	VehicleID   string
	BrakeExpiry time.Time

	FrontDistance *float64
	RearDistance  *float64
	FrontRate     *float64
	RearRate      *float64
}

// Braking reports whether the brake window is still open at now.
func (v *VehicleState) Braking(now time.Time) bool {
	return now.Before(v.BrakeExpiry)
}

// Clone deep-copies the state so snapshots never alias live pointers.
func (v *VehicleState) Clone() VehicleState {
	out := VehicleState{VehicleID: v.VehicleID, BrakeExpiry: v.BrakeExpiry}
	out.FrontDistance = cloneFloat(v.FrontDistance)
	out.RearDistance = cloneFloat(v.RearDistance)
	out.FrontRate = cloneFloat(v.FrontRate)
	out.RearRate = cloneFloat(v.RearRate)
	return out
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

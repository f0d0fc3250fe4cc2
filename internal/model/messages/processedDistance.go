package messages

import "time"

// ProcessedDistance is published by the distance monitor after fusion and
// velocity estimation, and consumed by the director's decision stage.
type ProcessedDistance struct {
	VehicleID        string    `json:"vehicle_id"`
	FrontDistanceM   *float64  `json:"front_distance_m"`
	RearDistanceM    *float64  `json:"rear_distance_m"`
	FrontVelocityMps *float64  `json:"front_velocity_mps"`
	RearVelocityMps  *float64  `json:"rear_velocity_mps"`
	Timestamp        time.Time `json:"timestamp"`
}

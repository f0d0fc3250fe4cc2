package messages

import "time"

// SensorSample is the raw per-vehicle sensor message from the simulator.
// Every sensor block and every field inside it is optional; a missing value
// is excluded from fusion, not treated as zero.
type SensorSample struct {
	VehicleID  string              `json:"vehicle_id"`
	Timestamp  time.Time           `json:"timestamp"`
	Ultrasonic *UltrasonicReadings `json:"ultrasonic,omitempty"`
	Radar      *RadarReadings      `json:"radar,omitempty"`
	Camera     *CameraReadings     `json:"camera,omitempty"`
	Lidar      *LidarReadings      `json:"lidar,omitempty"`
}

// UltrasonicReadings report in centimeters and are converted to meters
// during fusion.
type UltrasonicReadings struct {
	FrontDistanceCm *float64 `json:"front_distance_cm,omitempty"`
	RearDistanceCm  *float64 `json:"rear_distance_cm,omitempty"`
}

// RadarReadings only cover the forward-facing object.
type RadarReadings struct {
	ObjectDistanceM *float64 `json:"object_distance_m,omitempty"`
}

type CameraReadings struct {
	FrontEstimateM *float64 `json:"front_estimate_m,omitempty"`
	RearEstimateM  *float64 `json:"rear_estimate_m,omitempty"`
}

type LidarReadings struct {
	FrontEstimateM *float64 `json:"front_estimate_m,omitempty"`
	RearEstimateM  *float64 `json:"rear_estimate_m,omitempty"`
}

package messages

import "time"

const (
	CommandBrake       = "brake"
	StatusBrakeApplied = "brake_applied"
)

// BrakeCommand is published on the durable brake_commands queue, at most once
// per triggering decision within the cooldown window. CommandID lets the
// consuming agent drop redeliveries of the same command.
type BrakeCommand struct {
	Command   string    `json:"command"`
	CommandID string    `json:"command_id"`
	VehicleID string    `json:"vehicle_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// BrakeStatus is published by the vehicle agent once the brake is applied.
type BrakeStatus struct {
	VehicleID string    `json:"vehicle_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

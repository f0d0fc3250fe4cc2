package messages

import "time"

// LogEvent is the generic audit message any service may publish on the
// events queue. The director records it in the event log.
type LogEvent struct {
	VehicleID  string    `json:"vehicle_id,omitempty"`
	LogSender  string    `json:"log_sender"`
	LogMessage string    `json:"log_message"`
	Timestamp  time.Time `json:"timestamp"`
}

// LocationPing is what the position tracker publishes on the events queue.
type LocationPing struct {
	VehicleID string   `json:"vehicle_id"`
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
}

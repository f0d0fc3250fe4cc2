package messages

// Queue names shared by every service.
const (
	QueueSensorData    = "sensor_data"
	QueueDistanceData  = "distance_data"
	QueueBrakeCommands = "brake_commands"
	QueueBrakeStatus   = "brake_status"
	QueueEvents        = "events"
)

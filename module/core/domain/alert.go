package domain

import "time"

type AlertKind string

const (
	AlertZoneEntered        AlertKind = "zone_entered"
	AlertZoneExited         AlertKind = "zone_exited"
	AlertEmergencyTriggered AlertKind = "emergency_triggered"
	AlertEmergencyConfirmed AlertKind = "emergency_confirmed"
)

type AlertEvent struct {
	ID               string     `json:"id"`
	SubjectID        string     `json:"subject_id"`
	Kind             AlertKind  `json:"kind"`
	ZoneID           string     `json:"zone_id,omitempty"`
	Location         Coordinate `json:"location"`
	CreatedAt        time.Time  `json:"created_at"`
	DeliveryAttempts int        `json:"delivery_attempts"`
	Delivered        bool       `json:"delivered"`
}

// QueueEntry wraps an AlertEvent with the retry metadata the delivery
// queue owns for the rest of the event's lifecycle.
type QueueEntry struct {
	Event         AlertEvent `json:"event"`
	NextAttemptAt time.Time  `json:"next_attempt_at"`
	AttemptCount  int        `json:"attempt_count"`
	LastError     string     `json:"last_error,omitempty"`
}

// DeadLetter is an alert that exhausted all delivery retries.
type DeadLetter struct {
	Event       AlertEvent `json:"event"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"last_error"`
	AbandonedAt time.Time  `json:"abandoned_at"`
}

type NotificationTarget struct {
	ID        string `json:"id"`
	SubjectID string `json:"subject_id"`
	Channel   string `json:"channel"`
	Address   string `json:"address"`
}

package domain

type SafeZone struct {
	ID           string     `json:"id"`
	SubjectID    string     `json:"subject_id"`
	Name         string     `json:"name"`
	Center       Coordinate `json:"center"`
	RadiusMeters float64    `json:"radius_meters"`
	Active       bool       `json:"active"`
}

type TransitionKind string

const (
	ZoneEntered TransitionKind = "zone_entered"
	ZoneExited  TransitionKind = "zone_exited"
)

// TransitionEvent is a detected change in zone membership between two
// consecutive samples of the same subject.
type TransitionEvent struct {
	SubjectID string
	ZoneID    string
	ZoneName  string
	Kind      TransitionKind
	Sample    LocationSample
}

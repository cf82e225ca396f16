package domain

import "time"

type Coordinate struct {
	Lat            float64 `json:"latitude"`
	Lon            float64 `json:"longitude"`
	AccuracyMeters float64 `json:"accuracy_meters,omitempty"`
}

// Valid reports whether the coordinate is inside the WGS84 range.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

type LocationSample struct {
	SubjectID  string     `json:"subject_id"`
	Coordinate Coordinate `json:"coordinate"`
	CapturedAt time.Time  `json:"captured_at"`
	Speed      float64    `json:"speed,omitempty"`
	Heading    float64    `json:"heading,omitempty"`
}

// SubjectStatus is the externally visible snapshot of one tracked subject.
type SubjectStatus struct {
	SubjectID      string          `json:"subject_id"`
	TrackingActive bool            `json:"tracking_active"`
	LastSample     *LocationSample `json:"last_sample,omitempty"`
	ZoneMembership map[string]bool `json:"zone_membership"`
}

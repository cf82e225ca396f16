package service

import (
	"github.com/safetrack/safetrack/module/core/domain"
)

// EvaluateZones computes membership of the sample against every active
// zone and emits a transition for each zone whose membership changed.
// Prior membership defaults to false for zones never evaluated before,
// so a first sample can only produce an entered event. The prior map is
// updated in place for every active zone, transition or not. Zones are
// evaluated in declaration order, independently; one sample may emit
// transitions for several zones.
func EvaluateZones(sample domain.LocationSample, zones []domain.SafeZone, prior map[string]bool) []domain.TransitionEvent {
	var transitions []domain.TransitionEvent
	for _, z := range zones {
		if !z.Active {
			continue
		}
		// boundary is inclusive: exactly radius meters away is inside
		inside := DistanceMeters(sample.Coordinate, z.Center) <= z.RadiusMeters
		was := prior[z.ID]
		prior[z.ID] = inside

		switch {
		case inside && !was:
			transitions = append(transitions, domain.TransitionEvent{
				SubjectID: sample.SubjectID,
				ZoneID:    z.ID,
				ZoneName:  z.Name,
				Kind:      domain.ZoneEntered,
				Sample:    sample,
			})
		case !inside && was:
			transitions = append(transitions, domain.TransitionEvent{
				SubjectID: sample.SubjectID,
				ZoneID:    z.ID,
				ZoneName:  z.Name,
				Kind:      domain.ZoneExited,
				Sample:    sample,
			})
		}
	}
	return transitions
}

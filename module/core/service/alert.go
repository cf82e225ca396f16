package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/safetrack/safetrack/module/core/domain"
)

// AlertGenerator turns zone transitions and emergency triggers into
// alert events with fresh ids and a zeroed delivery state.
type AlertGenerator struct {
	now func() time.Time
}

func NewAlertGenerator() *AlertGenerator {
	return &AlertGenerator{now: time.Now}
}

func (g *AlertGenerator) FromTransition(t domain.TransitionEvent) domain.AlertEvent {
	kind := domain.AlertZoneEntered
	if t.Kind == domain.ZoneExited {
		kind = domain.AlertZoneExited
	}
	return domain.AlertEvent{
		ID:        uuid.NewString(),
		SubjectID: t.SubjectID,
		Kind:      kind,
		ZoneID:    t.ZoneID,
		Location:  t.Sample.Coordinate,
		CreatedAt: g.now(),
	}
}

// TriggerEmergency builds an emergency alert independent of the sample
// stream; it is invoked directly by a user action.
func (g *AlertGenerator) TriggerEmergency(subjectID string, kind domain.AlertKind, loc domain.Coordinate) domain.AlertEvent {
	return domain.AlertEvent{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		Kind:      kind,
		Location:  loc,
		CreatedAt: g.now(),
	}
}

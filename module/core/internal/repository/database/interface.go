package database

import (
	"context"

	"github.com/safetrack/safetrack/module/core/domain"
)

type ZoneRepository interface {
	InsertZone(ctx context.Context, zone *domain.SafeZone) error
	ListZones(ctx context.Context, subjectID string) ([]domain.SafeZone, error)
}

type TargetRepository interface {
	InsertTarget(ctx context.Context, target *domain.NotificationTarget) error
	ListTargets(ctx context.Context, subjectID string) ([]domain.NotificationTarget, error)
}

// QueueStore is the durable backing store for the delivery queue. It is
// optional: without one the queue runs purely in memory.
type QueueStore interface {
	SaveEntry(ctx context.Context, entry *domain.QueueEntry) error
	DeleteEntry(ctx context.Context, eventID string) error
	ListPending(ctx context.Context) ([]domain.QueueEntry, error)
	SaveDeadLetter(ctx context.Context, letter *domain.DeadLetter) error
	ListDeadLetters(ctx context.Context) ([]domain.DeadLetter, error)
}

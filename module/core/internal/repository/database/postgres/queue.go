package postgres

import (
	"context"
	"database/sql"

	"github.com/safetrack/safetrack/module/core/domain"
	"github.com/safetrack/safetrack/module/core/internal/repository/database"
)

var _ database.QueueStore = (*QueueStore)(nil)

// QueueStore persists pending delivery entries and dead letters so
// undelivered alerts survive a process restart.
type QueueStore struct {
	db *sql.DB
}

func NewQueueStore(db *sql.DB) *QueueStore {
	return &QueueStore{db: db}
}

func (s *QueueStore) SaveEntry(ctx context.Context, entry *domain.QueueEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alert_queue (event_id, subject_id, kind, zone_id, latitude, longitude, created_at, attempt_count, next_attempt_at, last_error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (event_id) DO UPDATE SET attempt_count = $8, next_attempt_at = $9, last_error = $10`,
		entry.Event.ID, entry.Event.SubjectID, string(entry.Event.Kind), entry.Event.ZoneID,
		entry.Event.Location.Lat, entry.Event.Location.Lon, entry.Event.CreatedAt,
		entry.AttemptCount, entry.NextAttemptAt, entry.LastError,
	)
	return err
}

func (s *QueueStore) DeleteEntry(ctx context.Context, eventID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM alert_queue WHERE event_id = $1`, eventID)
	return err
}

func (s *QueueStore) ListPending(ctx context.Context) ([]domain.QueueEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, subject_id, kind, zone_id, latitude, longitude, created_at, attempt_count, next_attempt_at, last_error FROM alert_queue ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.QueueEntry
	for rows.Next() {
		var e domain.QueueEntry
		var kind string
		if err := rows.Scan(&e.Event.ID, &e.Event.SubjectID, &kind, &e.Event.ZoneID,
			&e.Event.Location.Lat, &e.Event.Location.Lon, &e.Event.CreatedAt,
			&e.AttemptCount, &e.NextAttemptAt, &e.LastError); err != nil {
			return nil, err
		}
		e.Event.Kind = domain.AlertKind(kind)
		e.Event.DeliveryAttempts = e.AttemptCount
		results = append(results, e)
	}
	return results, rows.Err()
}

func (s *QueueStore) SaveDeadLetter(ctx context.Context, letter *domain.DeadLetter) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alert_dead_letters (event_id, subject_id, kind, zone_id, latitude, longitude, created_at, attempts, last_error, abandoned_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		letter.Event.ID, letter.Event.SubjectID, string(letter.Event.Kind), letter.Event.ZoneID,
		letter.Event.Location.Lat, letter.Event.Location.Lon, letter.Event.CreatedAt,
		letter.Attempts, letter.LastError, letter.AbandonedAt,
	)
	return err
}

func (s *QueueStore) ListDeadLetters(ctx context.Context) ([]domain.DeadLetter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, subject_id, kind, zone_id, latitude, longitude, created_at, attempts, last_error, abandoned_at FROM alert_dead_letters ORDER BY abandoned_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.DeadLetter
	for rows.Next() {
		var l domain.DeadLetter
		var kind string
		if err := rows.Scan(&l.Event.ID, &l.Event.SubjectID, &kind, &l.Event.ZoneID,
			&l.Event.Location.Lat, &l.Event.Location.Lon, &l.Event.CreatedAt,
			&l.Attempts, &l.LastError, &l.AbandonedAt); err != nil {
			return nil, err
		}
		l.Event.Kind = domain.AlertKind(kind)
		l.Event.DeliveryAttempts = l.Attempts
		results = append(results, l)
	}
	return results, rows.Err()
}

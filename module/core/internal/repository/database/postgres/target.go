package postgres

import (
	"context"
	"database/sql"

	"github.com/safetrack/safetrack/module/core/domain"
	"github.com/safetrack/safetrack/module/core/internal/repository/database"
)

var _ database.TargetRepository = (*TargetRepo)(nil)

type TargetRepo struct {
	db *sql.DB
}

func NewTargetRepo(db *sql.DB) *TargetRepo {
	return &TargetRepo{db: db}
}

func (r *TargetRepo) InsertTarget(ctx context.Context, target *domain.NotificationTarget) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notification_targets (id, subject_id, channel, address) VALUES ($1, $2, $3, $4)`,
		target.ID, target.SubjectID, target.Channel, target.Address,
	)
	return err
}

func (r *TargetRepo) ListTargets(ctx context.Context, subjectID string) ([]domain.NotificationTarget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, subject_id, channel, address FROM notification_targets WHERE subject_id = $1 ORDER BY id`,
		subjectID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.NotificationTarget
	for rows.Next() {
		var t domain.NotificationTarget
		if err := rows.Scan(&t.ID, &t.SubjectID, &t.Channel, &t.Address); err != nil {
			return nil, err
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

package postgres

import (
	"context"
	"database/sql"

	"github.com/safetrack/safetrack/module/core/domain"
	"github.com/safetrack/safetrack/module/core/internal/repository/database"
)

var _ database.ZoneRepository = (*ZoneRepo)(nil)

type ZoneRepo struct {
	db *sql.DB
}

func NewZoneRepo(db *sql.DB) *ZoneRepo {
	return &ZoneRepo{db: db}
}

func (r *ZoneRepo) InsertZone(ctx context.Context, zone *domain.SafeZone) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO safe_zones (id, subject_id, name, latitude, longitude, radius_meters, active) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		zone.ID, zone.SubjectID, zone.Name, zone.Center.Lat, zone.Center.Lon, zone.RadiusMeters, zone.Active,
	)
	return err
}

func (r *ZoneRepo) ListZones(ctx context.Context, subjectID string) ([]domain.SafeZone, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, subject_id, name, latitude, longitude, radius_meters, active FROM safe_zones WHERE subject_id = $1 ORDER BY created_at ASC`,
		subjectID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.SafeZone
	for rows.Next() {
		var z domain.SafeZone
		if err := rows.Scan(&z.ID, &z.SubjectID, &z.Name, &z.Center.Lat, &z.Center.Lon, &z.RadiusMeters, &z.Active); err != nil {
			return nil, err
		}
		results = append(results, z)
	}
	return results, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"time"

	"birdsbuddy/internal/models"
)

const (
	insertSampleSQL = `
		INSERT INTO telemetry_samples (recorded_at, food_pct, water_pct, food_g)
		VALUES (?, ?, ?, ?)
	`

	selectHourlySQL = `
		SELECT strftime('%Y-%m-%d %H:00:00', recorded_at) AS hour,
			AVG(food_pct), AVG(water_pct), COUNT(*)
		FROM telemetry_samples
		WHERE recorded_at >= ? AND recorded_at <= ?
		GROUP BY hour
		ORDER BY hour ASC
	`
)

type TelemetrySQLite struct {
	db *sql.DB
}

func NewTelemetrySQLite(db *sql.DB) *TelemetrySQLite {
	return &TelemetrySQLite{db: db}
}

func (r *TelemetrySQLite) Record(ctx context.Context, s models.TelemetrySample) error {
	_, err := r.db.ExecContext(ctx, insertSampleSQL,
		formatSQLiteTime(s.RecordedAt),
		s.FoodReservoirPct,
		s.WaterReservoirPct,
		s.FoodWeightGrams,
	)
	return err
}

// Hourly averages samples in [from, to] per UTC hour, oldest first.
func (r *TelemetrySQLite) Hourly(ctx context.Context, from, to time.Time) ([]models.HistoryPoint, error) {
	rows, err := r.db.QueryContext(ctx, selectHourlySQL,
		from.UTC().Format(sqliteTimeLayout),
		to.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.HistoryPoint
	for rows.Next() {
		var (
			p    models.HistoryPoint
			hour string
		)
		if err := rows.Scan(&hour, &p.FoodReservoirPct, &p.WaterReservoirPct, &p.Samples); err != nil {
			return nil, err
		}
		if p.Hour, err = time.ParseInLocation(sqliteTimeLayout, hour, time.UTC); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

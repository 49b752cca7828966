package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modecalib/internal/domain"
)

// SaveResult stores the winning thresholds for a table, replacing whatever
// an earlier run saved for it.
func (s *Store) SaveResult(ctx context.Context, res domain.CalibrationResult) error {
	if res.Table == "" {
		return errors.New("save result: table name is empty")
	}
	finished := res.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	query := fmt.Sprintf(
		`INSERT INTO calibration_results
			(table_name, run_id, still_walk, walk_bike, bike_car, error_rate, iterations, stop_reason, record_count, finished_at)
		 VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		 ON CONFLICT (table_name) DO UPDATE SET
			run_id = excluded.run_id,
			still_walk = excluded.still_walk,
			walk_bike = excluded.walk_bike,
			bike_car = excluded.bike_car,
			error_rate = excluded.error_rate,
			iterations = excluded.iterations,
			stop_reason = excluded.stop_reason,
			record_count = excluded.record_count,
			finished_at = excluded.finished_at`,
		s.bind(1), s.bind(2), s.bind(3), s.bind(4), s.bind(5),
		s.bind(6), s.bind(7), s.bind(8), s.bind(9), s.bind(10),
	)
	_, err := s.db.ExecContext(ctx, query,
		res.Table, res.RunID,
		res.Thresholds.StillWalk, res.Thresholds.WalkBike, res.Thresholds.BikeCar,
		res.ErrorRate, res.Iterations, res.StopReason, res.Records, finished.UTC(),
	)
	return err
}

// LatestResult returns the saved thresholds for table, or nil if none exist.
func (s *Store) LatestResult(ctx context.Context, table string) (*domain.CalibrationResult, error) {
	res := domain.CalibrationResult{Table: table, Found: true}
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT run_id, still_walk, walk_bike, bike_car, error_rate, iterations, stop_reason, record_count, finished_at
		 FROM calibration_results WHERE table_name = %s`, s.bind(1)),
		table,
	).Scan(
		&res.RunID,
		&res.Thresholds.StillWalk, &res.Thresholds.WalkBike, &res.Thresholds.BikeCar,
		&res.ErrorRate, &res.Iterations, &res.StopReason, &res.Records, &res.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

package storage

import (
	"context"
	"database/sql"
	"fmt"

	"modecalib/internal/domain"
)

// LoadRecords returns every row that has both a speed and a ground-truth
// mode, ordered by id. Labels are normalized with domain.ParseMode.
func (s *Store) LoadRecords(ctx context.Context, spec TableSpec) ([]domain.Record, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(
		`SELECT %s, %s, %s FROM %s WHERE %s IS NOT NULL AND %s IS NOT NULL ORDER BY %s`,
		spec.IDColumn, spec.SpeedColumn, spec.ModeColumn, spec.Name,
		spec.ModeColumn, spec.SpeedColumn, spec.IDColumn,
	)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var r domain.Record
		var mode string
		if err := rows.Scan(&r.ID, &r.SpeedKmH, &mode); err != nil {
			return nil, err
		}
		r.Mode, _ = domain.ParseMode(mode)
		records = append(records, r)
	}
	return records, rows.Err()
}

// ApplyAssignments writes the inferred label for each assignment in a single
// transaction and returns the number of rows updated. An empty label is
// stored as NULL.
func (s *Store) ApplyAssignments(ctx context.Context, spec TableSpec, assignments []domain.Assignment) (int, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`UPDATE %s SET %s = %s WHERE %s = %s`,
		spec.Name, spec.InferredColumn, s.bind(1), spec.IDColumn, s.bind(2),
	))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	updated := 0
	for _, a := range assignments {
		label := sql.NullString{String: string(a.Mode), Valid: a.Mode != ""}
		res, err := stmt.ExecContext(ctx, label, a.ID)
		if err != nil {
			return 0, fmt.Errorf("update id %d: %w", a.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		updated += int(n)
	}

	return updated, tx.Commit()
}

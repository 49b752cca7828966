package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var ErrInvalidIdentifier = errors.New("invalid SQL identifier")

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Store wraps a Postgres or SQLite connection holding labelled speed rows.
type Store struct {
	db     *sql.DB
	driver string
}

func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported driver %q (want %s or %s)", driver, DriverPostgres, DriverSQLite)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect: %w", err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	timestampType := "TIMESTAMPTZ"
	if s.driver == DriverSQLite {
		timestampType = "DATETIME"
	}
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS calibration_results (
		table_name  TEXT PRIMARY KEY,
		run_id      TEXT NOT NULL,
		still_walk  DOUBLE PRECISION NOT NULL,
		walk_bike   DOUBLE PRECISION NOT NULL,
		bike_car    DOUBLE PRECISION NOT NULL,
		error_rate  DOUBLE PRECISION NOT NULL,
		iterations  INTEGER NOT NULL DEFAULT 0,
		stop_reason TEXT DEFAULT '',
		record_count INTEGER NOT NULL DEFAULT 0,
		finished_at %s NOT NULL
	)`, timestampType)
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// bind returns the n-th (1-based) placeholder for the store's driver.
func (s *Store) bind(n int) string {
	if s.driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// TableSpec names the source table and the columns the calibration reads
// and writes.
type TableSpec struct {
	Name           string
	IDColumn       string
	SpeedColumn    string
	ModeColumn     string
	InferredColumn string
}

func DefaultTableSpec(name string) TableSpec {
	return TableSpec{
		Name:           name,
		IDColumn:       "id",
		SpeedColumn:    "speed_km_h",
		ModeColumn:     "mode",
		InferredColumn: "inferred_mode_speed_const",
	}
}

func (t TableSpec) Validate() error {
	fields := []struct {
		key, value string
	}{
		{"table", t.Name},
		{"id_column", t.IDColumn},
		{"speed_column", t.SpeedColumn},
		{"mode_column", t.ModeColumn},
		{"inferred_column", t.InferredColumn},
	}
	for _, f := range fields {
		if !ValidIdentifier(f.value) {
			return fmt.Errorf("%w: %s %q", ErrInvalidIdentifier, f.key, f.value)
		}
	}
	return nil
}

// ValidIdentifier reports whether s can be spliced into SQL as a table or
// column name, optionally schema-qualified.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

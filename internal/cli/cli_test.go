package cli

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing-config.yaml"))
	for _, key := range []string{"DB_DRIVER", "DB_DSN", "DB_USER", "DB_NAME", "CALIBRATION_TABLE", "SLACK_BOT_TOKEN", "SLACK_CHANNEL_ID", "CALIBRATION_SCHEDULE"} {
		t.Setenv(key, "")
	}
}

func seedTrips(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE trips (id INTEGER PRIMARY KEY, speed_km_h REAL, mode TEXT, inferred_mode_speed_const TEXT)`,
		`INSERT INTO trips (id, speed_km_h, mode) VALUES
			(1, 0.5, 'still'), (2, 1.8, 'still'), (3, 3.0, 'still'),
			(4, 6.2, 'walk'), (5, 7.5, 'walk'), (6, 9.1, 'walk'),
			(7, 12.4, 'bike'), (8, 15.0, 'bike'), (9, 18.3, 'bike'),
			(10, 27.0, 'car'), (11, 45.0, 'car'), (12, 90.0, 'car')`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed trips: %v", err)
		}
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCalibrateThenShow(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "trips.db")
	seedTrips(t, dbPath)

	out, err := execute(t, "calibrate", "trips",
		"--driver", "sqlite3",
		"--db-name", dbPath,
		"--seed", "1",
		"--error-threshold", "0.3",
		"--max-time", "10",
		"--staging-dir", filepath.Join(dir, "staging"),
	)
	if err != nil {
		t.Fatalf("calibrate failed: %v", err)
	}
	if !strings.HasPrefix(out, "Best thresholds: (") {
		t.Fatalf("unexpected calibrate output: %q", out)
	}

	out, err = execute(t, "show", "trips", "--driver", "sqlite3", "--db-name", dbPath)
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	for _, want := range []string{"Table:       trips", "Stopped by:  error threshold", "over 12 rows"} {
		if !strings.Contains(out, want) {
			t.Fatalf("show output missing %q:\n%s", want, out)
		}
	}
}

func TestShowWithoutSavedResult(t *testing.T) {
	isolateEnv(t)
	dbPath := filepath.Join(t.TempDir(), "empty.db")

	out, err := execute(t, "show", "trips", "--driver", "sqlite3", "--db-name", dbPath)
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if out != "No calibration saved for trips.\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCalibrateRequiresTable(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "calibrate", "--driver", "sqlite3", "--db-name", filepath.Join(t.TempDir(), "x.db"))
	if err == nil || !strings.Contains(err.Error(), "'table'") {
		t.Fatalf("expected missing table error, got %v", err)
	}
}

func TestScheduleRequiresExpression(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "schedule", "trips", "--driver", "sqlite3", "--db-name", filepath.Join(t.TempDir(), "x.db"))
	if err == nil || !strings.Contains(err.Error(), "schedule is not set") {
		t.Fatalf("expected missing schedule error, got %v", err)
	}
}

func TestConfigFlagIsUsed(t *testing.T) {
	isolateEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(cfgPath, []byte("db_driver: sqlite3\nerror_threshold: -1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := execute(t, "calibrate", "trips", "--config", cfgPath, "--db-name", filepath.Join(t.TempDir(), "x.db"))
	if err == nil || !strings.Contains(err.Error(), "error_threshold") {
		t.Fatalf("expected error_threshold from --config file to be rejected, got %v", err)
	}
}

func TestCalibrateSQLiteRequiresDatabaseFile(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "calibrate", "trips", "--driver", "sqlite3")
	if err == nil || !strings.Contains(err.Error(), "db_name") {
		t.Fatalf("expected db_name error, got %v", err)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if out != "modecalib (devel)\n" {
		t.Fatalf("unexpected version output: %q", out)
	}
}

package config

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"modecalib/internal/calibrate"
	"modecalib/internal/schedule"
	"modecalib/internal/storage"

	"gopkg.in/yaml.v3"
)

const (
	defaultErrorThreshold = 0.1
	defaultMaxTimeSeconds = 20
	defaultPostgresDBName = "berlin"
)

type RangesConfig struct {
	StillWalk calibrate.Range `yaml:"still_walk"`
	WalkBike  calibrate.Range `yaml:"walk_bike"`
	BikeCar   calibrate.Range `yaml:"bike_car"`
}

type Config struct {
	DBDriver   string `yaml:"db_driver"`
	DBDSN      string `yaml:"db_dsn"`
	DBHost     string `yaml:"db_host"`
	DBPort     int    `yaml:"db_port"`
	DBName     string `yaml:"db_name"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBSSLMode  string `yaml:"db_sslmode"`

	Table          string `yaml:"table"`
	IDColumn       string `yaml:"id_column"`
	SpeedColumn    string `yaml:"speed_column"`
	ModeColumn     string `yaml:"mode_column"`
	InferredColumn string `yaml:"inferred_column"`

	ErrorThreshold float64      `yaml:"error_threshold"`
	MaxTimeSeconds *int         `yaml:"max_time_seconds"`
	Seed           int64        `yaml:"seed"`
	Ranges         RangesConfig `yaml:"ranges"`

	StagingDir  string `yaml:"staging_dir"`
	KeepStaging bool   `yaml:"keep_staging"`

	Schedule string `yaml:"schedule"`
	Timezone string `yaml:"timezone"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	// SlackTimeoutSeconds bounds each Slack API call; 0 uses the default.
	SlackTimeoutSeconds int `yaml:"slack_timeout_seconds"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

// Load reads config.yaml (or CONFIG_PATH), applies env overrides and
// defaults. It does not validate; call Validate once CLI flags are applied.
func Load() (Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config path. An empty path falls back to
// CONFIG_PATH, then config.yaml. A missing file is not an error.
func LoadFile(configPath string) (Config, error) {
	var cfg Config

	if configPath == "" {
		configPath = "config.yaml"
		if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
			configPath = envPath
		}
	}
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read %s: %w", configPath, err)
	}

	envOverride(&cfg.DBDriver, "DB_DRIVER")
	envOverride(&cfg.DBDSN, "DB_DSN")
	envOverride(&cfg.DBHost, "DB_HOST")
	envOverride(&cfg.DBName, "DB_NAME")
	envOverride(&cfg.DBUser, "DB_USER")
	envOverride(&cfg.DBPassword, "DB_PASSWORD")
	envOverride(&cfg.DBSSLMode, "DB_SSLMODE")
	envOverride(&cfg.Table, "CALIBRATION_TABLE")
	envOverride(&cfg.IDColumn, "ID_COLUMN")
	envOverride(&cfg.SpeedColumn, "SPEED_COLUMN")
	envOverride(&cfg.ModeColumn, "MODE_COLUMN")
	envOverride(&cfg.InferredColumn, "INFERRED_COLUMN")
	envOverride(&cfg.StagingDir, "STAGING_DIR")
	envOverrideAllowEmpty(&cfg.Schedule, "CALIBRATION_SCHEDULE")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverrideBool(&cfg.KeepStaging, "KEEP_STAGING")
	if err := envOverrideInt(&cfg.DBPort, "DB_PORT"); err != nil {
		return cfg, err
	}
	if err := envOverrideInt(&cfg.SlackTimeoutSeconds, "SLACK_TIMEOUT_SECONDS"); err != nil {
		return cfg, err
	}
	if err := envOverrideFloat(&cfg.ErrorThreshold, "ERROR_THRESHOLD"); err != nil {
		return cfg, err
	}
	if err := envOverrideInt64(&cfg.Seed, "SEED"); err != nil {
		return cfg, err
	}
	if val := os.Getenv("MAX_TIME_SECONDS"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid MAX_TIME_SECONDS '%s': %w", val, err)
		}
		cfg.MaxTimeSeconds = &parsed
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DBDriver == "" {
		c.DBDriver = storage.DriverPostgres
	}
	if c.DBHost == "" {
		c.DBHost = "localhost"
	}
	if c.DBPort == 0 {
		c.DBPort = 5432
	}
	if c.DBSSLMode == "" {
		c.DBSSLMode = "disable"
	}
	spec := storage.DefaultTableSpec(c.Table)
	if c.IDColumn == "" {
		c.IDColumn = spec.IDColumn
	}
	if c.SpeedColumn == "" {
		c.SpeedColumn = spec.SpeedColumn
	}
	if c.ModeColumn == "" {
		c.ModeColumn = spec.ModeColumn
	}
	if c.InferredColumn == "" {
		c.InferredColumn = spec.InferredColumn
	}
	if c.ErrorThreshold == 0 {
		c.ErrorThreshold = defaultErrorThreshold
	}
	if c.MaxTimeSeconds == nil {
		v := defaultMaxTimeSeconds
		c.MaxTimeSeconds = &v
	}
	defaults := calibrate.DefaultRanges()
	for i, r := range []*calibrate.Range{&c.Ranges.StillWalk, &c.Ranges.WalkBike, &c.Ranges.BikeCar} {
		if *r == (calibrate.Range{}) {
			*r = defaults[i]
		}
	}
	if c.StagingDir == "" {
		c.StagingDir = "."
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
}

// Validate checks the settings needed before any database work starts and
// resolves Location.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Table) == "" {
		return errors.New("required config 'table' is not set (via config.yaml, CALIBRATION_TABLE or argument)")
	}
	if err := c.TableSpec().Validate(); err != nil {
		return err
	}

	switch c.DBDriver {
	case storage.DriverPostgres:
		if c.DBDSN == "" && c.DBUser == "" {
			return errors.New("required config 'db_user' is not set (via config.yaml, DB_USER or --db-user)")
		}
	case storage.DriverSQLite:
		if c.DBDSN == "" && c.DBName == "" {
			return errors.New("db_name must name the sqlite database file when db_dsn is not set")
		}
	default:
		return fmt.Errorf("db_driver must be '%s' or '%s', got '%s'", storage.DriverPostgres, storage.DriverSQLite, c.DBDriver)
	}

	// A threshold above 1 is allowed: the first scored triple stops the search.
	if math.IsNaN(c.ErrorThreshold) || c.ErrorThreshold <= 0 {
		return fmt.Errorf("invalid error_threshold '%v': must be > 0", c.ErrorThreshold)
	}
	if c.MaxTimeSeconds == nil || *c.MaxTimeSeconds < 0 {
		return errors.New("invalid max_time_seconds: must be >= 0")
	}
	names := []string{"still_walk", "walk_bike", "bike_car"}
	for i, r := range c.SearchRanges() {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("invalid ranges.%s: %w", names[i], err)
		}
	}

	if strings.TrimSpace(c.Schedule) != "" {
		if _, err := schedule.Parse(c.Schedule); err != nil {
			return fmt.Errorf("invalid schedule '%s': %w", c.Schedule, err)
		}
	}
	if strings.EqualFold(c.Timezone, "Local") {
		c.Location = time.Local
	} else {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
		}
		c.Location = loc
	}

	if c.SlackTimeoutSeconds < 0 {
		return errors.New("invalid slack_timeout_seconds: must be >= 0")
	}
	if c.SlackBotToken != "" && c.SlackChannelID == "" {
		return errors.New("slack_channel_id is required when slack_bot_token is set")
	}
	return nil
}

func (c Config) TableSpec() storage.TableSpec {
	return storage.TableSpec{
		Name:           c.Table,
		IDColumn:       c.IDColumn,
		SpeedColumn:    c.SpeedColumn,
		ModeColumn:     c.ModeColumn,
		InferredColumn: c.InferredColumn,
	}
}

func (c Config) SearchRanges() [3]calibrate.Range {
	return [3]calibrate.Range{c.Ranges.StillWalk, c.Ranges.WalkBike, c.Ranges.BikeCar}
}

func (c Config) MaxTime() time.Duration {
	if c.MaxTimeSeconds == nil {
		return defaultMaxTimeSeconds * time.Second
	}
	return time.Duration(*c.MaxTimeSeconds) * time.Second
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackChannelID != ""
}

// DSN returns db_dsn when set. Otherwise it builds a lib/pq key=value string
// for postgres (db_name defaults to berlin), or uses db_name as the file path
// for sqlite3.
func (c Config) DSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	if c.DBDriver == storage.DriverSQLite {
		return c.DBName
	}
	parts := []string{
		"host=" + quoteDSNValue(c.DBHost),
		"port=" + strconv.Itoa(c.DBPort),
		"dbname=" + quoteDSNValue(c.postgresDBName()),
		"user=" + quoteDSNValue(c.DBUser),
	}
	if c.DBPassword != "" {
		parts = append(parts, "password="+quoteDSNValue(c.DBPassword))
	}
	parts = append(parts, "sslmode="+quoteDSNValue(c.DBSSLMode))
	return strings.Join(parts, " ")
}

func (c Config) postgresDBName() string {
	if c.DBName == "" {
		return defaultPostgresDBName
	}
	return c.DBName
}

func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideAllowEmpty(field *string, envKey string) {
	if val, ok := os.LookupEnv(envKey); ok {
		*field = val
	}
}

func envOverrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = strings.EqualFold(val, "true") || val == "1"
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideInt64(field *int64, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideFloat(field *float64, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

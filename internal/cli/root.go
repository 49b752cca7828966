package cli

import (
	"fmt"
	"log"

	"modecalib/internal/config"

	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "modecalib",
		Short: "Calibrate speed thresholds for still/walk/bike/car travel modes",
		Long: "modecalib searches for the three speed thresholds that best separate labelled rows\n" +
			"into still, walk, bike and car, and writes the inferred modes back to the table.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Path to config YAML (overrides CONFIG_PATH env var)")

	root.AddCommand(newCalibrateCmd())
	root.AddCommand(newScheduleCmd())
	root.AddCommand(newShowCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig loads the YAML/env config, applies flags set on cmd and an
// optional table argument, then validates the result.
func loadConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if len(args) > 0 {
		cfg.Table = args[0]
	}
	if err := applyFlags(cmd, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	log.Printf(
		"Config loaded. Driver=%s Table=%s ErrorThreshold=%.3f MaxTime=%s Seed=%d StagingDir=%s Slack=%t",
		cfg.DBDriver, cfg.Table, cfg.ErrorThreshold, cfg.MaxTime(), cfg.Seed, cfg.StagingDir, cfg.SlackConfigured(),
	)
	return cfg, nil
}

func addDBFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("driver", "", "Database driver: postgres or sqlite3")
	f.String("dsn", "", "Database DSN (overrides db_* settings)")
	f.String("db-user", "", "Database user")
	f.String("db-password", "", "Database password")
	f.String("db-name", "", "Database name (file path for sqlite3)")
}

func addSearchFlags(cmd *cobra.Command) {
	addDBFlags(cmd)
	f := cmd.Flags()
	f.Float64("error-threshold", 0, "Stop once the error rate drops below this value (default 0.1)")
	f.Int("max-time", 0, "Maximum search time in seconds (default 20)")
	f.Int64("seed", 0, "Random seed (0 seeds from the clock)")
	f.String("staging-dir", "", "Directory for the staged CSV files")
	f.Bool("keep-staging", false, "Keep the best-results CSV after writing it back")
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	strFlags := map[string]*string{
		"driver":      &cfg.DBDriver,
		"dsn":         &cfg.DBDSN,
		"db-user":     &cfg.DBUser,
		"db-password": &cfg.DBPassword,
		"db-name":     &cfg.DBName,
		"staging-dir": &cfg.StagingDir,
	}
	for name, field := range strFlags {
		if f.Lookup(name) == nil || !f.Changed(name) {
			continue
		}
		v, err := f.GetString(name)
		if err != nil {
			return err
		}
		*field = v
	}
	if f.Lookup("error-threshold") != nil && f.Changed("error-threshold") {
		v, err := f.GetFloat64("error-threshold")
		if err != nil {
			return err
		}
		cfg.ErrorThreshold = v
	}
	if f.Lookup("max-time") != nil && f.Changed("max-time") {
		v, err := f.GetInt("max-time")
		if err != nil {
			return err
		}
		cfg.MaxTimeSeconds = &v
	}
	if f.Lookup("seed") != nil && f.Changed("seed") {
		v, err := f.GetInt64("seed")
		if err != nil {
			return err
		}
		cfg.Seed = v
	}
	if f.Lookup("keep-staging") != nil && f.Changed("keep-staging") {
		v, err := f.GetBool("keep-staging")
		if err != nil {
			return err
		}
		cfg.KeepStaging = v
	}
	return nil
}

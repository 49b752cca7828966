package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"modecalib/internal/calibrate"
	"modecalib/internal/config"
	"modecalib/internal/domain"
	"modecalib/internal/httpx"
	"modecalib/internal/notify"
	"modecalib/internal/staging"
	"modecalib/internal/storage"

	"github.com/google/uuid"
	"github.com/slack-go/slack"
)

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// NewNotifier returns a Slack notifier, or nil when Slack is not configured.
func NewNotifier(cfg config.Config) Notifier {
	if !cfg.SlackConfigured() {
		return nil
	}
	api := slack.New(cfg.SlackBotToken, slack.OptionHTTPClient(httpx.NewClient(cfg.SlackTimeoutSeconds)))
	return notify.NewSlackNotifier(api, cfg.SlackChannelID)
}

// Run performs one calibration: load the labelled rows, search for the best
// thresholds, write the inferred labels and the thresholds back.
//
// Cancelling ctx ends the search early; whatever was found so far is still
// written back.
func Run(ctx context.Context, cfg config.Config, notifier Notifier) (domain.CalibrationResult, error) {
	runID := uuid.New().String()
	res := domain.CalibrationResult{RunID: runID, Table: cfg.Table}

	store, err := storage.Open(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		return res, fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	spec := cfg.TableSpec()
	records, err := store.LoadRecords(ctx, spec)
	if err != nil {
		return res, fmt.Errorf("load %s: %w", cfg.Table, err)
	}
	if len(records) == 0 {
		return res, fmt.Errorf("table %s has no labelled rows: %w", cfg.Table, calibrate.ErrEmptyDataset)
	}
	res.Records = len(records)
	if unknown := countUnknownModes(records); unknown > 0 {
		log.Printf("WARNING: %d of %d rows in %s have a label outside still/walk/bike/car; they always count as errors", unknown, len(records), cfg.Table)
	}
	log.Printf("Loaded %d labelled rows from %s (run %s)", len(records), cfg.Table, runID)

	files := staging.Paths(cfg.StagingDir, cfg.Table)
	if err := staging.WriteInput(files.Input, records); err != nil {
		return res, fmt.Errorf("stage input: %w", err)
	}
	log.Printf("Table '%s' saved to %s", cfg.Table, files.Input)
	defer func() {
		if err := staging.Cleanup(files, cfg.KeepStaging); err != nil {
			log.Printf("Error cleaning staging files: %v", err)
		}
	}()

	opts := calibrate.Options{
		ErrorThreshold: cfg.ErrorThreshold,
		MaxTime:        cfg.MaxTime(),
		Ranges:         cfg.SearchRanges(),
		Rand:           newRand(cfg.Seed),
		OnImprove: func(b calibrate.Best) error {
			return staging.WriteResults(files.Results, records, b.Labels)
		},
	}
	out, err := calibrate.Search(ctx, records, opts)
	if err != nil {
		return res, fmt.Errorf("search: %w", err)
	}

	res.Found = out.Best.Found
	res.Thresholds = out.Best.Thresholds
	res.ErrorRate = out.Best.ErrorRate
	res.Iterations = out.Iterations
	res.StopReason = string(out.Stop)
	res.FinishedAt = time.Now()

	// The search may have ended because ctx was cancelled; the write-back
	// still has to happen.
	persistCtx := context.WithoutCancel(ctx)

	if !res.Found {
		log.Printf("No thresholds found after %d iterations (%s); %s left unchanged", out.Iterations, out.Stop, cfg.Table)
	} else {
		log.Printf("Best thresholds: (%.2f, %.2f, %.2f) with error rate: %.4f",
			res.Thresholds.StillWalk, res.Thresholds.WalkBike, res.Thresholds.BikeCar, res.ErrorRate)

		assignments, err := staging.ReadAssignments(files.Results)
		if err != nil {
			return res, fmt.Errorf("read staged results: %w", err)
		}
		updated, err := store.ApplyAssignments(persistCtx, spec, assignments)
		if err != nil {
			return res, fmt.Errorf("write back labels: %w", err)
		}
		res.Updated = updated
		log.Printf("CSV file '%s' updated table '%s' (%d rows)", files.Results, cfg.Table, updated)

		if err := store.SaveResult(persistCtx, res); err != nil {
			return res, fmt.Errorf("save result: %w", err)
		}
	}

	if notifier != nil {
		summary := notify.FormatSummary(res, calibrate.Confusion(records, out.Best.Labels))
		if err := notifier.Notify(persistCtx, summary); err != nil {
			log.Printf("Error posting calibration summary: %v", err)
		}
	}
	return res, nil
}

func countUnknownModes(records []domain.Record) int {
	n := 0
	for _, r := range records {
		if _, ok := domain.ParseMode(string(r.Mode)); !ok {
			n++
		}
	}
	return n
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

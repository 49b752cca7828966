package calibrate

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"modecalib/internal/domain"
)

const (
	defaultErrorThreshold = 0.1
	defaultMaxTime        = 20 * time.Second
)

type StopReason string

const (
	StopTimeBudget StopReason = "time budget"
	StopTarget     StopReason = "error threshold"
	StopCancelled  StopReason = "cancelled"
)

// Best is the best triple seen so far. A new value replaces the old one on
// every strict improvement; Labels is never shared with the search buffer.
type Best struct {
	Thresholds domain.Thresholds
	ErrorRate  float64
	Labels     []domain.Mode
	Found      bool
	Iteration  int
}

type Options struct {
	ErrorThreshold float64
	MaxTime        time.Duration
	Ranges         [3]Range

	// Rand defaults to a clock-seeded source.
	Rand *rand.Rand
	// Now defaults to time.Now.
	Now func() time.Time
	// OnImprove is called with every new best before the target check. A
	// returned error aborts the search.
	OnImprove func(Best) error
}

// DefaultOptions mirrors the tool defaults: stop below 10% error or after 20s.
func DefaultOptions() Options {
	return Options{
		ErrorThreshold: defaultErrorThreshold,
		MaxTime:        defaultMaxTime,
		Ranges:         DefaultRanges(),
	}
}

type Outcome struct {
	Best       Best
	Iterations int
	Elapsed    time.Duration
	Stop       StopReason
}

// Search samples threshold triples until the time budget runs out, a triple
// scores below opts.ErrorThreshold, or ctx is cancelled. Cancellation is
// observed between iterations and is not an error: the best result recorded
// so far is returned.
func Search(ctx context.Context, records []domain.Record, opts Options) (Outcome, error) {
	for i, r := range opts.Ranges {
		if err := r.Validate(); err != nil {
			return Outcome{}, fmt.Errorf("threshold %d: %w", i+1, err)
		}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	best := Best{ErrorRate: math.Inf(1)}
	start := now()
	labels := make([]domain.Mode, len(records))
	iterations := 0

	finish := func(stop StopReason) Outcome {
		return Outcome{Best: best, Iterations: iterations, Elapsed: now().Sub(start), Stop: stop}
	}

	for {
		if ctx.Err() != nil {
			log.Printf("Stopping the search after %d iterations", iterations)
			return finish(StopCancelled), nil
		}
		if now().Sub(start) > opts.MaxTime {
			log.Printf("Reached max time: %s (%d iterations)", opts.MaxTime, iterations)
			return finish(StopTimeBudget), nil
		}

		t := domain.Thresholds{
			StillWalk: opts.Ranges[0].Sample(rng),
			WalkBike:  opts.Ranges[1].Sample(rng),
			BikeCar:   opts.Ranges[2].Sample(rng),
		}
		labels = AssignAll(records, t, labels)
		rate, err := ErrorRate(records, labels)
		if err != nil {
			return finish(""), fmt.Errorf("score iteration %d: %w", iterations+1, err)
		}
		iterations++

		if rate >= best.ErrorRate {
			continue
		}

		snapshot := make([]domain.Mode, len(labels))
		copy(snapshot, labels)
		best = Best{
			Thresholds: t,
			ErrorRate:  rate,
			Labels:     snapshot,
			Found:      true,
			Iteration:  iterations,
		}
		log.Printf("found new best: %.2f, %.2f, %.2f error=%.4f", t.StillWalk, t.WalkBike, t.BikeCar, rate)

		if opts.OnImprove != nil {
			if err := opts.OnImprove(best); err != nil {
				return finish(""), fmt.Errorf("record best at iteration %d: %w", iterations, err)
			}
		}
		if best.ErrorRate < opts.ErrorThreshold {
			log.Printf("Reached error threshold %.4f after %d iterations", opts.ErrorThreshold, iterations)
			return finish(StopTarget), nil
		}
	}
}

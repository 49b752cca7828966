package schedule

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Parse accepts a standard 5-field cron expression
// (minute hour day-of-month month day-of-week), e.g. "0 3 * * *" for 3am daily.
func Parse(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(strings.TrimSpace(expr))
}

// Run calls job at every activation of sched until ctx is done. A failed job
// is logged and the loop waits for the next activation.
func Run(ctx context.Context, sched cron.Schedule, loc *time.Location, job func(context.Context) error) {
	if loc == nil {
		loc = time.Local
	}
	for {
		now := time.Now().In(loc)
		next := sched.Next(now)
		wait := next.Sub(now)
		log.Printf("Next calibration at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Second))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Println("Scheduler stopped")
			return
		case <-timer.C:
		}

		if err := job(ctx); err != nil {
			log.Printf("Scheduled calibration error: %v", err)
		}
	}
}

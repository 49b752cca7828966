package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	sched, err := Parse(" 0 3 * * 1-5 ")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	// Friday 2024-03-08 10:00 UTC -> Monday 03:00.
	from := time.Date(2024, 3, 8, 10, 0, 0, 0, time.UTC)
	want := time.Date(2024, 3, 11, 3, 0, 0, 0, time.UTC)
	if got := sched.Next(from); !got.Equal(want) {
		t.Fatalf("Next(%s) = %s, want %s", from, got, want)
	}

	for _, bad := range []string{"", "* * *", "0 3 * * * *", "61 * * * *", "@every"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}

type everyTick struct {
	d time.Duration
}

func (e everyTick) Next(t time.Time) time.Time {
	return t.Add(e.d)
}

func TestRunRepeatsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		Run(ctx, everyTick{d: 5 * time.Millisecond}, time.UTC, func(context.Context) error {
			if calls.Add(1) == 2 {
				return errors.New("transient")
			}
			if calls.Load() >= 3 {
				cancel()
			}
			return nil
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("job calls = %d, want 3", got)
	}
}

func TestRunStopsWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		Run(ctx, everyTick{d: time.Hour}, nil, func(context.Context) error {
			t.Error("job should not run")
			return nil
		})
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return while waiting")
	}
}

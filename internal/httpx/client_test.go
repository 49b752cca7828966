package httpx

import (
	"testing"
	"time"
)

func TestNewClientTimeout(t *testing.T) {
	cases := []struct {
		seconds int
		want    time.Duration
	}{
		{0, DefaultTimeout},
		{-5, DefaultTimeout},
		{120, 120 * time.Second},
	}
	for _, tc := range cases {
		got := NewClient(tc.seconds)
		if got == nil {
			t.Fatalf("NewClient(%d) returned nil", tc.seconds)
		}
		if got.Timeout != tc.want {
			t.Fatalf("NewClient(%d).Timeout = %s, want %s", tc.seconds, got.Timeout, tc.want)
		}
	}
}

func TestNewClientReturnsDistinctClients(t *testing.T) {
	a, b := NewClient(10), NewClient(10)
	if a == b {
		t.Fatal("expected a fresh client per call")
	}
}

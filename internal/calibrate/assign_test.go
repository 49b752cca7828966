package calibrate

import (
	"math"
	"testing"

	"modecalib/internal/domain"
)

func TestAssignBoundaries(t *testing.T) {
	th := domain.Thresholds{StillWalk: 5, WalkBike: 10, BikeCar: 20}
	eps := 1e-9

	cases := []struct {
		speed float64
		want  domain.Mode
	}{
		{0, domain.ModeStill},
		{5, domain.ModeStill},
		{5 + eps, domain.ModeWalk},
		{10, domain.ModeWalk},
		{10 + eps, domain.ModeBike},
		{20, domain.ModeBike},
		{20 + eps, domain.ModeCar},
		{130, domain.ModeCar},
	}
	for _, tc := range cases {
		if got := Assign(tc.speed, th); got != tc.want {
			t.Errorf("Assign(%v) = %q, want %q", tc.speed, got, tc.want)
		}
	}
}

func TestAssignExactlyOneBandForOrderedTriples(t *testing.T) {
	triples := []domain.Thresholds{
		{StillWalk: 1.5, WalkBike: 7.25, BikeCar: 14},
		{StillWalk: 3, WalkBike: 3, BikeCar: 3},
		{StillWalk: 0, WalkBike: 5, BikeCar: 5},
	}
	for _, th := range triples {
		for speed := 0.0; speed <= 25; speed += 0.25 {
			bands := 0
			if speed <= th.StillWalk {
				bands++
			}
			if speed > th.StillWalk && speed <= th.WalkBike {
				bands++
			}
			if speed > th.WalkBike && speed <= th.BikeCar {
				bands++
			}
			if speed > th.BikeCar {
				bands++
			}
			if bands != 1 {
				t.Fatalf("speed %v with %+v matched %d bands", speed, th, bands)
			}
			if Assign(speed, th) == "" {
				t.Fatalf("speed %v with %+v got no label", speed, th)
			}
		}
	}
}

func TestAssignInvertedTriple(t *testing.T) {
	th := domain.Thresholds{StillWalk: 8, WalkBike: 4, BikeCar: 12}

	if got := Assign(2, th); got != domain.ModeStill {
		t.Fatalf("Assign(2) = %q, want still", got)
	}
	// t2 < t1 leaves the walk band empty.
	for _, speed := range []float64{8.5, 9, 12} {
		if got := Assign(speed, th); got != domain.ModeBike {
			t.Fatalf("Assign(%v) = %q, want bike", speed, got)
		}
	}
	if got := Assign(13, th); got != domain.ModeCar {
		t.Fatalf("Assign(13) = %q, want car", got)
	}

	// t3 < t2 leaves the bike band empty.
	th = domain.Thresholds{StillWalk: 1, WalkBike: 10, BikeCar: 5}
	if got := Assign(7, th); got != domain.ModeWalk {
		t.Fatalf("Assign(7) = %q, want walk", got)
	}
	if got := Assign(11, th); got != domain.ModeCar {
		t.Fatalf("Assign(11) = %q, want car", got)
	}
}

func TestAssignNaNIsUnlabelled(t *testing.T) {
	th := domain.Thresholds{StillWalk: 5, WalkBike: 10, BikeCar: 20}
	if got := Assign(math.NaN(), th); got != "" {
		t.Fatalf("Assign(NaN) = %q, want empty", got)
	}
}

func TestAssignAllReusesBuffer(t *testing.T) {
	records := []domain.Record{
		{ID: 1, SpeedKmH: 1},
		{ID: 2, SpeedKmH: 6},
		{ID: 3, SpeedKmH: 15},
	}
	th := domain.Thresholds{StillWalk: 5, WalkBike: 10, BikeCar: 20}

	buf := make([]domain.Mode, 8)
	got := AssignAll(records, th, buf)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if &got[0] != &buf[0] {
		t.Fatal("expected AssignAll to reuse the destination buffer")
	}
	want := []domain.Mode{domain.ModeStill, domain.ModeWalk, domain.ModeBike}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("label[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if fresh := AssignAll(records, th, nil); len(fresh) != 3 {
		t.Fatalf("len(nil dst) = %d, want 3", len(fresh))
	}
}

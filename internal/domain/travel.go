package domain

import (
	"strings"
	"time"
)

type Mode string

const (
	ModeStill Mode = "still"
	ModeWalk  Mode = "walk"
	ModeBike  Mode = "bike"
	ModeCar   Mode = "car"
)

// Modes lists the known travel modes from slowest to fastest.
var Modes = []Mode{ModeStill, ModeWalk, ModeBike, ModeCar}

// ParseMode normalizes a stored label. ok is false when the label is not one
// of the four known modes; the normalized value is still returned.
func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, true
		}
	}
	return m, false
}

type Record struct {
	ID       int64 // integer key of the source row
	SpeedKmH float64
	Mode     Mode // ground truth
}

type Thresholds struct {
	StillWalk float64
	WalkBike  float64
	BikeCar   float64
}

type Assignment struct {
	ID   int64
	Mode Mode
}

type CalibrationResult struct {
	RunID      string
	Table      string
	Found      bool
	Thresholds Thresholds
	ErrorRate  float64
	Iterations int
	StopReason string
	Records    int
	Updated    int
	FinishedAt time.Time
}

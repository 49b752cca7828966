package calibrate

import "modecalib/internal/domain"

// Assign maps a speed to a travel mode. Bands are closed on the right:
// a speed equal to a threshold belongs to the slower mode. Conditions are
// checked in order and the first match wins, so an inverted triple still
// labels every speed. Only NaN is left unlabelled (empty Mode).
func Assign(speed float64, t domain.Thresholds) domain.Mode {
	switch {
	case speed <= t.StillWalk:
		return domain.ModeStill
	case speed > t.StillWalk && speed <= t.WalkBike:
		return domain.ModeWalk
	case speed > t.WalkBike && speed <= t.BikeCar:
		return domain.ModeBike
	case speed > t.BikeCar:
		return domain.ModeCar
	}
	return ""
}

// AssignAll labels every record with t, writing into dst when it is large
// enough. The returned slice always has len(records) entries.
func AssignAll(records []domain.Record, t domain.Thresholds, dst []domain.Mode) []domain.Mode {
	if cap(dst) < len(records) {
		dst = make([]domain.Mode, len(records))
	}
	dst = dst[:len(records)]
	for i, r := range records {
		dst[i] = Assign(r.SpeedKmH, t)
	}
	return dst
}

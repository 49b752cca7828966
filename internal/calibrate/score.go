package calibrate

import (
	"errors"
	"fmt"

	"modecalib/internal/domain"
)

var (
	ErrEmptyDataset = errors.New("empty dataset")
	ErrLabelCount   = errors.New("label count does not match record count")
)

// ErrorRate returns the fraction of records whose assigned label differs from
// the ground truth.
func ErrorRate(records []domain.Record, labels []domain.Mode) (float64, error) {
	if len(records) == 0 {
		return 0, ErrEmptyDataset
	}
	if len(labels) != len(records) {
		return 0, fmt.Errorf("%w: %d labels for %d records", ErrLabelCount, len(labels), len(records))
	}

	mismatches := 0
	for i, r := range records {
		if labels[i] != r.Mode {
			mismatches++
		}
	}
	return float64(mismatches) / float64(len(records)), nil
}

// ModeAgreement is the per-mode breakdown of one labelling pass.
type ModeAgreement struct {
	Mode     domain.Mode
	Total    int // records whose ground truth is Mode
	Correct  int
	Assigned int // records labelled Mode, right or wrong
}

func (a ModeAgreement) Recall() float64 {
	if a.Total == 0 {
		return 0
	}
	return float64(a.Correct) / float64(a.Total)
}

// Confusion summarises agreement per known mode. Records whose ground truth
// is not a known mode are left out of the per-mode totals.
func Confusion(records []domain.Record, labels []domain.Mode) []ModeAgreement {
	byMode := make(map[domain.Mode]*ModeAgreement, len(domain.Modes))
	out := make([]ModeAgreement, len(domain.Modes))
	for i, m := range domain.Modes {
		out[i].Mode = m
		byMode[m] = &out[i]
	}

	for i, r := range records {
		if i >= len(labels) {
			break
		}
		if a, ok := byMode[labels[i]]; ok {
			a.Assigned++
		}
		a, ok := byMode[r.Mode]
		if !ok {
			continue
		}
		a.Total++
		if labels[i] == r.Mode {
			a.Correct++
		}
	}
	return out
}

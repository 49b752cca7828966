package calibrate

import (
	"fmt"
	"math"
	"math/rand"
)

// maxCandidates bounds Count so it always fits in an int and rng.Intn.
const maxCandidates = math.MaxInt32

// Range is a discrete uniform set of candidates Min, Min+Step, ... strictly
// below Max.
type Range struct {
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Step float64 `yaml:"step"`
}

// DefaultRanges returns the still/walk, walk/bike and bike/car candidate
// ranges in km/h.
func DefaultRanges() [3]Range {
	return [3]Range{
		{Min: 0, Max: 5, Step: 0.01},
		{Min: 5, Max: 10, Step: 0.01},
		{Min: 10, Max: 20, Step: 0.01},
	}
}

func (r Range) Validate() error {
	for _, v := range []float64{r.Min, r.Max, r.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("range [%v, %v) step %v: values must be finite", r.Min, r.Max, r.Step)
		}
	}
	if r.Step <= 0 {
		return fmt.Errorf("range [%v, %v): step must be > 0, got %v", r.Min, r.Max, r.Step)
	}
	if r.Max <= r.Min {
		return fmt.Errorf("range [%v, %v): max must be greater than min", r.Min, r.Max)
	}
	if n := (r.Max - r.Min) / r.Step; math.IsInf(n, 0) || n > maxCandidates {
		return fmt.Errorf("range [%v, %v) step %v: more than %d candidates", r.Min, r.Max, r.Step, maxCandidates)
	}
	return nil
}

// Count returns the number of candidates. The small epsilon keeps float noise
// in (Max-Min)/Step from adding a candidate at Max itself.
func (r Range) Count() int {
	if r.Step <= 0 || r.Max <= r.Min {
		return 0
	}
	return int(math.Ceil((r.Max-r.Min)/r.Step - 1e-9))
}

func (r Range) Value(i int) float64 {
	return r.Min + float64(i)*r.Step
}

func (r Range) Sample(rng *rand.Rand) float64 {
	n := r.Count()
	if n <= 1 {
		return r.Min
	}
	return r.Value(rng.Intn(n))
}

package world

// Statistics are per-node cumulative flow accumulators, read externally by
// the UI/goal layer. Append-only: Track adds to the running total.
type Statistics struct {
	Production  Accumulator
	Consumption Accumulator
	Export      Accumulator
	Import      Accumulator
}

type Accumulator map[string]float64

func newStatistics() *Statistics {
	return &Statistics{
		Production:  Accumulator{},
		Consumption: Accumulator{},
		Export:      Accumulator{},
		Import:      Accumulator{},
	}
}

func (a Accumulator) Track(resource string, amount float64) {
	a[resource] += amount
}

func (a Accumulator) clone() map[string]float64 {
	if len(a) == 0 {
		return nil
	}
	out := make(map[string]float64, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

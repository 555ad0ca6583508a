package stresstest

import (
	"errors"
	"fmt"
	"slices"
)

// ErrNoSamples is returned when statistics are requested over an empty sample set
var ErrNoSamples = errors.New("no latency samples collected")

// Summary holds response time statistics in milliseconds
type Summary struct {
	Count   int
	Average int64
	Median  int64
	Min     int64
	Max     int64
	P95     int64
	P99     int64
}

// SortSamples sorts latency samples ascending in place
func SortSamples(samples []int64) {
	slices.Sort(samples)
}

// ComputeSummary computes statistics over samples sorted ascending.
// The median is the element at count/2 (upper middle for even counts).
func ComputeSummary(sorted []int64) (Summary, error) {
	count := len(sorted)
	if count == 0 {
		return Summary{}, ErrNoSamples
	}

	var sum int64
	for _, v := range sorted {
		sum += v
	}

	return Summary{
		Count:   count,
		Average: sum / int64(count),
		Median:  sorted[count/2],
		Min:     sorted[0],
		Max:     sorted[count-1],
		P95:     Percentile(sorted, 95),
		P99:     Percentile(sorted, 99),
	}, nil
}

// String renders the summary line written to the report sink
func (s Summary) String() string {
	return fmt.Sprintf(SummaryFormat, s.Average, s.Median, s.Min, s.Max)
}

// Percentile calculates the percentile value of samples sorted ascending (p should be between 0 and 100)
func Percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}

	// Calculate index
	index := (p / 100.0) * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	// Linear interpolation between lower and upper
	weight := index - float64(lower)
	return int64(float64(sorted[lower])*(1-weight) + float64(sorted[upper])*weight)
}

// Progress returns the completion progress as a percentage
func (s Snapshot) Progress() float64 {
	if s.Total == 0 {
		return 100
	}
	return float64(s.Processed) / float64(s.Total) * 100
}

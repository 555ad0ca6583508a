package stresstest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSummary(t *testing.T) {
	tests := []struct {
		name     string
		samples  []int64
		expected Summary
	}{
		{
			name:     "single sample",
			samples:  []int64{7},
			expected: Summary{Count: 1, Average: 7, Median: 7, Min: 7, Max: 7, P95: 7, P99: 7},
		},
		{
			name:     "odd count",
			samples:  []int64{1, 2, 9},
			expected: Summary{Count: 3, Average: 4, Median: 2, Min: 1, Max: 9, P95: 8, P99: 8},
		},
		{
			name:     "even count takes upper middle",
			samples:  []int64{1, 2, 3, 10},
			expected: Summary{Count: 4, Average: 4, Median: 3, Min: 1, Max: 10, P95: 8, P99: 9},
		},
		{
			name:     "zero latencies are valid",
			samples:  []int64{0, 0, 0, 5},
			expected: Summary{Count: 4, Average: 1, Median: 0, Min: 0, Max: 5, P95: 4, P99: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, err := ComputeSummary(tt.samples)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, summary)
		})
	}
}

func TestComputeSummary_Empty(t *testing.T) {
	summary, err := ComputeSummary(nil)
	assert.ErrorIs(t, err, ErrNoSamples)
	assert.Equal(t, Summary{}, summary)
}

func TestComputeSummary_Invariants(t *testing.T) {
	samples := []int64{12, 3, 3, 40, 7, 0, 19, 19, 2, 8, 100}
	SortSamples(samples)

	s, err := ComputeSummary(samples)
	require.NoError(t, err)

	assert.LessOrEqual(t, s.Min, s.Median)
	assert.LessOrEqual(t, s.Median, s.Max)
	assert.LessOrEqual(t, s.Min, s.Average)
	assert.LessOrEqual(t, s.Average, s.Max)
	assert.Equal(t, samples[len(samples)/2], s.Median)
}

func TestSummary_String(t *testing.T) {
	s := Summary{Count: 3, Average: 4, Median: 2, Min: 1, Max: 9}
	assert.Equal(t, "Response time: average 4, median 2, minimum 1, maximum 9.", s.String())
}

func TestPercentile(t *testing.T) {
	sorted := []int64{10, 20, 30, 40, 50}

	assert.Equal(t, int64(10), Percentile(sorted, 0))
	assert.Equal(t, int64(30), Percentile(sorted, 50))
	assert.Equal(t, int64(50), Percentile(sorted, 100))
	assert.Equal(t, int64(0), Percentile(nil, 50))
}

func TestSnapshot_Progress(t *testing.T) {
	assert.Equal(t, 50.0, Snapshot{Total: 10, Processed: 5}.Progress())
	assert.Equal(t, 100.0, Snapshot{Total: 0}.Progress())
}

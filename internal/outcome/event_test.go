package outcome

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeDelta(t *testing.T) {
	before := &MetricSnapshot{Values: map[string]float64{"acos": 0.82, "spend": 140, "clicks": 250}}
	after := &MetricSnapshot{Values: map[string]float64{"acos": 0.61, "spend": 150, "ctr": 0.02}}

	delta := ComputeDelta(before, after)

	assert.InDelta(t, -0.21, delta["acos"], 1e-9)
	assert.InDelta(t, 10, delta["spend"], 1e-9)
	// Metrics absent from either snapshot are omitted, never zeroed
	assert.NotContains(t, delta, "clicks")
	assert.NotContains(t, delta, "ctr")
}

func TestComputeDeltaNilSnapshots(t *testing.T) {
	snapshot := &MetricSnapshot{Values: map[string]float64{"acos": 0.5}}
	assert.Nil(t, ComputeDelta(nil, snapshot))
	assert.Nil(t, ComputeDelta(snapshot, nil))
	assert.Nil(t, ComputeDelta(nil, nil))
}

func TestComputeDeltaNoCommonMetrics(t *testing.T) {
	before := &MetricSnapshot{Values: map[string]float64{"acos": 0.8}}
	after := &MetricSnapshot{Values: map[string]float64{"ctr": 0.01}}
	assert.Nil(t, ComputeDelta(before, after))
}

func TestDeriveSuccess(t *testing.T) {
	tests := []struct {
		name        string
		delta       map[string]float64
		metric      string
		expected    Direction
		wantSuccess bool
		wantKnown   bool
	}{
		{
			name:        "down and moved down",
			delta:       map[string]float64{"acos": -0.2},
			metric:      "acos",
			expected:    DirectionDown,
			wantSuccess: true,
			wantKnown:   true,
		},
		{
			name:        "down but moved up",
			delta:       map[string]float64{"acos": 0.1},
			metric:      "acos",
			expected:    DirectionDown,
			wantSuccess: false,
			wantKnown:   true,
		},
		{
			name:        "up and moved up",
			delta:       map[string]float64{"impressions": 1200},
			metric:      "impressions",
			expected:    DirectionUp,
			wantSuccess: true,
			wantKnown:   true,
		},
		{
			name:      "metric missing",
			delta:     map[string]float64{"spend": -5},
			metric:    "acos",
			expected:  DirectionDown,
			wantKnown: false,
		},
		{
			name:        "no movement is not success",
			delta:       map[string]float64{"acos": 0},
			metric:      "acos",
			expected:    DirectionDown,
			wantSuccess: false,
			wantKnown:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			success, known := DeriveSuccess(tt.delta, tt.metric, tt.expected)
			assert.Equal(t, tt.wantKnown, known)
			assert.Equal(t, tt.wantSuccess, success)
		})
	}
}

func TestTimeWindowContains(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 8, 0, 0, 0, 0, time.UTC)
	window := TimeWindow{Start: start, End: end}

	assert.True(t, window.Contains(start), "start is inclusive")
	assert.True(t, window.Contains(end.Add(-time.Nanosecond)))
	assert.False(t, window.Contains(end), "end is exclusive")
	assert.False(t, window.Contains(start.Add(-time.Nanosecond)))
}

func TestPartitionName(t *testing.T) {
	ts := time.Date(2026, 8, 24, 23, 59, 0, 0, time.FixedZone("UTC+9", 9*3600))
	// Partition keys are always UTC days
	assert.Equal(t, "events-2026-08-24.jsonl", PartitionName(ts))
}

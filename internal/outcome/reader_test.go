package outcome

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEvents(t *testing.T, dir string, timestamps ...time.Time) {
	t.Helper()
	recorder, err := NewRecorder(dir)
	require.NoError(t, err)
	defer recorder.Close()
	for i, ts := range timestamps {
		require.NoError(t, recorder.Append(&ActionOutcomeEvent{
			ObservationID: "ACOS_TOO_HIGH",
			ActionID:      "add_negative_keywords",
			Status:        "DRY_RUN",
			Success:       i%2 == 0,
			Timestamp:     ts,
		}))
	}
}

func TestReaderListWindowFiltering(t *testing.T) {
	dir := t.TempDir()
	writeEvents(t, dir,
		time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 4, 12, 0, 0, 0, time.UTC),
	)

	reader, err := NewReader(dir)
	require.NoError(t, err)

	events, err := reader.List(TimeWindow{
		Start: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 4, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// End is exclusive, so the Aug 4 event is out
	require.Len(t, events, 2)
	assert.Equal(t, 2, events[0].Timestamp.Day())
	assert.Equal(t, 3, events[1].Timestamp.Day())
}

func TestReaderListSubDayBoundaries(t *testing.T) {
	dir := t.TempDir()
	writeEvents(t, dir,
		time.Date(2026, 8, 2, 3, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 2, 21, 0, 0, 0, time.UTC),
	)

	reader, err := NewReader(dir)
	require.NoError(t, err)

	events, err := reader.List(TimeWindow{
		Start: time.Date(2026, 8, 2, 6, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 2, 18, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 12, events[0].Timestamp.Hour())
}

func TestReaderMissingPartitionsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeEvents(t, dir, time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC))

	reader, err := NewReader(dir)
	require.NoError(t, err)

	// Window spans five days, only one has a partition file
	events, err := reader.List(TimeWindow{
		Start: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestReaderToleratesMalformedTrailingLine(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	writeEvents(t, dir, ts, ts)

	// Simulate a crash mid-append: a truncated JSON fragment at the end
	path := filepath.Join(dir, PartitionName(ts))
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o600)
	require.NoError(t, err)
	_, err = file.WriteString(`{"event_id":"trunc`)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	reader, err := NewReader(dir)
	require.NoError(t, err)

	events, err := reader.List(TimeWindow{Start: ts.Add(-time.Hour), End: ts.Add(time.Hour)})
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestReaderCachesElapsedDays(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	writeEvents(t, dir, ts)

	reader, err := NewReader(dir)
	require.NoError(t, err)

	window := TimeWindow{Start: ts.Add(-time.Hour), End: ts.Add(time.Hour)}
	events, err := reader.List(window)
	require.NoError(t, err)
	require.Len(t, events, 1)

	// A past day is immutable as far as the reader is concerned, so
	// appends after the first scan are not picked up from disk.
	writeEvents(t, dir, ts.Add(time.Minute))

	events, err = reader.List(window)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestReaderRereadsTodaysPartition(t *testing.T) {
	dir := t.TempDir()
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	window := TimeWindow{Start: start, End: start.AddDate(0, 0, 1)}

	writeEvents(t, dir, now)

	reader, err := NewReader(dir)
	require.NoError(t, err)

	events, err := reader.List(window)
	require.NoError(t, err)
	require.Len(t, events, 1)

	writeEvents(t, dir, now)

	events, err = reader.List(window)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestReaderPartitionsEnumeration(t *testing.T) {
	reader, err := NewReader(t.TempDir())
	require.NoError(t, err)

	days := reader.Partitions(TimeWindow{
		Start: time.Date(2026, 8, 1, 15, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC),
	})
	assert.Equal(t, []string{
		"events-2026-08-01.jsonl",
		"events-2026-08-02.jsonl",
		"events-2026-08-03.jsonl",
	}, days)
}

func TestReadPartitionFiltersToWindow(t *testing.T) {
	dir := t.TempDir()
	writeEvents(t, dir,
		time.Date(2026, 8, 3, 3, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 3, 15, 0, 0, 0, time.UTC),
	)

	reader, err := NewReader(dir)
	require.NoError(t, err)

	events, err := reader.ReadPartition("events-2026-08-03.jsonl", TimeWindow{
		Start: time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 4, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 15, events[0].Timestamp.Hour())
}

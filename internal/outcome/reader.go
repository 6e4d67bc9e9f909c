package outcome

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/liyecom/adpilot/internal/logging"
)

// partitionCacheSize bounds the number of parsed day partitions kept in
// memory across batch runs.
const partitionCacheSize = 64

// Reader scans the day-partitioned outcome log over a time window.
// Partitions for fully elapsed days are immutable and cached; the
// current day's partition is always re-read so events appended mid-scan
// are picked up on the next read (at-least-once semantics).
type Reader struct {
	dir    string
	cache  *lru.Cache[string, []ActionOutcomeEvent]
	logger *logging.Logger
}

// NewReader creates a reader over the recorder's directory.
func NewReader(dir string) (*Reader, error) {
	cache, err := lru.New[string, []ActionOutcomeEvent](partitionCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create partition cache: %w", err)
	}
	return &Reader{
		dir:    dir,
		cache:  cache,
		logger: logging.GetLogger("outcome.reader"),
	}, nil
}

// List returns every event whose timestamp falls within the window,
// in partition order. Missing partitions are skipped; malformed or
// truncated trailing lines are tolerated (a concurrent append may leave
// a partial line that becomes readable on the next scan).
func (r *Reader) List(window TimeWindow) ([]ActionOutcomeEvent, error) {
	var events []ActionOutcomeEvent
	for _, day := range window.partitionDays() {
		partition, err := r.readPartition(day)
		if err != nil {
			return nil, err
		}
		for _, event := range partition {
			if window.Contains(event.Timestamp) {
				events = append(events, event)
			}
		}
	}
	return events, nil
}

// Partitions returns the partition day keys covered by the window.
// Exposed for callers that scan partitions concurrently.
func (r *Reader) Partitions(window TimeWindow) []string {
	return window.partitionDays()
}

// ReadPartition returns the events of one partition day, filtered to
// the window.
func (r *Reader) ReadPartition(day string, window TimeWindow) ([]ActionOutcomeEvent, error) {
	partition, err := r.readPartition(day)
	if err != nil {
		return nil, err
	}
	var events []ActionOutcomeEvent
	for _, event := range partition {
		if window.Contains(event.Timestamp) {
			events = append(events, event)
		}
	}
	return events, nil
}

// readPartition loads one partition file, using the cache for elapsed
// days.
func (r *Reader) readPartition(day string) ([]ActionOutcomeEvent, error) {
	today := PartitionName(time.Now())
	cacheable := day != today

	if cacheable {
		if events, ok := r.cache.Get(day); ok {
			return events, nil
		}
	}

	path := filepath.Join(r.dir, day)
	// #nosec G304 -- partition path is derived from the configured data dir
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open partition %q: %w", path, err)
	}
	defer file.Close()

	var events []ActionOutcomeEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var event ActionOutcomeEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			// Likely a line mid-append from a concurrent writer; skip it
			r.logger.Debug("skipping malformed line %d in %s: %v", line, day, err)
			continue
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan partition %q: %w", path, err)
	}

	if cacheable {
		r.cache.Add(day, events)
	}
	return events, nil
}

// partitionDays enumerates the partition file names the window spans.
func (w TimeWindow) partitionDays() []string {
	var days []string
	day := time.Date(w.Start.UTC().Year(), w.Start.UTC().Month(), w.Start.UTC().Day(), 0, 0, 0, 0, time.UTC)
	for !day.After(w.End.UTC()) {
		days = append(days, PartitionName(day))
		day = day.AddDate(0, 0, 1)
	}
	return days
}

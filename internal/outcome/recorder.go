package outcome

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/liyecom/adpilot/internal/logging"
)

// partitionPattern is the day-partition file name layout.
const partitionPattern = "events-2006-01-02.jsonl"

// WriteError wraps a persistence failure while appending an outcome
// event. This is the only error class on the execution path the caller
// should retry.
type WriteError struct {
	err error
}

// Error returns the error message.
func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to append outcome event: %v", e.err)
}

// Unwrap exposes the underlying I/O error.
func (e *WriteError) Unwrap() error {
	return e.err
}

// IsWriteError checks if an error is a recorder write error.
func IsWriteError(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}

// Recorder appends outcome events to a day-partitioned JSONL log.
// One logical file per UTC day; a single buffered writer guarded by a
// mutex gives single-writer-append discipline per partition. Each
// append is flushed immediately for crash safety.
type Recorder struct {
	dir    string
	logger *logging.Logger

	mu     sync.Mutex
	day    string
	file   *os.File
	writer *bufio.Writer
}

// NewRecorder creates a recorder writing into dir, creating it if
// needed. Partition files are opened lazily on first append.
func NewRecorder(dir string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create outcome directory %q: %w", dir, err)
	}
	return &Recorder{
		dir:    dir,
		logger: logging.GetLogger("outcome.recorder"),
	}, nil
}

// PartitionName returns the partition file name for a timestamp.
func PartitionName(t time.Time) string {
	return t.UTC().Format(partitionPattern)
}

// Append writes one event to the partition for its timestamp. Fills in
// EventID and Timestamp when unset. Returns a *WriteError on any
// persistence failure; the event is never partially visible to readers
// beyond a truncated trailing line, which readers tolerate.
func (r *Recorder) Append(event *ActionOutcomeEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensurePartition(event.Timestamp); err != nil {
		return &WriteError{err: err}
	}

	data, err := json.Marshal(event)
	if err != nil {
		return &WriteError{err: err}
	}

	if _, err := r.writer.Write(data); err != nil {
		return &WriteError{err: err}
	}
	if _, err := r.writer.WriteString("\n"); err != nil {
		return &WriteError{err: err}
	}

	// Flush immediately for crash safety
	if err := r.writer.Flush(); err != nil {
		return &WriteError{err: err}
	}

	r.logger.DebugWithFields("outcome event appended",
		logging.Field("event_id", event.EventID),
		logging.Field("action_id", event.ActionID),
		logging.Field("status", event.Status),
		logging.Field("partition", PartitionName(event.Timestamp)),
	)

	return nil
}

// RecordWithMetrics computes the delta from before/after snapshots,
// auto-derives success from the primary metric's observed direction,
// and appends the event. A direction mismatch is recorded as a failure
// without erroring; only the audit write itself can fail.
func (r *Recorder) RecordWithMetrics(event *ActionOutcomeEvent, before, after *MetricSnapshot, primaryMetric string, expected Direction) error {
	event.Before = before
	event.After = after
	event.Delta = ComputeDelta(before, after)

	if success, known := DeriveSuccess(event.Delta, primaryMetric, expected); known {
		event.Success = success
		if !success {
			event.Notes = appendNote(event.Notes, fmt.Sprintf(
				"primary metric %s moved against expected direction %s", primaryMetric, expected))
		}
	} else {
		event.Notes = appendNote(event.Notes, fmt.Sprintf(
			"primary metric %s not present in both snapshots", primaryMetric))
	}

	return r.Append(event)
}

// Close flushes and closes the current partition file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}

	var errs []error
	if err := r.writer.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush outcome log: %w", err))
	}
	if err := r.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close outcome log: %w", err))
	}
	r.file = nil
	r.writer = nil
	r.day = ""

	if len(errs) > 0 {
		return fmt.Errorf("errors closing outcome log: %v", errs)
	}
	return nil
}

// ensurePartition opens (or rotates to) the partition for the given
// timestamp. Caller holds the mutex.
func (r *Recorder) ensurePartition(t time.Time) error {
	day := PartitionName(t)
	if r.file != nil && r.day == day {
		return nil
	}

	if r.file != nil {
		if err := r.writer.Flush(); err != nil {
			return err
		}
		if err := r.file.Close(); err != nil {
			return err
		}
		r.logger.Info("rotated outcome partition %s -> %s", r.day, day)
	}

	path := filepath.Join(r.dir, day)
	// #nosec G304 -- partition path is derived from the configured data dir
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}

	r.file = file
	r.writer = bufio.NewWriter(file)
	r.day = day
	return nil
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "; " + note
}

// Package evaluate batch-analyzes recorded outcome events to measure
// how effective the automation has been: per-cause hit rates, per-action
// success rates and metric deltas, missing-evidence frequency, and an
// auto-vs-dry-run comparison. The evaluator is read-only and produces a
// fresh report per evaluation window; it may run concurrently with live
// evaluation and tolerates events appended mid-scan.
package evaluate

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/liyecom/adpilot/internal/executor"
	"github.com/liyecom/adpilot/internal/logging"
	"github.com/liyecom/adpilot/internal/outcome"
)

// scanConcurrency bounds how many day partitions are read in parallel.
const scanConcurrency = 4

// Evaluator computes effectiveness reports from the outcome log.
type Evaluator struct {
	reader *outcome.Reader
	logger *logging.Logger
}

// New creates an evaluator over the outcome reader.
func New(reader *outcome.Reader) *Evaluator {
	return &Evaluator{
		reader: reader,
		logger: logging.GetLogger("evaluate"),
	}
}

// Evaluate scans every partition the window spans and aggregates the
// events into a report. Partitions are scanned concurrently; events are
// merged back in partition order so the report is deterministic for a
// fixed log. The window boundary is the cutoff; there is no mid-run
// cancellation beyond the context.
func (e *Evaluator) Evaluate(ctx context.Context, window outcome.TimeWindow) (*Report, error) {
	start := time.Now()
	days := e.reader.Partitions(window)

	results := make([][]outcome.ActionOutcomeEvent, len(days))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)

	for i, day := range days {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			events, err := e.reader.ReadPartition(day, window)
			if err != nil {
				return err
			}
			results[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var events []outcome.ActionOutcomeEvent
	for _, partition := range results {
		events = append(events, partition...)
	}

	report := aggregate(window, events)

	e.logger.InfoWithFields("effectiveness evaluation complete",
		logging.Field("partitions", len(days)),
		logging.Field("events", len(events)),
		logging.Field("duration_ms", time.Since(start).Milliseconds()),
	)

	return report, nil
}

// aggregate folds the event stream into the report tables.
func aggregate(window outcome.TimeWindow, events []outcome.ActionOutcomeEvent) *Report {
	report := &Report{
		Window:      window,
		TotalEvents: len(events),
		GeneratedAt: time.Now().UTC(),
	}

	causes := make(map[string]*CauseStats)
	actions := make(map[string]*ActionStats)
	deltaSums := make(map[string]map[string]float64)
	diversity := make(map[string]map[string]bool)
	missing := make(map[string]int)
	failureReasons := make(map[string]int)

	var modes ModeComparison

	for _, event := range events {
		cs := causes[event.CauseID]
		if cs == nil {
			cs = &CauseStats{CauseID: event.CauseID}
			causes[event.CauseID] = cs
		}
		cs.Total++
		if event.Success {
			cs.Successes++
		}

		as := actions[event.ActionID]
		if as == nil {
			as = &ActionStats{ActionID: event.ActionID}
			actions[event.ActionID] = as
			deltaSums[event.ActionID] = make(map[string]float64)
		}
		as.Total++
		if event.Success {
			as.Successes++
		}
		for metric, change := range event.Delta {
			deltaSums[event.ActionID][metric] += change
		}
		if len(event.Delta) > 0 {
			as.eventsWithDelta++
		}

		if diversity[event.ObservationID] == nil {
			diversity[event.ObservationID] = make(map[string]bool)
		}
		diversity[event.ObservationID][event.ActionID] = true

		for _, field := range event.MissingEvidence {
			missing[field]++
		}

		switch executor.Status(event.Status) {
		case executor.StatusAutoExecuted:
			modes.AutoTotal++
			if event.Success {
				modes.AutoSuccesses++
			} else if event.Notes != "" {
				failureReasons[event.Notes]++
			}
		case executor.StatusDryRun:
			modes.DryRunTotal++
			if event.Success {
				modes.DryRunSuccesses++
			} else if event.Notes != "" {
				failureReasons[event.Notes]++
			}
		}
	}

	for _, cs := range causes {
		cs.HitRate = rate(cs.Successes, cs.Total)
		report.Causes = append(report.Causes, *cs)
	}
	sort.Slice(report.Causes, func(i, j int) bool {
		if report.Causes[i].Total != report.Causes[j].Total {
			return report.Causes[i].Total > report.Causes[j].Total
		}
		return report.Causes[i].CauseID < report.Causes[j].CauseID
	})

	for id, as := range actions {
		as.SuccessRate = rate(as.Successes, as.Total)
		if as.eventsWithDelta > 0 {
			as.MeanDelta = make(map[string]float64, len(deltaSums[id]))
			for metric, sum := range deltaSums[id] {
				as.MeanDelta[metric] = sum / float64(as.eventsWithDelta)
			}
		}
		report.Actions = append(report.Actions, *as)
	}
	sort.Slice(report.Actions, func(i, j int) bool {
		if report.Actions[i].Total != report.Actions[j].Total {
			return report.Actions[i].Total > report.Actions[j].Total
		}
		return report.Actions[i].ActionID < report.Actions[j].ActionID
	})

	report.ObservationDiversity = make(map[string]int, len(diversity))
	for observationID, actionSet := range diversity {
		report.ObservationDiversity[observationID] = len(actionSet)
	}

	for field, count := range missing {
		report.MissingEvidence = append(report.MissingEvidence, MissingEvidenceStat{Field: field, Count: count})
	}
	sort.Slice(report.MissingEvidence, func(i, j int) bool {
		if report.MissingEvidence[i].Count != report.MissingEvidence[j].Count {
			return report.MissingEvidence[i].Count > report.MissingEvidence[j].Count
		}
		return report.MissingEvidence[i].Field < report.MissingEvidence[j].Field
	})

	// The auto-vs-dry-run comparison only makes sense once auto
	// execution has actually occurred.
	if modes.AutoTotal > 0 {
		modes.AutoSuccessRate = rate(modes.AutoSuccesses, modes.AutoTotal)
		modes.DryRunSuccessRate = rate(modes.DryRunSuccesses, modes.DryRunTotal)
		for reason, count := range failureReasons {
			modes.TopFailureReasons = append(modes.TopFailureReasons, ReasonCount{Reason: reason, Count: count})
		}
		sort.Slice(modes.TopFailureReasons, func(i, j int) bool {
			if modes.TopFailureReasons[i].Count != modes.TopFailureReasons[j].Count {
				return modes.TopFailureReasons[i].Count > modes.TopFailureReasons[j].Count
			}
			return modes.TopFailureReasons[i].Reason < modes.TopFailureReasons[j].Reason
		})
		if len(modes.TopFailureReasons) > 5 {
			modes.TopFailureReasons = modes.TopFailureReasons[:5]
		}
		report.Modes = &modes
	}

	return report
}

func rate(successes, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(successes) / float64(total)
}

// Package metrics exposes Prometheus metrics for pipeline observability.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds Prometheus metrics for the decision pipeline.
type Metrics struct {
	ExecutionsTotal         *prometheus.CounterVec // Terminal executor statuses, by status
	OutcomeWritesTotal      prometheus.Counter     // Successful outcome-event appends
	OutcomeWriteErrorsTotal prometheus.Counter     // Failed outcome-event appends
	PlaybooksLoaded         prometheus.Gauge       // Currently loaded playbook count
}

// New creates pipeline metrics. The registerer parameter allows flexible
// registration (e.g., global registry, test registry).
func New(reg prometheus.Registerer) *Metrics {
	executionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adpilot_executions_total",
		Help: "Total number of action executor invocations by terminal status",
	}, []string{"status"})

	outcomeWritesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "adpilot_outcome_writes_total",
		Help: "Total number of outcome events appended to the audit log",
	})

	outcomeWriteErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "adpilot_outcome_write_errors_total",
		Help: "Total number of failed outcome event appends",
	})

	playbooksLoaded := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "adpilot_playbooks_loaded",
		Help: "Number of playbooks currently loaded",
	})

	reg.MustRegister(executionsTotal)
	reg.MustRegister(outcomeWritesTotal)
	reg.MustRegister(outcomeWriteErrorsTotal)
	reg.MustRegister(playbooksLoaded)

	return &Metrics{
		ExecutionsTotal:         executionsTotal,
		OutcomeWritesTotal:      outcomeWritesTotal,
		OutcomeWriteErrorsTotal: outcomeWriteErrorsTotal,
		PlaybooksLoaded:         playbooksLoaded,
	}
}

// WriteText gathers every metric family from g and writes it to w in
// the Prometheus text exposition format. Used by the CLI to surface the
// per-invocation registry at the end of a run.
func WriteText(g prometheus.Gatherer, w io.Writer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := enc.Encode(family); err != nil {
			return fmt.Errorf("failed to encode metric family %s: %w", family.GetName(), err)
		}
	}
	return nil
}

package commands

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/liyecom/adpilot/internal/explain"
	"github.com/liyecom/adpilot/internal/render"
)

var (
	explainObservation string
	explainSignalsFile string
	explainSignalFlags []string
	explainTraceID     string
	explainRender      bool
)

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Explain the likely root causes of an observation",
	Long: `Evaluate every candidate cause in the playbook for the given
observation against the supplied signals, and print the ranked
explanation with per-cause confidence, evidence status, and recommended
next actions. Missing signals degrade confidence rather than erroring.`,
	RunE: runExplain,
}

func init() {
	explainCmd.Flags().StringVar(&explainObservation, "observation", "", "Observation id (e.g., ACOS_TOO_HIGH)")
	explainCmd.Flags().StringVar(&explainSignalsFile, "signals-file", "", "Path to a JSON file with the signal bag")
	explainCmd.Flags().StringArrayVar(&explainSignalFlags, "signal", nil, "Signal as name=value; repeatable, overrides the file")
	explainCmd.Flags().StringVar(&explainTraceID, "trace-id", "", "Trace id correlating this explanation (generated when empty)")
	explainCmd.Flags().BoolVar(&explainRender, "render", false, "Render the explanation as styled terminal output")
	addPipelineFlags(explainCmd)
	_ = explainCmd.MarkFlagRequired("observation")
}

func runExplain(cmd *cobra.Command, args []string) error {
	if err := setupLog(logLevelFlags); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	p, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	signals, err := parseSignals(explainSignalsFile, explainSignalFlags)
	if err != nil {
		return err
	}

	traceID := explainTraceID
	if traceID == "" {
		traceID = uuid.NewString()
	}

	_, span := p.tracer.GetTracer("pipeline").Start(ctx, "explain")
	span.SetAttributes(
		attribute.String("observation_id", explainObservation),
		attribute.String("trace_id", traceID),
	)
	explanation, err := p.builder.Build(explainObservation, signals, explain.BuildOptions{TraceID: traceID})
	span.End()
	if err != nil {
		return err
	}

	if explainRender {
		fmt.Print(render.Terminal(explanationMarkdown(explanation)))
		return nil
	}
	return printJSON(explanation)
}

// explanationMarkdown renders an explanation as a markdown document for
// terminal display.
func explanationMarkdown(e *explain.Explanation) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s (severity %s)\n\n", e.ObservationID, e.Severity)
	fmt.Fprintf(&sb, "%s\n\n", e.ExecutiveSummary)
	fmt.Fprintf(&sb, "Overall confidence: **%s** (rule %s)\n\n", e.ConfidenceOverall, e.RuleVersion)

	sb.WriteString("## Ranked causes\n\n")
	sb.WriteString("| # | Cause | Confidence | Evidence | Missing |\n")
	sb.WriteString("|---:|---|---|---|---|\n")
	for i, cause := range e.TopCauses {
		missing := "-"
		if len(cause.MissingEvidence) > 0 {
			missing = strings.Join(cause.MissingEvidence, ", ")
		}
		fmt.Fprintf(&sb, "| %d | %s | %s | %d/%d | %s |\n",
			i+1, cause.CauseID, cause.Confidence,
			cause.SatisfiedEvidence, cause.TotalEvidence, missing)
	}
	sb.WriteString("\n")

	if len(e.Recommendations) > 0 {
		sb.WriteString("## Recommended actions\n\n")
		for _, rec := range e.Recommendations {
			fmt.Fprintf(&sb, "- **%s** (%s risk, for %s): %s\n",
				rec.ActionID, rec.Risk, rec.CauseID, rec.Summary)
		}
		sb.WriteString("\n")
	}

	if len(e.Counterfactuals) > 0 {
		sb.WriteString("## What would change this assessment\n\n")
		for _, cf := range e.Counterfactuals {
			fmt.Fprintf(&sb, "- %s\n", cf)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/liyecom/adpilot/internal/evaluate"
	"github.com/liyecom/adpilot/internal/outcome"
	"github.com/liyecom/adpilot/internal/render"
)

var (
	evaluateSince  string
	evaluateUntil  string
	evaluateJSON   bool
	evaluateRender bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Measure automation effectiveness from the outcome log",
	Long: `Scan the recorded outcome events over a time window and report
per-cause hit rates, per-action success rates and metric deltas,
missing-evidence frequency, and an auto-vs-dry-run comparison.

Time bounds accept Unix timestamps, RFC 3339, or human-readable dates
like "7 days ago".`,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateSince, "since", "7 days ago", "Start of the evaluation window")
	evaluateCmd.Flags().StringVar(&evaluateUntil, "until", "now", "End of the evaluation window")
	evaluateCmd.Flags().BoolVar(&evaluateJSON, "json", false, "Print the report as JSON instead of markdown")
	evaluateCmd.Flags().BoolVar(&evaluateRender, "render", false, "Render the markdown report as styled terminal output")
	addPipelineFlags(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	if err := setupLog(logLevelFlags); err != nil {
		return err
	}

	start, err := parseTime(evaluateSince, "since")
	if err != nil {
		return err
	}
	end, err := parseTime(evaluateUntil, "until")
	if err != nil {
		return err
	}
	if !start.Before(end) {
		return fmt.Errorf("since (%s) must be before until (%s)",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
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

	report, err := evaluate.New(p.reader).Evaluate(ctx, outcome.TimeWindow{Start: start, End: end})
	if err != nil {
		return err
	}

	switch {
	case evaluateJSON:
		return printJSON(report)
	case evaluateRender:
		fmt.Print(render.Terminal(report.Markdown()))
	default:
		fmt.Print(report.Markdown())
	}
	return nil
}

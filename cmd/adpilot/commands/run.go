package commands

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/liyecom/adpilot/internal/executor"
	"github.com/liyecom/adpilot/internal/explain"
	"github.com/liyecom/adpilot/internal/models"
	"github.com/liyecom/adpilot/internal/outcome"
)

var (
	runObservation      string
	runSignalsFile      string
	runSignalFlags      []string
	runTraceID          string
	runActionID         string
	runTerms            []string
	runItemCount        int
	runBidChangePct     float64
	runAutoActionsToday int
	runRisk             string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full decision pipeline for one observation",
	Long: `Run explain, eligibility, safety, and execution for a single
observation: build the ranked explanation, derive an action proposal
from the top recommendation (or --action), and hand it to the executor.
The terminal status, reasons, and audit event are printed as JSON.

A blocked or suggest-only outcome is a normal decision, not an error:
the command exits zero. A non-zero exit means the pipeline itself
failed, e.g. the audit write did not succeed.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runObservation, "observation", "", "Observation id (e.g., ACOS_TOO_HIGH)")
	runCmd.Flags().StringVar(&runSignalsFile, "signals-file", "", "Path to a JSON file with the signal bag")
	runCmd.Flags().StringArrayVar(&runSignalFlags, "signal", nil, "Signal as name=value; repeatable, overrides the file")
	runCmd.Flags().StringVar(&runTraceID, "trace-id", "", "Trace id correlating this run (generated when empty)")
	runCmd.Flags().StringVar(&runActionID, "action", "", "Action id to execute (default: top recommendation)")
	runCmd.Flags().StringArrayVar(&runTerms, "term", nil, "Candidate term for suppression-list actions; repeatable")
	runCmd.Flags().IntVar(&runItemCount, "item-count", 0, "Number of items the action would modify (0: derive from terms)")
	runCmd.Flags().Float64Var(&runBidChangePct, "bid-change-pct", 0, "Relative bid adjustment percentage, for bid actions")
	runCmd.Flags().IntVar(&runAutoActionsToday, "auto-actions-today", 0, "Auto actions already executed today, for the daily cap")
	runCmd.Flags().StringVar(&runRisk, "risk", string(models.RiskLow), "Risk level of the proposal (low, medium, high)")
	addPipelineFlags(runCmd)
	_ = runCmd.MarkFlagRequired("observation")
}

// runOutput is the printed result of one pipeline run.
type runOutput struct {
	Explanation *explain.Explanation        `json:"explanation"`
	Proposal    models.ActionProposal       `json:"proposal"`
	Status      executor.Status             `json:"status"`
	Reasons     []string                    `json:"reasons,omitempty"`
	Violations  []string                    `json:"violations,omitempty"`
	Rollback    *executor.RollbackPayload   `json:"rollback,omitempty"`
	Event       *outcome.ActionOutcomeEvent `json:"event,omitempty"`
}

func runRun(cmd *cobra.Command, args []string) error {
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

	signals, err := parseSignals(runSignalsFile, runSignalFlags)
	if err != nil {
		return err
	}

	traceID := runTraceID
	if traceID == "" {
		traceID = uuid.NewString()
	}

	tracer := p.tracer.GetTracer("pipeline")
	ctx, explainSpan := tracer.Start(ctx, "explain")
	explainSpan.SetAttributes(
		attribute.String("observation_id", runObservation),
		attribute.String("trace_id", traceID),
	)
	explanation, err := p.builder.Build(runObservation, signals, explain.BuildOptions{TraceID: traceID})
	explainSpan.End()
	if err != nil {
		return err
	}

	actionID := runActionID
	risk := models.RiskLevel(runRisk)
	var causeID string
	if len(explanation.TopCauses) > 0 {
		causeID = explanation.TopCauses[0].CauseID
	}
	if actionID == "" {
		if len(explanation.Recommendations) == 0 {
			return fmt.Errorf("no recommended action for %s and no --action given", runObservation)
		}
		top := explanation.Recommendations[0]
		actionID = top.ActionID
		causeID = top.CauseID
		if !cmd.Flags().Changed("risk") {
			risk = top.Risk
		}
	}

	mode := models.ModeAuto
	if cfg.Execution.ForceDryRun {
		mode = models.ModeDryRun
	} else if !cfg.Execution.KillSwitchEnabled {
		mode = models.ModeSuggest
	}

	proposal := models.ActionProposal{
		ProposalID:    uuid.NewString(),
		TraceID:       traceID,
		ObservationID: runObservation,
		CauseID:       causeID,
		ActionID:      actionID,
		ExecutionMode: mode,
		RiskLevel:     risk,
	}

	var missing []string
	if len(explanation.TopCauses) > 0 {
		missing = explanation.TopCauses[0].MissingEvidence
	}

	ctx, execSpan := tracer.Start(ctx, "execute")
	execSpan.SetAttributes(
		attribute.String("action_id", actionID),
		attribute.String("execution_mode", string(mode)),
	)
	result, err := p.exec.Execute(ctx, executor.Request{
		Proposal: proposal,
		Signals:  signals,
		Params: models.ActionParams{
			Terms:        runTerms,
			ItemCount:    runItemCount,
			BidChangePct: runBidChangePct,
		},
		State: models.ActionState{AutoActionsToday: runAutoActionsToday},
		Before: &outcome.MetricSnapshot{
			Values:     numericSignals(signals),
			CapturedAt: time.Now().UTC(),
		},
		MissingEvidence: missing,
	}, cfg.Execution)
	if result != nil {
		execSpan.SetAttributes(attribute.String("status", string(result.Status)))
	}
	execSpan.End()
	if err != nil {
		// The decision was made but not durably recorded; surface the
		// write failure so the caller can retry.
		return err
	}

	return printJSON(runOutput{
		Explanation: explanation,
		Proposal:    proposal,
		Status:      result.Status,
		Reasons:     result.Reasons,
		Violations:  result.Violations,
		Rollback:    result.Rollback,
		Event:       result.Event,
	})
}

// numericSignals extracts the numeric portion of the signal bag as the
// before-execution metric snapshot.
func numericSignals(signals models.Signals) map[string]float64 {
	values := make(map[string]float64)
	for name, value := range signals {
		if value.Kind == models.SignalNumber {
			values[name] = value.Number
		}
	}
	return values
}

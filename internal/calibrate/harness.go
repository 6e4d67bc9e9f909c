package calibrate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/liyecom/adpilot/internal/config"
	"github.com/liyecom/adpilot/internal/eligibility"
	"github.com/liyecom/adpilot/internal/executor"
	"github.com/liyecom/adpilot/internal/explain"
	"github.com/liyecom/adpilot/internal/logging"
	"github.com/liyecom/adpilot/internal/models"
	"github.com/liyecom/adpilot/internal/outcome"
	"github.com/liyecom/adpilot/internal/playbook"
	"github.com/liyecom/adpilot/internal/safety"
)

// perturbation is the relative signal perturbation applied when testing
// ranking stability.
const perturbation = 0.01

// discardRecorder satisfies the executor's audit sink without touching
// the real outcome log: calibration replays must leave no trace in the
// audit trail.
type discardRecorder struct{}

func (discardRecorder) Append(*outcome.ActionOutcomeEvent) error { return nil }

// Harness replays samples through the real eligibility checker and
// executor. All replays run with the dry-run override set, so the
// harness also exercises the zero-write guarantee on every run.
type Harness struct {
	playbooks *playbook.Handle
	builder   *explain.Builder
	exec      *executor.Executor
	logger    *logging.Logger
}

// NewHarness builds a harness over the playbook handle and action
// registry. The harness wires its own executor with a discarding audit
// sink.
func NewHarness(playbooks *playbook.Handle, registry *executor.Registry) *Harness {
	checker := eligibility.NewChecker(playbooks)
	limiter := safety.NewLimiter(playbooks)
	return &Harness{
		playbooks: playbooks,
		builder:   explain.NewBuilder(playbooks),
		exec:      executor.New(registry, checker, limiter, discardRecorder{}, nil),
		logger:    logging.GetLogger("calibrate"),
	}
}

// Run replays every sample under every threshold profile and returns
// the calibration report. Profiles are replayed concurrently; samples
// within a profile run in order.
func (h *Harness) Run(ctx context.Context, samples []Sample) (*Report, error) {
	report := &Report{GeneratedAt: time.Now().UTC()}

	profileResults := make([][]SampleResult, len(playbook.ProfileNames))
	g, gctx := errgroup.WithContext(ctx)
	for i, profile := range playbook.ProfileNames {
		g.Go(func() error {
			results, err := h.replayProfile(gctx, profile, samples)
			if err != nil {
				return err
			}
			profileResults[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, profile := range playbook.ProfileNames {
		results := profileResults[i]
		report.Results = append(report.Results, results...)

		summary := ProfileSummary{Profile: profile, Total: len(results)}
		for _, result := range results {
			if result.Agree {
				summary.Agreements++
			}
			if result.Eligible {
				summary.EligibleCount++
			}
		}
		report.Profiles = append(report.Profiles, summary)
	}

	report.ContainmentViolations = checkContainment(report.Results)
	report.MonotonicityViolations = checkMonotonicity(samples, profileResults)
	report.RankingViolations = h.checkRankingStability(samples)
	report.recommend()

	h.logger.InfoWithFields("calibration complete",
		logging.Field("samples", len(samples)),
		logging.Field("recommended", report.Recommended),
		logging.Field("accepted", report.Accepted),
	)

	return report, nil
}

// replayProfile runs every sample through the pipeline under one
// profile. The kill switch is on and force_dry_run is set: a would-be
// auto execution terminates as DRY_RUN, which the harness reads as
// "would auto-execute".
func (h *Harness) replayProfile(ctx context.Context, profile string, samples []Sample) ([]SampleResult, error) {
	cfg := config.ExecutionConfig{
		Profile:           profile,
		KillSwitchEnabled: true,
		ForceDryRun:       true,
	}

	results := make([]SampleResult, 0, len(samples))
	for _, sample := range samples {
		proposal := models.ActionProposal{
			ProposalID:    fmt.Sprintf("calibration-%s-%s", profile, sample.Name),
			ObservationID: sample.ObservationID,
			ActionID:      sample.ActionID,
			ExecutionMode: models.ModeDryRun,
		}

		var topCause string
		explanation, err := h.builder.Build(sample.ObservationID, sample.Signals, explain.BuildOptions{})
		if err == nil && len(explanation.TopCauses) > 0 {
			topCause = explanation.TopCauses[0].CauseID
			proposal.CauseID = topCause
		}

		execResult, err := h.exec.Execute(ctx, executor.Request{
			Proposal: proposal,
			Signals:  sample.Signals,
			Params:   sample.Params,
			State:    sample.State,
		}, cfg)
		if err != nil {
			return nil, fmt.Errorf("sample %q under profile %s: %w", sample.Name, profile, err)
		}

		result := SampleResult{
			Sample:    sample.Name,
			Profile:   profile,
			Status:    execResult.Status,
			Predicted: predictGroup(execResult.Status),
			Expected:  sample.Expect,
			TopCause:  topCause,
			// DRY_RUN and BLOCKED both mean the profile gates passed;
			// SUGGEST_ONLY means they did not, DENY never reached them
			Eligible: execResult.Status == executor.StatusDryRun ||
				execResult.Status == executor.StatusBlocked,
		}
		result.Agree = result.Predicted == result.Expected
		results = append(results, result)
	}

	return results, nil
}

// predictGroup maps a terminal status to the labeled group. DRY_RUN is
// read as group A because the replay forces the dry-run override; a
// status of AUTO_EXECUTED would mean the override failed structurally
// and is mapped outside any group so it can never agree.
func predictGroup(status executor.Status) Group {
	switch status {
	case executor.StatusDryRun:
		return GroupAuto
	case executor.StatusSuggestOnly:
		return GroupSuggest
	case executor.StatusBlocked, executor.StatusDenyUnsupported:
		return GroupBlock
	default:
		return Group("INVALID:" + string(status))
	}
}

// checkContainment verifies that every group-C sample remains blocked
// or denied under every profile.
func checkContainment(results []SampleResult) []string {
	var violations []string
	for _, result := range results {
		if result.Expected == GroupBlock && result.Predicted != GroupBlock {
			violations = append(violations, fmt.Sprintf(
				"sample %q escaped containment under profile %s (status %s)",
				result.Sample, result.Profile, result.Status))
		}
	}
	sort.Strings(violations)
	return violations
}

// checkMonotonicity verifies the profile ordering invariant: a sample
// eligible under conservative must be eligible under balanced and
// aggressive for the same signals.
func checkMonotonicity(samples []Sample, profileResults [][]SampleResult) []string {
	// profileResults is indexed by playbook.ProfileNames order, which is
	// most strict first
	var violations []string
	for sampleIdx := range samples {
		for stricter := 0; stricter < len(profileResults); stricter++ {
			for looser := stricter + 1; looser < len(profileResults); looser++ {
				s, l := profileResults[stricter][sampleIdx], profileResults[looser][sampleIdx]
				if s.Eligible && !l.Eligible {
					violations = append(violations, fmt.Sprintf(
						"sample %q eligible under %s but not under %s",
						samples[sampleIdx].Name, s.Profile, l.Profile))
				}
			}
		}
	}
	sort.Strings(violations)
	return violations
}

// checkRankingStability perturbs each numeric signal by ±1% and checks
// that the top-ranked cause does not change, except for documented
// boundary pairs.
func (h *Harness) checkRankingStability(samples []Sample) []string {
	var violations []string
	for _, sample := range samples {
		if len(sample.Signals) == 0 {
			continue
		}

		base, err := h.builder.Build(sample.ObservationID, sample.Signals, explain.BuildOptions{})
		if err != nil || len(base.TopCauses) == 0 {
			continue
		}
		baseTop := base.TopCauses[0].CauseID

		pb, ok := h.playbooks.Current().Get(sample.ObservationID)
		if !ok {
			continue
		}

		for name, value := range sample.Signals {
			if value.Kind != models.SignalNumber {
				continue
			}
			for _, factor := range []float64{1 + perturbation, 1 - perturbation} {
				perturbed := make(models.Signals, len(sample.Signals))
				for k, v := range sample.Signals {
					perturbed[k] = v
				}
				perturbed[name] = models.Num(value.Number * factor)

				result, err := h.builder.Build(sample.ObservationID, perturbed, explain.BuildOptions{})
				if err != nil || len(result.TopCauses) == 0 {
					continue
				}
				newTop := result.TopCauses[0].CauseID
				if newTop != baseTop && !pb.IsBoundaryPair(baseTop, newTop) {
					violations = append(violations, fmt.Sprintf(
						"sample %q: top cause swapped %s -> %s when %s perturbed by %+.0f%%",
						sample.Name, baseTop, newTop, name, (factor-1)*100))
				}
			}
		}
	}
	sort.Strings(violations)
	return violations
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liyecom/adpilot/internal/calibrate"
	"github.com/liyecom/adpilot/internal/render"
)

var (
	calibrateJSON   bool
	calibrateRender bool
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Replay the labeled sample set under every threshold profile",
	Long: `Replay a fixed set of labeled synthetic observations through the
real eligibility checker and executor under every threshold profile,
and report per-profile agreement, containment of must-block samples,
profile monotonicity, and cause-ranking stability under small signal
perturbations. The replay always runs with the dry-run override set and
a discarding audit sink, so no outcome event and no write can result.

The command recommends a profile; it never applies one. A rejected
recommendation is a finding, not a failure: the exit code is zero
whenever the replay itself completed.`,
	RunE: runCalibrate,
}

func init() {
	calibrateCmd.Flags().BoolVar(&calibrateJSON, "json", false, "Print the report as JSON instead of markdown")
	calibrateCmd.Flags().BoolVar(&calibrateRender, "render", false, "Render the markdown report as styled terminal output")
	addPipelineFlags(calibrateCmd)
}

func runCalibrate(cmd *cobra.Command, args []string) error {
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

	harness := calibrate.NewHarness(p.playbooks, p.registry)
	report, err := harness.Run(ctx, calibrate.DefaultSamples())
	if err != nil {
		return err
	}

	switch {
	case calibrateJSON:
		return printJSON(report)
	case calibrateRender:
		fmt.Print(render.Terminal(report.Markdown()))
	default:
		fmt.Print(report.Markdown())
	}
	return nil
}

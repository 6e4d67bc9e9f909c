package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/liyecom/adpilot/internal/config"
	"github.com/liyecom/adpilot/internal/eligibility"
	"github.com/liyecom/adpilot/internal/executor"
	"github.com/liyecom/adpilot/internal/explain"
	"github.com/liyecom/adpilot/internal/metrics"
	"github.com/liyecom/adpilot/internal/models"
	"github.com/liyecom/adpilot/internal/outcome"
	"github.com/liyecom/adpilot/internal/playbook"
	"github.com/liyecom/adpilot/internal/safety"
	"github.com/liyecom/adpilot/internal/tracing"
)

// Shared flags for commands that run the decision pipeline.
var (
	configPath       string
	dataDir          string
	playbookDir      string
	profileName      string
	killSwitch       bool
	forceDryRun      bool
	watchPlaybooks   bool
	tracingEnabled   bool
	tracingEndpoint  string
	tracingTLSCAPath string
	showMetrics      bool
)

// addPipelineFlags registers the flags shared by every command that
// needs playbooks, execution config, or the outcome log. CLI flags
// override values from the config file.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configPath, "config", "", "Path to the application config file (optional)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "data", "Directory for the outcome event log")
	cmd.Flags().StringVar(&playbookDir, "playbook-dir", "playbooks", "Directory containing playbook YAML documents")
	cmd.Flags().StringVar(&profileName, "profile", "balanced", "Threshold profile (conservative, balanced, aggressive)")
	cmd.Flags().BoolVar(&killSwitch, "kill-switch-enabled", false, "Enable auto execution. When false, every would-be auto execution degrades to suggest-only.")
	cmd.Flags().BoolVar(&forceDryRun, "force-dry-run", false, "Route every would-be auto execution through the dry-run path")
	cmd.Flags().BoolVar(&watchPlaybooks, "watch", false, "Watch the playbook directory and hot-reload on changes")
	cmd.Flags().BoolVar(&tracingEnabled, "tracing-enabled", false, "Enable OpenTelemetry tracing")
	cmd.Flags().StringVar(&tracingEndpoint, "tracing-endpoint", "", "OTLP gRPC endpoint for traces (e.g., localhost:4317)")
	cmd.Flags().StringVar(&tracingTLSCAPath, "tracing-tls-ca", "", "Path to CA certificate for TLS verification (optional)")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "Print the collected Prometheus metrics to stderr when the command finishes")
}

// loadConfig merges the optional config file with CLI flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := &config.Config{
		DataDir:     dataDir,
		PlaybookDir: playbookDir,
		LogLevel:    "info",
		Execution: config.ExecutionConfig{
			Profile:           profileName,
			KillSwitchEnabled: killSwitch,
			ForceDryRun:       forceDryRun,
		},
		WatchPlaybooks:   watchPlaybooks,
		TracingEnabled:   tracingEnabled,
		TracingEndpoint:  tracingEndpoint,
		TracingTLSCAPath: tracingTLSCAPath,
	}

	if configPath != "" {
		fileCfg, err := config.LoadFile(configPath)
		if err != nil {
			return nil, err
		}
		// Explicitly set flags win over the file
		if !cmd.Flags().Changed("data-dir") {
			cfg.DataDir = fileCfg.DataDir
		}
		if !cmd.Flags().Changed("playbook-dir") {
			cfg.PlaybookDir = fileCfg.PlaybookDir
		}
		if !cmd.Flags().Changed("profile") {
			cfg.Execution.Profile = fileCfg.Execution.Profile
		}
		if !cmd.Flags().Changed("kill-switch-enabled") {
			cfg.Execution.KillSwitchEnabled = fileCfg.Execution.KillSwitchEnabled
		}
		if !cmd.Flags().Changed("force-dry-run") {
			cfg.Execution.ForceDryRun = fileCfg.Execution.ForceDryRun
		}
		if !cmd.Flags().Changed("watch") {
			cfg.WatchPlaybooks = fileCfg.WatchPlaybooks
		}
		if !cmd.Flags().Changed("tracing-enabled") {
			cfg.TracingEnabled = fileCfg.TracingEnabled
		}
		if !cmd.Flags().Changed("tracing-endpoint") {
			cfg.TracingEndpoint = fileCfg.TracingEndpoint
		}
		if !cmd.Flags().Changed("tracing-tls-ca") {
			cfg.TracingTLSCAPath = fileCfg.TracingTLSCAPath
		}
		cfg.LogLevel = fileCfg.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// pipeline bundles the wired decision-engine components for one command
// invocation.
type pipeline struct {
	cfg       *config.Config
	playbooks *playbook.Handle
	builder   *explain.Builder
	registry  *executor.Registry
	exec      *executor.Executor
	recorder  *outcome.Recorder
	reader    *outcome.Reader
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
	watcher   *playbook.Watcher
	tracer    *tracing.TracingProvider
}

// newPipeline wires the full pipeline from configuration: playbooks
// (optionally watched), explanation builder, eligibility checker,
// safety limiter, action registry, executor, and the outcome log.
func newPipeline(ctx context.Context, cfg *config.Config) (*pipeline, error) {
	p := &pipeline{
		cfg:       cfg,
		playbooks: playbook.NewHandle(nil),
		registry:  executor.NewDefaultRegistry(),
	}

	tracer, err := tracing.NewTracingProvider(tracing.Config{
		Enabled:   cfg.TracingEnabled,
		Endpoint:  cfg.TracingEndpoint,
		TLSCAPath: cfg.TracingTLSCAPath,
	})
	if err != nil {
		return nil, err
	}
	p.tracer = tracer

	if cfg.WatchPlaybooks {
		watcher, err := playbook.NewWatcher(playbook.WatcherConfig{Dir: cfg.PlaybookDir}, p.playbooks)
		if err != nil {
			return nil, err
		}
		if err := watcher.Start(ctx); err != nil {
			return nil, err
		}
		p.watcher = watcher
	} else {
		store, err := playbook.LoadDir(cfg.PlaybookDir)
		if err != nil {
			return nil, err
		}
		p.playbooks.Swap(store)
	}

	promRegistry := prometheus.NewRegistry()
	p.gatherer = promRegistry
	p.metrics = metrics.New(promRegistry)
	p.metrics.PlaybooksLoaded.Set(float64(p.playbooks.Current().Len()))

	recorder, err := outcome.NewRecorder(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	p.recorder = recorder

	reader, err := outcome.NewReader(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	p.reader = reader

	p.builder = explain.NewBuilder(p.playbooks)
	p.exec = executor.New(
		p.registry,
		eligibility.NewChecker(p.playbooks),
		safety.NewLimiter(p.playbooks),
		recorder,
		p.metrics,
	)

	return p, nil
}

// Close releases pipeline resources. Errors are reported but do not
// mask the command's own result.
func (p *pipeline) Close(ctx context.Context) {
	if showMetrics && p.gatherer != nil {
		if err := metrics.WriteText(p.gatherer, os.Stderr); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}
	if p.watcher != nil {
		p.watcher.Stop()
	}
	if p.recorder != nil {
		if err := p.recorder.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}
	if p.tracer != nil {
		if err := p.tracer.Stop(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}
}

// parseSignals merges a JSON signals file with repeatable key=value
// flags. Flag values override file values; each value is typed as
// number, bool, or string in that order.
func parseSignals(signalsFile string, signalFlags []string) (models.Signals, error) {
	signals := models.Signals{}

	if signalsFile != "" {
		// #nosec G304 -- path comes from the CLI user
		data, err := os.ReadFile(signalsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read signals file %q: %w", signalsFile, err)
		}
		var raw map[string]interface{}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse signals file %q: %w", signalsFile, err)
		}
		signals = models.SignalsFromRaw(raw)
	}

	for _, flag := range signalFlags {
		parts := strings.SplitN(flag, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid --signal %q: expected name=value", flag)
		}
		name, value := parts[0], parts[1]
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			signals[name] = models.Num(n)
		} else if b, err := strconv.ParseBool(value); err == nil {
			signals[name] = models.Bool(b)
		} else {
			signals[name] = models.Str(value)
		}
	}

	return signals, nil
}

// parseTime parses a timestamp string, supporting Unix timestamps,
// RFC 3339, and human-readable dates like "3 days ago".
func parseTime(value, fieldName string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("%s is required", fieldName)
	}

	if unix, err := strconv.ParseInt(value, 10, 64); err == nil {
		if unix < 0 {
			return time.Time{}, fmt.Errorf("%s must be non-negative", fieldName)
		}
		return time.Unix(unix, 0).UTC(), nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}

	parser := dps.Parser{}
	cfg := &dps.Configuration{
		PreferredDateSource: dps.CurrentPeriod,
	}
	parsed, err := parser.Parse(cfg, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a Unix timestamp, RFC 3339, or human-readable date: %v", fieldName, err)
	}
	if parsed.IsZero() {
		return time.Time{}, fmt.Errorf("%s could not be parsed as a date: %s", fieldName, value)
	}
	return parsed.Time.UTC(), nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

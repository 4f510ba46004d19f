// Package commands implements CLI command handlers for fbpulse.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/registry"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/runner"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/source"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/pkg/config"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/pkg/observability"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/pkg/version"
)

// dateLayout is the accepted --date format.
const dateLayout = "2006-01-02"

// shutdownTimeout bounds telemetry flushing on exit.
const shutdownTimeout = 5 * time.Second

// ErrInvalidDate indicates an unparseable --date value.
var ErrInvalidDate = errors.New("invalid date, want YYYY-MM-DD")

// RunCommand holds configuration for the run command.
type RunCommand struct {
	input       string
	configPath  string
	dataDir     string
	exportDir   string
	date        string
	metricsFile string
}

// NewRunCommand creates and configures the run command.
func NewRunCommand() *cobra.Command {
	rc := &RunCommand{}

	cobraCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one pipeline run against a snapshot export",
		Long: `Execute one full pipeline run: read the parsed establishment records,
aggregate per-authority sector counts, rank deltas against the previous
run, classify and export newly observed businesses, and persist the
updated state for the next run.`,
		RunE: rc.run,
	}

	cobraCmd.Flags().StringVarP(&rc.input, "input", "i", "", "parsed establishment records CSV (required)")
	cobraCmd.Flags().StringVarP(&rc.configPath, "config", "c", "", "config file (YAML)")
	cobraCmd.Flags().StringVar(&rc.dataDir, "data-dir", "", "override configured data directory")
	cobraCmd.Flags().StringVar(&rc.exportDir, "export-dir", "", "override configured export directory")
	cobraCmd.Flags().StringVar(&rc.date, "date", "", "run date as YYYY-MM-DD (default: today)")
	cobraCmd.Flags().StringVar(&rc.metricsFile, "metrics-file", "", "write Prometheus textfile metrics here")

	_ = cobraCmd.MarkFlagRequired("input")

	return cobraCmd
}

func (rc *RunCommand) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(rc.configPath, func(c *config.Config) {
		if rc.dataDir != "" {
			c.DataDir = rc.dataDir
		}

		if rc.exportDir != "" {
			c.ExportDir = rc.exportDir
		}

		if rc.metricsFile != "" {
			c.MetricsFile = rc.metricsFile
		}
	})
	if err != nil {
		return err
	}

	runDate, err := resolveRunDate(rc.date)
	if err != nil {
		return err
	}

	providers, err := initObservability(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer flushTelemetry(providers)

	sectors := trackedSectors(cfg)

	r := runner.New(runner.Options{
		DataDir:      cfg.DataDir,
		ExportDir:    cfg.ExportPath(),
		RankingLimit: cfg.RankingLimit,
		Sectors:      sectors,
		MetricsFile:  cfg.MetricsFile,
		Logger:       providers.Logger,
		Tracer:       providers.Tracer,
	})

	outcome, err := r.Run(ctx, source.NewCSVSource(rc.input, sectors), runDate)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	printOutcome(cmd.OutOrStdout(), outcome)

	return nil
}

// resolveRunDate parses the --date flag; an empty flag means today.
// Defaulting to the current date is CLI policy, not engine behavior.
func resolveRunDate(flag string) (time.Time, error) {
	if flag == "" {
		now := time.Now()

		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	parsed, err := time.Parse(dateLayout, flag)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, flag)
	}

	return parsed, nil
}

// loadConfig loads configuration and applies flag overrides before
// re-validation.
func loadConfig(path string, override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	override(cfg)

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// trackedSectors converts the configured sector labels to the engine's
// sector set.
func trackedSectors(cfg *config.Config) registry.SectorSet {
	sectors := make([]registry.Sector, 0, len(cfg.TrackedSectors))
	for _, label := range cfg.TrackedSectors {
		sectors = append(sectors, registry.Sector(label))
	}

	return registry.NewSectorSet(sectors)
}

// initObservability builds the logger and tracer, honoring the root
// --verbose/--quiet flags over the configured level.
func initObservability(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (observability.Providers, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return observability.Providers{}, err
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}

	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		level = slog.LevelError
	}

	providers, err := observability.Init(ctx, observability.Config{
		ServiceName:    "fbpulse",
		ServiceVersion: version.Version,
		LogLevel:       level,
		LogFormat:      cfg.Logging.Format,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		OTLPInsecure:   cfg.Tracing.Insecure,
	})
	if err != nil {
		return observability.Providers{}, fmt.Errorf("init observability: %w", err)
	}

	return providers, nil
}

func flushTelemetry(providers observability.Providers) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	_ = providers.Shutdown(ctx)
}

func printOutcome(w io.Writer, outcome *runner.Outcome) {
	fmt.Fprintf(w, "Run %s: %d records, %d new businesses\n",
		outcome.RunDate.Format(dateLayout), outcome.Records, outcome.NewBusinesses)

	sectors := make([]registry.Sector, 0, len(outcome.Rankings.BySector))
	for sector := range outcome.Rankings.BySector {
		sectors = append(sectors, sector)
	}

	slices.Sort(sectors)

	for _, sector := range sectors {
		result := outcome.Rankings.BySector[sector]

		n := outcome.NewBySector[sector]
		if n == 0 && len(result.Growth) == 0 && len(result.Reductions) == 0 {
			continue
		}

		fmt.Fprintf(w, "  %-16s new: %-5d growth: %-3d reductions: %d\n",
			sector, n, len(result.Growth), len(result.Reductions))
	}
}

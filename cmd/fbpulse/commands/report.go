package commands

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/ranking"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/registry"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/pkg/config"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/pkg/persist"
)

// ErrUnknownSector indicates --sector named a sector absent from the
// latest rankings.
var ErrUnknownSector = errors.New("sector not present in latest rankings")

// ReportCommand holds configuration for the report command.
type ReportCommand struct {
	configPath string
	dataDir    string
	sector     string
	noColor    bool
}

// NewReportCommand creates and configures the report command.
func NewReportCommand() *cobra.Command {
	rc := &ReportCommand{}

	cobraCmd := &cobra.Command{
		Use:   "report",
		Short: "Render the latest growth/reduction rankings",
		RunE:  rc.run,
	}

	cobraCmd.Flags().StringVarP(&rc.configPath, "config", "c", "", "config file (YAML)")
	cobraCmd.Flags().StringVar(&rc.dataDir, "data-dir", "", "override configured data directory")
	cobraCmd.Flags().StringVarP(&rc.sector, "sector", "s", "", "restrict output to one sector")
	cobraCmd.Flags().BoolVar(&rc.noColor, "no-color", false, "disable colored output")

	return cobraCmd
}

func (rc *ReportCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(rc.configPath, func(c *config.Config) {
		if rc.dataDir != "" {
			c.DataDir = rc.dataDir
		}
	})
	if err != nil {
		return err
	}

	snap, err := persist.NewPersister[ranking.Snapshot]("rankings_latest", persist.NewJSONCodec()).Load(cfg.DataDir)
	if err != nil {
		if errors.Is(err, persist.ErrNoState) {
			return fmt.Errorf("no rankings yet in %s, run `fbpulse run` first: %w", cfg.DataDir, err)
		}

		return fmt.Errorf("load rankings: %w", err)
	}

	if rc.noColor {
		color.NoColor = true
	}

	out := cmd.OutOrStdout()

	heading := color.New(color.Bold)
	heading.Fprintf(out, "Rankings for %s\n", snap.Date)

	sectors, err := selectSectors(snap, rc.sector)
	if err != nil {
		return err
	}

	for _, sector := range sectors {
		renderSector(out, sector, snap.BySector[sector])
	}

	return nil
}

func selectSectors(snap *ranking.Snapshot, only string) ([]registry.Sector, error) {
	if only != "" {
		sector := registry.Sector(only)
		if _, ok := snap.BySector[sector]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSector, only)
		}

		return []registry.Sector{sector}, nil
	}

	sectors := make([]registry.Sector, 0, len(snap.BySector))
	for sector := range snap.BySector {
		sectors = append(sectors, sector)
	}

	slices.Sort(sectors)

	return sectors, nil
}

func renderSector(out io.Writer, sector registry.Sector, result ranking.Result) {
	fmt.Fprintf(out, "\n=== %s ===\n", sector)

	if len(result.Growth) == 0 && len(result.Reductions) == 0 {
		fmt.Fprintln(out, "no movement")

		return
	}

	if len(result.Growth) > 0 {
		color.New(color.FgGreen).Fprintln(out, "Top growth")
		renderRows(out, result.Growth)
	}

	if len(result.Reductions) > 0 {
		color.New(color.FgRed).Fprintln(out, "Top reductions")
		renderRows(out, result.Reductions)
	}
}

func renderRows(out io.Writer, rows []ranking.Row) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"#", "Local authority", "Delta", "Current"})

	for i, row := range rows {
		tw.AppendRow(table.Row{i + 1, row.Authority, fmt.Sprintf("%+d", row.Delta), row.Current})
	}

	tw.Render()
}

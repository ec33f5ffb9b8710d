package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/esmstat/internal/config"
	"github.com/matzehuels/esmstat/pkg/report"
)

// reportCommand creates the report command.
func (c *CLI) reportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the SVG chart and CSV table from all snapshots",
		Example: `  esmstat report
  esmstat report --svg docs/index.svg --csv docs/index.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd, map[string]string{
				"svg":   "report.svg",
				"csv":   "report.csv",
				"store": "store.backend",
			})
			if err != nil {
				return err
			}
			spinner := newSpinner(cmd.Context(), stderr, "Loading snapshots")
			spinner.Start()
			rows, err := runReport(cmd.Context(), cfg, spinner.Update)
			spinner.Stop()
			if err != nil {
				return err
			}
			printSuccess("Rendered %d snapshots", len(rows))
			if len(rows) > 0 {
				printCounts(rows[len(rows)-1])
			}
			printFile(cfg.Report.SVG)
			printFile(cfg.Report.CSV)
			return nil
		},
	}

	cmd.Flags().String("svg", "", "chart output path (default: index.svg)")
	cmd.Flags().String("csv", "", "table output path (default: index.csv)")
	cmd.Flags().String("store", "", "snapshot store: file, sqlite or mongo")

	return cmd
}

// runReport aggregates the configured store and writes both outputs.
// status receives a line per step.
func runReport(ctx context.Context, cfg *config.Config, status func(format string, args ...any)) ([]report.Row, error) {
	logger := loggerFromContext(ctx)

	status("Loading snapshots from %s store", cfg.Store.Backend)
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	rows, err := report.Aggregate(ctx, store)
	if err != nil {
		return nil, err
	}
	status("Rendering %d snapshots", len(rows))
	for _, row := range rows {
		logger.Debug("snapshot counted", "date", row.Date, "total", row.Total,
			"esm", row.Counts["esm"], "dual", row.Counts["dual"], "faux", row.Counts["faux"], "cjs", row.Counts["cjs"])
	}

	if err := os.WriteFile(cfg.Report.SVG, report.RenderSVG(rows), 0o644); err != nil {
		return nil, fmt.Errorf("write chart: %w", err)
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, rows); err != nil {
		return nil, err
	}
	if err := os.WriteFile(cfg.Report.CSV, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("write table: %w", err)
	}
	return rows, nil
}

package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/broadband-cli/internal/cache"
	"github.com/sells-group/broadband-cli/internal/summary"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Compile the summary table from cached ranking properties",
	Long:  "Reads districts.json and every ranking-properties-<district>.json already in the cache and writes summary.csv and/or summary.xlsx. No network calls are made.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("summary"); err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		return writeSummary(format)
	},
}

func writeSummary(format string) error {
	var csvOut, xlsxOut bool
	switch format {
	case "csv":
		csvOut = true
	case "xlsx":
		xlsxOut = true
	case "both":
		csvOut, xlsxOut = true, true
	default:
		return eris.Errorf("summary: unknown format %q (want csv, xlsx or both)", format)
	}

	c, err := cache.Open(cfg.Broadband.DataDir, cfg.Broadband.DataVersion)
	if err != nil {
		return eris.Wrapf(err, "summary: no cache for %s", cfg.Broadband.DataVersion)
	}

	rows, err := summary.NewCompiler(c).Compile()
	if err != nil {
		return err
	}

	if csvOut {
		if err := summary.WriteCSVFile(c.SummaryPath(), rows); err != nil {
			return err
		}
		zap.L().Info("wrote summary", zap.String("path", c.SummaryPath()), zap.Int("rows", len(rows)))
	}
	if xlsxOut {
		if err := summary.WriteXLSX(c.SummaryXLSXPath(), rows); err != nil {
			return err
		}
		zap.L().Info("wrote summary", zap.String("path", c.SummaryXLSXPath()), zap.Int("rows", len(rows)))
	}
	return nil
}

func init() {
	summaryCmd.Flags().String("format", "csv", "output format: csv, xlsx or both")
	rootCmd.AddCommand(summaryCmd)
}

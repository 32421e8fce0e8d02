package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/broadband-cli/internal/model"
	"github.com/sells-group/broadband-cli/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List recorded download runs",
	Long:  "Reads the run ledger and prints recent runs with their phase counts. The cache on disk is unaffected.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("status"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st == nil {
			return eris.New("status: the run ledger is disabled (store.driver is none)")
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status:      model.RunStatus(status),
			DataVersion: dataVersion,
			Limit:       limit,
		})
		if err != nil {
			return eris.Wrap(err, "status")
		}

		switch format {
		case "table":
			if len(runs) == 0 {
				fmt.Fprintln(os.Stderr, "No runs found.")
				return nil
			}
			formatRunsTable(os.Stdout, runs)
			return nil
		case "yaml":
			return formatRunsYAML(os.Stdout, runs)
		default:
			return eris.Errorf("status: unknown format %q (want table or yaml)", format)
		}
	},
}

func init() {
	statusCmd.Flags().String("status", "", "filter by run status (queued, running, complete, failed)")
	statusCmd.Flags().Int("limit", 20, "max number of runs to display")
	statusCmd.Flags().String("format", "table", "output format: table or yaml")
	rootCmd.AddCommand(statusCmd)
}

// formatRunsTable writes a tabular list of runs to out.
func formatRunsTable(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tVERSION\tSTATUS\tDISTRICTS\tFETCHED\tCACHED\tCREATED\tDURATION\tERROR")
	_, _ = fmt.Fprintln(w, "--\t-------\t------\t---------\t-------\t------\t-------\t--------\t-----")

	for _, r := range runs {
		var districts, fetched, cached string
		if r.Result != nil {
			districts = fmt.Sprint(r.Result.Districts)
			fetched = fmt.Sprint(r.Result.Fetched)
			cached = fmt.Sprint(r.Result.Cached)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.DataVersion,
			r.Status,
			districts,
			fetched,
			cached,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String(),
			truncate(r.Error, 40),
		)
	}
	_ = w.Flush()
}

// formatRunsYAML writes runs as a YAML sequence, including phase results.
func formatRunsYAML(out io.Writer, runs []model.Run) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(runs); err != nil {
		return eris.Wrap(err, "status: encode yaml")
	}
	return enc.Close()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

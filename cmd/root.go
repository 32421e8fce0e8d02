package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/broadband-cli/internal/config"
	"github.com/sells-group/broadband-cli/internal/downloader"
)

var (
	cfg *config.Config

	dataVersion        string
	providerStatistics bool
)

var rootCmd = &cobra.Command{
	Use:   "broadband-cli",
	Short: "Download National Broadband Map data by congressional district",
	Long: "Walks every congressional district in the National Broadband Map API, caches " +
		"providers, provider statistics and ranking properties as JSON files, then " +
		"compiles summary.csv from the cached rankings. Rerunning resumes from the cache.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if dataVersion != "" {
			c.Broadband.DataVersion = dataVersion
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initDownload(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return env.Run(ctx, downloader.RunOpts{ProviderStatistics: providerStatistics})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataVersion, "dataVersion", "", "data release to download, e.g. jun2014 (default from config)")
	rootCmd.Flags().BoolVar(&providerStatistics, "providerStatistics", false, "also download statistics for every provider in every district")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

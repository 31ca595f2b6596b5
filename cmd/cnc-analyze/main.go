package main

import (
	"context"
	"fmt"
	"os"

	"github.com/opscart/cnc-uptime-analyzer/pkg/analyzer"
	"github.com/opscart/cnc-uptime-analyzer/pkg/config"
	"github.com/opscart/cnc-uptime-analyzer/pkg/output"
	"github.com/opscart/cnc-uptime-analyzer/pkg/query"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Window flags, defaulting to the dashboard's initial selection
	startDate string
	endDate   string
	startTime string
	endTime   string

	// Source flags
	sourceName string
	inputPath  string

	// Output flags
	outputFormat   string
	generateReport bool
	reportFormat   string
	reportOutput   string

	// Global flags
	configPath string
	envFile    string
	verbose    bool

	// Global config
	cfg *config.Config
	log = logrus.New()
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "cnc-analyze",
		Short: "CNC machine uptime and program run-count analyzer",
		Long: `Summarize a CNC machine's uptime/downtime and per-program daily run counts
for a time window, from PostgreSQL, Prometheus or a CSV export.`,
		PersistentPreRunE: loadConfig,
		SilenceUsage:      true,
		RunE:              runAnalyze,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (overrides environment)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&sourceName, "source", "", "Sample source: postgres, prometheus, csv (default from SAMPLE_SOURCE)")
	rootCmd.PersistentFlags().StringVar(&inputPath, "input", "", "CSV file for --source csv")

	rootCmd.Flags().StringVar(&startDate, "start-date", "2024-10-01", "Window start date (YYYY-MM-DD)")
	rootCmd.Flags().StringVar(&endDate, "end-date", "2024-10-10", "Window end date (YYYY-MM-DD)")
	rootCmd.Flags().StringVar(&startTime, "start-time", "00:00", "Window start time (HH:MM)")
	rootCmd.Flags().StringVar(&endTime, "end-time", "23:59", "Window end time (HH:MM)")
	rootCmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json")
	rootCmd.Flags().BoolVar(&generateReport, "generate-report", false, "Write an HTML or CSV report under reports/")
	rootCmd.Flags().StringVar(&reportFormat, "report-format", "html", "Report format: html, csv")
	rootCmd.Flags().StringVar(&reportOutput, "report-output", "", "Report file name (default: timestamped)")

	rootCmd.AddCommand(newServeCmd(), newMigrateCmd(), newImportCmd(), newExportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := config.LoadEnvFile(envFile); err != nil {
		return err
	}

	var err error
	cfg, err = config.LoadFile(configPath, applyFlags)
	if err != nil {
		return err
	}
	if cfg.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return nil
}

// applyFlags lets command-line flags win over the environment and the
// config file, on startup and on every reload
func applyFlags(c *config.Config) {
	if sourceName != "" {
		c.Source = sourceName
	}
	if inputPath != "" {
		c.CSVPath = inputPath
		if sourceName == "" {
			c.Source = config.SourceCSV
		}
	}
	if verbose {
		c.Verbose = true
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	handler, err := output.New(outputFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	window, err := query.BuildWindow(startDate, endDate, startTime, endTime, loc)
	if err != nil {
		return err
	}

	stream, closeStream, err := openStream(cfg, log)
	if err != nil {
		return err
	}
	defer closeStream()

	opts, err := cfg.AnalyzerOptions()
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"source": cfg.Source,
		"start":  window.Start,
		"end":    window.End,
	}).Debug("starting analysis")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := analyzer.New(stream, opts, log).Analyze(ctx, window)
	if err != nil {
		return err
	}

	if err := handler.DisplayAnalysis(ctx, result); err != nil {
		return err
	}

	if generateReport {
		if err := writeReport(result); err != nil {
			log.WithError(err).Error("failed to generate report")
		}
	}
	return nil
}

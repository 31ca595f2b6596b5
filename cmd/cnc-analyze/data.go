package main

import (
	"context"
	"fmt"
	"os"

	"github.com/opscart/cnc-uptime-analyzer/pkg/datasource"
	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
	"github.com/opscart/cnc-uptime-analyzer/pkg/query"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the sample table in PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("[INFO] Table %s is ready\n", cfg.SampleTable)
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Bulk-load samples from a CSV export into PostgreSQL",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	loc, _ := cfg.Location()
	samples, err := datasource.ReadCSV(f, loc)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	log.WithField("samples", len(samples)).Debug("parsed CSV")

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	n, err := store.SaveSamples(ctx, samples)
	if err != nil {
		return err
	}
	fmt.Printf("[INFO] Imported %d samples into %s\n", n, cfg.SampleTable)
	return nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file.csv>",
		Short: "Write the samples of a window from the configured source to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	cmd.Flags().StringVar(&startDate, "start-date", "2024-10-01", "Window start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end-date", "2024-10-10", "Window end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&startTime, "start-time", "00:00", "Window start time (HH:MM)")
	cmd.Flags().StringVar(&endTime, "end-time", "23:59", "Window end time (HH:MM)")
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	loc, _ := cfg.Location()
	window, err := query.BuildWindow(startDate, endDate, startTime, endTime, loc)
	if err != nil {
		return err
	}

	stream, closeStream, err := openStream(cfg, log)
	if err != nil {
		return err
	}
	defer closeStream()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	samples, err := stream.LoadSamples(ctx, window.Start, window.End)
	if err != nil {
		return fmt.Errorf("failed to load samples: %w", err)
	}

	n, err := exportSamples(args[0], samples)
	if err != nil {
		return err
	}
	fmt.Printf("[INFO] Exported %d samples from %s to %s\n", n, datasource.NameOf(stream), args[0])
	return nil
}

func exportSamples(path string, samples []models.Sample) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := datasource.WriteCSV(f, samples); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return len(samples), nil
}

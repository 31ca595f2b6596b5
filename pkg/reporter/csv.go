package reporter

import (
	"encoding/csv"
	"fmt"
	"io"
)

// GenerateCSV creates a CSV report: the run-count pivot followed by summary rows
func GenerateCSV(report *Report, writer io.Writer) error {
	w := csv.NewWriter(writer)

	// Write header
	header := append([]string{"Program"}, report.Dates...)
	header = append(header, "Total")
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write run counts
	for _, row := range report.Rows {
		record := make([]string, 0, len(row.Counts)+2)
		record = append(record, row.Program)
		for _, n := range row.Counts {
			record = append(record, fmt.Sprintf("%d", n))
		}
		record = append(record, fmt.Sprintf("%d", row.Total))
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	// Write summary rows
	summary := [][]string{
		{},
		{"SUMMARY"},
		{"Title", report.Title},
		{"Uptime (min)", fmt.Sprintf("%.2f", report.UptimeMinutes)},
		{"Downtime (min)", fmt.Sprintf("%.2f", report.DowntimeMinutes)},
		{"Uptime (%)", fmt.Sprintf("%.2f", report.UptimePercentage)},
		{"Downtime (%)", fmt.Sprintf("%.2f", report.DowntimePercentage)},
		{"Total Runs", fmt.Sprintf("%d", report.TotalRuns)},
		{"Samples", fmt.Sprintf("%d", report.Quality.Samples)},
		{"Unknown Program Samples", fmt.Sprintf("%d", report.Quality.UnknownProgramSamples)},
	}
	if report.CycleStats != nil {
		summary = append(summary,
			[]string{"Cycles", fmt.Sprintf("%d", report.CycleStats.Count)},
			[]string{"Average Cycle (min)", fmt.Sprintf("%.2f", report.CycleStats.Average)},
			[]string{"P95 Cycle (min)", fmt.Sprintf("%.2f", report.CycleStats.P95)},
		)
	}
	if report.Trend != nil {
		summary = append(summary,
			[]string{"Trend", report.Trend.Direction},
			[]string{"Trend Slope (points/day)", fmt.Sprintf("%.2f", report.Trend.SlopePerDay)},
		)
	}
	if len(report.Daily) > 0 {
		summary = append(summary, []string{}, []string{"DAILY UPTIME"},
			[]string{"Date", "Uptime (min)", "Downtime (min)", "Uptime (%)"})
		for _, d := range report.Daily {
			summary = append(summary, []string{
				d.Date,
				fmt.Sprintf("%.2f", d.UptimeMinutes),
				fmt.Sprintf("%.2f", d.DowntimeMinutes),
				fmt.Sprintf("%.2f", d.UptimePercentage),
			})
		}
	}
	if err := w.WriteAll(summary); err != nil {
		return fmt.Errorf("failed to write CSV summary: %w", err)
	}

	return nil
}

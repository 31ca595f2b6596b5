package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
	"github.com/opscart/cnc-uptime-analyzer/pkg/reporter"
)

const reportsDir = "reports"

func writeReport(a *models.Analysis) error {
	format, err := reporter.ParseFormat(reportFormat)
	if err != nil {
		return err
	}

	rep := reporter.New(format)
	report, err := rep.Generate(a)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if err := os.MkdirAll(reportsDir, 0755); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}

	outputFile := reportPath(reportOutput, a.Window, format, time.Now())
	file, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	if err := rep.Write(report, file); err != nil {
		return fmt.Errorf("failed to write %s report: %w", format, err)
	}

	fmt.Printf("\n[INFO] %s report generated: %s\n", strings.ToUpper(string(format)), outputFile)
	if format == reporter.FormatHTML {
		absPath, _ := filepath.Abs(outputFile)
		fmt.Printf("[INFO] Open in browser: file://%s\n", absPath)
	}
	return nil
}

// reportPath names the report file: timestamped by default, and placed in
// reports/ unless the given name already carries a directory
func reportPath(name string, window models.QueryWindow, format reporter.ReportFormat, now time.Time) string {
	if name == "" {
		return filepath.Join(reportsDir, fmt.Sprintf("uptime-report-%s-%s-%s.%s",
			window.StartDate, window.EndDate, now.Format("20060102-150405"), format.Extension()))
	}
	if !strings.Contains(name, "/") {
		return filepath.Join(reportsDir, name)
	}
	return name
}

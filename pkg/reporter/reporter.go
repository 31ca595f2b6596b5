package reporter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
)

// ReportFormat represents the output format
type ReportFormat string

const (
	FormatHTML ReportFormat = "html"
	FormatCSV  ReportFormat = "csv"
)

// ParseFormat validates a format name
func ParseFormat(s string) (ReportFormat, error) {
	switch f := ReportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatHTML, FormatCSV:
		return f, nil
	case "":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported report format %q (want html or csv)", s)
	}
}

// Extension returns the file extension for the format
func (f ReportFormat) Extension() string {
	return string(f)
}

// ContentType returns the HTTP content type for the format
func (f ReportFormat) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "text/html; charset=utf-8"
}

// Report contains all data for generating reports
type Report struct {
	ID          string
	Title       string
	Source      string
	GeneratedAt time.Time

	UptimeMinutes      float64
	DowntimeMinutes    float64
	UptimePercentage   float64
	DowntimePercentage float64

	// Bar heights in percent of the taller bar
	UptimeBar   float64
	DowntimeBar float64

	Dates      []string
	Rows       []*ProgramRow
	DateTotals []int
	TotalRuns  int

	Daily []*DailyRow
	Trend *models.UptimeTrend

	CycleStats *models.CycleStats
	Quality    models.DataQuality
}

// DailyRow is one day of the uptime breakdown
type DailyRow struct {
	Date               string
	UptimeMinutes      float64
	DowntimeMinutes    float64
	UptimePercentage   float64
	DowntimePercentage float64
}

// ProgramRow is one line of the run-count table.
// Counts lines up with Report.Dates; absent cells are 0.
type ProgramRow struct {
	Program string
	Counts  []int
	Total   int
}

// Reporter generates uptime reports
type Reporter struct {
	format ReportFormat
}

// New creates a new reporter
func New(format ReportFormat) *Reporter {
	return &Reporter{
		format: format,
	}
}

// Format returns the reporter's output format
func (r *Reporter) Format() ReportFormat {
	return r.format
}

// Generate flattens an analysis into a report
func (r *Reporter) Generate(analysis *models.Analysis) (*Report, error) {
	if analysis == nil {
		return nil, fmt.Errorf("no analysis to report")
	}

	summary := analysis.Summary
	report := &Report{
		ID:                 analysis.ID,
		Title:              analysis.Window.Title(),
		Source:             analysis.Source,
		GeneratedAt:        analysis.GeneratedAt,
		UptimeMinutes:      summary.UptimeMinutes,
		DowntimeMinutes:    summary.DowntimeMinutes,
		UptimePercentage:   summary.UptimePercentage(),
		DowntimePercentage: summary.DowntimePercentage(),
		Trend:              analysis.Trend,
		CycleStats:         analysis.CycleStats,
		Quality:            analysis.Quality,
	}
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = time.Now()
	}

	report.UptimeBar, report.DowntimeBar = barHeights(summary.UptimeMinutes, summary.DowntimeMinutes)

	r.calculateRows(report, analysis.RunCounts)

	for _, d := range analysis.Daily {
		report.Daily = append(report.Daily, &DailyRow{
			Date:               d.Date.String(),
			UptimeMinutes:      d.Summary.UptimeMinutes,
			DowntimeMinutes:    d.Summary.DowntimeMinutes,
			UptimePercentage:   d.Summary.UptimePercentage(),
			DowntimePercentage: d.Summary.DowntimePercentage(),
		})
	}

	return report, nil
}

// Write renders the report in the reporter's format
func (r *Reporter) Write(report *Report, w io.Writer) error {
	switch r.format {
	case FormatCSV:
		return GenerateCSV(report, w)
	case FormatHTML:
		return GenerateHTML(report, w)
	default:
		return fmt.Errorf("unsupported report format %q", r.format)
	}
}

// calculateRows pivots the run-count matrix into table rows
func (r *Reporter) calculateRows(report *Report, matrix *models.RunCountMatrix) {
	if matrix == nil {
		return
	}

	dates := matrix.Dates()
	report.Dates = make([]string, len(dates))
	report.DateTotals = make([]int, len(dates))
	for i, d := range dates {
		report.Dates[i] = d.String()
	}

	for _, program := range matrix.Programs() {
		row := &ProgramRow{
			Program: program,
			Counts:  make([]int, len(dates)),
		}
		for i, d := range dates {
			n := matrix.Count(program, d)
			row.Counts[i] = n
			row.Total += n
			report.DateTotals[i] += n
		}
		report.TotalRuns += row.Total
		report.Rows = append(report.Rows, row)
	}
}

func barHeights(uptime, downtime float64) (float64, float64) {
	tallest := uptime
	if downtime > tallest {
		tallest = downtime
	}
	if tallest <= 0 {
		return 0, 0
	}
	return clampPercent(uptime / tallest * 100), clampPercent(downtime / tallest * 100)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

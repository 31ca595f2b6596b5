package reporter

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
)

func testAnalysis() *models.Analysis {
	day1 := models.Date{Year: 2024, Month: time.October, Day: 1}
	day2 := models.Date{Year: 2024, Month: time.October, Day: 2}

	counts := models.NewRunCountMatrix()
	counts.Add("PARTA", day1, 3)
	counts.Add("PARTB", day2, 2)

	return &models.Analysis{
		ID:     "abc",
		Source: "static",
		Window: models.QueryWindow{
			StartDate: "2024-10-01",
			EndDate:   "2024-10-02",
		},
		Summary:     models.UptimeDowntime{UptimeMinutes: 30, DowntimeMinutes: 10},
		RunCounts:   counts,
		CycleStats:  &models.CycleStats{Count: 2, Average: 15, P95: 19.5, Max: 20},
		Quality:     models.DataQuality{Samples: 5},
		GeneratedAt: time.Date(2024, time.October, 3, 9, 0, 0, 0, time.UTC),
	}
}

func TestGenerate(t *testing.T) {
	report, err := New(FormatHTML).Generate(testAnalysis())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.Title != "Uptime/Downtime from 2024-10-01 to 2024-10-02 (00:00 - 23:59)" {
		t.Errorf("Unexpected title %q", report.Title)
	}
	if report.UptimePercentage != 75 || report.DowntimePercentage != 25 {
		t.Errorf("Expected 75/25, got %.2f/%.2f", report.UptimePercentage, report.DowntimePercentage)
	}
	if report.UptimeBar != 100 {
		t.Errorf("Expected uptime bar 100, got %.2f", report.UptimeBar)
	}
	if report.DowntimeBar < 33.3 || report.DowntimeBar > 33.4 {
		t.Errorf("Expected downtime bar ~33.3, got %.2f", report.DowntimeBar)
	}

	if len(report.Dates) != 2 || report.Dates[0] != "2024-10-01" {
		t.Fatalf("Unexpected dates %v", report.Dates)
	}
	if len(report.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(report.Rows))
	}

	// Absent cells are rendered as 0
	partA := report.Rows[0]
	if partA.Program != "PARTA" || partA.Counts[0] != 3 || partA.Counts[1] != 0 || partA.Total != 3 {
		t.Errorf("Unexpected PARTA row %+v", partA)
	}
	if report.TotalRuns != 5 || report.DateTotals[1] != 2 {
		t.Errorf("Expected 5 runs with 2 on day two, got %d and %v", report.TotalRuns, report.DateTotals)
	}
}

func TestGenerateEmpty(t *testing.T) {
	report, err := New(FormatHTML).Generate(&models.Analysis{RunCounts: models.NewRunCountMatrix()})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.UptimePercentage != 0 || report.DowntimePercentage != 0 {
		t.Error("Expected zero percentages")
	}
	if report.UptimeBar != 0 || report.DowntimeBar != 0 {
		t.Error("Expected empty bars")
	}
	if len(report.Rows) != 0 {
		t.Errorf("Expected no rows, got %d", len(report.Rows))
	}
}

func TestGenerateNil(t *testing.T) {
	if _, err := New(FormatHTML).Generate(nil); err == nil {
		t.Error("Expected error for nil analysis")
	}
}

func TestGenerateHTML(t *testing.T) {
	r := New(FormatHTML)
	report, _ := r.Generate(testAnalysis())

	var buf bytes.Buffer
	if err := r.Write(report, &buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	html := buf.String()
	for _, want := range []string{
		"<title>Uptime/Downtime from 2024-10-01 to 2024-10-02 (00:00 - 23:59)</title>",
		"75.00%",
		"25.00%",
		"30.00 min",
		"<td><strong>PARTA</strong></td>",
		"height: 100.0%",
		"Generated by <strong>cnc-uptime-analyzer</strong>",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML report missing %q", want)
		}
	}
}

func TestGenerateHTMLEscapesProgramNames(t *testing.T) {
	a := testAnalysis()
	a.RunCounts.Add("<script>", models.Date{Year: 2024, Month: time.October, Day: 1}, 1)

	r := New(FormatHTML)
	report, _ := r.Generate(a)

	var buf bytes.Buffer
	if err := r.Write(report, &buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if strings.Contains(buf.String(), "<script>") {
		t.Error("Program name was not escaped")
	}
}

func TestGenerateCSV(t *testing.T) {
	r := New(FormatCSV)
	report, _ := r.Generate(testAnalysis())

	var buf bytes.Buffer
	if err := r.Write(report, &buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	reader := csv.NewReader(&buf)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Invalid CSV: %v", err)
	}

	wantHeader := []string{"Program", "2024-10-01", "2024-10-02", "Total"}
	if strings.Join(records[0], ",") != strings.Join(wantHeader, ",") {
		t.Errorf("Expected header %v, got %v", wantHeader, records[0])
	}
	if strings.Join(records[1], ",") != "PARTA,3,0,3" {
		t.Errorf("Unexpected PARTA row %v", records[1])
	}
	if strings.Join(records[2], ",") != "PARTB,0,2,2" {
		t.Errorf("Unexpected PARTB row %v", records[2])
	}

	found := false
	for _, rec := range records {
		if len(rec) == 2 && rec[0] == "Uptime (%)" && rec[1] == "75.00" {
			found = true
		}
	}
	if !found {
		t.Error("CSV summary missing uptime percentage")
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]ReportFormat{"": FormatHTML, "HTML": FormatHTML, "csv": FormatCSV} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = (%q, %v), want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("markdown"); err == nil {
		t.Error("Expected error for unsupported format")
	}
	if FormatCSV.ContentType() != "text/csv; charset=utf-8" {
		t.Errorf("Unexpected content type %s", FormatCSV.ContentType())
	}
}

package analyzer

import (
	"math"
	"testing"
	"time"

	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
)

// dayOfCycles builds one day with a single cycle of up minutes followed by
// down minutes of idle time
func dayOfCycles(day int, up, down float64) []models.Sample {
	start := time.Date(2024, time.October, day, 8, 0, 0, 0, time.UTC)
	return []models.Sample{
		{SignalValue: 1, ProgramIdentifier: partA, Timestamp: start},
		{SignalValue: 0, ProgramIdentifier: partA, CycleDuration: up, Timestamp: start.Add(time.Duration(up) * time.Minute)},
		{SignalValue: 1, ProgramIdentifier: partA, Timestamp: start.Add(time.Duration(up+down) * time.Minute)},
	}
}

func TestDailySummariesAddUp(t *testing.T) {
	var samples []models.Sample
	samples = append(samples, dayOfCycles(1, 30, 10)...)
	samples = append(samples, dayOfCycles(2, 20, 20)...)
	samples = append(samples, dayOfCycles(4, 45, 5)...)

	daily := DailySummaries(samples, nil)
	if len(daily) != 3 {
		t.Fatalf("Expected 3 days, got %d", len(daily))
	}
	if daily[0].Date.String() != "2024-10-01" || daily[2].Date.String() != "2024-10-04" {
		t.Errorf("Days not in order: %v", daily)
	}

	var up, down float64
	for _, d := range daily {
		up += d.Summary.UptimeMinutes
		down += d.Summary.DowntimeMinutes
	}
	total := Reduce(samples)
	if up != total.UptimeMinutes || down != total.DowntimeMinutes {
		t.Errorf("Daily sums (%.2f, %.2f) differ from Reduce %+v", up, down, total)
	}

	if daily[1].Summary.UptimeMinutes != 20 || daily[1].Summary.DowntimeMinutes != 20 {
		t.Errorf("Unexpected day two %+v", daily[1].Summary)
	}
}

func TestDailySummariesMidnightPair(t *testing.T) {
	// The stop at 23:55 and the restart at 00:05 belong to the first day
	samples := []models.Sample{
		{SignalValue: 0, ProgramIdentifier: partA, CycleDuration: 3, Timestamp: time.Date(2024, time.October, 1, 23, 55, 0, 0, time.UTC)},
		{SignalValue: 1, ProgramIdentifier: partA, Timestamp: time.Date(2024, time.October, 2, 0, 5, 0, 0, time.UTC)},
	}

	daily := DailySummaries(samples, nil)
	if len(daily) != 2 {
		t.Fatalf("Expected 2 days, got %d", len(daily))
	}
	if daily[0].Summary.DowntimeMinutes != 10 || daily[0].Summary.UptimeMinutes != 3 {
		t.Errorf("Expected (3, 10) on day one, got %+v", daily[0].Summary)
	}
	if daily[1].Summary.TotalMinutes() != 0 {
		t.Errorf("Expected an empty second day, got %+v", daily[1].Summary)
	}
}

func TestCalculateUptimeTrendImproving(t *testing.T) {
	var samples []models.Sample
	for day := 1; day <= 5; day++ {
		up := float64(40 + 10*day) // 50%..90% of 100 minutes
		samples = append(samples, dayOfCycles(day, up, 100-up)...)
	}

	trend, err := CalculateUptimeTrend(DailySummaries(samples, nil))
	if err != nil {
		t.Fatalf("CalculateUptimeTrend failed: %v", err)
	}

	if math.Abs(trend.SlopePerDay-10) > 1e-6 {
		t.Errorf("Expected +10 points/day, got %.4f", trend.SlopePerDay)
	}
	if trend.Direction != "improving" {
		t.Errorf("Expected improving, got %s", trend.Direction)
	}
	if trend.RSquared < 0.99 {
		t.Errorf("Expected a near-perfect fit, got R²=%.3f", trend.RSquared)
	}
	if math.Abs(trend.PredictedNextDay-100) > 1e-6 {
		t.Errorf("Expected prediction clamped to 100, got %.2f", trend.PredictedNextDay)
	}
	if trend.Days != 5 {
		t.Errorf("Expected 5 days, got %d", trend.Days)
	}
}

func TestCalculateUptimeTrendStableAndDeclining(t *testing.T) {
	var steady, falling []models.Sample
	for day := 1; day <= 4; day++ {
		steady = append(steady, dayOfCycles(day, 60, 40)...)
		up := float64(80 - 15*day)
		falling = append(falling, dayOfCycles(day, up, 100-up)...)
	}

	trend, err := CalculateUptimeTrend(DailySummaries(steady, nil))
	if err != nil {
		t.Fatalf("CalculateUptimeTrend failed: %v", err)
	}
	if trend.Direction != "stable" || trend.Variation != 0 {
		t.Errorf("Expected stable with no variation, got %+v", trend)
	}

	trend, err = CalculateUptimeTrend(DailySummaries(falling, nil))
	if err != nil {
		t.Fatalf("CalculateUptimeTrend failed: %v", err)
	}
	if trend.Direction != "declining" {
		t.Errorf("Expected declining, got %s", trend.Direction)
	}
}

func TestCalculateUptimeTrendInsufficientData(t *testing.T) {
	samples := append(dayOfCycles(1, 30, 10), dayOfCycles(2, 30, 10)...)
	if _, err := CalculateUptimeTrend(DailySummaries(samples, nil)); err == nil {
		t.Error("Expected error for two active days")
	}
}

func TestLinearRegression(t *testing.T) {
	x := []float64{0, 1, 2, 3}
	y := []float64{1, 3, 5, 7}

	slope, intercept, r2 := linearRegression(x, y)
	if slope != 2 || intercept != 1 || r2 != 1 {
		t.Errorf("Expected (2, 1, 1), got (%v, %v, %v)", slope, intercept, r2)
	}

	slope, intercept, _ = linearRegression([]float64{2, 2}, []float64{4, 6})
	if slope != 0 || intercept != 5 {
		t.Errorf("Expected flat line at mean for constant x, got (%v, %v)", slope, intercept)
	}
}

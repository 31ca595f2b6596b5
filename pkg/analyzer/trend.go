package analyzer

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
)

// MinTrendDays is the number of days with activity needed to fit a trend
const MinTrendDays = 3

// trendThreshold is the slope, in percentage points per day, below which
// the uptime share counts as stable
const trendThreshold = 1.0

// DailySummaries splits Reduce by calendar day. Every pair is credited to
// the date of its first sample, so the days add up to Reduce(samples).
// Each date that holds a sample gets an entry, in ascending order.
func DailySummaries(samples []models.Sample, loc *time.Location) []models.DailySummary {
	byDate := make(map[models.Date]*models.UptimeDowntime)

	dateOf := func(t time.Time) models.Date {
		if loc != nil {
			t = t.In(loc)
		}
		return models.DateOf(t)
	}

	for _, s := range samples {
		d := dateOf(s.Timestamp)
		if _, ok := byDate[d]; !ok {
			byDate[d] = &models.UptimeDowntime{}
		}
	}

	for i := 0; i < len(samples)-1; i++ {
		cur := samples[i]
		if cur.SignalValue != models.SignalStopped {
			continue
		}
		day := byDate[dateOf(cur.Timestamp)]
		day.UptimeMinutes += cur.CycleDuration
		if samples[i+1].SignalValue == models.SignalRunning {
			day.DowntimeMinutes += samples[i+1].Timestamp.Sub(cur.Timestamp).Minutes()
		}
	}

	daily := make([]models.DailySummary, 0, len(byDate))
	for d, summary := range byDate {
		daily = append(daily, models.DailySummary{Date: d, Summary: *summary})
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date.Before(daily[j].Date) })
	return daily
}

// CalculateUptimeTrend fits a line through the uptime percentage of each day
// that recorded any uptime or downtime
func CalculateUptimeTrend(daily []models.DailySummary) (*models.UptimeTrend, error) {
	var active []models.DailySummary
	for _, d := range daily {
		if d.Summary.TotalMinutes() > 0 {
			active = append(active, d)
		}
	}
	if len(active) < MinTrendDays {
		return nil, fmt.Errorf("insufficient data for trend analysis (need %d+ active days, got %d)",
			MinTrendDays, len(active))
	}

	first := dayStart(active[0].Date)
	x := make([]float64, len(active)) // days since the first active day
	y := make([]float64, len(active)) // uptime percentage
	for i, d := range active {
		x[i] = dayStart(d.Date).Sub(first).Hours() / 24
		y[i] = d.Summary.UptimePercentage()
	}

	slope, intercept, r2 := linearRegression(x, y)

	direction := "stable"
	if slope > trendThreshold {
		direction = "improving"
	} else if slope < -trendThreshold {
		direction = "declining"
	}

	predicted := slope*(x[len(x)-1]+1) + intercept
	predicted = math.Max(0, math.Min(100, predicted))

	return &models.UptimeTrend{
		Days:             len(active),
		SlopePerDay:      slope,
		RSquared:         r2,
		Variation:        calculateCoefficientOfVariation(y),
		Direction:        direction,
		PredictedNextDay: predicted,
	}, nil
}

func dayStart(d models.Date) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// linearRegression performs simple linear regression
// Returns: slope, intercept, R² (coefficient of determination)
func linearRegression(x, y []float64) (slope, intercept, r2 float64) {
	if len(x) == 0 {
		return 0, 0, 0
	}

	meanX := calculateAverage(x)
	meanY := calculateAverage(y)

	numerator := 0.0
	denominator := 0.0
	for i := 0; i < len(x); i++ {
		numerator += (x[i] - meanX) * (y[i] - meanY)
		denominator += (x[i] - meanX) * (x[i] - meanX)
	}

	if denominator == 0 {
		return 0, meanY, 0
	}

	slope = numerator / denominator
	intercept = meanY - slope*meanX

	ssTotal := 0.0
	ssRes := 0.0
	for i := 0; i < len(x); i++ {
		predicted := slope*x[i] + intercept
		ssRes += (y[i] - predicted) * (y[i] - predicted)
		ssTotal += (y[i] - meanY) * (y[i] - meanY)
	}

	if ssTotal == 0 {
		r2 = 0
	} else {
		r2 = 1.0 - (ssRes / ssTotal)
	}

	// Clamp R² between 0 and 1
	if r2 < 0 {
		r2 = 0
	} else if r2 > 1 {
		r2 = 1
	}

	return slope, intercept, r2
}

func calculateCoefficientOfVariation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	mean := calculateAverage(values)
	if mean == 0 {
		return 0
	}

	sumSquaredDiff := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}

	return math.Sqrt(sumSquaredDiff/float64(len(values))) / mean
}

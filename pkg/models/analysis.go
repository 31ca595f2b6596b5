package models

import (
	"encoding/json"
	"sort"
	"time"
)

// UptimeDowntime is the reducer output, in minutes
type UptimeDowntime struct {
	UptimeMinutes   float64 `json:"uptime_minutes"`
	DowntimeMinutes float64 `json:"downtime_minutes"`
}

// TotalMinutes returns uptime plus downtime
func (u UptimeDowntime) TotalMinutes() float64 {
	return u.UptimeMinutes + u.DowntimeMinutes
}

// UptimePercentage returns uptime as a share of the total, or 0 for an empty total
func (u UptimeDowntime) UptimePercentage() float64 {
	total := u.TotalMinutes()
	if total <= 0 {
		return 0
	}
	return u.UptimeMinutes / total * 100
}

// DowntimePercentage is the complement of UptimePercentage, or 0 for an empty total
func (u UptimeDowntime) DowntimePercentage() float64 {
	if u.TotalMinutes() <= 0 {
		return 0
	}
	return 100 - u.UptimePercentage()
}

// MarshalJSON adds the derived percentages
func (u UptimeDowntime) MarshalJSON() ([]byte, error) {
	type plain UptimeDowntime
	return json.Marshal(struct {
		plain
		UptimePercentage   float64 `json:"uptime_percentage"`
		DowntimePercentage float64 `json:"downtime_percentage"`
	}{plain(u), u.UptimePercentage(), u.DowntimePercentage()})
}

// RunCountMatrix is a sparse program x date table of sample counts.
// Absent cells read as zero.
type RunCountMatrix struct {
	counts map[string]map[Date]int
}

// NewRunCountMatrix creates an empty matrix
func NewRunCountMatrix() *RunCountMatrix {
	return &RunCountMatrix{counts: make(map[string]map[Date]int)}
}

// Add increments the cell for program and date by n
func (m *RunCountMatrix) Add(program string, date Date, n int) {
	row, ok := m.counts[program]
	if !ok {
		row = make(map[Date]int)
		m.counts[program] = row
	}
	row[date] += n
}

// Count returns the cell value, 0 when absent
func (m *RunCountMatrix) Count(program string, date Date) int {
	return m.counts[program][date]
}

// Programs returns program names in ascending order
func (m *RunCountMatrix) Programs() []string {
	programs := make([]string, 0, len(m.counts))
	for p := range m.counts {
		programs = append(programs, p)
	}
	sort.Strings(programs)
	return programs
}

// Dates returns the distinct dates present in the matrix, ascending
func (m *RunCountMatrix) Dates() []Date {
	seen := make(map[Date]struct{})
	for _, row := range m.counts {
		for d := range row {
			seen[d] = struct{}{}
		}
	}
	dates := make([]Date, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Len returns the number of non-empty cells
func (m *RunCountMatrix) Len() int {
	n := 0
	for _, row := range m.counts {
		n += len(row)
	}
	return n
}

// Total returns the sum of all cells
func (m *RunCountMatrix) Total() int {
	total := 0
	for _, row := range m.counts {
		for _, c := range row {
			total += c
		}
	}
	return total
}

// MarshalJSON encodes the matrix as {"PROGRAM": {"YYYY-MM-DD": n}}
func (m *RunCountMatrix) MarshalJSON() ([]byte, error) {
	out := make(map[string]map[string]int, len(m.counts))
	for program, row := range m.counts {
		cells := make(map[string]int, len(row))
		for d, c := range row {
			cells[d.String()] = c
		}
		out[program] = cells
	}
	return json.Marshal(out)
}

// CycleStats describes the cycle durations credited to uptime
type CycleStats struct {
	Count   int     `json:"count"`
	Min     float64 `json:"min"`
	Average float64 `json:"average"`
	P50     float64 `json:"p50"`
	P95     float64 `json:"p95"`
	Max     float64 `json:"max"`
}

// DataQuality counts the local data issues seen while analyzing a window
type DataQuality struct {
	Samples                int  `json:"samples"`
	UnknownProgramSamples  int  `json:"unknown_program_samples"`
	DroppedSamples         int  `json:"dropped_samples"`
	OutOfDomainSignals     int  `json:"out_of_domain_signals"`
	NegativeCycleDuration  int  `json:"negative_cycle_durations"`
	NonFiniteCycleDuration int  `json:"non_finite_cycle_durations"` // NaN or infinite, counted as 0
	Reordered              bool `json:"reordered"`
}

// DailySummary is the reducer output for pairs whose first sample falls on Date
type DailySummary struct {
	Date    Date           `json:"date"`
	Summary UptimeDowntime `json:"summary"`
}

// UptimeTrend fits a line through the daily uptime percentages
type UptimeTrend struct {
	Days             int     `json:"days"`
	SlopePerDay      float64 `json:"slope_per_day"` // percentage points
	RSquared         float64 `json:"r_squared"`     // goodness of fit
	Variation        float64 `json:"variation"`     // coefficient of variation
	Direction        string  `json:"direction"`     // improving, declining, stable
	PredictedNextDay float64 `json:"predicted_next_day"`
}

// Analysis is the result of one query. It is built per request and never stored.
type Analysis struct {
	ID          string          `json:"id"`
	Source      string          `json:"source"`
	Window      QueryWindow     `json:"window"`
	Summary     UptimeDowntime  `json:"summary"`
	RunCounts   *RunCountMatrix `json:"run_counts"`
	CycleStats  *CycleStats     `json:"cycle_stats,omitempty"`
	Daily       []DailySummary  `json:"daily"`
	Trend       *UptimeTrend    `json:"trend,omitempty"`
	Quality     DataQuality     `json:"data_quality"`
	GeneratedAt time.Time       `json:"generated_at"`
}

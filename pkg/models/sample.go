package models

import (
	"fmt"
	"time"
)

// Signal values reported by the machine controller
const (
	SignalStopped = 0
	SignalRunning = 1

	// SignalUnknown marks a reading that could not be represented as an integer
	SignalUnknown = -1
)

// Sample represents one timestamped machine-state observation
type Sample struct {
	SignalValue       int       `json:"signal_value"`
	ProgramIdentifier string    `json:"program_identifier"`
	CycleDuration     float64   `json:"cycle_duration_minutes"`
	Timestamp         time.Time `json:"timestamp"`
}

// InDomain reports whether the signal is 0 or 1
func (s Sample) InDomain() bool {
	return s.SignalValue == SignalStopped || s.SignalValue == SignalRunning
}

// Date is a calendar date without time-of-day
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf truncates t to its calendar date in t's own location
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText encodes the date as YYYY-MM-DD
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Before reports whether d is earlier than other
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// QueryWindow is the operator-selected time window
type QueryWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// Raw inputs, kept for the chart title
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
}

// Title echoes the window the way the dashboard chart does
func (w QueryWindow) Title() string {
	startTime := w.StartTime
	if startTime == "" {
		startTime = "00:00"
	}
	endTime := w.EndTime
	if endTime == "" {
		endTime = "23:59"
	}
	return fmt.Sprintf("Uptime/Downtime from %s to %s (%s - %s)",
		w.StartDate, w.EndDate, startTime, endTime)
}

// Package query turns the dashboard's four inputs into an absolute time window.
package query

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
)

// ErrInvalidWindow is returned for malformed or inverted windows
var ErrInvalidWindow = errors.New("invalid query window")

const (
	dayStart = "00:00:00"
	dayEnd   = "23:59:59"
)

// BuildWindow combines dates (YYYY-MM-DD) and optional times (HH:MM) in loc.
// A missing start time means 00:00:00 and a missing end time 23:59:59.
// An empty endDate reuses startDate.
func BuildWindow(startDate, endDate, startTime, endTime string, loc *time.Location) (models.QueryWindow, error) {
	if loc == nil {
		loc = time.Local
	}

	startDate = strings.TrimSpace(startDate)
	endDate = strings.TrimSpace(endDate)
	startTime = strings.TrimSpace(startTime)
	endTime = strings.TrimSpace(endTime)

	if startDate == "" {
		return models.QueryWindow{}, fmt.Errorf("%w: start date is required", ErrInvalidWindow)
	}
	if endDate == "" {
		endDate = startDate
	}

	start, err := combine(startDate, startTime, dayStart, loc)
	if err != nil {
		return models.QueryWindow{}, err
	}
	end, err := combine(endDate, endTime, dayEnd, loc)
	if err != nil {
		return models.QueryWindow{}, err
	}

	if end.Before(start) {
		return models.QueryWindow{}, fmt.Errorf("%w: start %s is after end %s",
			ErrInvalidWindow, start.Format(time.DateTime), end.Format(time.DateTime))
	}

	return models.QueryWindow{
		Start:     start,
		End:       end,
		StartDate: startDate,
		EndDate:   endDate,
		StartTime: startTime,
		EndTime:   endTime,
	}, nil
}

func combine(date, clock, fallback string, loc *time.Location) (time.Time, error) {
	full := fallback
	if clock != "" {
		if _, err := time.Parse("15:04", clock); err != nil {
			return time.Time{}, fmt.Errorf("%w: time %q is not HH:MM", ErrInvalidWindow, clock)
		}
		full = clock + ":00"
	}

	t, err := time.ParseInLocation(time.DateTime, date+" "+full, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidWindow, date)
	}
	return t, nil
}

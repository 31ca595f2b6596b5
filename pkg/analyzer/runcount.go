package analyzer

import (
	"fmt"
	"strings"
	"time"

	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
)

// DefaultJobMarker precedes the program name in a controller job path
const DefaultJobMarker = "//CNC_MEM/USER/JOB/"

// DefaultUnknownLabel is the row used for samples without a program name
const DefaultUnknownLabel = "(unknown)"

// MissingProgramPolicy decides what happens to samples whose identifier
// carries no program name
type MissingProgramPolicy string

const (
	MissingBucket MissingProgramPolicy = "unknown"
	MissingDrop   MissingProgramPolicy = "drop"
)

// ParseMissingProgramPolicy validates a policy name
func ParseMissingProgramPolicy(s string) (MissingProgramPolicy, error) {
	switch p := MissingProgramPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case MissingBucket, MissingDrop:
		return p, nil
	case "":
		return MissingBucket, nil
	default:
		return "", fmt.Errorf("unknown missing-program policy %q (want unknown or drop)", s)
	}
}

// AggregateOptions controls program extraction and date bucketing
type AggregateOptions struct {
	Marker       string
	Missing      MissingProgramPolicy
	UnknownLabel string

	// Location converts timestamps before truncating to a date.
	// Nil keeps each timestamp in the location it was loaded with.
	Location *time.Location
}

func (o AggregateOptions) withDefaults() AggregateOptions {
	if o.Marker == "" {
		o.Marker = DefaultJobMarker
	}
	if o.Missing == "" {
		o.Missing = MissingBucket
	}
	if o.UnknownLabel == "" {
		o.UnknownLabel = DefaultUnknownLabel
	}
	return o
}

// ExtractProgramName returns everything after the first occurrence of marker.
// It reports false when the marker is absent or nothing follows it.
func ExtractProgramName(identifier, marker string) (string, bool) {
	if marker == "" {
		marker = DefaultJobMarker
	}
	idx := strings.Index(identifier, marker)
	if idx < 0 {
		return "", false
	}
	name := strings.TrimSuffix(identifier[idx+len(marker):], "\n")
	if name == "" || strings.Contains(name, "\n") {
		return "", false
	}
	return name, true
}

// Aggregate counts samples per (program, calendar date).
// The counts are of samples, not of distinct job executions.
func Aggregate(samples []models.Sample, opts AggregateOptions) *models.RunCountMatrix {
	opts = opts.withDefaults()
	matrix := models.NewRunCountMatrix()

	for _, s := range samples {
		program, ok := ExtractProgramName(s.ProgramIdentifier, opts.Marker)
		if !ok {
			if opts.Missing == MissingDrop {
				continue
			}
			program = opts.UnknownLabel
		}

		ts := s.Timestamp
		if opts.Location != nil {
			ts = ts.In(opts.Location)
		}
		matrix.Add(program, models.DateOf(ts), 1)
	}

	return matrix
}

// CountUnmatched returns how many samples carry no extractable program name
func CountUnmatched(samples []models.Sample, marker string) int {
	n := 0
	for _, s := range samples {
		if _, ok := ExtractProgramName(s.ProgramIdentifier, marker); !ok {
			n++
		}
	}
	return n
}

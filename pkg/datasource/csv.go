package datasource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
)

// CSVHeader is the column layout of sample exports
var CSVHeader = []string{"cnc_value", "program_name", "cycle_time", "timestamp"}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// CSVSource reads samples from a CSV export of the machine table.
// Rows are returned in file order so ordering problems stay visible.
type CSVSource struct {
	path     string
	location *time.Location
}

// NewCSVSource creates a source for path. Timestamps without a zone are read in loc.
func NewCSVSource(path string, loc *time.Location) *CSVSource {
	if loc == nil {
		loc = time.Local
	}
	return &CSVSource{path: path, location: loc}
}

func (c *CSVSource) Name() string { return "csv:" + c.path }

// Ping checks that the file can be opened
func (c *CSVSource) Ping(ctx context.Context) error {
	f, err := os.Open(c.path)
	if err != nil {
		return err
	}
	return f.Close()
}

// LoadSamples reads the file and keeps rows inside [start, end]
func (c *CSVSource) LoadSamples(ctx context.Context, start, end time.Time) ([]models.Sample, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", c.path, err)
	}
	defer f.Close()

	samples, err := ReadCSV(f, c.location)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return filterWindow(samples, start, end), nil
}

// ReadCSV parses every row of r. A header row matching CSVHeader is skipped.
func ReadCSV(r io.Reader, loc *time.Location) ([]models.Sample, error) {
	if loc == nil {
		loc = time.Local
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(CSVHeader)
	reader.TrimLeadingSpace = true

	var samples []models.Sample
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if line == 1 && isHeader(record) {
			continue
		}

		sample, err := parseRecord(record, loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		samples = append(samples, sample)
	}

	return samples, nil
}

// WriteCSV writes samples in the layout ReadCSV expects
func WriteCSV(w io.Writer, samples []models.Sample) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, s := range samples {
		row := []string{
			strconv.Itoa(s.SignalValue),
			s.ProgramIdentifier,
			strconv.FormatFloat(s.CycleDuration, 'f', -1, 64),
			s.Timestamp.Format(time.RFC3339Nano),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func isHeader(record []string) bool {
	return strings.EqualFold(strings.TrimSpace(record[0]), CSVHeader[0])
}

func parseRecord(record []string, loc *time.Location) (models.Sample, error) {
	signal, err := strconv.Atoi(strings.TrimSpace(record[0]))
	if err != nil {
		return models.Sample{}, fmt.Errorf("invalid cnc_value %q: %w", record[0], err)
	}

	var cycle float64
	if raw := strings.TrimSpace(record[2]); raw != "" {
		cycle, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return models.Sample{}, fmt.Errorf("invalid cycle_time %q: %w", record[2], err)
		}
		if math.IsNaN(cycle) || math.IsInf(cycle, 0) {
			return models.Sample{}, fmt.Errorf("invalid cycle_time %q: not a finite number", record[2])
		}
	}

	ts, err := parseTimestamp(strings.TrimSpace(record[3]), loc)
	if err != nil {
		return models.Sample{}, err
	}

	return models.Sample{
		SignalValue:       signal,
		ProgramIdentifier: record[1],
		CycleDuration:     cycle,
		Timestamp:         ts,
	}, nil
}

func parseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}

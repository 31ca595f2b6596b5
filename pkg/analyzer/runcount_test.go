package analyzer

import (
	"math/rand"
	"testing"
	"time"

	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
)

func TestExtractProgramName(t *testing.T) {
	tests := []struct {
		identifier string
		wantName   string
		wantOK     bool
	}{
		{"//CNC_MEM/USER/JOB/X", "X", true},
		{"//CNC_MEM/USER/JOB/PARTA", "PARTA", true},
		{"//CNC_MEM/USER/JOB/SUB/DIR/P1.NC", "SUB/DIR/P1.NC", true},
		{"DEV://CNC_MEM/USER/JOB/O1234", "O1234", true},
		{"//CNC_MEM/USER/JOB/A//CNC_MEM/USER/JOB/B", "A//CNC_MEM/USER/JOB/B", true},
		{"//CNC_MEM/USER/JOB/", "", false},
		{"//CNC_MEM/USER/PARTA", "", false},
		{"PARTA", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		name, ok := ExtractProgramName(tt.identifier, DefaultJobMarker)
		if name != tt.wantName || ok != tt.wantOK {
			t.Errorf("ExtractProgramName(%q) = (%q, %v), want (%q, %v)",
				tt.identifier, name, ok, tt.wantName, tt.wantOK)
		}
	}
}

func TestExtractProgramNameCustomMarker(t *testing.T) {
	name, ok := ExtractProgramName("MEM:/PROG/O100", "/PROG/")
	if !ok || name != "O100" {
		t.Errorf("Expected O100, got (%q, %v)", name, ok)
	}

	// Empty marker falls back to the controller default
	name, ok = ExtractProgramName(partA, "")
	if !ok || name != "PARTA" {
		t.Errorf("Expected PARTA with default marker, got (%q, %v)", name, ok)
	}
}

func TestAggregateExample(t *testing.T) {
	samples := []models.Sample{
		sample(1, partA, 0, 0),
		sample(0, partA, 5, 5*time.Minute),
		sample(1, partA, 0, 15*time.Minute),
	}

	m := Aggregate(samples, AggregateOptions{})

	if m.Len() != 1 {
		t.Fatalf("Expected exactly one cell, got %d", m.Len())
	}
	if got := m.Count("PARTA", models.DateOf(t0)); got != 3 {
		t.Errorf("Expected PARTA/%s = 3, got %d", models.DateOf(t0), got)
	}
}

func TestAggregateSingleGroup(t *testing.T) {
	var samples []models.Sample
	for i := 0; i < 42; i++ {
		samples = append(samples, sample(i%2, partA, 1, time.Duration(i)*time.Minute))
	}

	m := Aggregate(samples, AggregateOptions{})
	if m.Len() != 1 || m.Total() != 42 {
		t.Errorf("Expected one cell with 42, got %d cells totalling %d", m.Len(), m.Total())
	}
}

func TestAggregatePermutationInvariant(t *testing.T) {
	programs := []string{
		"//CNC_MEM/USER/JOB/A",
		"//CNC_MEM/USER/JOB/B",
		"//CNC_MEM/USER/JOB/C",
		"broken",
	}

	var samples []models.Sample
	for i := 0; i < 200; i++ {
		samples = append(samples, sample(i%2, programs[i%len(programs)], 1, time.Duration(i)*37*time.Minute))
	}

	want := Aggregate(samples, AggregateOptions{})

	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 5; round++ {
		shuffled := make([]models.Sample, len(samples))
		copy(shuffled, samples)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got := Aggregate(shuffled, AggregateOptions{})
		for _, p := range want.Programs() {
			for _, d := range want.Dates() {
				if got.Count(p, d) != want.Count(p, d) {
					t.Fatalf("round %d: count for %s/%s = %d, want %d", round, p, d, got.Count(p, d), want.Count(p, d))
				}
			}
		}
		if got.Len() != want.Len() {
			t.Fatalf("round %d: %d cells, want %d", round, got.Len(), want.Len())
		}
	}
}

func TestAggregateMissingProgramPolicy(t *testing.T) {
	samples := []models.Sample{
		sample(1, partA, 0, 0),
		sample(0, "garbage", 5, time.Minute),
		sample(1, "", 0, 2*time.Minute),
	}

	bucketed := Aggregate(samples, AggregateOptions{Missing: MissingBucket})
	if got := bucketed.Count(DefaultUnknownLabel, models.DateOf(t0)); got != 2 {
		t.Errorf("Expected 2 samples in %s, got %d", DefaultUnknownLabel, got)
	}

	labelled := Aggregate(samples, AggregateOptions{UnknownLabel: "N/A"})
	if got := labelled.Count("N/A", models.DateOf(t0)); got != 2 {
		t.Errorf("Expected custom label to collect 2 samples, got %d", got)
	}

	dropped := Aggregate(samples, AggregateOptions{Missing: MissingDrop})
	if dropped.Total() != 1 || len(dropped.Programs()) != 1 {
		t.Errorf("Expected only PARTA after drop, got programs %v", dropped.Programs())
	}

	if n := CountUnmatched(samples, DefaultJobMarker); n != 2 {
		t.Errorf("Expected 2 unmatched samples, got %d", n)
	}
}

func TestAggregateDates(t *testing.T) {
	loc := time.FixedZone("UTC-6", -6*3600)
	samples := []models.Sample{
		{SignalValue: 1, ProgramIdentifier: partA, Timestamp: time.Date(2024, time.October, 1, 23, 59, 0, 0, time.UTC)},
		{SignalValue: 0, ProgramIdentifier: partA, Timestamp: time.Date(2024, time.October, 2, 0, 1, 0, 0, time.UTC)},
	}

	asLoaded := Aggregate(samples, AggregateOptions{})
	if got := asLoaded.Dates(); len(got) != 2 {
		t.Fatalf("Expected two dates in the loaded location, got %v", got)
	}

	shifted := Aggregate(samples, AggregateOptions{Location: loc})
	if got := shifted.Dates(); len(got) != 1 || got[0].String() != "2024-10-01" {
		t.Errorf("Expected a single 2024-10-01 column in UTC-6, got %v", got)
	}
}

func TestAggregateEmpty(t *testing.T) {
	m := Aggregate(nil, AggregateOptions{})
	if m.Len() != 0 || len(m.Programs()) != 0 || len(m.Dates()) != 0 {
		t.Errorf("Expected empty matrix, got %d cells", m.Len())
	}
}

func TestParseMissingProgramPolicy(t *testing.T) {
	for in, want := range map[string]MissingProgramPolicy{"": MissingBucket, "unknown": MissingBucket, "DROP": MissingDrop} {
		got, err := ParseMissingProgramPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseMissingProgramPolicy(%q) = (%q, %v), want %q", in, got, err, want)
		}
	}
	if _, err := ParseMissingProgramPolicy("null"); err == nil {
		t.Error("Expected error for unknown policy")
	}
}

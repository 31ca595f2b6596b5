package metrics

import (
	"testing"
	"time"

	"github.com/opscart/cnc-uptime-analyzer/pkg/analyzer"
	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ analyzer.Observer = (*Recorder)(nil)

func TestRecorderObserveAnalysis(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorder(reg)

	counts := models.NewRunCountMatrix()
	counts.Add("PARTA", models.Date{Year: 2024, Month: time.October, Day: 1}, 3)

	rec.ObserveAnalysis(&models.Analysis{
		Summary:   models.UptimeDowntime{UptimeMinutes: 5, DowntimeMinutes: 10},
		RunCounts: counts,
		Quality: models.DataQuality{
			Samples:               3,
			UnknownProgramSamples: 1,
			Reordered:             true,
		},
	}, 250*time.Millisecond)

	if got := testutil.ToFloat64(rec.analyses); got != 1 {
		t.Fatalf("expected analyses counter 1, got %f", got)
	}
	if got := testutil.ToFloat64(rec.samples); got != 3 {
		t.Fatalf("expected samples counter 3, got %f", got)
	}
	if got := testutil.ToFloat64(rec.quality.WithLabelValues("unknown_program")); got != 1 {
		t.Fatalf("expected unknown_program 1, got %f", got)
	}
	if got := testutil.ToFloat64(rec.quality.WithLabelValues("reordered")); got != 1 {
		t.Fatalf("expected reordered 1, got %f", got)
	}
	if got := testutil.ToFloat64(rec.uptime); got != 5 {
		t.Fatalf("expected uptime gauge 5, got %f", got)
	}
	if got := testutil.ToFloat64(rec.downtime); got != 10 {
		t.Fatalf("expected downtime gauge 10, got %f", got)
	}
	if got := testutil.ToFloat64(rec.programsSeen); got != 1 {
		t.Fatalf("expected programs gauge 1, got %f", got)
	}
	if samples := testutil.CollectAndCount(rec.loadLatency); samples != 1 {
		t.Fatalf("expected load histogram to record 1 series, got %d", samples)
	}
}

func TestRecorderObserveFailure(t *testing.T) {
	rec := NewRecorder(prometheus.NewRegistry())

	rec.ObserveFailure(analyzer.StageLoad)
	rec.ObserveFailure(analyzer.StageLoad)
	rec.ObserveFailure(analyzer.StageOrdering)

	if got := testutil.ToFloat64(rec.failures.WithLabelValues(analyzer.StageLoad)); got != 2 {
		t.Fatalf("expected 2 load failures, got %f", got)
	}
	if got := testutil.ToFloat64(rec.failures.WithLabelValues(analyzer.StageOrdering)); got != 1 {
		t.Fatalf("expected 1 ordering failure, got %f", got)
	}
}

func TestRecorderRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRecorder(reg)

	defer func() {
		if recover() == nil {
			t.Fatal("expected duplicate registration to panic")
		}
	}()
	NewRecorder(reg)
}

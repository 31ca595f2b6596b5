package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opscart/cnc-uptime-analyzer/pkg/datasource"
	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
	"github.com/sirupsen/logrus"
)

// Failure stages reported to an Observer
const (
	StageLoad     = "load"
	StageOrdering = "ordering"
)

// Options configures one Analyzer
type Options struct {
	Aggregate    AggregateOptions
	Ordering     OrderingPolicy
	QueryTimeout time.Duration
}

// DefaultOptions mirrors the dashboard's behaviour
func DefaultOptions() Options {
	return Options{
		Aggregate:    AggregateOptions{}.withDefaults(),
		Ordering:     OrderingSort,
		QueryTimeout: 30 * time.Second,
	}
}

// Observer receives the outcome of each analysis, e.g. for metrics
type Observer interface {
	ObserveAnalysis(a *models.Analysis, loadDuration time.Duration)
	ObserveFailure(stage string)
}

// Analyzer loads a window of samples and summarizes it
type Analyzer struct {
	stream   datasource.SampleStream
	opts     Options
	log      logrus.FieldLogger
	observer Observer

	now   func() time.Time
	newID func() string
}

// New creates an Analyzer reading from stream
func New(stream datasource.SampleStream, opts Options, logger logrus.FieldLogger) *Analyzer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.Ordering == "" {
		opts.Ordering = OrderingSort
	}
	opts.Aggregate = opts.Aggregate.withDefaults()

	return &Analyzer{
		stream: stream,
		opts:   opts,
		log:    logger,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

// WithObserver attaches an observer and returns the Analyzer
func (a *Analyzer) WithObserver(o Observer) *Analyzer {
	a.observer = o
	return a
}

// Analyze loads the samples for window and derives both summaries
func (a *Analyzer) Analyze(ctx context.Context, window models.QueryWindow) (*models.Analysis, error) {
	id := a.newID()
	source := datasource.NameOf(a.stream)
	log := a.log.WithFields(logrus.Fields{
		"analysis_id": id,
		"source":      source,
	})

	loadCtx := ctx
	if a.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, a.opts.QueryTimeout)
		defer cancel()
	}

	log.WithFields(logrus.Fields{
		"start": window.Start.Format(time.RFC3339),
		"end":   window.End.Format(time.RFC3339),
	}).Debug("loading samples")

	started := a.now()
	samples, err := a.stream.LoadSamples(loadCtx, window.Start, window.End)
	loadDuration := a.now().Sub(started)
	if err != nil {
		a.fail(StageLoad)
		return nil, fmt.Errorf("failed to load samples from %s: %w", source, err)
	}

	log.WithField("samples", len(samples)).Debug("samples loaded")

	analysis, err := Summarize(samples, a.opts)
	if err != nil {
		a.fail(StageOrdering)
		return nil, err
	}

	analysis.ID = id
	analysis.Source = source
	analysis.Window = window
	analysis.GeneratedAt = a.now()

	if analysis.Quality.Reordered {
		log.Warn("samples arrived out of timestamp order and were sorted")
	}
	if analysis.Quality.UnknownProgramSamples > 0 {
		log.WithField("count", analysis.Quality.UnknownProgramSamples).
			Warn("samples without a program name")
	}
	if analysis.Quality.OutOfDomainSignals > 0 {
		log.WithField("count", analysis.Quality.OutOfDomainSignals).
			Warn("samples with a signal outside {0,1} were ignored")
	}

	log.WithFields(logrus.Fields{
		"uptime_minutes":   analysis.Summary.UptimeMinutes,
		"downtime_minutes": analysis.Summary.DowntimeMinutes,
		"programs":         len(analysis.RunCounts.Programs()),
	}).Info("analysis complete")

	if a.observer != nil {
		a.observer.ObserveAnalysis(analysis, loadDuration)
	}

	return analysis, nil
}

func (a *Analyzer) fail(stage string) {
	if a.observer != nil {
		a.observer.ObserveFailure(stage)
	}
}

// Summarize applies the ordering policy and computes the summaries for
// samples already in memory. It fills everything except the request metadata.
func Summarize(samples []models.Sample, opts Options) (*models.Analysis, error) {
	if opts.Ordering == "" {
		opts.Ordering = OrderingSort
	}
	opts.Aggregate = opts.Aggregate.withDefaults()

	ordered, reordered, err := EnsureOrdered(samples, opts.Ordering)
	if err != nil {
		return nil, err
	}

	ordered, nonFinite := zeroNonFiniteCycles(ordered)

	quality := models.DataQuality{
		Samples:                len(ordered),
		NonFiniteCycleDuration: nonFinite,
		Reordered:              reordered,
	}
	for _, s := range ordered {
		if !s.InDomain() {
			quality.OutOfDomainSignals++
		}
		if s.CycleDuration < 0 {
			quality.NegativeCycleDuration++
		}
	}
	quality.UnknownProgramSamples = CountUnmatched(ordered, opts.Aggregate.Marker)
	if opts.Aggregate.Missing == MissingDrop {
		quality.DroppedSamples = quality.UnknownProgramSamples
	}

	analysis := &models.Analysis{
		Summary:   Reduce(ordered),
		RunCounts: Aggregate(ordered, opts.Aggregate),
		Daily:     DailySummaries(ordered, opts.Aggregate.Location),
		Quality:   quality,
	}

	if trend, err := CalculateUptimeTrend(analysis.Daily); err == nil {
		analysis.Trend = trend
	}

	if durations := CycleDurations(ordered); len(durations) > 0 {
		stats, err := CalculateCycleStats(durations)
		if err == nil {
			analysis.CycleStats = stats
		}
	}

	return analysis, nil
}

package datasource

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/sirupsen/logrus"
)

// PrometheusConfig names the series exported by the machine collector
type PrometheusConfig struct {
	URL          string
	SignalMetric string
	CycleMetric  string
	ProgramLabel string
	Step         time.Duration
}

func (c PrometheusConfig) withDefaults() PrometheusConfig {
	if c.SignalMetric == "" {
		c.SignalMetric = "cnc_value"
	}
	if c.CycleMetric == "" {
		c.CycleMetric = "cnc_cycle_time_minutes"
	}
	if c.ProgramLabel == "" {
		c.ProgramLabel = "program"
	}
	if c.Step <= 0 {
		c.Step = time.Minute
	}
	return c
}

// PrometheusSource builds samples from a signal series and a cycle-time
// series sharing the program label
type PrometheusSource struct {
	client v1.API
	cfg    PrometheusConfig
	log    logrus.FieldLogger
}

// NewPrometheusSource creates a source for the Prometheus server at cfg.URL
func NewPrometheusSource(cfg PrometheusConfig, logger logrus.FieldLogger) (*PrometheusSource, error) {
	client, err := api.NewClient(api.Config{
		Address: cfg.URL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &PrometheusSource{
		client: v1.NewAPI(client),
		cfg:    cfg.withDefaults(),
		log:    logger,
	}, nil
}

func (p *PrometheusSource) Name() string {
	return "prometheus"
}

// Ping runs a trivial instant query
func (p *PrometheusSource) Ping(ctx context.Context) error {
	_, _, err := p.client.Query(ctx, "vector(1)", time.Now())
	return err
}

type cycleKey struct {
	program string
	ts      model.Time
}

// LoadSamples evaluates both series over [start, end] at the configured step
func (p *PrometheusSource) LoadSamples(ctx context.Context, start, end time.Time) ([]models.Sample, error) {
	r := v1.Range{
		Start: start,
		End:   end,
		Step:  p.cfg.Step,
	}

	signal, err := p.queryRange(ctx, p.cfg.SignalMetric, r)
	if err != nil {
		return nil, fmt.Errorf("signal query failed: %w", err)
	}

	cycle, err := p.queryRange(ctx, p.cfg.CycleMetric, r)
	if err != nil {
		return nil, fmt.Errorf("cycle time query failed: %w", err)
	}

	label := model.LabelName(p.cfg.ProgramLabel)

	cycles := make(map[cycleKey]float64)
	nonFinite := 0
	for _, series := range cycle {
		program := string(series.Metric[label])
		for _, v := range series.Values {
			minutes := float64(v.Value)
			if math.IsNaN(minutes) || math.IsInf(minutes, 0) {
				minutes = 0
				nonFinite++
			}
			cycles[cycleKey{program: program, ts: v.Timestamp}] = minutes
		}
	}
	if nonFinite > 0 {
		p.log.WithField("points", nonFinite).Warn("non-finite cycle times read as 0")
	}

	var samples []models.Sample
	for _, series := range signal {
		program := string(series.Metric[label])
		for _, v := range series.Values {
			samples = append(samples, models.Sample{
				SignalValue:       signalFromFloat(float64(v.Value)),
				ProgramIdentifier: program,
				CycleDuration:     cycles[cycleKey{program: program, ts: v.Timestamp}],
				Timestamp:         v.Timestamp.Time(),
			})
		}
	}

	// Series are returned one after another; merge them into a single timeline
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})

	p.log.WithFields(logrus.Fields{
		"signal_series": len(signal),
		"cycle_series":  len(cycle),
		"samples":       len(samples),
	}).Debug("prometheus samples parsed")

	return samples, nil
}

func (p *PrometheusSource) queryRange(ctx context.Context, query string, r v1.Range) (model.Matrix, error) {
	p.log.WithFields(logrus.Fields{
		"query": query,
		"start": r.Start.Format(time.RFC3339),
		"end":   r.End.Format(time.RFC3339),
		"step":  r.Step.String(),
	}).Debug("prometheus range query")

	result, warnings, err := p.client.QueryRange(ctx, query, r)
	if err != nil {
		return nil, fmt.Errorf("prometheus query failed: %w", err)
	}

	if len(warnings) > 0 {
		p.log.WithField("warnings", warnings).Warn("prometheus returned warnings")
	}

	matrix, ok := result.(model.Matrix)
	if !ok {
		return nil, fmt.Errorf("unexpected result type: %T", result)
	}

	return matrix, nil
}

// signalFromFloat keeps integral readings and flags everything else
func signalFromFloat(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return models.SignalUnknown
	}
	return int(v)
}

package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
)

// SampleStream loads machine samples for a window.
// Samples should be ascending by timestamp and include both bounds;
// callers verify the ordering rather than trust it.
type SampleStream interface {
	LoadSamples(ctx context.Context, start, end time.Time) ([]models.Sample, error)
}

// Named is implemented by streams that can describe themselves
type Named interface {
	Name() string
}

// Pinger is implemented by streams that can check their backend
type Pinger interface {
	Ping(ctx context.Context) error
}

// Func adapts a plain function to SampleStream
type Func func(ctx context.Context, start, end time.Time) ([]models.Sample, error)

func (f Func) LoadSamples(ctx context.Context, start, end time.Time) ([]models.Sample, error) {
	return f(ctx, start, end)
}

// NameOf returns the stream's name, or its Go type when it has none
func NameOf(s SampleStream) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}

// Ping checks the stream's backend when it supports it
func Ping(ctx context.Context, s SampleStream) error {
	if p, ok := s.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Static serves a fixed slice, filtered to the requested window
type Static []models.Sample

func (s Static) LoadSamples(ctx context.Context, start, end time.Time) ([]models.Sample, error) {
	return filterWindow(s, start, end), nil
}

func (s Static) Name() string { return "static" }

func filterWindow(samples []models.Sample, start, end time.Time) []models.Sample {
	out := make([]models.Sample, 0, len(samples))
	for _, smp := range samples {
		if smp.Timestamp.Before(start) || smp.Timestamp.After(end) {
			continue
		}
		out = append(out, smp)
	}
	return out
}

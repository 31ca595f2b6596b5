package main

import (
	"errors"
	"fmt"

	"github.com/opscart/cnc-uptime-analyzer/pkg/config"
	"github.com/opscart/cnc-uptime-analyzer/pkg/datasource"
	"github.com/opscart/cnc-uptime-analyzer/pkg/storage"
	"github.com/sirupsen/logrus"
)

// ErrUnknownSource is returned for a sample source name the CLI cannot open
var ErrUnknownSource = errors.New("unknown sample source")

// openStream opens the configured sample source. The returned func releases it.
func openStream(c *config.Config, logger logrus.FieldLogger) (datasource.SampleStream, func() error, error) {
	noop := func() error { return nil }

	switch c.Source {
	case config.SourcePostgres:
		store, err := openStore(c)
		if err != nil {
			return nil, noop, err
		}
		logger.WithField("table", c.SampleTable).Debug("using PostgreSQL samples")
		return store, store.Close, nil

	case config.SourcePrometheus:
		prom, err := datasource.NewPrometheusSource(c.PrometheusConfig(), logger)
		if err != nil {
			return nil, noop, err
		}
		logger.WithField("url", c.PrometheusURL).Debug("using Prometheus samples")
		return prom, noop, nil

	case config.SourceCSV:
		loc, err := c.Location()
		if err != nil {
			return nil, noop, err
		}
		logger.WithField("path", c.CSVPath).Debug("using CSV samples")
		return datasource.NewCSVSource(c.CSVPath, loc), noop, nil

	default:
		return nil, noop, fmt.Errorf("%w: %q", ErrUnknownSource, c.Source)
	}
}

// openStore opens the PostgreSQL store for commands that write samples
func openStore(c *config.Config) (storage.Store, error) {
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}
	store, err := storage.NewPostgresStore(c.DatabaseURL, c.SampleTable)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

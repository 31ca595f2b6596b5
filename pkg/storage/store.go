package storage

import (
	"context"

	"github.com/opscart/cnc-uptime-analyzer/pkg/datasource"
	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
)

// Store is a machine sample table that can be read by window and bulk-loaded
type Store interface {
	datasource.SampleStream

	SaveSamples(ctx context.Context, samples []models.Sample) (int, error)
	Migrate(ctx context.Context) error

	Ping(ctx context.Context) error
	Close() error
}

// DefaultTable is the sample table written by the machine collector
const DefaultTable = "cnc_data"

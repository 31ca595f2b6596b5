package output

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
)

// Handler defines the interface for output formatting
type Handler interface {
	DisplayAnalysis(ctx context.Context, analysis *models.Analysis) error
	Format() string
}

// New returns the handler for format, writing to w
func New(format string, w io.Writer) (Handler, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return &TextHandler{w: w}, nil
	case "json":
		return &JSONHandler{w: w}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (want text or json)", format)
	}
}

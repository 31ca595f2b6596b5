package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
)

// JSONHandler writes the analysis as indented JSON
type JSONHandler struct {
	w   io.Writer
	now func() time.Time
}

func (h *JSONHandler) Format() string { return "json" }

func (h *JSONHandler) DisplayAnalysis(ctx context.Context, a *models.Analysis) error {
	now := time.Now
	if h.now != nil {
		now = h.now
	}

	output := map[string]interface{}{
		"title":     a.Window.Title(),
		"analysis":  a,
		"timestamp": now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(h.w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

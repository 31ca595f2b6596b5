package output

import (
	"context"
	"fmt"
	"io"

	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
)

// TextHandler prints a human-readable summary
type TextHandler struct {
	w io.Writer
}

func (h *TextHandler) Format() string { return "text" }

func (h *TextHandler) DisplayAnalysis(ctx context.Context, a *models.Analysis) error {
	w := h.w
	fmt.Fprintf(w, "=== %s ===\n\n", a.Window.Title())

	s := a.Summary
	fmt.Fprintf(w, "Uptime:   %10.2f min (%6.2f%%)\n", s.UptimeMinutes, s.UptimePercentage())
	fmt.Fprintf(w, "Downtime: %10.2f min (%6.2f%%)\n", s.DowntimeMinutes, s.DowntimePercentage())

	if cs := a.CycleStats; cs != nil {
		fmt.Fprintf(w, "Cycles:   %d (avg %.2f min, P95 %.2f min, max %.2f min)\n",
			cs.Count, cs.Average, cs.P95, cs.Max)
	}
	if tr := a.Trend; tr != nil {
		fmt.Fprintf(w, "Trend:    %s over %d days (%+.2f points/day, R² %.2f)\n",
			tr.Direction, tr.Days, tr.SlopePerDay, tr.RSquared)
	}
	fmt.Fprintln(w)

	if a.RunCounts == nil || a.RunCounts.Len() == 0 {
		_, err := fmt.Fprintln(w, "[INFO] No program runs in this window")
		return err
	}

	fmt.Fprintln(w, "Program runs per day:")
	for i, program := range a.RunCounts.Programs() {
		fmt.Fprintf(w, "%d. %s\n", i+1, program)
		for _, d := range a.RunCounts.Dates() {
			if n := a.RunCounts.Count(program, d); n > 0 {
				fmt.Fprintf(w, "   %s: %d\n", d, n)
			}
		}
	}

	q := a.Quality
	if q.UnknownProgramSamples > 0 || q.OutOfDomainSignals > 0 || q.Reordered {
		_, err := fmt.Fprintf(w, "\n[WARN] %d samples without program name, %d with signal outside 0/1, reordered: %v\n",
			q.UnknownProgramSamples, q.OutOfDomainSignals, q.Reordered)
		return err
	}
	return nil
}

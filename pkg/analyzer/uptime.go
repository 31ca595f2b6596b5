package analyzer

import (
	"math"

	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
)

// Reduce derives uptime and downtime from time-ordered samples.
//
// Each sample is examined together with its successor. A 0-valued sample
// marks the end of a cycle and credits its CycleDuration to uptime. A
// 0-valued sample followed by a 1-valued one credits the gap between their
// timestamps to downtime. The last sample is never examined on its own, so
// fewer than two samples yield zero for both. Signals other than 0 and 1
// match neither rule.
func Reduce(samples []models.Sample) models.UptimeDowntime {
	var result models.UptimeDowntime

	for i := 0; i < len(samples)-1; i++ {
		cur := samples[i]
		next := samples[i+1]

		if cur.SignalValue != models.SignalStopped {
			continue
		}

		result.UptimeMinutes += cur.CycleDuration

		if next.SignalValue == models.SignalRunning {
			result.DowntimeMinutes += next.Timestamp.Sub(cur.Timestamp).Minutes()
		}
	}

	return result
}

// zeroNonFiniteCycles replaces NaN and infinite cycle durations with 0.
// The input is copied only when such a value is present.
func zeroNonFiniteCycles(samples []models.Sample) ([]models.Sample, int) {
	var out []models.Sample
	replaced := 0
	for i, s := range samples {
		if !math.IsNaN(s.CycleDuration) && !math.IsInf(s.CycleDuration, 0) {
			continue
		}
		if out == nil {
			out = make([]models.Sample, len(samples))
			copy(out, samples)
		}
		out[i].CycleDuration = 0
		replaced++
	}
	if out == nil {
		return samples, 0
	}
	return out, replaced
}

// CycleDurations returns the durations Reduce credits to uptime, in order
func CycleDurations(samples []models.Sample) []float64 {
	var durations []float64
	for i := 0; i < len(samples)-1; i++ {
		if samples[i].SignalValue == models.SignalStopped {
			durations = append(durations, samples[i].CycleDuration)
		}
	}
	return durations
}

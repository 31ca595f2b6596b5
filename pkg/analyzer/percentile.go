package analyzer

import (
	"fmt"
	"math"
	"sort"

	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
)

// CalculateCycleStats computes min, average, P50, P95 and max of cycle durations
func CalculateCycleStats(durations []float64) (*models.CycleStats, error) {
	if len(durations) == 0 {
		return nil, fmt.Errorf("no cycle durations provided")
	}

	values := make([]float64, len(durations))
	copy(values, durations)
	sort.Float64s(values)

	return &models.CycleStats{
		Count:   len(values),
		Min:     values[0],
		Average: calculateAverage(values),
		P50:     calculatePercentile(values, 50),
		P95:     calculatePercentile(values, 95),
		Max:     values[len(values)-1],
	}, nil
}

// calculatePercentile computes the Nth percentile using linear interpolation
func calculatePercentile(sortedValues []float64, percentile float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}

	if len(sortedValues) == 1 {
		return sortedValues[0]
	}

	n := float64(len(sortedValues))
	rank := (percentile / 100.0) * (n - 1)

	lowerIndex := int(math.Floor(rank))
	upperIndex := int(math.Ceil(rank))

	if lowerIndex == upperIndex {
		return sortedValues[lowerIndex]
	}

	lowerValue := sortedValues[lowerIndex]
	upperValue := sortedValues[upperIndex]
	fraction := rank - float64(lowerIndex)

	return lowerValue + (upperValue-lowerValue)*fraction
}

// calculateAverage computes the mean of values
func calculateAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

package analyzer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
)

// OrderingPolicy decides how out-of-order samples are handled before reducing
type OrderingPolicy string

const (
	OrderingSort   OrderingPolicy = "sort"
	OrderingReject OrderingPolicy = "reject"
)

// ParseOrderingPolicy validates a policy name
func ParseOrderingPolicy(s string) (OrderingPolicy, error) {
	switch p := OrderingPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case OrderingSort, OrderingReject:
		return p, nil
	case "":
		return OrderingSort, nil
	default:
		return "", fmt.Errorf("unknown ordering policy %q (want sort or reject)", s)
	}
}

// DataOrderingError reports the first sample whose timestamp goes backwards
type DataOrderingError struct {
	Index    int
	Previous time.Time
	Current  time.Time
}

func (e *DataOrderingError) Error() string {
	return fmt.Sprintf("samples not ordered by timestamp: sample %d at %s precedes sample %d at %s",
		e.Index, e.Current.Format(time.RFC3339), e.Index-1, e.Previous.Format(time.RFC3339))
}

// CheckOrdering returns a *DataOrderingError for the first decreasing timestamp
func CheckOrdering(samples []models.Sample) error {
	for i := 1; i < len(samples); i++ {
		if samples[i].Timestamp.Before(samples[i-1].Timestamp) {
			return &DataOrderingError{
				Index:    i,
				Previous: samples[i-1].Timestamp,
				Current:  samples[i].Timestamp,
			}
		}
	}
	return nil
}

// EnsureOrdered applies policy to samples. With OrderingSort an unordered
// input is copied and stable-sorted, and reordered is true. The input slice
// is never modified.
func EnsureOrdered(samples []models.Sample, policy OrderingPolicy) (ordered []models.Sample, reordered bool, err error) {
	if err := CheckOrdering(samples); err == nil {
		return samples, false, nil
	} else if policy == OrderingReject {
		return nil, false, err
	}

	sorted := make([]models.Sample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted, true, nil
}

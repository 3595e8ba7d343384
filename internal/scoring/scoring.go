// Package scoring holds the small numeric helpers shared by the digest modules.
package scoring

import (
	"math"
	"time"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/rcliao/context-digest/internal/model"
)

const day = 24 * time.Hour

// Clamp limits v to [0,1]. NaN maps to 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// TimeWeight is 1/(1+decay*age) for an event age in days inside the window,
// 0 beyond it, and 1 for events dated after now.
func TimeWeight(at, now time.Time, periodDays int, decay float64) float64 {
	age := now.Sub(at).Hours() / 24
	if age < 0 {
		return 1
	}
	if age > float64(periodDays) {
		return 0
	}
	return Clamp(1 / (1 + decay*age))
}

// CombineScores is the weighted mean of scores, renormalised by the sum of the
// supplied weights. Missing or mismatched weights fall back to equal weighting;
// a zero weight sum yields 0.
func CombineScores(scores, weights []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	if len(weights) != len(scores) {
		weights = lo.Times(len(scores), func(int) float64 { return 1 })
	}
	total := lo.Sum(weights)
	if total == 0 {
		return 0
	}
	var sum float64
	for i, s := range scores {
		sum += s * weights[i]
	}
	return sum / total
}

// NormalizePriority maps a 1-5 priority onto (0,1]. Unset priorities are 0.5.
func NormalizePriority(p int) float64 {
	if p <= 0 {
		return 0.5
	}
	return Clamp(float64(p) / 5)
}

// MeanPriority is the mean normalised priority of the events that carry one,
// or 0.5 when none do.
func MeanPriority(events []model.Event) float64 {
	vals := lo.FilterMap(events, func(e model.Event, _ int) (float64, bool) {
		return NormalizePriority(e.Priority), e.Priority > 0
	})
	if len(vals) == 0 {
		return 0.5
	}
	return stat.Mean(vals, nil)
}

// AgeDays returns the whole days between at and now.
func AgeDays(at, now time.Time) int {
	return int(now.Sub(at) / day)
}

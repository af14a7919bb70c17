package anomaly

import (
	"fmt"

	"gridwatch/domain/core"

	"github.com/montanaflynn/stats"
)

// Threshold factor slider bounds exposed to investigators.
const (
	MinThresholdFactor = 1.5
	MaxThresholdFactor = 5.0
)

// ThresholdPolicy converts raw anomaly scores into a binary decision via a
// mean + k*std cutoff. Stateless: every scoring run recomputes its own
// threshold from that run's score distribution.
type ThresholdPolicy struct {
	Factor float64
}

// NewThresholdPolicy validates the user-tunable factor against the slider bounds.
func NewThresholdPolicy(factor float64) (ThresholdPolicy, error) {
	if factor < MinThresholdFactor || factor > MaxThresholdFactor {
		return ThresholdPolicy{}, fmt.Errorf("%w: %.2f not in [%.1f, %.1f]",
			core.ErrThresholdFactorOutOfRange, factor, MinThresholdFactor, MaxThresholdFactor)
	}
	return ThresholdPolicy{Factor: factor}, nil
}

// Threshold computes mean(scores) + k*std(scores). An empty score vector
// yields 0 by convention, not an error.
func (p ThresholdPolicy) Threshold(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	mean, _ := stats.Mean(scores)
	std, _ := stats.StandardDeviation(scores)
	return mean + p.Factor*std
}

// Mask flags scores strictly above the threshold. A score exactly equal to
// the threshold is not flagged.
func Mask(scores []float64, threshold float64) []bool {
	mask := make([]bool, len(scores))
	for i, s := range scores {
		mask[i] = s > threshold
	}
	return mask
}

// ComputeKPIs aggregates detection metrics for one run. groundTruth is nil
// when no fraud labels exist; precision/recall/F1 are then left nil.
// Percentages are on a 0-100 scale.
func ComputeKPIs(mask []bool, groundTruth []bool) KPIMetrics {
	total := len(mask)
	detected := 0
	for _, flagged := range mask {
		if flagged {
			detected++
		}
	}

	kpis := KPIMetrics{
		TotalCustomers:    total,
		AnomaliesDetected: detected,
	}
	if total > 0 {
		kpis.DetectionRate = float64(detected) / float64(total) * 100
	}

	if groundTruth == nil {
		return kpis
	}

	truePositives := 0
	trueFrauds := 0
	for i, isFraud := range groundTruth {
		if isFraud {
			trueFrauds++
			if i < len(mask) && mask[i] {
				truePositives++
			}
		}
	}

	precision := 0.0
	if detected > 0 {
		precision = float64(truePositives) / float64(detected) * 100
	}
	recall := 0.0
	if trueFrauds > 0 {
		recall = float64(truePositives) / float64(trueFrauds) * 100
	}
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	kpis.Precision = &precision
	kpis.Recall = &recall
	kpis.F1 = &f1
	return kpis
}

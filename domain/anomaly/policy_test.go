package anomaly

import (
	"errors"
	"math"
	"testing"

	"gridwatch/domain/core"
)

func TestNewThresholdPolicy_Bounds(t *testing.T) {
	if _, err := NewThresholdPolicy(3.0); err != nil {
		t.Fatalf("Factor 3.0 should be valid: %v", err)
	}
	if _, err := NewThresholdPolicy(1.4); !errors.Is(err, core.ErrThresholdFactorOutOfRange) {
		t.Errorf("Factor 1.4 should be rejected, got %v", err)
	}
	if _, err := NewThresholdPolicy(5.1); !errors.Is(err, core.ErrThresholdFactorOutOfRange) {
		t.Errorf("Factor 5.1 should be rejected, got %v", err)
	}
}

func TestThreshold_MeanPlusKStd(t *testing.T) {
	policy, _ := NewThresholdPolicy(2.0)
	scores := []float64{1, 2, 3, 4, 5}

	// mean = 3, population std = sqrt(2)
	want := 3 + 2.0*math.Sqrt(2)
	got := policy.Threshold(scores)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Threshold = %v, want %v", got, want)
	}
}

func TestThreshold_EmptyScoresIsZero(t *testing.T) {
	policy, _ := NewThresholdPolicy(3.0)
	if got := policy.Threshold(nil); got != 0 {
		t.Errorf("Empty score vector should yield threshold 0, got %v", got)
	}
}

func TestMask_StrictInequality(t *testing.T) {
	scores := []float64{1.0, 2.0, 2.0000001, 3.0}
	mask := Mask(scores, 2.0)

	want := []bool{false, false, true, true}
	for i := range want {
		if mask[i] != want[i] {
			t.Errorf("mask[%d] = %v, want %v (score %v vs threshold 2.0)", i, mask[i], want[i], scores[i])
		}
	}
}

func TestComputeKPIs_WithGroundTruth(t *testing.T) {
	// 100 customers, 10 true frauds, detector flags 8 of which 5 are frauds.
	mask := make([]bool, 100)
	truth := make([]bool, 100)
	for i := 0; i < 10; i++ {
		truth[i] = true
	}
	for i := 0; i < 5; i++ {
		mask[i] = true // true positives
	}
	for i := 50; i < 53; i++ {
		mask[i] = true // false positives
	}

	kpis := ComputeKPIs(mask, truth)

	if kpis.TotalCustomers != 100 || kpis.AnomaliesDetected != 8 {
		t.Fatalf("Counts wrong: total=%d detected=%d", kpis.TotalCustomers, kpis.AnomaliesDetected)
	}
	if kpis.DetectionRate != 8.0 {
		t.Errorf("DetectionRate = %v, want 8.0", kpis.DetectionRate)
	}
	if kpis.Precision == nil || math.Abs(*kpis.Precision-62.5) > 1e-9 {
		t.Errorf("Precision = %v, want 62.5", kpis.Precision)
	}
	if kpis.Recall == nil || math.Abs(*kpis.Recall-50.0) > 1e-9 {
		t.Errorf("Recall = %v, want 50.0", kpis.Recall)
	}
	if kpis.F1 == nil || math.Abs(*kpis.F1-2*62.5*50/(62.5+50)) > 1e-6 {
		t.Errorf("F1 = %v, want ~55.6", kpis.F1)
	}
}

func TestComputeKPIs_NoGroundTruthLeavesRatiosNil(t *testing.T) {
	kpis := ComputeKPIs([]bool{true, false}, nil)
	if kpis.Precision != nil || kpis.Recall != nil || kpis.F1 != nil {
		t.Error("Precision/recall/F1 must be nil without ground truth")
	}
	if kpis.DetectionRate != 50.0 {
		t.Errorf("DetectionRate = %v, want 50.0", kpis.DetectionRate)
	}
}

func TestComputeKPIs_NoDetectionsZeroPrecision(t *testing.T) {
	mask := []bool{false, false, false}
	truth := []bool{true, false, false}

	kpis := ComputeKPIs(mask, truth)
	if kpis.Precision == nil || *kpis.Precision != 0 {
		t.Errorf("Precision should be computed as 0, got %v", kpis.Precision)
	}
	if kpis.Recall == nil || *kpis.Recall != 0 {
		t.Errorf("Recall should be computed as 0, got %v", kpis.Recall)
	}
	if kpis.F1 == nil || *kpis.F1 != 0 {
		t.Errorf("F1 should be computed as 0, got %v", kpis.F1)
	}
}

package anomaly

import (
	"gridwatch/domain/core"
	"gridwatch/domain/customer"
	"gridwatch/domain/reading"
)

// KPIMetrics summarizes one scoring run for the presentation layer.
// Precision, recall and F1 are pointers: nil means "not computable" (no
// ground-truth fraud labels), which callers must distinguish from a
// computed zero.
type KPIMetrics struct {
	TotalCustomers    int      `json:"total_customers"`
	AnomaliesDetected int      `json:"anomalies_detected"`
	DetectionRate     float64  `json:"detection_rate"`
	Precision         *float64 `json:"precision,omitempty"`
	Recall            *float64 `json:"recall,omitempty"`
	F1                *float64 `json:"f1,omitempty"`
}

// FlaggedCustomer is one customer whose score exceeded the run threshold,
// enriched with the consumption context an investigator needs.
type FlaggedCustomer struct {
	CustomerID         core.CustomerID  `json:"customer_id"`
	ZoneCode           string           `json:"zone_code"`
	Stratum            customer.Stratum `json:"stratum"`
	ConsumptionCurrent float64          `json:"consumption_current"`
	ConsumptionPrev    float64          `json:"consumption_prev"`
	PercentChange      float64          `json:"percent_change"`
	Score              float64          `json:"anomaly_score"`
}

// FeatureImportance pairs a feature name with its standardized-space
// variance. This measures feature spread, not causal contribution to the
// anomaly score; off-diagonal covariance contributions are ignored.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Run is one completed fit-then-score batch. Immutable once created.
type Run struct {
	ID              core.RunID          `json:"run_id"`
	Period          reading.Period      `json:"period"`
	ZoneCode        string              `json:"zone_code,omitempty"`
	Features        []string            `json:"features"`
	ThresholdFactor float64             `json:"threshold_factor"`
	Threshold       float64             `json:"threshold"`
	Scores          []float64           `json:"scores"`
	CustomerIDs     []core.CustomerID   `json:"customer_ids"`
	Flagged         []FlaggedCustomer   `json:"flagged"`
	Importance      []FeatureImportance `json:"importance"`
	KPIs            KPIMetrics          `json:"kpis"`
	CreatedAt       core.Timestamp      `json:"created_at"`
}

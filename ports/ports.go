package ports

import (
	"context"

	"gridwatch/domain/anomaly"
	"gridwatch/domain/core"
	"gridwatch/domain/customer"
	"gridwatch/domain/features"
	"gridwatch/domain/reading"
)

// AnomalyDetector is the fit-then-score contract for the scoring engine.
// A detector instance is single-writer: one Fit, then any number of
// concurrent ScoreSamples/FeatureImportance calls on the fitted state.
type AnomalyDetector interface {
	// Fit learns the model from the feature matrix. A failed fit leaves the
	// detector unfitted.
	Fit(x *features.Matrix) error

	// ScoreSamples returns one non-negative anomaly score per input row, in
	// input order. Fails with core.ErrNotFitted before a successful Fit and
	// core.ErrDimensionMismatch when columns differ from fit time.
	ScoreSamples(x *features.Matrix) ([]float64, error)

	// Predict combines ScoreSamples with a strict > threshold decision.
	Predict(x *features.Matrix, threshold float64) ([]bool, []float64, error)

	// FeatureImportance returns per-feature variance in standardized space,
	// aligned with the fit-time column order.
	FeatureImportance() ([]float64, error)

	// Fitted reports whether a successful Fit has completed.
	Fitted() bool
}

// CustomerRepository provides access to customer master data.
type CustomerRepository interface {
	Save(ctx context.Context, customers []customer.Customer) error
	List(ctx context.Context) ([]customer.Customer, error)
	ListByZone(ctx context.Context, zoneCode string) ([]customer.Customer, error)
	GetByID(ctx context.Context, id core.CustomerID) (*customer.Customer, error)
}

// ReadingRepository provides access to consumption and weather history.
type ReadingRepository interface {
	SaveConsumption(ctx context.Context, readings []reading.Consumption) error
	SaveWeather(ctx context.Context, readings []reading.Weather) error
	ListConsumption(ctx context.Context) ([]reading.Consumption, error)
	ConsumptionForPeriod(ctx context.Context, period reading.Period) ([]reading.Consumption, error)
	WeatherForPeriod(ctx context.Context, period reading.Period) (*reading.Weather, error)
}

// RunRepository persists completed scoring runs for the investigative trail.
type RunRepository interface {
	Save(ctx context.Context, run *anomaly.Run) error
	GetByID(ctx context.Context, id core.RunID) (*anomaly.Run, error)
	List(ctx context.Context, limit int) ([]anomaly.Run, error)
}

package mgd

import (
	"math"

	"gridwatch/domain/core"
)

// StandardScaler centers and scales each feature to zero mean, unit
// variance. Parameters are learned once at fit time and reapplied unchanged
// at score time; refitting the scaler on a scoring batch would silently
// shift every distance.
type StandardScaler struct {
	mean  []float64
	scale []float64
}

// FitTransform learns per-column mean/std from the rows and returns the
// standardized copy. Columns with zero variance get scale 1 so constant
// features pass through centered instead of dividing by zero.
func (s *StandardScaler) FitTransform(rows [][]float64, cols int) [][]float64 {
	n := float64(len(rows))
	s.mean = make([]float64, cols)
	s.scale = make([]float64, cols)

	for j := 0; j < cols; j++ {
		sum := 0.0
		for i := range rows {
			sum += rows[i][j]
		}
		s.mean[j] = sum / n

		variance := 0.0
		for i := range rows {
			d := rows[i][j] - s.mean[j]
			variance += d * d
		}
		variance /= n

		s.scale[j] = math.Sqrt(variance)
		if s.scale[j] == 0 {
			s.scale[j] = 1
		}
	}

	return s.transform(rows, cols)
}

// Transform applies the learned parameters to new rows.
func (s *StandardScaler) Transform(rows [][]float64, cols int) ([][]float64, error) {
	if s.mean == nil {
		return nil, core.ErrNotFitted
	}
	if cols != len(s.mean) {
		return nil, core.NewDimensionMismatchError(len(s.mean), cols)
	}
	return s.transform(rows, cols), nil
}

func (s *StandardScaler) transform(rows [][]float64, cols int) [][]float64 {
	out := make([][]float64, len(rows))
	for i := range rows {
		scaled := make([]float64, cols)
		for j := 0; j < cols; j++ {
			scaled[j] = (rows[i][j] - s.mean[j]) / s.scale[j]
		}
		out[i] = scaled
	}
	return out
}

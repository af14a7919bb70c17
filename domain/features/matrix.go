package features

import (
	"fmt"
	"math"

	"gridwatch/domain/core"
)

// Matrix is a rectangular numeric feature table: one row per customer-period,
// one named column per engineered feature. Column order is authoritative and
// must match between fit and score calls. Rows stay index-aligned with the
// customer-ID slice produced alongside the matrix; imputation fills missing
// cells and never drops rows.
type Matrix struct {
	columns []string
	rows    [][]float64
}

// New builds a matrix and validates that every row has one value per column.
func New(columns []string, rows [][]float64) (*Matrix, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no feature columns", core.ErrInsufficientData)
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d",
				core.ErrNonRectangular, i, len(row), len(columns))
		}
	}
	return &Matrix{columns: columns, rows: rows}, nil
}

// Columns returns the ordered feature names.
func (m *Matrix) Columns() []string {
	return m.columns
}

// NumRows returns the number of rows.
func (m *Matrix) NumRows() int {
	return len(m.rows)
}

// NumCols returns the number of feature columns.
func (m *Matrix) NumCols() int {
	return len(m.columns)
}

// At returns the value at row i, column j.
func (m *Matrix) At(i, j int) float64 {
	return m.rows[i][j]
}

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []float64 {
	out := make([]float64, len(m.rows[i]))
	copy(out, m.rows[i])
	return out
}

// Column returns a copy of the named column's values.
func (m *Matrix) Column(name string) ([]float64, error) {
	idx := -1
	for j, col := range m.columns {
		if col == name {
			idx = j
			break
		}
	}
	if idx == -1 {
		return nil, core.NewFeatureNotFoundError(name)
	}
	out := make([]float64, len(m.rows))
	for i, row := range m.rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Select projects the matrix onto the given ordered feature subset. The
// caller's list is authoritative: output column order follows it exactly,
// and an unknown name is an error rather than a silent skip.
func (m *Matrix) Select(columns []string) (*Matrix, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: empty feature selection", core.ErrInsufficientData)
	}

	indices := make([]int, len(columns))
	for k, name := range columns {
		idx := -1
		for j, col := range m.columns {
			if col == name {
				idx = j
				break
			}
		}
		if idx == -1 {
			return nil, core.NewFeatureNotFoundError(name)
		}
		indices[k] = idx
	}

	rows := make([][]float64, len(m.rows))
	for i, row := range m.rows {
		projected := make([]float64, len(indices))
		for k, idx := range indices {
			projected[k] = row[idx]
		}
		rows[i] = projected
	}

	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Matrix{columns: cols, rows: rows}, nil
}

// ColumnMeans computes per-column means ignoring NaN cells. A column with no
// finite values has an undefined mean and fails with ErrAllMissingColumn;
// silently zero-filling such a column would poison every downstream score.
func (m *Matrix) ColumnMeans() ([]float64, error) {
	if len(m.rows) == 0 {
		return nil, fmt.Errorf("%w: empty matrix", core.ErrInsufficientData)
	}

	means := make([]float64, len(m.columns))
	for j, name := range m.columns {
		sum := 0.0
		count := 0
		for i := range m.rows {
			v := m.rows[i][j]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			sum += v
			count++
		}
		if count == 0 {
			return nil, core.NewAllMissingColumnError(name)
		}
		means[j] = sum / float64(count)
	}
	return means, nil
}

// Impute returns a copy of the matrix with NaN/Inf cells replaced by the
// provided per-column fill values. Row count and order are preserved.
func (m *Matrix) Impute(fill []float64) (*Matrix, error) {
	if len(fill) != len(m.columns) {
		return nil, core.NewDimensionMismatchError(len(m.columns), len(fill))
	}

	rows := make([][]float64, len(m.rows))
	for i, row := range m.rows {
		out := make([]float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				out[j] = fill[j]
			} else {
				out[j] = v
			}
		}
		rows[i] = out
	}
	return &Matrix{columns: m.columns, rows: rows}, nil
}

// HasMissing reports whether any cell is NaN or infinite.
func (m *Matrix) HasMissing() bool {
	for i := range m.rows {
		for _, v := range m.rows[i] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return true
			}
		}
	}
	return false
}

// Package regression implements the linear demand model: one-hot encoded
// segment categories plus engineered numeric features, fit by ridge
// least squares. The model is a plain exported struct so it can be
// gob-serialized into a registry artifact.
package regression

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"demand-forecast-service/internal/core/domain"
)

// DefaultRidge keeps the normal equations positive definite when one-hot
// columns are collinear with the intercept or with each other.
const DefaultRidge = 1e-6

var ErrNoRows = errors.New("regression: no rows to fit")

// Model predicts monthly sales for a feature row. Category levels observed
// during training get one indicator column each; unseen levels at predict
// time contribute nothing.
type Model struct {
	CategoryColumns []string
	NumericColumns  []string
	CategoryLevels  map[string][]string
	Intercept       float64
	Coefficients    []float64
	Ridge           float64
}

// Fit trains a ridge least-squares model on rows with sales_count as the
// target.
func Fit(rows []domain.FeatureRow, categoryCols, numericCols []string, ridge float64) (*Model, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	if ridge <= 0 {
		ridge = DefaultRidge
	}

	m := &Model{
		CategoryColumns: categoryCols,
		NumericColumns:  numericCols,
		CategoryLevels:  make(map[string][]string, len(categoryCols)),
		Ridge:           ridge,
	}
	for _, col := range categoryCols {
		seen := make(map[string]bool)
		levels := make([]string, 0, 4)
		for _, row := range rows {
			v := row.CategoryValue(col)
			if !seen[v] {
				seen[v] = true
				levels = append(levels, v)
			}
		}
		m.CategoryLevels[col] = levels
	}

	p := m.featureWidth() + 1 // leading intercept column
	n := len(rows)

	x := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, nil)
	for i, row := range rows {
		x.Set(i, 0, 1)
		for j, v := range m.encode(row) {
			x.Set(i, j+1, v)
		}
		y.SetVec(i, row.SalesCount)
	}

	// Solve (XᵀX + λI)β = Xᵀy.
	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	sym := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			v := xtx.At(i, j)
			if i == j {
				v += ridge
			}
			sym.SetSym(i, j, v)
		}
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, fmt.Errorf("regression: normal equations not positive definite (ridge=%g)", ridge)
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &xty); err != nil {
		return nil, fmt.Errorf("regression: solve normal equations: %w", err)
	}

	m.Intercept = beta.AtVec(0)
	m.Coefficients = make([]float64, p-1)
	for j := 1; j < p; j++ {
		m.Coefficients[j-1] = beta.AtVec(j)
	}
	return m, nil
}

// Predict returns the point estimate for one feature row.
func (m *Model) Predict(row domain.FeatureRow) float64 {
	pred := m.Intercept
	for j, v := range m.encode(row) {
		pred += m.Coefficients[j] * v
	}
	return pred
}

func (m *Model) featureWidth() int {
	w := len(m.NumericColumns)
	for _, col := range m.CategoryColumns {
		w += len(m.CategoryLevels[col])
	}
	return w
}

func (m *Model) encode(row domain.FeatureRow) []float64 {
	out := make([]float64, 0, m.featureWidth())
	for _, col := range m.CategoryColumns {
		v := row.CategoryValue(col)
		for _, level := range m.CategoryLevels[col] {
			if v == level {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		}
	}
	for _, col := range m.NumericColumns {
		out = append(out, row.NumericValue(col))
	}
	return out
}

package services

import (
	"math"

	"demand-forecast-service/internal/core/domain"
	"demand-forecast-service/internal/core/regression"
)

// zTable is the fixed normal-approximation lookup for confidence intervals.
// It is deliberately a small documented table, not an inverse CDF, so the
// same request always yields the same bounds. Confidence is clamped to
// [0.50, 0.99]; anything below the smallest bucket gets z = 1.0.
var zTable = []struct {
	confidence float64
	z          float64
}{
	{0.99, 2.58},
	{0.95, 1.96},
	{0.90, 1.64},
	{0.80, 1.28},
}

// ZValue returns the z score for a confidence level after clamping.
func ZValue(confidence float64) float64 {
	conf := math.Min(math.Max(confidence, 0.50), 0.99)
	for _, entry := range zTable {
		if conf >= entry.confidence {
			return entry.z
		}
	}
	return 1.0
}

// Forecaster generates multi-step demand forecasts by recursively feeding
// predictions back into the feature history.
type Forecaster struct {
	builder *FeatureBuilder
}

func NewForecaster(builder *FeatureBuilder) *Forecaster {
	return &Forecaster{builder: builder}
}

// Forecast predicts horizon months beyond the last row of history. History
// must be non-empty and sorted ascending by month; the caller guards that.
// Each step synthesizes the next month's feature row from the accumulated
// history (real rows first, then previously forecast ones), predicts, and
// appends the prediction as that month's sales count so later steps see it.
// The loop is strictly sequential: step n+1's inputs depend on step n.
func (f *Forecaster) Forecast(model *regression.Model, meta domain.ModelMetadata, history []domain.FeatureRow, horizon int, confidence float64) []domain.MonthlyPrediction {
	residualStd := meta.ResidualStd()
	halfWidth := ZValue(confidence) * residualStd

	working := make([]domain.FeatureRow, len(history))
	copy(working, history)

	targetMonth := working[len(working)-1].EventMonth
	results := make([]domain.MonthlyPrediction, 0, horizon)

	for step := 0; step < horizon; step++ {
		targetMonth = domain.AddMonths(targetMonth, 1)

		row := f.builder.BuildFutureRow(working, targetMonth)
		prediction := model.Predict(row)

		lower := math.Max(0, prediction-halfWidth)
		upper := math.Max(lower, prediction+halfWidth)
		results = append(results, domain.MonthlyPrediction{
			Month:   targetMonth,
			Demand:  prediction,
			LowerCI: lower,
			UpperCI: upper,
		})

		row.SalesCount = prediction
		working = append(working, row)
	}

	return results
}

package domain

import "time"

// ModelMetadata describes one trained model artifact. Version is minted by
// the registry at save time and is strictly increasing for a model name.
type ModelMetadata struct {
	Version         string             `json:"version"`
	ModelName       string             `json:"model_name"`
	TrainedAt       time.Time          `json:"trained_at"`
	Metrics         map[string]float64 `json:"metrics"`
	TrainSamples    int                `json:"train_samples"`
	TestSamples     int                `json:"test_samples"`
	TotalSamples    int                `json:"total_samples"`
	CategoryColumns []string           `json:"category_columns"`
	NumericColumns  []string           `json:"numeric_columns"`
}

// Metric keys stored in ModelMetadata.Metrics.
const (
	MetricMAE         = "mae"
	MetricRMSE        = "rmse"
	MetricResidualStd = "residual_std"
)

// ResidualStd returns the held-out residual standard deviation used for
// confidence intervals, falling back to 1.0 when the metric is missing.
func (m ModelMetadata) ResidualStd() float64 {
	if v, ok := m.Metrics[MetricResidualStd]; ok {
		return v
	}
	return 1.0
}

// MonthlyPrediction is one step of a demand forecast. Bounds are clamped so
// that UpperCI >= LowerCI >= 0.
type MonthlyPrediction struct {
	Month   time.Time `json:"month"`
	Demand  float64   `json:"demand"`
	LowerCI float64   `json:"lower_ci"`
	UpperCI float64   `json:"upper_ci"`
}

// PredictionRecord is a write-once audit entry for one served forecast. The
// core never reads these back; losing one must not fail a prediction.
type PredictionRecord struct {
	ModelVersion    string
	RequestPayload  map[string]any
	ResponsePayload map[string]any
	Segment         Segment
	HorizonMonths   int
	Confidence      float64
	WithHistory     bool
	CreatedAt       time.Time
}

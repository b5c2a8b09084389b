package services

import (
	"context"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"demand-forecast-service/internal/core/domain"
	ports "demand-forecast-service/internal/core/ports/output"
	"demand-forecast-service/internal/core/regression"
)

// TrainingService fits and versions the demand model: transactions in,
// registry write out.
type TrainingService struct {
	builder          *FeatureBuilder
	registry         ports.ModelRegistry
	features         ports.FeatureStore // optional
	minHistoryMonths int
	testFraction     float64
	ridge            float64
}

func NewTrainingService(builder *FeatureBuilder, registry ports.ModelRegistry, features ports.FeatureStore, minHistoryMonths int, testFraction float64) *TrainingService {
	if minHistoryMonths < 1 {
		minHistoryMonths = 1
	}
	if testFraction < 0 || testFraction >= 1 {
		testFraction = 0.2
	}
	return &TrainingService{
		builder:          builder,
		registry:         registry,
		features:         features,
		minHistoryMonths: minHistoryMonths,
		testFraction:     testFraction,
		ridge:            regression.DefaultRidge,
	}
}

// Train builds the feature table, fits the model on a chronological
// train/test split, evaluates on the held-out months, and persists the
// artifact plus a versioned feature snapshot. The split is a function of the
// data alone, so repeated runs over the same transactions are identical.
func (s *TrainingService) Train(ctx context.Context, txs []domain.Transaction) (domain.ModelMetadata, error) {
	rows := s.builder.BuildFeatureTable(txs)
	if len(rows) == 0 {
		return domain.ModelMetadata{}, domain.ErrNoTrainingData
	}

	months := distinctMonths(rows)
	if len(months) < s.minHistoryMonths {
		return domain.ModelMetadata{}, fmt.Errorf("%w: have %d months, need %d",
			domain.ErrInsufficientHistory, len(months), s.minHistoryMonths)
	}

	trainRows, testRows := s.split(rows, months)

	model, err := regression.Fit(trainRows, domain.CategoryColumns(), domain.NumericColumns(), s.ridge)
	if err != nil {
		return domain.ModelMetadata{}, fmt.Errorf("fit demand model: %w", err)
	}

	evalRows := testRows
	if len(evalRows) == 0 {
		evalRows = trainRows
	}
	metrics := evaluate(model, evalRows)

	meta := domain.ModelMetadata{
		TrainedAt:       time.Now().UTC(),
		Metrics:         metrics,
		TrainSamples:    len(trainRows),
		TestSamples:     len(testRows),
		TotalSamples:    len(rows),
		CategoryColumns: model.CategoryColumns,
		NumericColumns:  model.NumericColumns,
	}

	saved, err := s.registry.Save(ctx, model, meta)
	if err != nil {
		return domain.ModelMetadata{}, fmt.Errorf("save model artifact: %w", err)
	}

	if s.features != nil {
		if err := s.features.SaveSnapshot(ctx, saved.Version, rows); err != nil {
			return domain.ModelMetadata{}, fmt.Errorf("save feature snapshot for version %s: %w", saved.Version, err)
		}
	}

	log.WithFields(log.Fields{
		"version":       saved.Version,
		"train_samples": saved.TrainSamples,
		"test_samples":  saved.TestSamples,
		"residual_std":  metrics[domain.MetricResidualStd],
	}).Info("model trained")

	return saved, nil
}

// BuildFeatureTable exposes the trainer's feature derivation so callers can
// rebuild history without retraining.
func (s *TrainingService) BuildFeatureTable(txs []domain.Transaction) []domain.FeatureRow {
	return s.builder.BuildFeatureTable(txs)
}

// split holds out the trailing testFraction of distinct months. Rows arrive
// sorted, so both partitions stay chronological.
func (s *TrainingService) split(rows []domain.FeatureRow, months []time.Time) (train, test []domain.FeatureRow) {
	nTest := int(math.Ceil(s.testFraction * float64(len(months))))
	if nTest >= len(months) {
		nTest = len(months) - 1
	}
	if nTest <= 0 {
		return rows, nil
	}
	cutoff := months[len(months)-nTest]

	for _, row := range rows {
		if row.EventMonth.Before(cutoff) {
			train = append(train, row)
		} else {
			test = append(test, row)
		}
	}
	if len(train) == 0 {
		return rows, nil
	}
	return train, test
}

func distinctMonths(rows []domain.FeatureRow) []time.Time {
	months := make([]time.Time, 0, len(rows))
	var prev time.Time
	for _, row := range rows { // rows sorted by month
		if !row.EventMonth.Equal(prev) {
			months = append(months, row.EventMonth)
			prev = row.EventMonth
		}
	}
	return months
}

func evaluate(model *regression.Model, rows []domain.FeatureRow) map[string]float64 {
	var absSum, sqSum, residSum float64
	residuals := make([]float64, len(rows))
	for i, row := range rows {
		resid := row.SalesCount - model.Predict(row)
		residuals[i] = resid
		absSum += math.Abs(resid)
		sqSum += resid * resid
		residSum += resid
	}

	n := float64(len(rows))
	mean := residSum / n
	var variance float64
	for _, resid := range residuals {
		variance += (resid - mean) * (resid - mean)
	}
	variance /= n

	return map[string]float64{
		domain.MetricMAE:         absSum / n,
		domain.MetricRMSE:        math.Sqrt(sqSum / n),
		domain.MetricResidualStd: math.Sqrt(variance),
	}
}

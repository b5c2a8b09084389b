package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"demand-forecast-service/internal/core/domain"
	"demand-forecast-service/internal/testutil"
)

func twelveMonths() []domain.Transaction {
	return monthlySales(month(2024, time.January), []int{4, 6, 5, 7, 6, 8, 7, 9, 8, 10, 9, 11})
}

func TestTrain_NoTrainingData(t *testing.T) {
	registry := new(testutil.MockModelRegistry)
	svc := NewTrainingService(NewFeatureBuilder(), registry, nil, 6, 0.2)

	_, err := svc.Train(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrNoTrainingData)
	registry.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestTrain_InsufficientHistory(t *testing.T) {
	registry := new(testutil.MockModelRegistry)
	svc := NewTrainingService(NewFeatureBuilder(), registry, nil, 6, 0.2)

	_, err := svc.Train(context.Background(), monthlySales(month(2024, time.January), []int{1, 2, 3}))

	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)
	assert.Contains(t, err.Error(), "have 3 months, need 6")
	registry.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestTrain_SavesModelAndSnapshot(t *testing.T) {
	registry := new(testutil.MockModelRegistry)
	features := new(testutil.MockFeatureStore)

	var captured domain.ModelMetadata
	saved := domain.ModelMetadata{Version: "20240701120000"}
	registry.On("Save", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(2).(domain.ModelMetadata)
		}).
		Return(saved, nil)
	features.On("SaveSnapshot", mock.Anything, "20240701120000", mock.Anything).Return(nil)

	svc := NewTrainingService(NewFeatureBuilder(), registry, features, 6, 0.2)
	got, err := svc.Train(context.Background(), twelveMonths())

	assert.NoError(t, err)
	assert.Equal(t, "20240701120000", got.Version)

	// 12 monthly rows, ceil(0.2*12)=3 held-out months.
	assert.Equal(t, 12, captured.TotalSamples)
	assert.Equal(t, 9, captured.TrainSamples)
	assert.Equal(t, 3, captured.TestSamples)
	assert.Equal(t, captured.TotalSamples, captured.TrainSamples+captured.TestSamples)

	assert.Contains(t, captured.Metrics, domain.MetricMAE)
	assert.Contains(t, captured.Metrics, domain.MetricRMSE)
	assert.Contains(t, captured.Metrics, domain.MetricResidualStd)
	assert.GreaterOrEqual(t, captured.Metrics[domain.MetricRMSE], captured.Metrics[domain.MetricResidualStd])
	assert.NotEmpty(t, captured.CategoryColumns)
	assert.NotEmpty(t, captured.NumericColumns)
	assert.False(t, captured.TrainedAt.IsZero())

	registry.AssertExpectations(t)
	features.AssertExpectations(t)
}

func TestTrain_DeterministicOverSameTransactions(t *testing.T) {
	registry := new(testutil.MockModelRegistry)
	var runs []map[string]float64
	registry.On("Save", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			runs = append(runs, args.Get(2).(domain.ModelMetadata).Metrics)
		}).
		Return(domain.ModelMetadata{Version: "v"}, nil)

	svc := NewTrainingService(NewFeatureBuilder(), registry, nil, 6, 0.2)
	txs := twelveMonths()

	_, err := svc.Train(context.Background(), txs)
	assert.NoError(t, err)
	_, err = svc.Train(context.Background(), txs)
	assert.NoError(t, err)

	assert.Len(t, runs, 2)
	assert.Equal(t, runs[0], runs[1])
}

func TestTrain_SnapshotFailureIsFatal(t *testing.T) {
	registry := new(testutil.MockModelRegistry)
	features := new(testutil.MockFeatureStore)

	registry.On("Save", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.ModelMetadata{Version: "v1"}, nil)
	features.On("SaveSnapshot", mock.Anything, "v1", mock.Anything).
		Return(errors.New("copy failed"))

	svc := NewTrainingService(NewFeatureBuilder(), registry, features, 6, 0.2)
	_, err := svc.Train(context.Background(), twelveMonths())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "save feature snapshot")
}

func TestTrain_RegistryFailure(t *testing.T) {
	registry := new(testutil.MockModelRegistry)
	registry.On("Save", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.ModelMetadata{}, errors.New("disk full"))

	svc := NewTrainingService(NewFeatureBuilder(), registry, nil, 6, 0.2)
	_, err := svc.Train(context.Background(), twelveMonths())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "save model artifact")
}

func TestSplit_SingleMonthTrainsOnEverything(t *testing.T) {
	registry := new(testutil.MockModelRegistry)
	var captured domain.ModelMetadata
	registry.On("Save", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(2).(domain.ModelMetadata)
		}).
		Return(domain.ModelMetadata{Version: "v"}, nil)

	svc := NewTrainingService(NewFeatureBuilder(), registry, nil, 1, 0.2)
	_, err := svc.Train(context.Background(), monthlySales(month(2024, time.January), []int{5}))

	assert.NoError(t, err)
	assert.Equal(t, 1, captured.TrainSamples)
	assert.Equal(t, 0, captured.TestSamples)
}

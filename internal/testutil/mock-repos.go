package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"demand-forecast-service/internal/core/domain"
	"demand-forecast-service/internal/core/regression"
)

// MockModelRegistry is a mock of ports.ModelRegistry.
type MockModelRegistry struct {
	mock.Mock
}

func (m *MockModelRegistry) Save(ctx context.Context, model *regression.Model, meta domain.ModelMetadata) (domain.ModelMetadata, error) {
	args := m.Called(ctx, model, meta)
	return args.Get(0).(domain.ModelMetadata), args.Error(1)
}

func (m *MockModelRegistry) LoadLatest(ctx context.Context) (*regression.Model, domain.ModelMetadata, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, domain.ModelMetadata{}, args.Error(2)
	}
	return args.Get(0).(*regression.Model), args.Get(1).(domain.ModelMetadata), args.Error(2)
}

func (m *MockModelRegistry) LatestMetadata(ctx context.Context) (*domain.ModelMetadata, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ModelMetadata), args.Error(1)
}

// MockFeatureStore is a mock of ports.FeatureStore.
type MockFeatureStore struct {
	mock.Mock
}

func (m *MockFeatureStore) SaveSnapshot(ctx context.Context, modelVersion string, rows []domain.FeatureRow) error {
	args := m.Called(ctx, modelVersion, rows)
	return args.Error(0)
}

func (m *MockFeatureStore) LoadSnapshot(ctx context.Context, modelVersion string) ([]domain.FeatureRow, error) {
	args := m.Called(ctx, modelVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FeatureRow), args.Error(1)
}

func (m *MockFeatureStore) LoadSegmentHistory(ctx context.Context, modelVersion string, segment domain.Segment) ([]domain.FeatureRow, error) {
	args := m.Called(ctx, modelVersion, segment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FeatureRow), args.Error(1)
}

// MockPredictionStore is a mock of ports.PredictionStore.
type MockPredictionStore struct {
	mock.Mock
}

func (m *MockPredictionStore) SavePrediction(ctx context.Context, record *domain.PredictionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// MockTransactionSource is a mock of ports.TransactionSource.
type MockTransactionSource struct {
	mock.Mock
}

func (m *MockTransactionSource) LoadTransactions(ctx context.Context, start, end *time.Time) ([]domain.Transaction, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

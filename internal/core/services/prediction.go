package services

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"demand-forecast-service/internal/core/domain"
	ports "demand-forecast-service/internal/core/ports/output"
)

// defaultConfidence applies when a request leaves the confidence level out.
const defaultConfidence = 0.95

// PredictionService orchestrates the serving-side flow: resolve the latest
// model, resolve segment history, run the forecast engine, and leave an
// audit trail.
type PredictionService struct {
	source         ports.TransactionSource // optional
	trainer        *TrainingService
	forecaster     *Forecaster
	registry       ports.ModelRegistry
	features       ports.FeatureStore    // optional
	predictions    ports.PredictionStore // optional
	defaultHorizon int
}

func NewPredictionService(
	source ports.TransactionSource,
	trainer *TrainingService,
	forecaster *Forecaster,
	registry ports.ModelRegistry,
	features ports.FeatureStore,
	predictions ports.PredictionStore,
	defaultHorizon int,
) *PredictionService {
	if defaultHorizon < 1 {
		defaultHorizon = 6
	}
	return &PredictionService{
		source:         source,
		trainer:        trainer,
		forecaster:     forecaster,
		registry:       registry,
		features:       features,
		predictions:    predictions,
		defaultHorizon: defaultHorizon,
	}
}

// ForecastResult is the structured outcome handed to the serving layer.
// History is populated only by PredictWithHistory.
type ForecastResult struct {
	Predictions  []domain.MonthlyPrediction
	Segment      domain.Segment
	ModelVersion string
	TrainedAt    time.Time
	Metrics      map[string]float64
	History      []domain.FeatureRow
}

func (s *PredictionService) Predict(ctx context.Context, segment domain.Segment, horizon int, confidence float64) (*ForecastResult, error) {
	return s.predict(ctx, segment, horizon, confidence, false)
}

func (s *PredictionService) PredictWithHistory(ctx context.Context, segment domain.Segment, horizon int, confidence float64) (*ForecastResult, error) {
	return s.predict(ctx, segment, horizon, confidence, true)
}

func (s *PredictionService) predict(ctx context.Context, segment domain.Segment, horizon int, confidence float64, withHistory bool) (*ForecastResult, error) {
	if s.source == nil && s.features == nil {
		return nil, domain.ErrNoDataSource
	}
	if horizon < 1 {
		horizon = s.defaultHorizon
	}
	if confidence <= 0 {
		confidence = defaultConfidence
	}

	normalized := segment.Canonicalize()
	if normalized.Line == "" {
		return nil, domain.ErrMissingLine
	}

	model, meta, err := s.registry.LoadLatest(ctx)
	if err != nil {
		return nil, err
	}

	history, err := s.loadHistory(ctx, normalized, meta.Version)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, domain.ErrNoSegmentHistory
	}

	predictions := s.forecaster.Forecast(model, meta, history, horizon, confidence)

	result := &ForecastResult{
		Predictions:  predictions,
		Segment:      normalized,
		ModelVersion: meta.Version,
		TrainedAt:    meta.TrainedAt,
		Metrics:      meta.Metrics,
	}
	if withHistory {
		result.History = history
	}

	s.storePrediction(ctx, segment, normalized, horizon, confidence, withHistory, result)
	return result, nil
}

// Retrain pulls fresh transactions from the upstream source and runs a full
// training cycle.
func (s *PredictionService) Retrain(ctx context.Context, start, end *time.Time) (domain.ModelMetadata, error) {
	if s.source == nil {
		return domain.ModelMetadata{}, domain.ErrNoDataSource
	}
	txs, err := s.source.LoadTransactions(ctx, start, end)
	if err != nil {
		return domain.ModelMetadata{}, fmt.Errorf("load transactions: %w", err)
	}
	if len(txs) == 0 {
		return domain.ModelMetadata{}, domain.ErrNoTrainingData
	}
	return s.trainer.Train(ctx, txs)
}

// LatestMetadata is the non-fatal status lookup: (nil, nil) when no model
// has been trained yet.
func (s *PredictionService) LatestMetadata(ctx context.Context) (*domain.ModelMetadata, error) {
	return s.registry.LatestMetadata(ctx)
}

// loadHistory prefers the feature snapshot stored for the model's version
// and falls back to rebuilding the table from raw transactions on a cold
// read, re-snapshotting the rebuilt table for the next request.
func (s *PredictionService) loadHistory(ctx context.Context, segment domain.Segment, modelVersion string) ([]domain.FeatureRow, error) {
	if s.features != nil {
		history, err := s.features.LoadSegmentHistory(ctx, modelVersion, segment)
		if err != nil {
			return nil, fmt.Errorf("load segment history: %w", err)
		}
		if len(history) > 0 {
			return history, nil
		}
	}

	if s.source == nil {
		return nil, nil
	}

	txs, err := s.source.LoadTransactions(ctx, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	table := s.trainer.BuildFeatureTable(txs)
	if len(table) == 0 {
		return nil, nil
	}

	if s.features != nil {
		// Cache refresh only: a failed snapshot must not fail the forecast.
		if err := s.features.SaveSnapshot(ctx, modelVersion, table); err != nil {
			log.WithError(err).Warn("failed to refresh feature snapshot")
		}
	}

	history := make([]domain.FeatureRow, 0, 16)
	for _, row := range table {
		if row.Segment == segment {
			history = append(history, row)
		}
	}
	return history, nil
}

// storePrediction writes the audit record. Failures are logged and
// swallowed: losing an audit row must never fail a served prediction.
func (s *PredictionService) storePrediction(ctx context.Context, requested, normalized domain.Segment, horizon int, confidence float64, withHistory bool, result *ForecastResult) {
	if s.predictions == nil {
		return
	}

	predictions := make([]map[string]any, 0, len(result.Predictions))
	for _, p := range result.Predictions {
		predictions = append(predictions, map[string]any{
			"month":    p.Month.Format("2006-01-02"),
			"demand":   p.Demand,
			"lower_ci": p.LowerCI,
			"upper_ci": p.UpperCI,
		})
	}

	record := &domain.PredictionRecord{
		ModelVersion: result.ModelVersion,
		RequestPayload: map[string]any{
			"vehicle_type":   requested.VehicleType,
			"brand":          requested.Brand,
			"model":          requested.Model,
			"line":           requested.Line,
			"horizon_months": horizon,
			"confidence":     confidence,
		},
		ResponsePayload: map[string]any{
			"model_version": result.ModelVersion,
			"predictions":   predictions,
		},
		Segment:       normalized,
		HorizonMonths: horizon,
		Confidence:    confidence,
		WithHistory:   withHistory,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.predictions.SavePrediction(ctx, record); err != nil {
		log.WithError(err).Warn("failed to save prediction audit record")
	}
}

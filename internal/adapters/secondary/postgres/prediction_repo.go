package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"demand-forecast-service/internal/core/domain"
	ports "demand-forecast-service/internal/core/ports/output"
)

type predictionRepo struct {
	pool *pgxpool.Pool
}

func NewPredictionRepository(pool *pgxpool.Pool) ports.PredictionStore {
	return &predictionRepo{pool: pool}
}

// SavePrediction appends one audit row. Rows are write-once; nothing in the
// core ever reads them back.
func (r *predictionRepo) SavePrediction(ctx context.Context, record *domain.PredictionRecord) error {
	requestJSON, err := json.Marshal(record.RequestPayload)
	if err != nil {
		return fmt.Errorf("marshal request payload: %w", err)
	}
	responseJSON, err := json.Marshal(record.ResponsePayload)
	if err != nil {
		return fmt.Errorf("marshal response payload: %w", err)
	}

	query := `
		INSERT INTO ml_predictions
			(id, model_version, request_payload, response_payload,
			 vehicle_type, brand, model, line,
			 horizon_months, confidence, with_history, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`
	_, err = r.pool.Exec(ctx, query,
		uuid.New(), record.ModelVersion, requestJSON, responseJSON,
		record.Segment.VehicleType, record.Segment.Brand,
		record.Segment.Model, record.Segment.Line,
		record.HorizonMonths, record.Confidence, record.WithHistory,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert prediction record: %w", err)
	}
	return nil
}

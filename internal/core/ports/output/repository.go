package ports

import (
	"context"
	"time"

	"demand-forecast-service/internal/core/domain"
	"demand-forecast-service/internal/core/regression"
)

// ModelRegistry persists trained model artifacts keyed by a monotonically
// increasing version. Both the filesystem and the database backend satisfy
// this interface and return metadata of identical shape.
type ModelRegistry interface {
	// Save mints a new version, stores the serialized model together with
	// its metadata, and atomically moves the "latest" pointer. The pointer
	// must never reference a version whose artifact failed to write.
	Save(ctx context.Context, model *regression.Model, meta domain.ModelMetadata) (domain.ModelMetadata, error)

	// LoadLatest returns the newest saved model. It fails with
	// domain.ErrNoTrainedModel when nothing has ever been saved.
	LoadLatest(ctx context.Context) (*regression.Model, domain.ModelMetadata, error)

	// LatestMetadata is the non-fatal status lookup: (nil, nil) when no
	// model exists.
	LatestMetadata(ctx context.Context) (*domain.ModelMetadata, error)
}

// FeatureStore persists versioned snapshots of the monthly feature table.
type FeatureStore interface {
	// SaveSnapshot replaces the snapshot stored for modelVersion.
	SaveSnapshot(ctx context.Context, modelVersion string, rows []domain.FeatureRow) error

	// LoadSnapshot returns every row of a version's snapshot ordered by
	// month, or an empty slice when none exists.
	LoadSnapshot(ctx context.Context, modelVersion string) ([]domain.FeatureRow, error)

	// LoadSegmentHistory returns one canonical segment's rows ordered by
	// month, or an empty slice when the segment is absent.
	LoadSegmentHistory(ctx context.Context, modelVersion string, segment domain.Segment) ([]domain.FeatureRow, error)
}

// PredictionStore appends audit records of served forecasts.
type PredictionStore interface {
	SavePrediction(ctx context.Context, record *domain.PredictionRecord) error
}

// TransactionSource supplies the raw purchase/sale transactions used to
// build feature tables. Implementations own paging and retries.
type TransactionSource interface {
	LoadTransactions(ctx context.Context, start, end *time.Time) ([]domain.Transaction, error)
}

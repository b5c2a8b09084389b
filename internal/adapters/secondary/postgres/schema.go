package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS ml_model_artifacts (
		id          BIGSERIAL PRIMARY KEY,
		model_name  VARCHAR(128) NOT NULL,
		version     VARCHAR(32)  NOT NULL,
		metadata    JSONB        NOT NULL,
		artifact    BYTEA        NOT NULL,
		created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		CONSTRAINT uq_ml_model_artifact UNIQUE (model_name, version)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ml_model_artifacts_name_created
		ON ml_model_artifacts (model_name, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS ml_training_features (
		id                 BIGSERIAL PRIMARY KEY,
		model_version      VARCHAR(32)  NOT NULL,
		event_month        DATE         NOT NULL,
		vehicle_type       VARCHAR(32)  NOT NULL,
		brand              VARCHAR(120) NOT NULL,
		model              VARCHAR(120) NOT NULL,
		line               VARCHAR(120) NOT NULL,
		sales_count        DOUBLE PRECISION NOT NULL,
		purchases_count    DOUBLE PRECISION NOT NULL,
		avg_margin         DOUBLE PRECISION NOT NULL,
		avg_sale_price     DOUBLE PRECISION NOT NULL,
		avg_purchase_price DOUBLE PRECISION NOT NULL,
		avg_days_inventory DOUBLE PRECISION NOT NULL,
		inventory_rotation DOUBLE PRECISION NOT NULL,
		lag_1              DOUBLE PRECISION NOT NULL,
		lag_3              DOUBLE PRECISION NOT NULL,
		lag_6              DOUBLE PRECISION NOT NULL,
		rolling_mean_3     DOUBLE PRECISION NOT NULL,
		rolling_mean_6     DOUBLE PRECISION NOT NULL,
		month              INTEGER NOT NULL,
		year               INTEGER NOT NULL,
		month_sin          DOUBLE PRECISION NOT NULL,
		month_cos          DOUBLE PRECISION NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT uq_ml_training_feature UNIQUE
			(model_version, vehicle_type, brand, model, line, event_month)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ml_training_features_version
		ON ml_training_features (model_version)`,

	`CREATE TABLE IF NOT EXISTS ml_predictions (
		id               UUID PRIMARY KEY,
		model_version    VARCHAR(32) NOT NULL,
		request_payload  JSONB NOT NULL,
		response_payload JSONB NOT NULL,
		vehicle_type     VARCHAR(32),
		brand            VARCHAR(120),
		model            VARCHAR(120),
		line             VARCHAR(120),
		horizon_months   INTEGER,
		confidence       DOUBLE PRECISION,
		with_history     BOOLEAN NOT NULL DEFAULT FALSE,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ml_predictions_version
		ON ml_predictions (model_version)`,
}

// EnsureSchema creates the ML tables when auto-create is enabled. Statements
// are idempotent so repeated startups are safe.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

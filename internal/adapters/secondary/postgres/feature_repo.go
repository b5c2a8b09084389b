package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"demand-forecast-service/internal/core/domain"
	ports "demand-forecast-service/internal/core/ports/output"
)

var featureColumns = []string{
	"model_version", "event_month",
	"vehicle_type", "brand", "model", "line",
	"sales_count", "purchases_count", "avg_margin",
	"avg_sale_price", "avg_purchase_price",
	"avg_days_inventory", "inventory_rotation",
	"lag_1", "lag_3", "lag_6", "rolling_mean_3", "rolling_mean_6",
	"month", "year", "month_sin", "month_cos",
}

const featureSelectColumns = `
	event_month, vehicle_type, brand, model, line,
	sales_count, purchases_count, avg_margin,
	avg_sale_price, avg_purchase_price,
	avg_days_inventory, inventory_rotation,
	lag_1, lag_3, lag_6, rolling_mean_3, rolling_mean_6,
	month, year, month_sin, month_cos
`

type trainingFeatureRepo struct {
	pool *pgxpool.Pool
}

func NewTrainingFeatureRepository(pool *pgxpool.Pool) ports.FeatureStore {
	return &trainingFeatureRepo{pool: pool}
}

// SaveSnapshot replaces the version's snapshot in one transaction: delete
// then bulk COPY. The unique constraint on (model_version, segment, month)
// backs the one-row-per-pair invariant.
func (r *trainingFeatureRepo) SaveSnapshot(ctx context.Context, modelVersion string, rows []domain.FeatureRow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM ml_training_features WHERE model_version = $1`, modelVersion); err != nil {
		return fmt.Errorf("clear feature snapshot: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"ml_training_features"},
		featureColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			row := rows[i]
			return []any{
				modelVersion, row.EventMonth,
				row.VehicleType, row.Brand, row.Model, row.Line,
				row.SalesCount, row.PurchasesCount, row.AvgMargin,
				row.AvgSalePrice, row.AvgPurchasePrice,
				row.AvgDaysInventory, row.InventoryRotation,
				row.Lag1, row.Lag3, row.Lag6, row.RollingMean3, row.RollingMean6,
				row.Month, row.Year, row.MonthSin, row.MonthCos,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy feature snapshot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit feature snapshot: %w", err)
	}

	log.WithFields(log.Fields{"model_version": modelVersion, "rows": len(rows)}).
		Info("feature snapshot saved")
	return nil
}

func (r *trainingFeatureRepo) LoadSnapshot(ctx context.Context, modelVersion string) ([]domain.FeatureRow, error) {
	query := `SELECT ` + featureSelectColumns + `
		FROM ml_training_features
		WHERE model_version = $1
		ORDER BY event_month, vehicle_type, brand, model, line`
	pgRows, err := r.pool.Query(ctx, query, modelVersion)
	if err != nil {
		return nil, fmt.Errorf("load feature snapshot: %w", err)
	}
	defer pgRows.Close()
	return scanFeatureRows(pgRows)
}

func (r *trainingFeatureRepo) LoadSegmentHistory(ctx context.Context, modelVersion string, segment domain.Segment) ([]domain.FeatureRow, error) {
	query := `SELECT ` + featureSelectColumns + `
		FROM ml_training_features
		WHERE model_version = $1
			AND vehicle_type = $2 AND brand = $3 AND model = $4 AND line = $5
		ORDER BY event_month`
	pgRows, err := r.pool.Query(ctx, query, modelVersion,
		segment.VehicleType, segment.Brand, segment.Model, segment.Line)
	if err != nil {
		return nil, fmt.Errorf("load segment history: %w", err)
	}
	defer pgRows.Close()
	return scanFeatureRows(pgRows)
}

func scanFeatureRows(pgRows pgx.Rows) ([]domain.FeatureRow, error) {
	var rows []domain.FeatureRow
	for pgRows.Next() {
		var row domain.FeatureRow
		var eventMonth time.Time
		if err := pgRows.Scan(
			&eventMonth, &row.VehicleType, &row.Brand, &row.Model, &row.Line,
			&row.SalesCount, &row.PurchasesCount, &row.AvgMargin,
			&row.AvgSalePrice, &row.AvgPurchasePrice,
			&row.AvgDaysInventory, &row.InventoryRotation,
			&row.Lag1, &row.Lag3, &row.Lag6, &row.RollingMean3, &row.RollingMean6,
			&row.Month, &row.Year, &row.MonthSin, &row.MonthCos,
		); err != nil {
			return nil, fmt.Errorf("scan feature row: %w", err)
		}
		row.EventMonth = domain.MonthOf(eventMonth)
		rows = append(rows, row)
	}
	if err := pgRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature rows: %w", err)
	}
	return rows, nil
}

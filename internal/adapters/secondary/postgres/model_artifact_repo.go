package postgres

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"demand-forecast-service/internal/core/domain"
	ports "demand-forecast-service/internal/core/ports/output"
	"demand-forecast-service/internal/core/regression"
)

type artifactPayload struct {
	Model    *regression.Model
	Metadata domain.ModelMetadata
}

type modelArtifactRepo struct {
	pool      *pgxpool.Pool
	modelName string
	now       func() time.Time
}

func NewModelArtifactRepository(pool *pgxpool.Pool, modelName string) ports.ModelRegistry {
	return &modelArtifactRepo{pool: pool, modelName: modelName, now: time.Now}
}

// Save serializes the model and inserts one row; a single INSERT is the
// atomic "latest pointer" update, since latest is resolved by creation
// order on every read.
func (r *modelArtifactRepo) Save(ctx context.Context, model *regression.Model, meta domain.ModelMetadata) (domain.ModelMetadata, error) {
	previous, err := r.latestVersion(ctx)
	if err != nil {
		return domain.ModelMetadata{}, err
	}

	meta.Version = domain.MintVersion(r.now(), previous)
	meta.ModelName = r.modelName

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(artifactPayload{Model: model, Metadata: meta}); err != nil {
		return domain.ModelMetadata{}, fmt.Errorf("encode model artifact: %w", err)
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return domain.ModelMetadata{}, fmt.Errorf("marshal metadata: %w", err)
	}

	query := `
		INSERT INTO ml_model_artifacts (model_name, version, metadata, artifact, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.pool.Exec(ctx, query, r.modelName, meta.Version, metaJSON, buf.Bytes(), r.now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ModelMetadata{}, fmt.Errorf("version %s already exists: %w", meta.Version, err)
		}
		return domain.ModelMetadata{}, fmt.Errorf("insert model artifact: %w", err)
	}

	log.WithFields(log.Fields{"version": meta.Version, "model_name": r.modelName}).
		Info("model saved to database registry")
	return meta, nil
}

func (r *modelArtifactRepo) LoadLatest(ctx context.Context) (*regression.Model, domain.ModelMetadata, error) {
	query := `
		SELECT artifact FROM ml_model_artifacts
		WHERE model_name = $1
		ORDER BY created_at DESC, version DESC
		LIMIT 1
	`
	var blob []byte
	err := r.pool.QueryRow(ctx, query, r.modelName).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ModelMetadata{}, domain.ErrNoTrainedModel
	}
	if err != nil {
		return nil, domain.ModelMetadata{}, fmt.Errorf("load latest model: %w", err)
	}

	var payload artifactPayload
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&payload); err != nil {
		return nil, domain.ModelMetadata{}, fmt.Errorf("decode model artifact: %w", err)
	}
	return payload.Model, payload.Metadata, nil
}

func (r *modelArtifactRepo) LatestMetadata(ctx context.Context) (*domain.ModelMetadata, error) {
	query := `
		SELECT metadata FROM ml_model_artifacts
		WHERE model_name = $1
		ORDER BY created_at DESC, version DESC
		LIMIT 1
	`
	var metaJSON []byte
	err := r.pool.QueryRow(ctx, query, r.modelName).Scan(&metaJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest metadata: %w", err)
	}

	var meta domain.ModelMetadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, fmt.Errorf("parse latest metadata: %w", err)
	}
	return &meta, nil
}

func (r *modelArtifactRepo) latestVersion(ctx context.Context) (string, error) {
	query := `
		SELECT version FROM ml_model_artifacts
		WHERE model_name = $1
		ORDER BY created_at DESC, version DESC
		LIMIT 1
	`
	var version string
	err := r.pool.QueryRow(ctx, query, r.modelName).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query latest version: %w", err)
	}
	return version, nil
}

// Package fsregistry stores model artifacts on the local filesystem:
// one gob blob per version plus a latest.json metadata pointer.
package fsregistry

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"demand-forecast-service/internal/core/domain"
	ports "demand-forecast-service/internal/core/ports/output"
	"demand-forecast-service/internal/core/regression"
)

type artifactPayload struct {
	Model    *regression.Model
	Metadata domain.ModelMetadata
}

type Registry struct {
	dir       string
	modelName string
	now       func() time.Time
}

func New(dir, modelName string) ports.ModelRegistry {
	return &Registry{dir: dir, modelName: modelName, now: time.Now}
}

func (r *Registry) artifactPath(version string) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s_%s.gob", r.modelName, version))
}

func (r *Registry) latestPath() string {
	return filepath.Join(r.dir, "latest.json")
}

// Save writes the artifact first and only then moves the latest pointer, so
// a failed artifact write can never leave latest referencing a missing blob.
// Both writes go through a temp file + rename; readers mid-save see either
// the previous latest or the new one, never a partial file.
func (r *Registry) Save(ctx context.Context, model *regression.Model, meta domain.ModelMetadata) (domain.ModelMetadata, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return domain.ModelMetadata{}, fmt.Errorf("create model dir: %w", err)
	}

	previous := ""
	if current, err := r.LatestMetadata(ctx); err != nil {
		return domain.ModelMetadata{}, err
	} else if current != nil {
		previous = current.Version
	}

	meta.Version = domain.MintVersion(r.now(), previous)
	meta.ModelName = r.modelName

	payload := artifactPayload{Model: model, Metadata: meta}
	if err := r.writeGob(r.artifactPath(meta.Version), payload); err != nil {
		return domain.ModelMetadata{}, fmt.Errorf("write model artifact: %w", err)
	}

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return domain.ModelMetadata{}, fmt.Errorf("marshal metadata: %w", err)
	}
	if err := r.writeFileAtomic(r.latestPath(), metaJSON); err != nil {
		return domain.ModelMetadata{}, fmt.Errorf("update latest pointer: %w", err)
	}

	log.WithFields(log.Fields{"version": meta.Version, "path": r.artifactPath(meta.Version)}).
		Info("model saved to filesystem registry")
	return meta, nil
}

func (r *Registry) LoadLatest(ctx context.Context) (*regression.Model, domain.ModelMetadata, error) {
	meta, err := r.LatestMetadata(ctx)
	if err != nil {
		return nil, domain.ModelMetadata{}, err
	}
	if meta == nil {
		return nil, domain.ModelMetadata{}, domain.ErrNoTrainedModel
	}

	f, err := os.Open(r.artifactPath(meta.Version))
	if err != nil {
		return nil, domain.ModelMetadata{}, fmt.Errorf("open model artifact %s: %w", meta.Version, err)
	}
	defer f.Close()

	var payload artifactPayload
	if err := gob.NewDecoder(f).Decode(&payload); err != nil {
		return nil, domain.ModelMetadata{}, fmt.Errorf("decode model artifact %s: %w", meta.Version, err)
	}
	return payload.Model, payload.Metadata, nil
}

func (r *Registry) LatestMetadata(ctx context.Context) (*domain.ModelMetadata, error) {
	data, err := os.ReadFile(r.latestPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read latest pointer: %w", err)
	}

	var meta domain.ModelMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse latest pointer: %w", err)
	}
	return &meta, nil
}

func (r *Registry) writeGob(path string, payload artifactPayload) error {
	tmp, err := os.CreateTemp(r.dir, "artifact-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (r *Registry) writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(r.dir, "latest-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

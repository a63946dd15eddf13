package localfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
)

const (
	artifactPrefix = "results_"
	jsonSuffix     = ".json"
	gzipSuffix     = ".json.gz"
)

// Store reads training artifacts from a results directory. Artifact names
// embed their creation timestamp, so the greatest name is the newest.
type Store struct {
	basePath string
}

func New(basePath string) (*Store, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open model store", fmt.Errorf("results directory is required"))
	}
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("stat results dir: %w", err)
	}
	if !info.IsDir() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open model store", fmt.Errorf("%s is not a directory", basePath))
	}
	return &Store{basePath: basePath}, nil
}

func (s *Store) FindLatest(_ context.Context) (string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return "", fmt.Errorf("read results dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !isArtifact(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return "", domain.WrapError(domain.ErrNoTrainedModel, "find latest model",
			fmt.Errorf("no %s*%s artifact in %s", artifactPrefix, jsonSuffix, s.basePath))
	}
	sort.Strings(names)
	return names[len(names)-1], nil
}

func (s *Store) Load(_ context.Context, artifact string) (*domain.Model, error) {
	if artifact != filepath.Base(artifact) || !isArtifact(artifact) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load model", fmt.Errorf("invalid artifact name %q", artifact))
	}

	f, err := os.Open(filepath.Join(s.basePath, artifact))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrNoTrainedModel, "load model", err)
		}
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(artifact, gzipSuffix) {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip artifact: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	var model domain.Model
	if err := json.NewDecoder(r).Decode(&model); err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", artifact, err)
	}
	model.Artifact = artifact
	return &model, nil
}

func isArtifact(name string) bool {
	if !strings.HasPrefix(name, artifactPrefix) {
		return false
	}
	return strings.HasSuffix(name, jsonSuffix) || strings.HasSuffix(name, gzipSuffix)
}

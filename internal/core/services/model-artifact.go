package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"promotion-prediction-service/internal/core/domain"
	ports "promotion-prediction-service/internal/core/ports/output"
	"promotion-prediction-service/internal/pipeline"
)

// ModelArtifactService owns the currently served model. Readers never block;
// loads and reloads are serialized.
type ModelArtifactService struct {
	source  ports.ArtifactSource
	cache   ports.PredictionCache
	metrics ports.MetricsRecorder

	reloadMu sync.Mutex
	current  atomic.Pointer[domain.Model]
}

func NewModelArtifactService(source ports.ArtifactSource, cache ports.PredictionCache, metrics ports.MetricsRecorder) *ModelArtifactService {
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return &ModelArtifactService{source: source, cache: cache, metrics: metrics}
}

// Load fetches and parses the artifact and publishes it as the current model.
// On failure the previously loaded model, if any, stays in place.
func (s *ModelArtifactService) Load(ctx context.Context) (*domain.Model, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	return s.load(ctx)
}

// Reload is Load for on-demand triggers; it refuses to queue behind a reload already running.
func (s *ModelArtifactService) Reload(ctx context.Context) (*domain.Model, error) {
	if !s.reloadMu.TryLock() {
		return nil, domain.ErrReloadInProgress
	}
	defer s.reloadMu.Unlock()
	return s.load(ctx)
}

func (s *ModelArtifactService) load(ctx context.Context) (*domain.Model, error) {
	location := s.source.Location()
	logger := log.WithField("source", location)

	data, err := s.source.Fetch(ctx)
	if err != nil {
		s.metrics.IncModelLoad("fetch_error")
		return nil, fmt.Errorf("fetch artifact from %s: %w", location, err)
	}

	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])
	if cur := s.current.Load(); cur != nil && cur.Checksum == checksum {
		logger.Debug("model artifact unchanged, keeping current model")
		s.metrics.IncModelLoad("unchanged")
		return cur, nil
	}

	p, err := pipeline.Parse(data)
	if err != nil {
		s.metrics.IncModelLoad("parse_error")
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArtifact, err)
	}

	model := domain.NewModel(p, checksum, location)
	for col, cats := range model.Categories {
		if len(cats) == 0 {
			logger.WithField("column", col).Warn("encoder has no categories for column")
			continue
		}
		logger.WithFields(log.Fields{
			"column":     col,
			"categories": len(cats),
			"first":      cats[0],
		}).Debug("extracted training categories")
	}

	s.current.Store(model)
	if s.cache != nil {
		s.cache.Purge()
	}
	s.metrics.IncModelLoad("success")
	s.metrics.SetModelInfo(model.Name(), model.Version(), checksum)

	logger.WithFields(log.Fields{
		"model":      model.Name(),
		"version":    model.Version(),
		"checksum":   checksum[:12],
		"categories": len(model.Categories),
	}).Info("model loaded")

	return model, nil
}

// Current returns the served model or ErrModelNotLoaded.
func (s *ModelArtifactService) Current() (*domain.Model, error) {
	m := s.current.Load()
	if m == nil {
		return nil, domain.ErrModelNotLoaded
	}
	return m, nil
}

func (s *ModelArtifactService) Ready() bool {
	return s.current.Load() != nil
}

// Watch reloads the model whenever the watcher reports a change. Blocks until ctx is done.
// A change seen while another reload runs waits for it and then loads again.
func (s *ModelArtifactService) Watch(ctx context.Context, watcher ports.ArtifactWatcher) error {
	return watcher.Watch(ctx, func() {
		if _, err := s.Load(ctx); err != nil {
			log.WithError(err).Warn("model reload after artifact change failed")
		}
	})
}

package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"promotion-prediction-service/internal/core/domain"
	"promotion-prediction-service/internal/testutil"
)

func newSource(data []byte, err error) *testutil.MockArtifactSource {
	src := new(testutil.MockArtifactSource)
	src.On("Location").Return("/models/promotion_model.json")
	src.On("Fetch", mock.Anything).Return(data, err)
	return src
}

func TestModelArtifactService_Load(t *testing.T) {
	src := newSource([]byte(testutil.SampleArtifact), nil)
	svc := NewModelArtifactService(src, nil, nil)

	assert.False(t, svc.Ready())
	_, err := svc.Current()
	assert.ErrorIs(t, err, domain.ErrModelNotLoaded)

	model, err := svc.Load(context.Background())
	require.NoError(t, err)

	assert.True(t, svc.Ready())
	assert.Equal(t, "promotion_model", model.Name())
	assert.Equal(t, "/models/promotion_model.json", model.Source)
	assert.Len(t, model.Checksum, 64)
	assert.Len(t, model.Categories, 5)

	current, err := svc.Current()
	require.NoError(t, err)
	assert.Same(t, model, current)
}

func TestModelArtifactService_LoadFetchError(t *testing.T) {
	src := newSource(nil, domain.ErrArtifactNotFound)
	svc := NewModelArtifactService(src, nil, nil)

	_, err := svc.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
	assert.False(t, svc.Ready())
}

func TestModelArtifactService_LoadInvalidArtifact(t *testing.T) {
	src := newSource([]byte(`{"steps": []}`), nil)
	svc := NewModelArtifactService(src, nil, nil)

	_, err := svc.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidArtifact)
	assert.False(t, svc.Ready())
}

func TestModelArtifactService_FailedReloadKeepsModel(t *testing.T) {
	src := new(testutil.MockArtifactSource)
	src.On("Location").Return("mem")
	src.On("Fetch", mock.Anything).Return([]byte(testutil.SampleArtifact), nil).Once()
	src.On("Fetch", mock.Anything).Return(nil, errors.New("disk on fire")).Once()

	svc := NewModelArtifactService(src, nil, nil)
	first, err := svc.Load(context.Background())
	require.NoError(t, err)

	_, err = svc.Reload(context.Background())
	assert.Error(t, err)

	current, err := svc.Current()
	require.NoError(t, err)
	assert.Same(t, first, current)
}

func TestModelArtifactService_ReloadUnchangedKeepsModel(t *testing.T) {
	src := newSource([]byte(testutil.SampleArtifact), nil)
	svc := NewModelArtifactService(src, nil, nil)

	first, err := svc.Load(context.Background())
	require.NoError(t, err)
	second, err := svc.Reload(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestModelArtifactService_ReloadPurgesCache(t *testing.T) {
	changed := `{"name": "v2", "version": "2",
	  "steps": [
	    {"name": "prepocess", "type": "column_transformer", "transformers": [{"name": "num", "columns": ["age"]}]},
	    {"name": "clf", "type": "logistic_regression", "classes": [0, 1], "coef": [0.01], "intercept": 0}]}`

	src := new(testutil.MockArtifactSource)
	src.On("Location").Return("mem")
	src.On("Fetch", mock.Anything).Return([]byte(testutil.SampleArtifact), nil).Once()
	src.On("Fetch", mock.Anything).Return([]byte(changed), nil).Once()

	cache := new(testutil.MockPredictionCache)
	cache.On("Purge").Return().Twice()

	svc := NewModelArtifactService(src, cache, nil)
	_, err := svc.Load(context.Background())
	require.NoError(t, err)

	model, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v2", model.Name())
	assert.Empty(t, model.Categories)

	cache.AssertExpectations(t)
}

func TestModelArtifactService_ReloadInProgress(t *testing.T) {
	src := newSource([]byte(testutil.SampleArtifact), nil)
	svc := NewModelArtifactService(src, nil, nil)

	svc.reloadMu.Lock()
	_, err := svc.Reload(context.Background())
	svc.reloadMu.Unlock()

	assert.ErrorIs(t, err, domain.ErrReloadInProgress)
}

func TestModelArtifactService_Watch(t *testing.T) {
	src := newSource([]byte(testutil.SampleArtifact), nil)
	svc := NewModelArtifactService(src, nil, nil)
	watcher := &testutil.MockArtifactWatcher{Changes: make(chan struct{}, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Watch(ctx, watcher) }()

	watcher.Changes <- struct{}{}
	assert.Eventually(t, svc.Ready, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not return after cancel")
	}
}

// gatedSource holds its first Fetch open until release is closed, then serves next.
type gatedSource struct {
	first   []byte
	next    []byte
	started chan struct{}
	release chan struct{}
	fetches atomic.Int32
}

func (s *gatedSource) Location() string { return "gated" }

func (s *gatedSource) Fetch(context.Context) ([]byte, error) {
	if s.fetches.Add(1) == 1 {
		close(s.started)
		<-s.release
		return s.first, nil
	}
	return s.next, nil
}

func TestModelArtifactService_WatchChangeDuringReloadIsNotLost(t *testing.T) {
	v2 := strings.Replace(testutil.SampleArtifact, `"version": "test"`, `"version": "v2"`, 1)
	src := &gatedSource{
		first:   []byte(testutil.SampleArtifact),
		next:    []byte(v2),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := NewModelArtifactService(src, nil, nil)
	watcher := &testutil.MockArtifactWatcher{Changes: make(chan struct{}, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Watch(ctx, watcher) }()

	reloadDone := make(chan error, 1)
	go func() {
		_, err := svc.Reload(context.Background())
		reloadDone <- err
	}()
	<-src.started

	// the artifact changes while the on-demand reload still holds the old bytes
	watcher.Changes <- struct{}{}
	close(src.release)
	require.NoError(t, <-reloadDone)

	assert.Eventually(t, func() bool {
		m, err := svc.Current()
		return err == nil && m.Version() == "v2"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(2), src.fetches.Load())
}

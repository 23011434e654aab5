package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"promotion-prediction-service/internal/core/domain"
	ports "promotion-prediction-service/internal/core/ports/output"
)

const defaultDebounce = 500 * time.Millisecond

type fileSource struct {
	path     string
	debounce time.Duration
}

// FileSource reads the artifact from the local filesystem and can watch it for changes.
type FileSource interface {
	ports.ArtifactSource
	ports.ArtifactWatcher
}

// NewFileSource creates a file-backed artifact source. debounce collapses bursts of
// filesystem events into a single change notification.
func NewFileSource(path string, debounce time.Duration) FileSource {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &fileSource{path: filepath.Clean(path), debounce: debounce}
}

func (s *fileSource) Location() string {
	return s.path
}

func (s *fileSource) Fetch(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, s.path)
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}

// Watch watches the artifact's directory so that atomic renames and
// Kubernetes volume symlink swaps are seen as well as in-place writes.
func (s *fileSource) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	log.WithField("path", s.path).Info("watching model artifact for changes")

	timer := time.NewTimer(s.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !s.relevant(ev) {
				continue
			}
			log.WithFields(log.Fields{
				"path": ev.Name,
				"op":   ev.Op.String(),
			}).Debug("model artifact changed")
			timer.Reset(s.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("model artifact watcher error")

		case <-timer.C:
			onChange()
		}
	}
}

func (s *fileSource) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(ev.Name)
	if name == s.path {
		return true
	}
	// ConfigMap mounts swap a "..data" symlink rather than touching the file itself
	return filepath.Base(name) == "..data"
}

package ports

import "context"

// ArtifactSource fetches the raw artifact bytes.
type ArtifactSource interface {
	Fetch(ctx context.Context) ([]byte, error)

	// Location describes where the artifact is read from, e.g. a path or namespace/name/key.
	Location() string
}

// ArtifactWatcher notifies when the artifact behind a source changes.
// Watch blocks until ctx is done.
type ArtifactWatcher interface {
	Watch(ctx context.Context, onChange func()) error
}

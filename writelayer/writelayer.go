// Package writelayer implements the build pipeline's write layer: the
// component that persists a built module's artifacts (the builder writes
// one, the encoded object graph) under a content address, so identical
// bytes are written once regardless of how many objects produce them. It
// has two interchangeable backends, chosen by whoever constructs the
// WriteLayer (there is no by-name factory): a filesystem backend for
// local/dev builds, and a graph-embedded backend
// that stores blobs as side-table properties on the graph-store backend
// used by the index (so a fully graph-hosted deployment needs no
// separate blob store at all).
package writelayer

import (
	"context"
	"fmt"

	digest "github.com/opencontainers/go-digest"
)

// Backend is the storage port a write layer is built on: a flat,
// content-addressed key/value store keyed by digest, plus scoped tagging
// and clearing operations keyed by (modpath, version) so a rebuild can
// discard exactly what it previously wrote and nothing else.
type Backend interface {
	// Has reports whether content addressed by d is already stored,
	// letting the writer short-circuit re-writing identical bytes.
	Has(ctx context.Context, d digest.Digest) (bool, error)
	// Put stores content under its own digest and returns it.
	Put(ctx context.Context, content []byte) (digest.Digest, error)
	// Get retrieves previously stored content by digest.
	Get(ctx context.Context, d digest.Digest) ([]byte, error)
	// Tag records that d is the current artifact for (modpath, version,
	// artifactName), so a later ClearScope can enumerate and release it.
	Tag(ctx context.Context, modpath, version, artifactName string, d digest.Digest) error
	// ClearScope removes every tag (not necessarily every blob, since
	// another scope may reference the same digest) recorded for
	// (modpath, version).
	ClearScope(ctx context.Context, modpath, version string) error
}

// WriteLayer writes a module's build artifacts through a Backend,
// computing the content digest itself so callers never have to.
type WriteLayer struct {
	backend Backend
}

// New wraps backend in a WriteLayer.
func New(backend Backend) *WriteLayer {
	return &WriteLayer{backend: backend}
}

// Write stores content as the named artifact of (modpath, version),
// skipping the actual Put when identical content is already present
// under that digest, and returns the digest written.
func (w *WriteLayer) Write(ctx context.Context, modpath, version, artifactName string, content []byte) (digest.Digest, error) {
	d := digest.FromBytes(content)
	have, err := w.backend.Has(ctx, d)
	if err != nil {
		return "", fmt.Errorf("writelayer: checking existing content for %s: %w", artifactName, err)
	}
	if !have {
		if _, err := w.backend.Put(ctx, content); err != nil {
			return "", fmt.Errorf("writelayer: storing content for %s: %w", artifactName, err)
		}
	}
	if err := w.backend.Tag(ctx, modpath, version, artifactName, d); err != nil {
		return "", fmt.Errorf("writelayer: tagging %s: %w", artifactName, err)
	}
	return d, nil
}

// Read retrieves the content stored under digest d. It does not look up
// an artifact by (modpath, version, name); the caller supplies the digest
// (as returned by Write).
func (w *WriteLayer) Read(ctx context.Context, d digest.Digest) ([]byte, error) {
	return w.backend.Get(ctx, d)
}

// ClearScope discards every artifact previously written for (modpath,
// version), used when a WIP build is torn down and rebuilt from scratch.
func (w *WriteLayer) ClearScope(ctx context.Context, modpath, version string) error {
	return w.backend.ClearScope(ctx, modpath, version)
}

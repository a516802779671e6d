package writelayer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	digest "github.com/opencontainers/go-digest"
)

// FilesystemBackend stores blobs under root, sharded by digest algorithm
// and the first two hex characters of the digest's hex part, mirroring
// the registry storage layer's own blob layout convention
// (<algorithm>/<first two hex chars>/<full hex>) so existing blob-store
// tooling (du, find, rsync) behaves the same way against it.
type FilesystemBackend struct {
	root string
}

// NewFilesystemBackend roots a FilesystemBackend at dir, creating it if
// necessary.
func NewFilesystemBackend(dir string) (*FilesystemBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("writelayer: creating root %s: %w", dir, err)
	}
	return &FilesystemBackend{root: dir}, nil
}

func (b *FilesystemBackend) blobPath(d digest.Digest) string {
	hex := d.Encoded()
	shard := hex
	if len(hex) >= 2 {
		shard = hex[:2]
	}
	return filepath.Join(b.root, "blobs", string(d.Algorithm()), shard, hex)
}

func (b *FilesystemBackend) scopePath(modpath, version string) string {
	return filepath.Join(b.root, "scopes", modpath, version)
}

func (b *FilesystemBackend) Has(_ context.Context, d digest.Digest) (bool, error) {
	_, err := os.Stat(b.blobPath(d))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (b *FilesystemBackend) Put(_ context.Context, content []byte) (digest.Digest, error) {
	d := digest.FromBytes(content)
	path := b.blobPath(d)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", err
	}
	return d, nil
}

func (b *FilesystemBackend) Get(_ context.Context, d digest.Digest) ([]byte, error) {
	content, err := os.ReadFile(b.blobPath(d))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("writelayer: no blob for digest %s", d)
	}
	return content, err
}

func (b *FilesystemBackend) Tag(_ context.Context, modpath, version, artifactName string, d digest.Digest) error {
	path := filepath.Join(b.scopePath(modpath, version), artifactName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(d.String()), 0o644)
}

func (b *FilesystemBackend) ClearScope(_ context.Context, modpath, version string) error {
	path := b.scopePath(modpath, version)
	if err := os.RemoveAll(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

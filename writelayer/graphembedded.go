package writelayer

import (
	"context"
	"fmt"

	digest "github.com/opencontainers/go-digest"

	"github.com/proofscape/pfscbuild/index"
)

// GraphEmbeddedBackend stores blob content and scope tags as properties
// on nodes of the same graph store the index writes to, so a deployment
// that already runs a graph database needs no separate blob store. Blobs
// are merged onto a "BLOB" node keyed by digest; scope tags are merged
// onto a "WRITE_SCOPE" node keyed by (modpath, version), carrying a map
// of artifact name to digest string.
type GraphEmbeddedBackend struct {
	store index.GraphStore
}

// NewGraphEmbeddedBackend wraps a GraphStore for blob storage.
func NewGraphEmbeddedBackend(store index.GraphStore) *GraphEmbeddedBackend {
	return &GraphEmbeddedBackend{store: store}
}

func (b *GraphEmbeddedBackend) Has(ctx context.Context, d digest.Digest) (bool, error) {
	tx, err := b.store.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()
	ids, err := tx.Query("BLOB", map[string]index.Property{"digest": d.String()})
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

func (b *GraphEmbeddedBackend) Put(ctx context.Context, content []byte) (digest.Digest, error) {
	d := digest.FromBytes(content)
	tx, err := b.store.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()
	if _, err := tx.MergeNode("BLOB",
		map[string]index.Property{"digest": d.String()},
		map[string]index.Property{"content": content},
	); err != nil {
		return "", err
	}
	return d, tx.Commit()
}

func (b *GraphEmbeddedBackend) Get(ctx context.Context, d digest.Digest) ([]byte, error) {
	tx, err := b.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	ids, err := tx.Query("BLOB", map[string]index.Property{"digest": d.String()})
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("writelayer: no blob node for digest %s", d)
	}
	props, err := tx.GetProps(ids[0])
	if err != nil {
		return nil, err
	}
	content, _ := props["content"].([]byte)
	return content, nil
}

func (b *GraphEmbeddedBackend) Tag(ctx context.Context, modpath, version, artifactName string, d digest.Digest) error {
	tx, err := b.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.MergeNode("WRITE_SCOPE",
		map[string]index.Property{"modpath": modpath, "version": version},
		map[string]index.Property{artifactName: d.String()},
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (b *GraphEmbeddedBackend) ClearScope(ctx context.Context, modpath, version string) error {
	tx, err := b.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	ids, err := tx.Query("WRITE_SCOPE", map[string]index.Property{"modpath": modpath, "version": version})
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := tx.DeleteNode(id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

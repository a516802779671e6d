package builder

import (
	"context"
	"fmt"

	"github.com/proofscape/pfscbuild/index"
	"github.com/proofscape/pfscbuild/libpath"
)

// DeleteFullWIPBuild discards every trace of repoPath's WIP build: its
// cached module graphs, its written artifacts, and its indexed OBJECT/
// VERSION nodes at index.WIPMajor. This is the recovery procedure an
// author invokes when a WIP build has gotten into a state they'd rather
// rebuild from scratch than repair incrementally (e.g. after a botched
// manual edit to generated output, or a change-log mistake that the
// normal commit path won't let them walk back).
func (p *Pipeline) DeleteFullWIPBuild(ctx context.Context, repoPath string) error {
	checkout := p.Registry.Checkout(repoPath)
	defer checkout.Release()

	if p.Cache != nil {
		if err := p.Cache.DeleteRepo(ctx, repoPath); err != nil {
			return fmt.Errorf("builder: clearing cache for %s: %w", repoPath, err)
		}
	}
	if p.WriteLayer != nil {
		if err := p.WriteLayer.ClearScope(ctx, repoPath, libpath.WIPTag); err != nil {
			return fmt.Errorf("builder: clearing write layer for %s: %w", repoPath, err)
		}
	}
	if p.Store != nil {
		if err := deleteWIPGraphState(ctx, p.Store, repoPath); err != nil {
			return fmt.Errorf("builder: clearing index for %s: %w", repoPath, err)
		}
	}
	return nil
}

// deleteWIPGraphState removes every OBJECT node under repoPath whose major
// is index.WIPMajor and the VERSION node for (repoPath, index.WIPMajor),
// along with their incident
// edges, from store. It runs in its own transaction, separate from a
// normal Writer.Commit, since this is a destructive operation a build
// commit never performs.
func deleteWIPGraphState(ctx context.Context, store index.GraphStore, repoPath string) error {
	tx, err := store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("index: beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	objects, err := tx.Query("OBJECT", map[string]index.Property{})
	if err != nil {
		return fmt.Errorf("index: querying objects: %w", err)
	}
	for _, id := range objects {
		props, err := tx.GetProps(id)
		if err != nil {
			return fmt.Errorf("index: reading object %s: %w", id, err)
		}
		lp, _ := props["libpath"].(string)
		major, _ := props["major"].(int)
		if major != index.WIPMajor {
			continue
		}
		if lp != repoPath && !libpath.IsStrictPrefix(repoPath, lp) {
			continue
		}
		if err := tx.DeleteNode(id); err != nil {
			return fmt.Errorf("index: deleting object %s: %w", id, err)
		}
	}

	versions, err := tx.Query("VERSION", map[string]index.Property{
		"repopath": repoPath,
		"major":    index.WIPMajor,
	})
	if err != nil {
		return fmt.Errorf("index: querying version node: %w", err)
	}
	for _, id := range versions {
		if err := tx.DeleteNode(id); err != nil {
			return fmt.Errorf("index: deleting version node %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: committing: %w", err)
	}
	committed = true
	return nil
}

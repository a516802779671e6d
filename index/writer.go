package index

import (
	"context"
	"fmt"

	"github.com/proofscape/pfscbuild/libpath"
)

// InfCut is the sentinel cut value meaning "still live", the numeric
// stand-in for libpath.InfTag in the graph store's integer "cut"
// property (validity intervals are half-open [major, cut), and an
// object with no recorded removal has no upper bound yet).
const InfCut = -1

// WIPMajor is the reserved major value under which WIP builds are
// indexed. Numbered releases start at major 1, so WIP's objects and
// VERSION node never collide with a real release's and can be found and
// torn down as a unit by delete_full_wip_build.
const WIPMajor = 0

// MoveOp records that the object at OldPath was renamed/relocated to
// NewPath (or, if NewPath is "", retired to VOID) as of AtMajor.
// RetargetOp records that every reference to OldTarget within
// AffectedModpath must now resolve to NewTarget as of AtMajor. Both are
// supplied by the builder (sourced from a repo's declared change log)
// and applied by the writer's ix0330/ix0360 phases.
type MoveOp struct {
	OldPath, NewPath string
	AtMajor          int
}

type RetargetOp struct {
	AffectedModpath      string
	OldTarget, NewTarget string
	AtMajor              int
}

// Writer commits one module's ModuleIndexInfo into a GraphStore across
// four phases, named after the build pipeline's own internal phase
// numbering (ix0200/ix0330/ix0360/ix0400): cut what this release rebuilds
// or moves and add what is new, write the MOVE edges this release's move
// mapping implies, propagate RETARGETS for both the enrichments this
// release adds and the ones a prior release already wrote, then close out
// cut values for anything absent from this release. All four run inside
// one transaction so a mid commit failure cannot leave the graph half
// migrated.
type Writer struct {
	store GraphStore
}

// NewWriter wraps a GraphStore for committing index writes.
func NewWriter(store GraphStore) *Writer {
	return &Writer{store: store}
}

// Commit writes mi (with its derived computations already run) into the
// graph, applying mi's move mapping and every move in moves regardless of
// AtMajor, and only the retargets that land at or before mi.Major.
func (w *Writer) Commit(ctx context.Context, mi *ModuleIndexInfo, moves []MoveOp, retargets []RetargetOp) error {
	tx, err := w.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("index: beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	repoPath, ok := libpath.RepoPart(mi.Modpath)
	if !ok {
		repoPath = mi.Modpath
	}
	if _, err := tx.MergeNode("VERSION",
		map[string]Property{"repopath": repoPath, "major": mi.Major},
		map[string]Property{},
	); err != nil {
		return fmt.Errorf("index: merging version node: %w", err)
	}

	newRelations, err := w.ix0200(tx, mi)
	if err != nil {
		return err
	}
	if err := w.ix0330(tx, mi); err != nil {
		return err
	}
	if err := w.ix0360(tx, mi, moves, retargets, newRelations); err != nil {
		return err
	}
	if err := w.ix0400(tx, mi); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: committing: %w", err)
	}
	committed = true
	return nil
}

// ix0200 cuts every entity and relation in mi.CutSet() (already-live
// things this release rebuilds or moves) at mi.Major, then upserts a
// fresh OBJECT node (or TARGETS/EXPANDS/RETARGETS edge) for everything in
// mi.AddSet(), opening its validity interval at mi.Major. It returns the
// freshly created TARGETS/EXPANDS relations, which ix0360's first
// sub-pass needs to propagate RETARGETS for.
func (w *Writer) ix0200(tx Tx, mi *ModuleIndexInfo) ([]Relation, error) {
	for key := range mi.CutSet() {
		if isRelationKey(key) {
			continue // a relation's validity is carried on its edge, cut below via the edge write itself
		}
		if err := w.closeInterval(tx, key, mi.Major); err != nil {
			return nil, err
		}
	}

	for lp, openedAt := range mi.EntityMajors() {
		if !mi.AddSet()[lp] {
			continue
		}
		if _, err := tx.MergeNode("OBJECT",
			map[string]Property{"libpath": lp},
			map[string]Property{"major": openedAt, "cut": InfCut},
		); err != nil {
			return nil, fmt.Errorf("index: writing object %s: %w", lp, err)
		}
	}

	var newRelations []Relation
	for _, rel := range mi.Relations {
		if !mi.AddSet()[rel.String()] {
			continue
		}
		fromID, err := w.objectID(tx, rel.From)
		if err != nil {
			return nil, err
		}
		toID, err := w.objectID(tx, rel.To)
		if err != nil {
			return nil, err
		}
		if err := tx.MergeEdge(fromID, toID, rel.Kind, map[string]Property{"since": mi.Major}); err != nil {
			return nil, fmt.Errorf("index: writing %s edge %s -> %s: %w", rel.Kind, rel.From, rel.To, err)
		}
		if rel.Kind == "TARGETS" || rel.Kind == "EXPANDS" {
			newRelations = append(newRelations, rel)
		}
	}
	return newRelations, nil
}

// ix0330 writes mi.MoveMapping()'s real move edges: one MOVE from an old
// path to its final destination, or to a single shared VOID node when the
// chain ends in retirement rather than relocation (MergeNode's find-or-
// create over VOID's empty key set makes every void move land on the
// same node instead of minting a fresh one per retirement).
func (w *Writer) ix0330(tx Tx, mi *ModuleIndexInfo) error {
	for old, dest := range mi.MoveMapping() {
		fromID, err := w.objectID(tx, old)
		if err != nil {
			return err
		}
		var toID NodeID
		if dest == "" {
			toID, err = tx.MergeNode("VOID", map[string]Property{}, map[string]Property{})
		} else {
			toID, err = w.objectID(tx, dest)
		}
		if err != nil {
			return err
		}
		if err := tx.MergeEdge(fromID, toID, "MOVE", map[string]Property{"atMajor": mi.Major}); err != nil {
			return fmt.Errorf("index: writing MOVE %s -> %s: %w", old, dest, err)
		}
	}
	return nil
}

// ix0360 is additive only -- it never deletes a pre-existing RETARGETS
// edge -- and runs two sub-passes. The first follows each relation ix0200
// just created down its target's full move-conjugate chain (the sequence
// of single-hop MOVEs that entity was subsequently subjected to, not just
// its final destination) and adds one RETARGETS edge per link, so an
// enrichment written against an object this same release immediately
// moves again still ends up retargeted all the way to where that object
// now lives. The second applies every declared RetargetOp whose AtMajor
// has arrived: the change log's record of pre-existing TARGETS/RETARGETS
// edges a move touches (the GraphStore port has no reverse "find edges by
// target" query, so the change log's explicit declarations are how those
// are discovered, rather than a live graph scan).
func (w *Writer) ix0360(tx Tx, mi *ModuleIndexInfo, moves []MoveOp, retargets []RetargetOp, newRelations []Relation) error {
	for _, rel := range newRelations {
		chain := findMoveConjugateChain(moves, rel.To)
		if len(chain) == 0 {
			continue
		}
		fromID, err := w.objectID(tx, rel.From)
		if err != nil {
			return err
		}
		for _, dest := range chain {
			toID, err := w.objectID(tx, dest)
			if err != nil {
				return err
			}
			if err := tx.MergeEdge(fromID, toID, "RETARGETS", map[string]Property{"since": mi.Major}); err != nil {
				return fmt.Errorf("index: writing RETARGETS %s -> %s: %w", rel.From, dest, err)
			}
		}
	}

	for _, rt := range retargets {
		if rt.AtMajor > mi.Major {
			continue
		}
		affected, err := tx.Query("OBJECT", map[string]Property{"libpath": rt.AffectedModpath})
		if err != nil {
			return err
		}
		newTargetIDs, err := tx.Query("OBJECT", map[string]Property{"libpath": rt.NewTarget})
		if err != nil {
			return err
		}
		for _, id := range affected {
			for _, tid := range newTargetIDs {
				if err := tx.MergeEdge(id, tid, "RETARGETS", map[string]Property{"since": rt.AtMajor}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ix0400 closes the validity interval, at mi.Major, of every object that
// HereElsewhereNowhere placed in the nowhere bucket and that ix0200/
// ix0330 has not already closed (closeInterval is a no-op on an interval
// already closed, so a nowhere entity that was also a MOVE's old path is
// simply skipped here rather than double-closed).
func (w *Writer) ix0400(tx Tx, mi *ModuleIndexInfo) error {
	for _, lp := range mi.nowhereKeys() {
		if err := w.closeInterval(tx, lp, mi.Major); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) objectID(tx Tx, lp string) (NodeID, error) {
	return tx.MergeNode("OBJECT", map[string]Property{"libpath": lp}, map[string]Property{})
}

func (w *Writer) closeInterval(tx Tx, lp string, atMajor int) error {
	ids, err := tx.Query("OBJECT", map[string]Property{"libpath": lp})
	if err != nil {
		return err
	}
	for _, id := range ids {
		props, err := tx.GetProps(id)
		if err != nil {
			return err
		}
		if cut, ok := props["cut"].(int); ok && cut != InfCut {
			continue // already closed
		}
		if _, err := tx.MergeNode("OBJECT",
			map[string]Property{"libpath": lp},
			map[string]Property{"cut": atMajor},
		); err != nil {
			return err
		}
	}
	return nil
}

// isRelationKey reports whether a CutSet/AddSet key names a Relation
// (Relation.String()'s "Kind:From->To" shape) rather than a bare libpath;
// libpath segments are restricted to identifier characters, so "->" never
// occurs in one.
func isRelationKey(key string) bool {
	for i := 0; i+1 < len(key); i++ {
		if key[i] == '-' && key[i+1] == '>' {
			return true
		}
	}
	return false
}

func findMoveConjugateChain(moves []MoveOp, start string) []string {
	next := make(map[string]string, len(moves))
	for _, mv := range moves {
		next[mv.OldPath] = mv.NewPath
	}
	var chain []string
	seen := map[string]bool{start: true}
	cur := start
	for {
		dest, moved := next[cur]
		if !moved || dest == "" {
			break
		}
		chain = append(chain, dest)
		if seen[dest] {
			break
		}
		seen[dest] = true
		cur = dest
	}
	return chain
}

// nowhereKeys exposes the nowhere bucket HereElsewhereNowhere computed,
// for ix0400's own pass over it.
func (mi *ModuleIndexInfo) nowhereKeys() []string { return mi.nowhere }

// IsLiveAt reports whether an object with validity interval
// [major, cut) is live at query version queryMajor, honoring the
// half-open convention: live at major itself, not live once cut is
// reached.
func IsLiveAt(major, cut, queryMajor int) bool {
	if cut == InfCut {
		return queryMajor >= major
	}
	return queryMajor >= major && queryMajor < cut
}

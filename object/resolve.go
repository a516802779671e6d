package object

import (
	"github.com/proofscape/pfscbuild/registry/api/errcode"
)

// Lookup resolves an absolute libpath to the Handle and Kind that defines
// it, consulting whatever scope the caller has available (typically: this
// module's own arena, plus the loader's already-resolved import map for
// anything not native to it). ok is false if the libpath does not resolve
// to anything.
type Lookup func(libpath string) (h Handle, kind Kind, ok bool)

// LocalLookup builds a Lookup backed only by the entities native to one
// arena, rooted at root. Useful on its own for single-module unit tests;
// production resolution composes it with the loader's cross-module index.
func LocalLookup(a *Arena, root Handle) Lookup {
	index := make(map[string]Handle)
	_ = Walk(a, root, func(h Handle, e Entity) error {
		index[e.Libpath()] = h
		return nil
	})
	return func(lp string) (Handle, Kind, bool) {
		h, ok := index[lp]
		if !ok {
			return 0, KindInvalid, false
		}
		return h, a.Get(h).Kind(), true
	}
}

// ResolveObjects walks root's subtree resolving every Deduction's preamble
// targets, every supp Node's contradiction targets, and every Annotation's
// targets, via lookup. It is the object model's second pass: Build
// constructs the graph shape, ResolveObjects fills in the cross-reference
// handles that could not be known until every sibling item existed.
func ResolveObjects(a *Arena, root Handle, lookup Lookup) error {
	return Walk(a, root, func(h Handle, e Entity) error {
		switch ent := e.(type) {
		case *Deduction:
			return resolveDeducTargets(a, ent, lookup)
		case *Node:
			return resolveNodeContras(a, ent, lookup)
		case *Annotation:
			return resolveAnnoTargets(ent, lookup)
		}
		return nil
	})
}

func resolveDeducTargets(a *Arena, d *Deduction, lookup Lookup) error {
	if len(d.TargetPaths) == 0 {
		return nil
	}
	var owner Handle
	d.Targets = d.Targets[:0]
	for _, tp := range d.TargetPaths {
		h, kind, ok := lookup(tp)
		if !ok {
			return errcode.ErrorCodeTargetDoesNotExist.WithArgs(tp)
		}
		if kind != KindNode {
			return errcode.ErrorCodeTargetOfWrongType.WithArgs(tp)
		}
		node := a.Get(h).(*Node)
		if owner == 0 {
			owner = node.OwnerDeduc
		} else if owner != node.OwnerDeduc {
			return errcode.ErrorCodeTargetsBelongToDifferentDeducs.WithArgs(d.Libpath_)
		}
		d.Targets = append(d.Targets, h)
	}
	return nil
}

func resolveNodeContras(a *Arena, n *Node, lookup Lookup) error {
	if len(n.Contras) == 0 {
		return nil
	}
	n.ContraHs = n.ContraHs[:0]
	for _, cp := range n.Contras {
		h, kind, ok := lookup(cp)
		if !ok {
			return errcode.ErrorCodeTargetDoesNotExist.WithArgs(cp)
		}
		if kind != KindNode || a.Get(h).(*Node).Special != NodeSupp {
			return errcode.ErrorCodeTargetOfWrongType.WithArgs(cp)
		}
		n.ContraHs = append(n.ContraHs, h)
	}
	return nil
}

func resolveAnnoTargets(a *Annotation, lookup Lookup) error {
	if len(a.TargetPaths) == 0 {
		return nil
	}
	a.Targets = a.Targets[:0]
	for _, tp := range a.TargetPaths {
		h, _, ok := lookup(tp)
		if !ok {
			return errcode.ErrorCodeTargetDoesNotExist.WithArgs(tp)
		}
		a.Targets = append(a.Targets, h)
	}
	return nil
}

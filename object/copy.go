package object

// CopyForeign deep-copies the subtree rooted at srcRoot (in src) into dst,
// preserving Kind, Libpath, and every intra-subtree structural Handle
// (parent/child, OwnerDeduc, GhostOf/RealOf), so a caller that merges two
// Arenas -- the module loader adopting an already-built module from
// another build's Arena -- ends up with Handles that are all valid in the
// one Arena it hands to ResolveObjects. Resolved cross-reference fields
// (Deduction.Targets, Node.ContraHs, Annotation.Targets) are dropped
// rather than followed, since those may reach into yet another foreign
// Arena; a target two import-hops away from the importing module is out
// of scope for the copy -- only the existence, Kind, and position of the
// module being imported matters here. Returns the copied root's Handle
// in dst.
func CopyForeign(dst *Arena, src *Arena, srcRoot Handle) Handle {
	var order []Handle
	_ = Walk(src, srcRoot, func(h Handle, e Entity) error {
		order = append(order, h)
		// A Supp node's Ghost is not among any Children, so Walk never
		// reaches it; copy it alongside the Supp node it shadows.
		if n, ok := e.(*Node); ok && n.GhostOf != 0 {
			order = append(order, n.GhostOf)
		}
		return nil
	})

	handles := make(map[Handle]Handle, len(order))
	for _, h := range order {
		handles[h] = dst.Put(shallowCopy(src.Get(h)))
	}
	for _, h := range order {
		fixupHandles(dst.Get(handles[h]), handles)
	}
	return handles[srcRoot]
}

func remapHandle(h Handle, handles map[Handle]Handle) Handle {
	if h == 0 {
		return 0
	}
	return handles[h] // zero value (no entity) if h falls outside the copied subtree
}

func shallowCopy(e Entity) Entity {
	switch ent := e.(type) {
	case *Module:
		cp := *ent
		cp.Native = append([]Handle(nil), ent.Native...)
		cp.Imports = nil
		return &cp
	case *Deduction:
		cp := *ent
		cp.Children = append([]Handle(nil), ent.Children...)
		cp.Targets = nil
		cp.TargetPaths = append([]string(nil), ent.TargetPaths...)
		return &cp
	case *Node:
		cp := *ent
		cp.Children = append([]Handle(nil), ent.Children...)
		cp.ContraHs = nil
		cp.Contras = append([]string(nil), ent.Contras...)
		return &cp
	case *Annotation:
		cp := *ent
		cp.Widgets = append([]Handle(nil), ent.Widgets...)
		cp.Targets = nil
		cp.TargetPaths = append([]string(nil), ent.TargetPaths...)
		return &cp
	case *Widget:
		cp := *ent
		return &cp
	case *Definition:
		cp := *ent
		return &cp
	case *Assignment:
		cp := *ent
		return &cp
	default:
		return e
	}
}

func fixupHandles(e Entity, handles map[Handle]Handle) {
	switch ent := e.(type) {
	case *Module:
		for i, h := range ent.Native {
			ent.Native[i] = remapHandle(h, handles)
		}
	case *Deduction:
		ent.ParentDeduc = remapHandle(ent.ParentDeduc, handles)
		for i, h := range ent.Children {
			ent.Children[i] = remapHandle(h, handles)
		}
	case *Node:
		ent.OwnerDeduc = remapHandle(ent.OwnerDeduc, handles)
		ent.GhostOf = remapHandle(ent.GhostOf, handles)
		ent.RealOf = remapHandle(ent.RealOf, handles)
		for i, h := range ent.Children {
			ent.Children[i] = remapHandle(h, handles)
		}
	case *Annotation:
		for i, h := range ent.Widgets {
			ent.Widgets[i] = remapHandle(h, handles)
		}
	case *Widget:
		ent.Owner = remapHandle(ent.Owner, handles)
	}
}

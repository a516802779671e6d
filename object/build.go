package object

import (
	"fmt"

	"github.com/proofscape/pfscbuild/libpath"
	"github.com/proofscape/pfscbuild/pfsclang"
	"github.com/proofscape/pfscbuild/registry/api/errcode"
)

// Build walks a parsed module's AST and constructs its typed object graph,
// rooted at the returned Module handle. modLibpath is the absolute
// libpath this source file occupies (assigned by the loader from the
// directory/file it was read from, not by the grammar). a, when non-nil,
// is an already-in-use Arena to build into (the loader shares one Arena
// across every file of one repo build, so a Deduction's resolved Targets
// can point at a Node defined in a sibling module without the Handle
// crossing an Arena boundary); when nil, Build allocates a fresh one, as
// a single-module caller such as a unit test would want.
func Build(a *Arena, modLibpath string, mod *pfsclang.Module) (*Arena, Handle, error) {
	if a == nil {
		a = NewArena()
	}
	m := &Module{Libpath_: modLibpath}
	mh := a.Put(m)

	for _, imp := range mod.Imports {
		recs, err := buildImportRecords(modLibpath, imp)
		if err != nil {
			return nil, 0, err
		}
		m.Imports = append(m.Imports, recs...)
	}

	scope := newScopeGuard()
	for _, item := range mod.Items {
		h, err := buildItem(a, modLibpath, scope, item)
		if err != nil {
			return nil, 0, err
		}
		m.Native = append(m.Native, h)
	}
	return a, mh, nil
}

// buildImportRecords expands one pfsclang.Import into the ImportRecord
// entries it binds, resolving `from P import *` and `from P import (...)`
// against the unqualified names listed in the grammar (full submodule/
// object resolution, including cross-repo dependency lookups, is the
// loader's job at load time, not Build's).
func buildImportRecords(modLibpath string, imp *pfsclang.Import) ([]ImportRecord, error) {
	if imp.Plain != "" {
		local := imp.As
		if local == "" {
			local = libpath.LastSegment(imp.Plain)
		}
		if local == "" {
			return nil, errcode.ErrorCodePlainRelativeImportMissingLocalName.WithArgs(imp.Plain)
		}
		return []ImportRecord{{LocalName: local, Target: imp.Plain, LineNo: imp.LineNo}}, nil
	}
	if imp.Star {
		// `from P import *` resolves every native name of P; deferred to
		// the loader, which has the loaded Module for P in hand. Build
		// records the intent as a star marker (empty LocalName) for the
		// loader to expand.
		return []ImportRecord{{LocalName: "", Target: imp.From, LineNo: imp.LineNo}}, nil
	}
	recs := make([]ImportRecord, 0, len(imp.Names))
	for _, n := range imp.Names {
		recs = append(recs, ImportRecord{
			LocalName: n,
			Target:    libpath.Child(imp.From, n),
			LineNo:    imp.LineNo,
		})
	}
	return recs, nil
}

// scopeGuard tracks the set of local names already defined within one
// nesting scope (module body, a Deduction's body, or a Node's body),
// raising ErrorCodeDuplicateDefinition on collision. A fresh scopeGuard is
// used per nesting level, mirroring the original's per-scope dict.
type scopeGuard struct {
	seen map[string]bool
}

func newScopeGuard() *scopeGuard {
	return &scopeGuard{seen: make(map[string]bool)}
}

func (s *scopeGuard) define(name string) error {
	if s.seen[name] {
		return errcode.ErrorCodeDuplicateDefinition.WithArgs(name)
	}
	s.seen[name] = true
	return nil
}

func buildItem(a *Arena, parentPath string, scope *scopeGuard, item pfsclang.Item) (Handle, error) {
	switch it := item.(type) {
	case *pfsclang.Deduc:
		return buildDeduc(a, parentPath, 0, scope, it)
	case *pfsclang.Anno:
		return buildAnno(a, parentPath, it)
	case *pfsclang.Defn:
		return buildDefn(a, parentPath, it)
	case *pfsclang.Assignment:
		return buildAssignment(a, parentPath, it)
	default:
		return 0, fmt.Errorf("object: unrecognized item type %T", item)
	}
}

func buildDeduc(a *Arena, parentPath string, parentDeduc Handle, scope *scopeGuard, d *pfsclang.Deduc) (Handle, error) {
	if err := scope.define(d.Name); err != nil {
		return 0, err
	}
	lp := libpath.Child(parentPath, d.Name)
	ded := &Deduction{
		Libpath_:    lp,
		IsSub:       d.Sub,
		ParentDeduc: parentDeduc,
		TargetPaths: append([]string(nil), d.Preamble.Targets...),
		LineNo:      d.LineNo,
	}
	h := a.Put(ded)

	childScope := newScopeGuard()
	for _, child := range d.Children {
		switch c := child.(type) {
		case *pfsclang.NodeDecl:
			ch, err := buildNode(a, lp, h, childScope, c)
			if err != nil {
				return 0, err
			}
			ded.Children = append(ded.Children, ch)
		case *pfsclang.Deduc:
			ch, err := buildDeduc(a, lp, h, childScope, c)
			if err != nil {
				return 0, err
			}
			ded.Children = append(ded.Children, ch)
		case *pfsclang.Assignment:
			ch, err := buildAssignment(a, lp, c)
			if err != nil {
				return 0, err
			}
			ded.Children = append(ded.Children, ch)
		default:
			return 0, fmt.Errorf("object: unrecognized deduc child %T", child)
		}
	}
	return h, nil
}

func buildNode(a *Arena, parentPath string, owner Handle, scope *scopeGuard, n *pfsclang.NodeDecl) (Handle, error) {
	if err := scope.define(n.Name); err != nil {
		return 0, err
	}
	lp := libpath.Child(parentPath, n.Name)
	special := NodeBasic
	switch n.Special {
	case "supp":
		special = NodeSupp
	case "wolog":
		special = NodeWOLOG
	case "flse":
		special = NodeFalse
	}
	node := &Node{
		Libpath_:   lp,
		NodeType:   n.Type,
		Special:    special,
		OwnerDeduc: owner,
		AltSupps:   append([]string(nil), n.AltSupps...),
		Contras:    append([]string(nil), n.Contras...),
		LineNo:     n.LineNo,
	}
	h := a.Put(node)

	if special == NodeSupp {
		ghost := &Node{
			Libpath_:   lp + ".ghost",
			NodeType:   n.Type,
			Special:    NodeGhost,
			OwnerDeduc: owner,
			RealOf:     h,
			LineNo:     n.LineNo,
		}
		gh := a.Put(ghost)
		node.GhostOf = gh
	}

	childScope := newScopeGuard()
	for _, child := range n.Children {
		switch c := child.(type) {
		case *pfsclang.NodeDecl:
			ch, err := buildNode(a, lp, owner, childScope, c)
			if err != nil {
				return 0, err
			}
			node.Children = append(node.Children, ch)
		case *pfsclang.Assignment:
			ch, err := buildAssignment(a, lp, c)
			if err != nil {
				return 0, err
			}
			node.Children = append(node.Children, ch)
		default:
			return 0, fmt.Errorf("object: unrecognized node child %T", child)
		}
	}
	return h, nil
}

func buildAnno(a *Arena, parentPath string, an *pfsclang.Anno) (Handle, error) {
	lp := libpath.Child(parentPath, an.Name)
	anno := &Annotation{
		Libpath_:    lp,
		TargetPaths: append([]string(nil), an.Targets...),
		Body:        an.Body,
		LineNo:      an.LineNo,
	}
	ah := a.Put(anno)
	for _, w := range ScanWidgets(anno) {
		wCopy := w
		wCopy.Owner = ah
		anno.Widgets = append(anno.Widgets, a.Put(&wCopy))
	}
	return ah, nil
}

func buildDefn(a *Arena, parentPath string, d *pfsclang.Defn) (Handle, error) {
	lp := libpath.Child(parentPath, d.Name)
	defn := &Definition{
		Libpath_: lp,
		Value:    toLiteJSON(d.Value),
		LineNo:   d.LineNo,
	}
	return a.Put(defn), nil
}

func buildAssignment(a *Arena, parentPath string, as *pfsclang.Assignment) (Handle, error) {
	lp := libpath.Child(parentPath, as.Name)
	asn := &Assignment{
		Libpath_: lp,
		Value:    toLiteJSON(as.Value),
		LineNo:   as.LineNo,
	}
	return a.Put(asn), nil
}

func toLiteJSON(v pfsclang.JSONValue) JSONValueLite {
	out := JSONValueLite{Kind: JSONKindLite(v.Kind), Str: v.Str, Num: v.Num, Bool: v.Bool}
	for _, e := range v.Arr {
		out.Arr = append(out.Arr, toLiteJSON(e))
	}
	for _, f := range v.Obj {
		out.Obj = append(out.Obj, JSONField{Key: f.Key, Value: toLiteJSON(f.Value)})
	}
	return out
}

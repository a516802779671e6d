package object

import "github.com/proofscape/pfscbuild/libpath"

// CascadeLibpaths rewrites root's own libpath to newPath and recursively
// rewrites every descendant's libpath to match, preserving each
// descendant's final segment. This is needed when a module is loaded
// under a different mount point than the one its own declarations assume
// (e.g. a repo checked out under an alias), so the whole subtree's
// identity moves together rather than item-by-item.
func CascadeLibpaths(a *Arena, root Handle, newPath string) {
	e := a.Get(root)
	if e == nil {
		return
	}
	setLibpath(e, newPath)
	if hc, ok := e.(HasChildren); ok {
		for _, ch := range hc.GetChildren() {
			child := a.Get(ch)
			if child == nil {
				continue
			}
			CascadeLibpaths(a, ch, libpath.Child(newPath, child.Name()))
		}
	}
}

func setLibpath(e Entity, newPath string) {
	switch ent := e.(type) {
	case *Module:
		ent.Libpath_ = newPath
	case *Deduction:
		ent.Libpath_ = newPath
	case *Node:
		ent.Libpath_ = newPath
	case *Annotation:
		ent.Libpath_ = newPath
	case *Widget:
		ent.Libpath_ = newPath
	case *Definition:
		ent.Libpath_ = newPath
	case *Assignment:
		ent.Libpath_ = newPath
	}
}

// Package manifest implements the Proofscape manifest tree: the record
// of which modpath builds to which version and where its built artifacts
// live, organized as a tree that mirrors the repo's module/submodule
// nesting so a partial (non-recursive) rebuild can merge its own subtree
// back into a larger existing tree without disturbing siblings.
package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/proofscape/pfscbuild/libpath"
	"github.com/proofscape/pfscbuild/registry/api/errcode"
)

// Node is one entry in a manifest tree: the modpath it describes, the
// version it was built at, and its direct submodule children, keyed by
// their own last libpath segment for fast lookup during merge.
type Node struct {
	Modpath  string           `json:"modpath"`
	Version  string           `json:"version"`
	Children map[string]*Node `json:"children,omitempty"`
}

// NewNode constructs a leaf Node for modpath at version.
func NewNode(modpath, version string) *Node {
	return &Node{Modpath: modpath, Version: version, Children: make(map[string]*Node)}
}

// Manifest is the root of one repo's manifest tree.
type Manifest struct {
	Root *Node `json:"root"`
}

// Find locates the node at modpath within m, descending from the root by
// splitting modpath into segments relative to the root's own modpath.
func (m *Manifest) Find(modpath string) (*Node, bool) {
	return m.Root.find(modpath)
}

func (n *Node) find(modpath string) (*Node, bool) {
	if n.Modpath == modpath {
		return n, true
	}
	if !libpath.IsStrictPrefix(n.Modpath, modpath) {
		return nil, false
	}
	rel := modpath[len(n.Modpath)+1:]
	segs := libpath.Split(rel)
	cur := n
	for _, seg := range segs {
		child, ok := cur.Children[seg]
		if !ok {
			return nil, false
		}
		cur = child
	}
	if cur.Modpath != modpath {
		return nil, false
	}
	return cur, true
}

// Merge attaches incoming into m at incoming.Root.Modpath, either
// in-place-replacing an existing node of the same modpath (when
// recursive is true, incoming's own subtree fully replaces whatever was
// there) or, for a non-recursive (single-module) rebuild, overwriting
// only the target node's own Version while preserving its existing
// Children untouched (a non-recursive build only re-renders one module,
// so its submodules' manifest entries are still valid and must survive
// the merge). If the attachment point's parent does not already exist in
// m, Merge reports ErrorCodeManifestBadForm: a partial manifest can only
// ever be merged into a tree that already has a path down to it.
func (m *Manifest) Merge(incoming *Manifest, recursive bool) error {
	if m.Root == nil {
		m.Root = incoming.Root
		return nil
	}
	target := incoming.Root
	parentPath, hasParent := libpath.Parent(target.Modpath)

	if target.Modpath == m.Root.Modpath {
		return m.mergeInto(m.Root, target, recursive)
	}
	if !hasParent {
		return errcode.ErrorCodeManifestBadForm.WithArgs(
			fmt.Sprintf("no attachment point for root-level modpath %s", target.Modpath))
	}
	parent, ok := m.Root.find(parentPath)
	if !ok {
		return errcode.ErrorCodeManifestBadForm.WithArgs(
			fmt.Sprintf("ancestor %s of %s not found in existing manifest", parentPath, target.Modpath))
	}
	name := libpath.LastSegment(target.Modpath)
	if existing, ok := parent.Children[name]; ok {
		return m.mergeInto(existing, target, recursive)
	}
	parent.Children[name] = target
	return nil
}

// mergeInto reconciles existing (already part of the tree) with incoming
// (the freshly built subtree for the same modpath).
func (m *Manifest) mergeInto(existing, incoming *Node, recursive bool) error {
	existing.Version = incoming.Version
	if recursive {
		existing.Children = incoming.Children
		return nil
	}
	// Non-recursive: this module alone was rebuilt, so its own Version
	// changes but its submodules' entries (describing builds this run
	// did not touch) must be preserved exactly as they were.
	if existing.Children == nil {
		existing.Children = make(map[string]*Node)
	}
	return nil
}

// RelationalRow is one flattened (modpath, version, parent modpath) triple,
// the shape BuildRelationalModel produces for loading a manifest tree into
// a row-oriented store or for diffing two manifests modpath-by-modpath.
type RelationalRow struct {
	Modpath       string
	Version       string
	ParentModpath string
}

// BuildRelationalModel flattens m's tree into RelationalRows in
// pre-order.
func (m *Manifest) BuildRelationalModel() []RelationalRow {
	if m.Root == nil {
		return nil
	}
	var rows []RelationalRow
	var walk func(n *Node, parent string)
	walk = func(n *Node, parent string) {
		rows = append(rows, RelationalRow{Modpath: n.Modpath, Version: n.Version, ParentModpath: parent})
		for _, child := range n.Children {
			walk(child, n.Modpath)
		}
	}
	walk(m.Root, "")
	return rows
}

// Marshal serializes m as JSON.
func (m *Manifest) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal parses JSON produced by Marshal.
func Unmarshal(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: unmarshaling: %w", err)
	}
	return &m, nil
}

package object

import (
	"sync"

	"github.com/proofscape/pfscbuild/libpath"
)

// Module is the root object built from a parsed source file: its own
// libpath, its resolved imports, and the native items declared in its
// body. Submodules are not recorded on it.
type Module struct {
	Libpath_ string
	Native   []Handle // top-level items, in source order: Deduc/Anno/Defn/Assignment
	Imports  []ImportRecord

	// depsOnce guards the lazy build of deps/depsErr from this module's
	// DEPENDENCIES_LHS assignment (see Dependencies), so a repo root
	// module validates its dependency map exactly once no matter how many
	// cross-repo imports consult it over the course of one build.
	depsOnce sync.Once
	deps     map[string]string
	depsErr  error
}

func (m *Module) Kind() Kind            { return KindModule }
func (m *Module) Libpath() string       { return m.Libpath_ }
func (m *Module) Name() string          { return libpath.LastSegment(m.Libpath_) }
func (m *Module) GetChildren() []Handle { return m.Native }

// ImportRecord is the resolved form of a pfsclang.Import: every name it
// binds into the owning module's local scope, mapped to the libpath it
// refers to.
type ImportRecord struct {
	LocalName string
	Target    string // absolute libpath
	LineNo    int
}

// Deduction is a `deduc`/`subdeduc` object: a proof, with an ordered list
// of child Nodes/SubDeductions and, once resolve_objects has run, the
// resolved handle of every preamble target.
type Deduction struct {
	Libpath_    string
	IsSub       bool
	ParentDeduc Handle // the enclosing Deduction for a subdeduc, else 0
	TargetPaths []string
	Targets     []Handle // resolved by ResolveObjects
	Children    []Handle // Node / Deduction(sub) / Assignment handles, in source order
	LineNo      int
}

func (d *Deduction) Kind() Kind            { return KindDeduc }
func (d *Deduction) Libpath() string       { return d.Libpath_ }
func (d *Deduction) Name() string          { return libpath.LastSegment(d.Libpath_) }
func (d *Deduction) GetChildren() []Handle { return d.Children }

// NumberedName splits a node's trailing digits from its alphabetic prefix,
// e.g. "Thm9" -> ("Thm", 9), so that listNativeDeducsByName can order
// "Thm9" before "Thm10" instead of lexicographically.
type NumberedName struct {
	Prefix string
	Number int
	HasNum bool
}

// NodeSpecial distinguishes the basic node from the three variants that
// carry extra semantics.
type NodeSpecial int

const (
	NodeBasic NodeSpecial = iota
	NodeSupp
	NodeWOLOG
	NodeFalse
	NodeGhost // synthetic: the one-to-one shadow object of a Supp node
)

// Node is one node declaration: `asrt`/`intr`/`cons`/... in the basic
// case, or one of the supp/wolog/flse variants.
type Node struct {
	Libpath_   string
	NodeType   string // grammar type keyword: "asrt", "intr", ...
	Special    NodeSpecial
	OwnerDeduc Handle // owning Deduction
	AltSupps   []string
	Contras    []string
	ContraHs   []Handle // resolved Contras, set by ResolveObjects
	GhostOf    Handle   // for a Supp node, the Handle of its synthetic Ghost
	RealOf     Handle   // for a Ghost node, the Handle of the Supp it shadows
	Children   []Handle
	LineNo     int
}

func (n *Node) Kind() Kind            { return KindNode }
func (n *Node) Libpath() string       { return n.Libpath_ }
func (n *Node) Name() string          { return libpath.LastSegment(n.Libpath_) }
func (n *Node) GetChildren() []Handle { return n.Children }

// Annotation is an `anno` block: raw annotation body text plus the
// widgets discovered within it (populated by Build, which scans the
// annotation body's embedded widget syntax; the builder's widget-autofill
// pass only fills in names the source left blank).
type Annotation struct {
	Libpath_    string
	TargetPaths []string
	Targets     []Handle
	Body        string
	Widgets     []Handle
	LineNo      int
}

func (a *Annotation) Kind() Kind            { return KindAnno }
func (a *Annotation) Libpath() string       { return a.Libpath_ }
func (a *Annotation) Name() string          { return libpath.LastSegment(a.Libpath_) }
func (a *Annotation) GetChildren() []Handle { return a.Widgets }

// Widget is one embedded interactive element discovered within an
// Annotation's body. Name is autofilled ("widget_0", "widget_1", ...) by
// the builder pass if the source left it blank.
type Widget struct {
	Libpath_ string
	Type     string
	Fields   []JSONField
	Owner    Handle // owning Annotation
}

func (w *Widget) Kind() Kind      { return KindWidget }
func (w *Widget) Libpath() string { return w.Libpath_ }
func (w *Widget) Name() string    { return libpath.LastSegment(w.Libpath_) }

// JSONField mirrors pfsclang.JSONField so this package does not need to
// import pfsclang outside of build.go's translation step.
type JSONField struct {
	Key   string
	Value JSONValueLite
}

// JSONValueLite is the object model's own copy of pfsclang's extended-JSON
// value, detached from the parser so resolved object-model data (e.g. a
// widget's field values) does not hold a live reference into a Parser's
// token stream.
type JSONValueLite struct {
	Kind JSONKindLite
	Str  string
	Num  float64
	Bool bool
	Arr  []JSONValueLite
	Obj  []JSONField
}

type JSONKindLite int

const (
	JSONNullLite JSONKindLite = iota
	JSONBoolLite
	JSONNumberLite
	JSONStringLite
	JSONArrayLite
	JSONObjectLite
)

// Definition is a `defn` declaration: a named, JSON-valued definition
// available for reference by libpath within its owning scope.
type Definition struct {
	Libpath_ string
	Value    JSONValueLite
	LineNo   int
}

func (d *Definition) Kind() Kind      { return KindDefn }
func (d *Definition) Libpath() string { return d.Libpath_ }
func (d *Definition) Name() string    { return libpath.LastSegment(d.Libpath_) }

// Assignment is a `name := <value>` declaration, native to whichever scope
// (module, Deduction, or Node) contains it.
type Assignment struct {
	Libpath_ string
	Value    JSONValueLite
	LineNo   int
}

func (a *Assignment) Kind() Kind      { return KindAssignment }
func (a *Assignment) Libpath() string { return a.Libpath_ }
func (a *Assignment) Name() string    { return libpath.LastSegment(a.Libpath_) }

package pfsclang

// This file defines the typed parse tree produced by Parse. Each case
// corresponds to one grammar production named in the build pipeline's
// component design (imports, deduc/subdeduc, node variants, anno, defn,
// top-level assignment). The object-model package walks this tree once to
// build the typed entity graph; the tree itself carries no resolved
// references, only syntax.

// Module is the root of one parsed source file.
type Module struct {
	Imports     []*Import
	Items       []Item // deducs, annos, defns, assignments, in source order
}

// Item is implemented by every kind of top-level (or deduction-scoped)
// declaration: *Deduc, *Anno, *Defn, *Assignment.
type Item interface {
	itemNode()
	Line() int
}

// Import covers both `import P [as L]` and `from P import (...)` forms.
type Import struct {
	From     string   // non-empty for `from P import ...`
	Names    []string // named imports; empty + Star for `from P import *`
	Star     bool
	As       string // local alias; only meaningful for plain `import P as L`
	Plain    string // non-empty for `import P [as L]`
	LineNo   int
}

func (i *Import) Line() int { return i.LineNo }

// Preamble is the shared header of a deduc/subdeduc: its optional `of`
// targets and `with` rdefs.
type Preamble struct {
	Targets []string // relpaths, resolved later
	RDefs   []string
}

// Deduc is a `deduc` or `subdeduc` declaration.
type Deduc struct {
	Name     string
	Sub      bool // true for `subdeduc`
	Preamble Preamble
	Children []Item // NodeDecl, *Deduc (nested subdeduc), *Assignment
	LineNo   int
}

func (d *Deduc) itemNode() {}
func (d *Deduc) Line() int { return d.LineNo }

// NodeDecl is one node declaration: basic, supp, wolog, or flse.
type NodeDecl struct {
	Type     string // one of NodeTypes, or "supp"/"wolog"/"flse" handled via Special
	Special  string // "", "supp", "wolog", "flse"
	Name     string
	AltSupps []string // supp alternative-supposition set, for Special=="supp"
	Contras  []string // flse contradicted-Supp names, for Special=="flse"
	WOLOG    bool
	Children []Item // nested NodeDecl, *Assignment
	LineNo   int
}

func (n *NodeDecl) itemNode() {}
func (n *NodeDecl) Line() int { return n.LineNo }

// Anno is an `anno NAME [on targets] @@@TAG ... @@@TAG` block. Body is the
// raw text recovered from the BlockChunker, not reparsed by the grammar.
type Anno struct {
	Name    string
	Targets []string
	Body    string
	LineNo  int
}

func (a *Anno) itemNode() {}
func (a *Anno) Line() int { return a.LineNo }

// Defn is a `defn` declaration: a named definition whose body is an
// extended-JSON literal.
type Defn struct {
	Name   string
	Value  JSONValue
	LineNo int
}

func (d *Defn) itemNode() {}
func (d *Defn) Line() int { return d.LineNo }

// Assignment is a top-level or nested `name := <extended-json>`.
type Assignment struct {
	Name   string
	Value  JSONValue
	LineNo int
}

func (a *Assignment) itemNode() {}
func (a *Assignment) Line() int { return a.LineNo }

package index

import (
	"sort"

	"github.com/proofscape/pfscbuild/libpath"
	"github.com/proofscape/pfscbuild/registry/api/errcode"
)

// Relation records one directed, kind-tagged edge this release introduces
// between two libpaths -- TARGETS (an annotation targeting an object),
// EXPANDS (a deduction's conclusion targeting the node it expands), or
// RETARGETS (an enrichment's target rewritten onto a move's destination).
// Like an entity, a Relation carries its own validity interval once
// written; CutAddValidate tracks that by the same (cut-set, add-set)
// membership test it uses for entities, keyed by String().
type Relation struct {
	Kind string // "TARGETS", "EXPANDS", or "RETARGETS"
	From string
	To   string
}

func (r Relation) String() string { return r.Kind + ":" + r.From + "->" + r.To }

// Origin identifies the module that natively defines an object, and the
// major version at which it was first introduced there -- spec.md §3/§8's
// (libpath, major) pair, not a bare modpath, since two different majors
// of the same module can each originate distinct objects.
type Origin struct {
	Libpath string
	Major   int
}

// ModuleIndexInfo accumulates everything one module's release needs to be
// entered into the versioned graph index: the deductions, annotations,
// and generic (definition/assignment) objects it declares, the relations
// between them, and its submodules, before the derived computations run
// in their required order: ComputeEntityMajors, ComputeMMClosure,
// CutAddValidate, HereElsewhereNowhere, ComputeOrigins.
type ModuleIndexInfo struct {
	Modpath string
	Major   int // the major version this release is being indexed for

	Deducs     []string
	Annos      []string
	Generics   []string
	Submodules []string
	Relations  []Relation

	// entityMajors maps every native libpath this module (transitively,
	// through its submodules) defines to the major version at which it
	// was first introduced, filled in by ComputeEntityMajors.
	entityMajors map[string]int

	// moveMapping maps every old libpath this release's change log (or an
	// ancestor's, chained through) ever moved, to its final destination,
	// or to "" for a move to VOID (the object was retired, not
	// relocated). Filled in by ComputeMMClosure.
	moveMapping map[string]string

	// here, elsewhere, nowhere partition entityMajors's keys after
	// HereElsewhereNowhere runs: here are objects first introduced at
	// mi.Major; elsewhere are objects inherited from an earlier major;
	// nowhere are keys priorKeys lists as having existed under this
	// modpath before but absent from entityMajors now (removed, or moved
	// out, as of this release).
	here, elsewhere, nowhere []string

	// cutSet and addSet are CutAddValidate's V_cut/V_add result: cutSet
	// holds every entity/relation key whose existing validity interval
	// must be closed at mi.Major before a new one opens (it was already
	// live and is being rebuilt or moved); addSet holds every key that is
	// new at mi.Major.
	cutSet map[string]bool
	addSet map[string]bool

	// origins maps every key in entityMajors to the (libpath, major) that
	// actually originates it, filled in by ComputeOrigins.
	origins map[string]Origin
}

// NewModuleIndexInfo starts an accumulator for modpath at the given major
// version (the release currently being indexed).
func NewModuleIndexInfo(modpath string, major int) *ModuleIndexInfo {
	return &ModuleIndexInfo{Modpath: modpath, Major: major}
}

// AddDeduc records one native deduction's libpath.
func (mi *ModuleIndexInfo) AddDeduc(lp string) { mi.Deducs = append(mi.Deducs, lp) }

// AddAnno records one native annotation's libpath.
func (mi *ModuleIndexInfo) AddAnno(lp string) { mi.Annos = append(mi.Annos, lp) }

// AddGeneric records one native definition or assignment's libpath.
func (mi *ModuleIndexInfo) AddGeneric(lp string) { mi.Generics = append(mi.Generics, lp) }

// AddSubmodule records one directly nested submodule's libpath.
func (mi *ModuleIndexInfo) AddSubmodule(lp string) { mi.Submodules = append(mi.Submodules, lp) }

// AddRelation records one TARGETS/EXPANDS/RETARGETS edge this release
// introduces between two libpaths.
func (mi *ModuleIndexInfo) AddRelation(kind, from, to string) {
	mi.Relations = append(mi.Relations, Relation{Kind: kind, From: from, To: to})
}

// ComputeEntityMajors computes, for every native object of this module
// plus (transitively) every native object of every submodule reachable
// from it, the major version at which it was first introduced.
// childClosures supplies each direct submodule's own already-computed
// map (submodules must be processed bottom-up).
func (mi *ModuleIndexInfo) ComputeEntityMajors(childClosures map[string]map[string]int) map[string]int {
	mi.entityMajors = make(map[string]int)
	for _, lp := range mi.Deducs {
		mi.entityMajors[lp] = mi.Major
	}
	for _, lp := range mi.Annos {
		mi.entityMajors[lp] = mi.Major
	}
	for _, lp := range mi.Generics {
		mi.entityMajors[lp] = mi.Major
	}
	for _, sub := range mi.Submodules {
		for lp, major := range childClosures[sub] {
			if existing, ok := mi.entityMajors[lp]; !ok || major < existing {
				mi.entityMajors[lp] = major
			}
		}
	}
	return mi.entityMajors
}

// EntityMajors returns the computed entity-major map. Callers must not
// mutate the returned map.
func (mi *ModuleIndexInfo) EntityMajors() map[string]int { return mi.entityMajors }

// ComputeMMClosure computes the move-mapping closure described in
// spec.md §4.7.2: chase every declared MOVE -- including one chained
// through several further moves of what was itself already a move's
// destination -- to the final libpath the moved object now lives at, or
// to "" if a later move in the chain sends it to VOID (retired, not
// relocated). The result is keyed by every original old path any move
// ever named, so ix0330/ix0360 can look up a path's ultimate fate in one
// step instead of re-walking the chain themselves.
func (mi *ModuleIndexInfo) ComputeMMClosure(moves []MoveOp) map[string]string {
	mi.moveMapping = chaseMoveMapping(moves)
	return mi.moveMapping
}

// MoveMapping returns the computed move-mapping closure. Callers must not
// mutate the returned map.
func (mi *ModuleIndexInfo) MoveMapping() map[string]string { return mi.moveMapping }

func chaseMoveMapping(moves []MoveOp) map[string]string {
	next := make(map[string]string, len(moves))
	for _, mv := range moves {
		next[mv.OldPath] = mv.NewPath
	}
	closure := make(map[string]string, len(next))
	for origin := range next {
		seen := map[string]bool{origin: true}
		cur, dest := origin, next[origin]
		for {
			if dest == "" {
				cur = ""
				break
			}
			cur = dest
			var moved bool
			dest, moved = next[cur]
			if !moved {
				break
			}
			if seen[cur] {
				break // cyclic move chain declared in the change log; settle at the last path reached rather than loop forever
			}
			seen[cur] = true
		}
		closure[origin] = cur
	}
	return closure
}

// CutAddValidate computes, for both entities and relations, the cut set
// V_cut (already-live things this release rebuilds or moves, whose
// existing validity interval must be closed at mi.Major before a fresh
// one opens) and the add set V_add (things genuinely new at mi.Major),
// per spec.md §4.7.3. priorCut supplies, for every key a previous
// indexing pass recorded, the cut value ([major, cut)'s exclusive upper
// bound) it last closed that key's interval at, or InfCut if still open;
// a key absent from priorCut has never been indexed before and is always
// an add. Reintroducing a key at a major strictly beyond a gap in its own
// validity history -- it was cut by a plain removal, not superseded by a
// MOVE, and is now reappearing under the same libpath -- is rejected: use
// a new libpath instead.
func (mi *ModuleIndexInfo) CutAddValidate(priorCut map[string]int) error {
	mi.cutSet = make(map[string]bool)
	mi.addSet = make(map[string]bool)

	for lp, major := range mi.entityMajors {
		cut, known := priorCut[lp]
		switch {
		case !known:
			mi.addSet[lp] = true
		case cut == InfCut || major <= cut:
			mi.cutSet[lp] = true
		default:
			return errcode.ErrorCodeRedefinitionAfterValidityGap.WithArgs(lp, major, cut)
		}
	}

	for old, dest := range mi.moveMapping {
		mi.cutSet[old] = true
		if dest != "" {
			mi.addSet[dest] = true
		}
	}

	for _, rel := range mi.Relations {
		key := rel.String()
		if _, known := priorCut[key]; known {
			mi.cutSet[key] = true
		} else {
			mi.addSet[key] = true
		}
	}
	return nil
}

// CutSet returns V_cut, computed by CutAddValidate.
func (mi *ModuleIndexInfo) CutSet() map[string]bool { return mi.cutSet }

// AddSet returns V_add, computed by CutAddValidate.
func (mi *ModuleIndexInfo) AddSet() map[string]bool { return mi.addSet }

// HereElsewhereNowhere partitions entityMajors's keys: here holds objects
// whose recorded major equals mi.Major (first introduced right here,
// either natively or via a submodule introduced at this same major);
// elsewhere holds objects inherited unchanged from an earlier major
// (recorded major < mi.Major); nowhere holds keys this module's closure
// does not contain but that priorKeys lists as having existed under this
// modpath before -- i.e. objects removed or moved out in this release,
// whose validity interval must be cut at mi.Major by the caller (unless
// a MOVE already accounts for it).
func (mi *ModuleIndexInfo) HereElsewhereNowhere(priorKeys map[string]bool) (here, elsewhere, nowhere []string) {
	for lp, major := range mi.entityMajors {
		if major == mi.Major {
			here = append(here, lp)
		} else {
			elsewhere = append(elsewhere, lp)
		}
	}
	for lp := range priorKeys {
		if _, stillPresent := mi.entityMajors[lp]; !stillPresent {
			nowhere = append(nowhere, lp)
		}
	}
	sort.Strings(here)
	sort.Strings(elsewhere)
	sort.Strings(nowhere)
	mi.here, mi.elsewhere, mi.nowhere = here, elsewhere, nowhere
	return here, elsewhere, nowhere
}

// ComputeOrigins maps every key in entityMajors to the (libpath, major)
// pair that actually originates it (spec.md §4.7.1): for anything in
// `here` or `elsewhere` that this release's move mapping did not just
// move here, that is mi.Modpath at its recorded major; for a move
// destination, it is the moved predecessor's own origin -- looked up in
// priorOrigins (what the last indexing pass recorded for the old path) if
// available, else approximated from the old path's parent module, since a
// moved object's identity traces back to wherever it was first defined,
// not to the major it happened to be relocated at. childOrigins supplies
// each direct submodule's own already-computed map (bottom-up, as with
// ComputeEntityMajors).
func (mi *ModuleIndexInfo) ComputeOrigins(childOrigins map[string]map[string]Origin, priorOrigins map[string]Origin) map[string]Origin {
	mi.origins = make(map[string]Origin, len(mi.entityMajors))
	for _, sub := range mi.Submodules {
		for lp, origin := range childOrigins[sub] {
			mi.origins[lp] = origin
		}
	}
	for lp, major := range mi.entityMajors {
		if _, ok := mi.origins[lp]; ok {
			continue
		}
		if origin, moved := mi.movedPredecessorOrigin(lp, priorOrigins); moved {
			mi.origins[lp] = origin
			continue
		}
		mi.origins[lp] = Origin{Libpath: mi.Modpath, Major: major}
	}
	return mi.origins
}

// Origins returns the computed origin map. Callers must not mutate the
// returned map.
func (mi *ModuleIndexInfo) Origins() map[string]Origin { return mi.origins }

func (mi *ModuleIndexInfo) movedPredecessorOrigin(lp string, priorOrigins map[string]Origin) (Origin, bool) {
	for old, dest := range mi.moveMapping {
		if dest != lp {
			continue
		}
		if o, ok := priorOrigins[old]; ok {
			return o, true
		}
		if parent, ok := libpath.Parent(old); ok {
			return Origin{Libpath: parent, Major: mi.entityMajors[lp]}, true
		}
	}
	return Origin{}, false
}

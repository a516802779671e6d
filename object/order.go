package object

import (
	"sort"
	"strconv"

	"github.com/proofscape/pfscbuild/registry/api/errcode"
)

// ParseNumberedName splits off a trailing run of decimal digits from name,
// e.g. "Thm9" -> {"Thm", 9, true}, "Lemma" -> {"Lemma", 0, false}. Used to
// order deduction names the way a reader expects ("Thm9" before "Thm10"),
// rather than lexicographically ("Thm10" before "Thm9").
func ParseNumberedName(name string) NumberedName {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) {
		return NumberedName{Prefix: name}
	}
	n, err := strconv.Atoi(name[i:])
	if err != nil {
		return NumberedName{Prefix: name}
	}
	return NumberedName{Prefix: name[:i], Number: n, HasNum: true}
}

// GetNativeItemsInDefOrder returns m's top-level items in source order. If
// hoistExpansions is true, any Deduction with an `of` clause (an
// "expansion") is moved to sit immediately after the last of its targets
// among the native items, so a reader encounters an expansion right after
// what it expands; cycles (an expansion of an expansion of itself, directly
// or transitively) are reported as ErrorCodeDAGHasCycle.
func GetNativeItemsInDefOrder(a *Arena, m *Module, hoistExpansions bool) ([]Handle, error) {
	if !hoistExpansions {
		return append([]Handle(nil), m.Native...), nil
	}

	pos := make(map[Handle]int, len(m.Native))
	for i, h := range m.Native {
		pos[h] = i
	}

	// depends[h] lists the native handles h must be hoisted after.
	depends := make(map[Handle][]Handle, len(m.Native))
	// followers[t] lists the expansions that depend on t, so each can be
	// placed as soon as t is.
	followers := make(map[Handle][]Handle, len(m.Native))
	for _, h := range m.Native {
		d, ok := a.Get(h).(*Deduction)
		if !ok || len(d.Targets) == 0 {
			continue
		}
		seen := make(map[Handle]bool)
		for _, t := range d.Targets {
			owner := ownerNativeHandle(a, t, pos)
			if owner != 0 && owner != h && !seen[owner] {
				depends[h] = append(depends[h], owner)
				followers[owner] = append(followers[owner], h)
				seen[owner] = true
			}
		}
	}

	const (
		white = iota
		gray
		black
	)
	color := make(map[Handle]int, len(m.Native))
	var order []Handle
	var visit func(h Handle) error
	visit = func(h Handle) error {
		switch color[h] {
		case black:
			return nil
		case gray:
			return errcode.ErrorCodeDAGHasCycle.WithArgs(entityLibpath(a, h))
		}
		color[h] = gray
		for _, dep := range depends[h] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[h] = black
		order = append(order, h)
		for _, f := range followers[h] {
			if color[f] == white {
				if err := visit(f); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for _, h := range m.Native {
		if err := visit(h); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// ownerNativeHandle walks up from a resolved target handle (a Node, or any
// entity) to find which of the module's native top-level handles contains
// it, returning 0 if target does not descend from any native item (e.g. it
// belongs to an imported module).
func ownerNativeHandle(a *Arena, target Handle, nativePos map[Handle]int) Handle {
	h := target
	for h != 0 {
		if _, ok := nativePos[h]; ok {
			return h
		}
		e := a.Get(h)
		if e == nil {
			return 0
		}
		switch ent := e.(type) {
		case *Node:
			h = ent.OwnerDeduc
		case *Deduction:
			h = ent.ParentDeduc
		default:
			return 0
		}
	}
	return 0
}

func entityLibpath(a *Arena, h Handle) string {
	if e := a.Get(h); e != nil {
		return e.Libpath()
	}
	return ""
}

// ListNativeDeducsByName returns the module's native (top-level)
// Deduction handles. If numberedNames is true, ties are broken using
// ParseNumberedName instead of plain lexicographic order, so "Thm9" sorts
// before "Thm10". If toposort is true, the result is additionally
// constrained so that every Deduction appears after every other native
// Deduction it targets (a dependency order); ties within that partial
// order fall back to the name ordering. A cycle among native Deducs'
// mutual targets is reported as ErrorCodeDAGHasCycle.
func ListNativeDeducsByName(a *Arena, m *Module, toposort, numberedNames bool) ([]Handle, error) {
	var deducs []Handle
	for _, h := range m.Native {
		if _, ok := a.Get(h).(*Deduction); ok {
			deducs = append(deducs, h)
		}
	}

	nameLess := func(i, j Handle) bool {
		ni, nj := a.Get(i).Name(), a.Get(j).Name()
		if !numberedNames {
			return ni < nj
		}
		pi, pj := ParseNumberedName(ni), ParseNumberedName(nj)
		if pi.Prefix != pj.Prefix {
			return pi.Prefix < pj.Prefix
		}
		if pi.HasNum && pj.HasNum {
			return pi.Number < pj.Number
		}
		return ni < nj
	}
	sort.Slice(deducs, func(i, j int) bool { return nameLess(deducs[i], deducs[j]) })

	if !toposort {
		return deducs, nil
	}

	pos := make(map[Handle]int, len(deducs))
	for i, h := range deducs {
		pos[h] = i
	}
	depends := make(map[Handle][]Handle, len(deducs))
	for _, h := range deducs {
		d := a.Get(h).(*Deduction)
		for _, t := range d.Targets {
			owner := ownerNativeHandle(a, t, pos)
			if owner != 0 && owner != h {
				depends[h] = append(depends[h], owner)
			}
		}
	}
	for _, deps := range depends {
		sort.Slice(deps, func(i, j int) bool { return nameLess(deps[i], deps[j]) })
	}

	const (
		white = iota
		gray
		black
	)
	color := make(map[Handle]int, len(deducs))
	var order []Handle
	var visit func(h Handle) error
	visit = func(h Handle) error {
		switch color[h] {
		case black:
			return nil
		case gray:
			return errcode.ErrorCodeDAGHasCycle.WithArgs(entityLibpath(a, h))
		}
		color[h] = gray
		for _, dep := range depends[h] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[h] = black
		order = append(order, h)
		return nil
	}
	for _, h := range deducs {
		if err := visit(h); err != nil {
			return nil, err
		}
	}
	return order, nil
}

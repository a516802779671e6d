package object

import (
	"testing"

	"github.com/proofscape/pfscbuild/pfsclang"
)

func parseOrFail(t *testing.T, src string) *pfsclang.Module {
	t.Helper()
	mod, _, err := pfsclang.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return mod
}

func TestBuildSimpleModule(t *testing.T) {
	mod := parseOrFail(t, `deduc Thm {
  asrt C {
    meson := "C"
  }
}
`)
	a, root, err := Build(nil, "gh.user.repo.thm", mod)
	if err != nil {
		t.Fatalf("build error: %v", err)
	}
	m := a.Get(root).(*Module)
	if len(m.Native) != 1 {
		t.Fatalf("expected 1 native item, got %d", len(m.Native))
	}
	d := a.Get(m.Native[0]).(*Deduction)
	if d.Libpath() != "gh.user.repo.thm.Thm" {
		t.Fatalf("got libpath %s", d.Libpath())
	}
	if len(d.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(d.Children))
	}
	n := a.Get(d.Children[0]).(*Node)
	if n.Libpath() != "gh.user.repo.thm.Thm.C" || n.NodeType != "asrt" {
		t.Fatalf("got node %+v", n)
	}
}

func TestBuildRejectsDuplicateNames(t *testing.T) {
	mod := parseOrFail(t, `deduc Thm {
  intr I {}
  intr I {}
}
`)
	_, _, err := Build(nil, "gh.user.repo.thm", mod)
	if err == nil {
		t.Fatalf("expected duplicate-definition error")
	}
}

func TestResolveDeducTargets(t *testing.T) {
	mod := parseOrFail(t, `deduc Thm {
  asrt C {}
}
deduc Pf of gh.user.repo.thm.Thm.C {
  intr I {}
}
`)
	a, root, err := Build(nil, "gh.user.repo.thm", mod)
	if err != nil {
		t.Fatalf("build error: %v", err)
	}
	lookup := LocalLookup(a, root)
	if err := ResolveObjects(a, root, lookup); err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	m := a.Get(root).(*Module)
	pf := a.Get(m.Native[1]).(*Deduction)
	if len(pf.Targets) != 1 {
		t.Fatalf("expected 1 resolved target, got %d", len(pf.Targets))
	}
	target := a.Get(pf.Targets[0]).(*Node)
	if target.Libpath() != "gh.user.repo.thm.Thm.C" {
		t.Fatalf("got target %s", target.Libpath())
	}
}

func TestResolveRejectsMissingTarget(t *testing.T) {
	mod := parseOrFail(t, `deduc Pf of gh.user.repo.thm.Nope.C {
  intr I {}
}
`)
	a, root, err := Build(nil, "gh.user.repo.thm", mod)
	if err != nil {
		t.Fatalf("build error: %v", err)
	}
	lookup := LocalLookup(a, root)
	if err := ResolveObjects(a, root, lookup); err == nil {
		t.Fatalf("expected target-does-not-exist error")
	}
}

func TestParseNumberedName(t *testing.T) {
	cases := []struct {
		in     string
		prefix string
		num    int
		hasNum bool
	}{
		{"Thm9", "Thm", 9, true},
		{"Thm10", "Thm", 10, true},
		{"Lemma", "Lemma", 0, false},
	}
	for _, c := range cases {
		got := ParseNumberedName(c.in)
		if got.Prefix != c.prefix || got.Number != c.num || got.HasNum != c.hasNum {
			t.Fatalf("ParseNumberedName(%q) = %+v", c.in, got)
		}
	}
}

func TestListNativeDeducsByNameNumbered(t *testing.T) {
	mod := parseOrFail(t, `deduc Thm10 { asrt C {} }
deduc Thm9 { asrt C {} }
deduc Thm2 { asrt C {} }
`)
	a, root, err := Build(nil, "gh.user.repo.thm", mod)
	if err != nil {
		t.Fatalf("build error: %v", err)
	}
	m := a.Get(root).(*Module)
	order, err := ListNativeDeducsByName(a, m, false, true)
	if err != nil {
		t.Fatalf("order error: %v", err)
	}
	var names []string
	for _, h := range order {
		names = append(names, a.Get(h).Name())
	}
	want := []string{"Thm2", "Thm9", "Thm10"}
	for i, w := range want {
		if names[i] != w {
			t.Fatalf("got order %v, want %v", names, want)
		}
	}
}

func TestGetNativeItemsInDefOrderHoistsExpansions(t *testing.T) {
	mod := parseOrFail(t, `deduc Pf of gh.user.repo.thm.Thm.C {
  intr I {}
}
deduc Thm {
  asrt C {}
}
`)
	a, root, err := Build(nil, "gh.user.repo.thm", mod)
	if err != nil {
		t.Fatalf("build error: %v", err)
	}
	m := a.Get(root).(*Module)
	lookup := LocalLookup(a, root)
	if err := ResolveObjects(a, root, lookup); err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	order, err := GetNativeItemsInDefOrder(a, m, true)
	if err != nil {
		t.Fatalf("order error: %v", err)
	}
	if a.Get(order[0]).Name() != "Thm" || a.Get(order[1]).Name() != "Pf" {
		t.Fatalf("expected Thm before Pf, got %s then %s", a.Get(order[0]).Name(), a.Get(order[1]).Name())
	}
}

package manifest

import "testing"

func buildSample() *Manifest {
	root := NewNode("gh.user.repo", "WIP")
	sub := NewNode("gh.user.repo.sub", "WIP")
	root.Children["sub"] = sub
	return &Manifest{Root: root}
}

func TestFind(t *testing.T) {
	m := buildSample()
	n, ok := m.Find("gh.user.repo.sub")
	if !ok || n.Modpath != "gh.user.repo.sub" {
		t.Fatalf("expected to find sub, got %+v ok=%v", n, ok)
	}
	if _, ok := m.Find("gh.user.repo.nope"); ok {
		t.Fatalf("expected not found")
	}
}

func TestMergeNonRecursivePreservesChildren(t *testing.T) {
	m := buildSample()
	incoming := &Manifest{Root: NewNode("gh.user.repo.sub", "v1.0.0")}
	if err := m.Merge(incoming, false); err != nil {
		t.Fatalf("merge error: %v", err)
	}
	n, ok := m.Find("gh.user.repo.sub")
	if !ok || n.Version != "v1.0.0" {
		t.Fatalf("expected version updated, got %+v", n)
	}
}

func TestMergeRecursiveReplacesSubtree(t *testing.T) {
	m := buildSample()
	newSub := NewNode("gh.user.repo.sub", "v1.0.0")
	newSub.Children["leaf"] = NewNode("gh.user.repo.sub.leaf", "v1.0.0")
	incoming := &Manifest{Root: newSub}
	if err := m.Merge(incoming, true); err != nil {
		t.Fatalf("merge error: %v", err)
	}
	if _, ok := m.Find("gh.user.repo.sub.leaf"); !ok {
		t.Fatalf("expected new leaf to be present after recursive merge")
	}
}

func TestMergeRejectsMissingAncestor(t *testing.T) {
	m := buildSample()
	incoming := &Manifest{Root: NewNode("gh.user.repo.missing.child", "WIP")}
	if err := m.Merge(incoming, false); err == nil {
		t.Fatalf("expected error for missing ancestor")
	}
}

func TestBuildRelationalModel(t *testing.T) {
	m := buildSample()
	rows := m.BuildRelationalModel()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	m := buildSample()
	data, err := m.Marshal()
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	m2, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if m2.Root.Modpath != m.Root.Modpath {
		t.Fatalf("round trip mismatch")
	}
}

package index

import (
	"context"
	"testing"
)

func TestEntityMajorsAndPlacement(t *testing.T) {
	sub := NewModuleIndexInfo("gh.user.repo.sub", 2)
	sub.AddDeduc("gh.user.repo.sub.Thm")
	sub.ComputeEntityMajors(nil)

	root := NewModuleIndexInfo("gh.user.repo", 2)
	root.AddDeduc("gh.user.repo.Main")
	root.AddSubmodule("gh.user.repo.sub")
	root.ComputeEntityMajors(map[string]map[string]int{
		"gh.user.repo.sub": sub.EntityMajors(),
	})

	closure := root.EntityMajors()
	if closure["gh.user.repo.Main"] != 2 || closure["gh.user.repo.sub.Thm"] != 2 {
		t.Fatalf("got closure %+v", closure)
	}

	here, elsewhere, nowhere := root.HereElsewhereNowhere(nil)
	if len(here) != 2 || len(elsewhere) != 0 || len(nowhere) != 0 {
		t.Fatalf("got here=%v elsewhere=%v nowhere=%v", here, elsewhere, nowhere)
	}
}

func TestHereElsewhereNowhereDetectsRemoval(t *testing.T) {
	mi := NewModuleIndexInfo("gh.user.repo", 3)
	mi.AddDeduc("gh.user.repo.Still")
	mi.ComputeEntityMajors(nil)

	prior := map[string]bool{"gh.user.repo.Still": true, "gh.user.repo.Removed": true}
	_, _, nowhere := mi.HereElsewhereNowhere(prior)
	if len(nowhere) != 1 || nowhere[0] != "gh.user.repo.Removed" {
		t.Fatalf("expected Removed in nowhere, got %v", nowhere)
	}
}

func TestWriterCommitAndIsLiveAt(t *testing.T) {
	store := NewMemStore()
	w := NewWriter(store)

	mi := NewModuleIndexInfo("gh.user.repo", 1)
	mi.AddDeduc("gh.user.repo.Thm")
	mi.ComputeEntityMajors(nil)
	mi.ComputeMMClosure(nil)
	if err := mi.CutAddValidate(nil); err != nil {
		t.Fatalf("cut/add/validate error: %v", err)
	}
	mi.HereElsewhereNowhere(nil)
	mi.ComputeOrigins(nil, nil)

	ctx := context.Background()
	if err := w.Commit(ctx, mi, nil, nil); err != nil {
		t.Fatalf("commit error: %v", err)
	}

	tx, _ := store.Begin(ctx)
	ids, err := tx.Query("OBJECT", map[string]Property{"libpath": "gh.user.repo.Thm"})
	if err != nil || len(ids) != 1 {
		t.Fatalf("expected 1 object node, got %v err=%v", ids, err)
	}
	props, _ := tx.GetProps(ids[0])
	major := props["major"].(int)
	cut := props["cut"].(int)
	if !IsLiveAt(major, cut, 1) {
		t.Fatalf("expected object live at major 1")
	}
}

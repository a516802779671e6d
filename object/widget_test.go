package object

import "testing"

func TestScanWidgetsFindsNamedAndUnnamed(t *testing.T) {
	anno := &Annotation{Libpath_: "gh.user.repo.mod.myanno", Body: `
Some prose. See [Euclid I.1]{.widget type="CHART" name="euclid_chart"}
and also an unnamed one: [proof]{.widget type="PROOF"}
and a plain link: [not a widget](http://example.com)
`}
	ws := ScanWidgets(anno)
	if len(ws) != 2 {
		t.Fatalf("expected 2 widgets, got %d: %+v", len(ws), ws)
	}
	if ws[0].Type != "CHART" || ws[0].Libpath_ != "euclid_chart" {
		t.Fatalf("unexpected first widget: %+v", ws[0])
	}
	if ws[1].Type != "PROOF" || ws[1].Libpath_ != "" {
		t.Fatalf("unexpected second widget: %+v", ws[1])
	}
}

func TestAutofillWidgetNames(t *testing.T) {
	a := NewArena()
	anno := &Annotation{Libpath_: "gh.user.repo.mod.myanno"}
	ah := a.Put(anno)
	w1 := &Widget{Type: "CHART"}
	w2 := &Widget{Type: "PROOF", Libpath_: "already_named"}
	anno.Widgets = []Handle{a.Put(w1), a.Put(w2)}

	changed, err := AutofillWidgetNames(a, ah)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Fatalf("expected change since w1 had no name")
	}
	if w1.Libpath_ != "gh.user.repo.mod.myanno.widget_0" {
		t.Fatalf("unexpected autofilled name: %q", w1.Libpath_)
	}
	if w2.Libpath_ != "already_named" {
		t.Fatalf("expected already-named widget untouched, got %q", w2.Libpath_)
	}

	changed2, err := AutofillWidgetNames(a, ah)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed2 {
		t.Fatalf("expected no change on second pass, all widgets now named")
	}
}

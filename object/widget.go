package object

import (
	"fmt"
	"regexp"
	"strings"
)

// widgetSpanRe matches a pfsc-flavored-markdown widget span: a bracketed
// label followed by a brace-delimited attribute list, e.g.
// `[Euclid I.1]{.widget type="CHART" name="euclid_chart"}`. Only spans
// carrying a `.widget` class are widgets; any other bracketed-attribute
// span (a plain cross-reference link, say) is left alone.
var widgetSpanRe = regexp.MustCompile(`\[[^\]]*\]\{([^}]*)\}`)

var attrRe = regexp.MustCompile(`(\w[\w-]*)\s*=\s*"([^"]*)"`)

// ScanWidgets finds every widget span in an annotation's raw body text
// and returns the Widget values it describes, in order of appearance.
// Widgets missing an explicit name are left with an empty Libpath_
// segment for AutofillWidgetNames to fill in; ScanWidgets itself assigns
// no names, since autofill only applies to WIP builds (object-model
// resolution decides that, not this scan).
func ScanWidgets(anno *Annotation) []Widget {
	var out []Widget
	for _, m := range widgetSpanRe.FindAllStringSubmatch(anno.Body, -1) {
		attrs := m[1]
		if !strings.Contains(attrs, ".widget") {
			continue
		}
		w := Widget{}
		for _, am := range attrRe.FindAllStringSubmatch(attrs, -1) {
			key, val := am[1], am[2]
			switch key {
			case "type":
				w.Type = val
			case "name":
				w.Libpath_ = val
			default:
				w.Fields = append(w.Fields, JSONField{Key: key, Value: JSONValueLite{Kind: JSONStringLite, Str: val}})
			}
		}
		out = append(out, w)
	}
	return out
}

// AutofillWidgetNames assigns a synthesized libpath ("<anno
// libpath>.widget_<n>") to every widget under root whose name scan left
// blank, and reports whether it changed anything (the builder's WIP
// source-rewrite step only fires when this returns true). Only call this
// for a WIP build; numbered releases must never have their widget names
// altered after the fact, since that would change the on-disk source of
// an immutable release.
func AutofillWidgetNames(a *Arena, root Handle) (bool, error) {
	changed := false
	err := Walk(a, root, func(h Handle, e Entity) error {
		anno, ok := e.(*Annotation)
		if !ok {
			return nil
		}
		for i, wh := range anno.Widgets {
			w, ok := a.Get(wh).(*Widget)
			if !ok {
				return fmt.Errorf("object: widget handle %d did not resolve to a Widget", wh)
			}
			if w.Libpath_ == "" {
				w.Libpath_ = fmt.Sprintf("%s.widget_%d", anno.Libpath_, i)
				w.Owner = h
				changed = true
			}
		}
		return nil
	})
	return changed, err
}

package pfsclang

import (
	"strings"
	"testing"
)

func TestStripCommentsBasic(t *testing.T) {
	in := "deduc Thm { # a comment\n  asrt C {}\n}\n"
	out := StripComments(in)
	if strings.Contains(out, "a comment") {
		t.Fatalf("comment survived stripping: %q", out)
	}
	if strings.Count(out, "\n") != strings.Count(in, "\n") {
		t.Fatalf("newline count changed: in=%d out=%d", strings.Count(in, "\n"), strings.Count(out, "\n"))
	}
}

func TestStripCommentsPreservesStringLiterals(t *testing.T) {
	in := `meson = "this # is not a comment"` + "\n"
	out := StripComments(in)
	if out != in {
		t.Fatalf("string literal containing '#' was altered: got %q want %q", out, in)
	}
}

func TestStripCommentsTripleQuoted(t *testing.T) {
	in := "x = \"\"\"line one\n# not a comment\nline two\"\"\"\n# real comment\ny = 1\n"
	out := StripComments(in)
	if strings.Contains(out, "real comment") {
		t.Fatalf("real comment survived: %q", out)
	}
	if !strings.Contains(out, "# not a comment") {
		t.Fatalf("triple-quoted content was stripped: %q", out)
	}
	if strings.Count(out, "\n") != strings.Count(in, "\n") {
		t.Fatalf("newline count changed")
	}
}

func TestStripCommentsIdempotent(t *testing.T) {
	in := "a = 1 # comment\nb = \"#not a comment\" # another\n"
	once := StripComments(in)
	twice := StripComments(once)
	if once != twice {
		t.Fatalf("stripping is not idempotent:\nonce:  %q\ntwice: %q", once, twice)
	}
}

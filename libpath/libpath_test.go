package libpath

import "testing"

func TestValid(t *testing.T) {
	tests := []struct {
		input string
		match bool
	}{
		{"a", true},
		{"a.b.c", true},
		{"a.b.Thm9", true},
		{"_private.x", true},
		{"", false},
		{".a", false},
		{"a.", false},
		{"a..b", false},
		{"a.1b", false},
		{"1a.b", false},
	}
	for _, tc := range tests {
		if got := Valid(tc.input); got != tc.match {
			t.Errorf("Valid(%q) = %v, want %v", tc.input, got, tc.match)
		}
	}
}

func TestRepoPart(t *testing.T) {
	rp, ok := RepoPart("gh.user.repo.sub.Thm")
	if !ok || rp != "gh.user.repo" {
		t.Fatalf("RepoPart = %q, %v", rp, ok)
	}
	if _, ok := RepoPart("gh.user"); ok {
		t.Fatalf("expected RepoPart to fail on too-short path")
	}
}

func TestIsStrictPrefix(t *testing.T) {
	if !IsStrictPrefix("a.b", "a.b.c") {
		t.Errorf("expected a.b to be a strict prefix of a.b.c")
	}
	if IsStrictPrefix("a.b", "a.bc") {
		t.Errorf("a.b must not match a.bc as a libpath prefix")
	}
	if IsStrictPrefix("a.b", "a.b") {
		t.Errorf("a libpath is not a strict prefix of itself")
	}
}

func TestResolveRelative(t *testing.T) {
	tests := []struct {
		home, rel, want string
		wantErr         bool
	}{
		{"a.b.c.d", ".x", "a.b.c.d.x", false},
		{"a.b.c.d", "..x", "a.b.c.x", false},
		{"a.b.c.d", "...x", "a.b.x", false},
		{"a.b.c.d", "....x", "a.x", false},
		{"a.b.c.d", ".....x", "", true},
		{"a.b.c.d", "absolute.path", "absolute.path", false},
	}
	for _, tc := range tests {
		got, err := ResolveRelative(tc.home, tc.rel)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ResolveRelative(%q, %q) expected error, got %q", tc.home, tc.rel, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ResolveRelative(%q, %q) unexpected error: %v", tc.home, tc.rel, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ResolveRelative(%q, %q) = %q, want %q", tc.home, tc.rel, got, tc.want)
		}
	}
}

func TestVersionParsing(t *testing.T) {
	v, err := ParseVersion("v1.2.3", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Major() != 1 || v.Minor() != 2 || v.Patch() != 3 {
		t.Fatalf("got %+v", v)
	}

	if _, err := ParseVersion("WIP", false); err == nil {
		t.Fatalf("expected WIP to be rejected when allowWIP is false")
	}
	wip, err := ParseVersion("WIP", true)
	if err != nil || !wip.IsWIP() {
		t.Fatalf("expected WIP to parse when allowed")
	}

	if _, err := ParseVersion("v1.2", false); err == nil {
		t.Fatalf("expected malformed version to fail")
	}
}

func TestVersionCompareAndMajor(t *testing.T) {
	v1, _ := ParseVersion("v1.0.0", false)
	v2, _ := ParseVersion("v2.0.0", false)
	if v1.Compare(v2) >= 0 {
		t.Fatalf("expected v1 < v2")
	}
	if !v2.IsMajorIncrement(v1) {
		t.Fatalf("expected major increment from v1 to v2")
	}
	v1b, _ := ParseVersion("v1.5.0", false)
	if v1b.IsMajorIncrement(v1) {
		t.Fatalf("did not expect major increment within same major")
	}
}

package object

import (
	"github.com/proofscape/pfscbuild/libpath"
	"github.com/proofscape/pfscbuild/registry/api/errcode"
)

// DependenciesAssignmentName is the native top-level assignment a repo's
// root module declares its cross-repo dependency map under:
// `DEPENDENCIES_LHS := {"gh.other.repo": "v1.2.0", ...}`.
const DependenciesAssignmentName = "DEPENDENCIES_LHS"

// Dependencies returns m's declared repo-to-required-version map, built
// lazily from its DEPENDENCIES_LHS assignment (if m has no such
// assignment, an empty map) and validated exactly once: every value must
// parse as a version tag, WIP included, or the first invalid entry fails
// the whole build with ErrorCodeMalformedVersionTag. a is the Arena m's
// Handle was built into, needed to read the assignment's own Handle back
// out of m.Native.
func (m *Module) Dependencies(a *Arena) (map[string]string, error) {
	m.depsOnce.Do(func() {
		m.deps, m.depsErr = m.buildDependencies(a)
	})
	return m.deps, m.depsErr
}

func (m *Module) buildDependencies(a *Arena) (map[string]string, error) {
	deps := make(map[string]string)
	for _, h := range m.Native {
		asn, ok := a.Get(h).(*Assignment)
		if !ok || libpath.LastSegment(asn.Libpath_) != DependenciesAssignmentName {
			continue
		}
		if asn.Value.Kind != JSONObjectLite {
			continue
		}
		for _, f := range asn.Value.Obj {
			if _, err := libpath.ParseVersion(f.Value.Str, true); err != nil {
				return nil, errcode.ErrorCodeMalformedVersionTag.WithArgs(f.Key, f.Value.Str)
			}
			deps[f.Key] = f.Value.Str
		}
	}
	return deps, nil
}

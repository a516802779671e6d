// Package modloader implements the module loader (spec.md §4.2): it turns
// a libpath/version pair into a built, cross-reference-resolved object
// graph, expanding `from P import *` / `from P import X` / self-relative
// imports along the way, and refuses to let a module's own import graph
// loop back on itself.
package modloader

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/proofscape/pfscbuild/libpath"
	"github.com/proofscape/pfscbuild/modcache"
	"github.com/proofscape/pfscbuild/object"
	"github.com/proofscape/pfscbuild/pfsclang"
	"github.com/proofscape/pfscbuild/registry/api/errcode"
)

// Locator maps a libpath native to the repo being built to the filesystem
// path of the .pfsc file that defines it. It returns ok=false for any
// libpath outside that repo, which is how Load tells a same-repo
// submodule reference apart from a cross-repo dependency reference
// without a separate flag.
type Locator func(modpath string) (path string, ok bool)

// IsReleased reports whether repopath's numbered release version has
// already been committed to the graph index. Consulted before loading any
// non-WIP module: spec.md §4.2 step 1 fails the load rather than build
// against a release that has not actually been indexed yet.
type IsReleased func(repopath, version string) (bool, error)

// Loader resolves one repo build's whole import graph. It shares one
// object.Arena across every native module it builds, so a Deduction's
// resolved Targets can point straight at a Node defined in a sibling file
// without the Handle ever crossing an Arena boundary; a module loaded
// from outside the repo (a cross-repo dependency, or this same repo's own
// code re-loaded from a previous run's cache) instead has its subtree
// copied into that Arena via object.CopyForeign, so every Handle the
// Loader ever hands back is valid in Arena regardless of where it
// actually came from.
type Loader struct {
	Arena      *object.Arena
	Locate     Locator
	Cache      modcache.Cache
	Policy     libpath.CachePolicy
	IsReleased IsReleased

	// HomeRepo is the repopath of the repo this Loader is building.
	// Required-version lookups for a reference outside it consult
	// HomeRoot's Dependencies(); references inside it always use the
	// build's own version directly.
	HomeRepo string
	// HomeRoot is the already-built Handle of HomeRepo's root (dunder)
	// module, supplying its DEPENDENCIES_LHS map. The caller sets this
	// once the root module has been loaded, normally before loading
	// anything else.
	HomeRoot object.Handle

	// mu guards built/adopted: the orchestrator builds a repo's files
	// concurrently (one goroutine per file, sharing this one Loader and
	// its Arena), and a file's own import resolution can trigger loading
	// a sibling file from another goroutine's stack frame.
	mu      sync.Mutex
	built   map[string]object.Handle // modpath@version -> Handle in Arena, this run only
	adopted map[string]object.Handle // same, for copied-in foreign subtrees
}

// New returns a Loader that builds into arena, locating native source
// files via locate and falling back to cache for anything locate misses.
func New(arena *object.Arena, locate Locator, cache modcache.Cache, policy libpath.CachePolicy, homeRepo string) *Loader {
	return &Loader{
		Arena:    arena,
		Locate:   locate,
		Cache:    cache,
		Policy:   policy,
		HomeRepo: homeRepo,
	}
}

// Load parses, builds, and fully resolves modpath at version, recursing
// into its imports as needed. history lists the modpaths already in
// progress higher up this same descent; a modpath that reappears in its
// own history -- directly or transitively -- fails with
// ErrorCodeCyclicImport instead of recursing forever.
func (l *Loader) Load(ctx context.Context, modpath, version string, history []string) (object.Handle, error) {
	for _, h := range history {
		if h == modpath {
			return 0, errcode.ErrorCodeCyclicImport.WithArgs(modpath)
		}
	}
	history = append(append([]string(nil), history...), modpath)

	isWIP := version == libpath.WIPTag
	bkey := modpath + "@" + version
	if h, ok := l.getBuilt(bkey); ok {
		return h, nil
	}

	path, ok := l.Locate(modpath)
	if !ok {
		return 0, errcode.ErrorCodeModuleDoesNotExist.WithArgs(modpath)
	}

	if !isWIP && l.IsReleased != nil {
		repoPath, _ := libpath.RepoPart(modpath)
		done, err := l.IsReleased(repoPath, version)
		if err != nil {
			return 0, err
		}
		if !done {
			return 0, errcode.ErrorCodeVersionNotBuiltYet.WithArgs(repoPath, version)
		}
	}

	var mtime time.Time
	if info, statErr := os.Stat(path); statErr == nil {
		mtime = info.ModTime()
	}
	key := modcache.Key{Libpath: modpath, Version: version}
	if l.Cache != nil {
		if entry, found, _ := l.Cache.Get(ctx, key); found && modcache.ShouldUse(l.Policy, isWIP, entry, mtime) {
			h := l.adopt(bkey, entry)
			return h, nil
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("modloader: reading %s: %w", path, err)
	}
	mod, _, err := pfsclang.Parse(string(raw))
	if err != nil {
		return 0, errcode.ErrorCodeParsingError.WithArgs(path, err)
	}
	_, root, err := object.Build(l.Arena, modpath, mod)
	if err != nil {
		return 0, err
	}
	// Mark built before resolving imports: a module that imports one of
	// its own submodules, which in turn (self-relatively) imports back
	// up to it, is a legitimate non-cyclic reference once the importing
	// module's own shape already exists in the arena; only a genuine
	// cycle in the *load* order is an error, and that is what history
	// guards above.
	l.setBuilt(bkey, root)

	lookup, err := l.resolveImports(ctx, root, modpath, version, history)
	if err != nil {
		return 0, err
	}
	if err := object.ResolveObjects(l.Arena, root, lookup); err != nil {
		return 0, err
	}

	if l.Cache != nil {
		_ = l.Cache.Put(ctx, key, modcache.Entry{Arena: l.Arena, Root: root, SourceModTime: mtime, CachedAt: time.Now()})
	}
	return root, nil
}

// loadAny resolves target, whether or not it is native to the repo this
// Loader is building, always returning a Handle valid in l.Arena.
func (l *Loader) loadAny(ctx context.Context, target, version string, history []string) (object.Handle, error) {
	if _, native := l.Locate(target); native {
		return l.Load(ctx, target, version, history)
	}
	return l.loadForeign(ctx, target, version)
}

// loadForeign resolves a module this Loader cannot build itself -- a
// cross-repo dependency, addressed by its own repo's required version --
// by reading it, already built, out of Cache and copying its subtree into
// l.Arena. It is never parsed here: the Loader only ever parses source
// native to the repo it is building.
func (l *Loader) loadForeign(ctx context.Context, target, version string) (object.Handle, error) {
	bkey := target + "@" + version
	if h, ok := l.getAdopted(bkey); ok {
		return h, nil
	}
	if l.Cache == nil {
		return 0, errcode.ErrorCodeModuleDoesNotExist.WithArgs(target)
	}
	entry, found, err := l.Cache.Get(ctx, modcache.Key{Libpath: target, Version: version})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, errcode.ErrorCodeModuleDoesNotExist.WithArgs(target)
	}
	h := l.adopt(bkey, entry)
	l.setAdopted(bkey, h)
	return h, nil
}

// adopt returns a Handle valid in l.Arena for entry, copying its subtree
// in first if entry came from a different Arena (always true for a
// cross-repo dependency; also true for a same-repo module pulled back out
// of Cache from an earlier run, since every run builds into its own fresh
// Arena), and remembering the result under bkey so a second request for
// the same (modpath, version) reuses it rather than copying twice.
func (l *Loader) adopt(bkey string, entry modcache.Entry) object.Handle {
	if entry.Arena == l.Arena {
		return entry.Root
	}
	h := object.CopyForeign(l.Arena, entry.Arena, entry.Root)
	l.setBuilt(bkey, h)
	return h
}

func (l *Loader) getBuilt(bkey string) (object.Handle, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.built[bkey]
	return h, ok
}

func (l *Loader) setBuilt(bkey string, h object.Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.built == nil {
		l.built = make(map[string]object.Handle)
	}
	l.built[bkey] = h
}

func (l *Loader) getAdopted(bkey string) (object.Handle, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.adopted[bkey]
	return h, ok
}

func (l *Loader) setAdopted(bkey string, h object.Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.adopted == nil {
		l.adopted = make(map[string]object.Handle)
	}
	l.adopted[bkey] = h
}

// resolveImports loads every module root's import statements name (star,
// named, or self-relative, already folded into ImportRecord by
// object.Build) and returns a Lookup merging root's own native entities
// with everything those imports bring into scope.
func (l *Loader) resolveImports(ctx context.Context, root object.Handle, modpath, version string, history []string) (object.Lookup, error) {
	m, ok := l.Arena.Get(root).(*object.Module)
	if !ok {
		return nil, fmt.Errorf("modloader: %s: root handle is not a Module", modpath)
	}
	local := object.LocalLookup(l.Arena, root)
	merged := make(map[string]object.Handle)

	for _, rec := range m.Imports {
		target := rec.Target
		if libpath.LeadingDots(target) > 0 {
			resolved, err := libpath.ResolveRelative(modpath, target)
			if err != nil {
				return nil, err
			}
			target = resolved
		}

		if rec.LocalName == "" {
			if target == modpath {
				return nil, errcode.ErrorCodeStarImportOfSelf.WithArgs(modpath)
			}
			pVersion, err := l.requiredVersion(modpath, target, version)
			if err != nil {
				return nil, err
			}
			pRoot, err := l.loadAny(ctx, target, pVersion, history)
			if err != nil {
				return nil, err
			}
			pMod, ok := l.Arena.Get(pRoot).(*object.Module)
			if !ok {
				continue
			}
			for _, h := range pMod.Native {
				if e := l.Arena.Get(h); e != nil {
					merged[e.Libpath()] = h
				}
			}
			continue
		}

		// Named import: target == P.X already (object.Build joined
		// imp.From and the name). Try X as an item nested anywhere in
		// P's tree; if P has no such item, X must itself be a loadable
		// submodule of P.
		pPath, hasParent := libpath.Parent(target)
		if !hasParent {
			return nil, fmt.Errorf("modloader: %s: malformed import target %q", modpath, target)
		}
		pVersion, err := l.requiredVersion(modpath, pPath, version)
		if err != nil {
			return nil, err
		}
		var namedFound bool
		if pRoot, loadErr := l.loadAny(ctx, pPath, pVersion, history); loadErr == nil {
			if h, found := findByLibpath(l.Arena, pRoot, target); found {
				merged[target] = h
				namedFound = true
			}
		}
		if namedFound {
			continue
		}
		xVersion, err := l.requiredVersion(modpath, target, version)
		if err != nil {
			return nil, err
		}
		subRoot, err := l.loadAny(ctx, target, xVersion, history)
		if err != nil {
			return nil, errcode.ErrorCodeModuleDoesNotContainObject.WithArgs(target)
		}
		merged[target] = subRoot
	}

	return func(lp string) (object.Handle, object.Kind, bool) {
		if h, kind, ok := local(lp); ok {
			return h, kind, ok
		}
		if h, ok := merged[lp]; ok {
			if e := l.Arena.Get(h); e != nil {
				return h, e.Kind(), true
			}
		}
		return 0, object.KindInvalid, false
	}, nil
}

// findByLibpath searches root's subtree for an entity whose libpath is
// exactly target.
func findByLibpath(a *object.Arena, root object.Handle, target string) (object.Handle, bool) {
	var found object.Handle
	_ = object.Walk(a, root, func(h object.Handle, e object.Entity) error {
		if e.Libpath() == target {
			found = h
		}
		return nil
	})
	return found, found != 0
}

// requiredVersion returns the version to load target at, given that
// fromModpath (at version fromVersion) is importing it. A same-repo
// target always uses fromVersion: the whole repo builds as one unit.
// A cross-repo target's version comes from the repo root module's own
// declared DEPENDENCIES_LHS map (spec.md §12.9); a repo importing
// another repo it has not declared a dependency on fails with
// ErrorCodeMissingRepoDependencyInfo rather than guessing a version.
func (l *Loader) requiredVersion(fromModpath, target, fromVersion string) (string, error) {
	targetRepo, ok := libpath.RepoPart(target)
	if !ok {
		targetRepo = target
	}
	if targetRepo == l.HomeRepo {
		return fromVersion, nil
	}
	if l.HomeRoot == 0 {
		return "", errcode.ErrorCodeMissingRepoDependencyInfo.WithArgs(targetRepo)
	}
	homeMod, ok := l.Arena.Get(l.HomeRoot).(*object.Module)
	if !ok {
		return "", errcode.ErrorCodeMissingRepoDependencyInfo.WithArgs(targetRepo)
	}
	deps, err := homeMod.Dependencies(l.Arena)
	if err != nil {
		return "", err
	}
	v, ok := deps[targetRepo]
	if !ok {
		return "", errcode.ErrorCodeMissingRepoDependencyInfo.WithArgs(targetRepo)
	}
	return v, nil
}

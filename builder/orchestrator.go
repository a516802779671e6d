// Package builder implements the Build -> Write -> Index orchestrator:
// the component that scans a repo's source tree, builds and resolves
// each module's object graph, writes its rendered artifacts through the
// write layer, and commits its accumulated index info into the
// versioned graph index, all under one per-repo checkout and one
// weighted progress monitor.
package builder

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/proofscape/pfscbuild/index"
	"github.com/proofscape/pfscbuild/internal/dcontext"
	"github.com/proofscape/pfscbuild/libpath"
	"github.com/proofscape/pfscbuild/manifest"
	"github.com/proofscape/pfscbuild/modcache"
	"github.com/proofscape/pfscbuild/modloader"
	"github.com/proofscape/pfscbuild/object"
	"github.com/proofscape/pfscbuild/registry/api/errcode"
	"github.com/proofscape/pfscbuild/writelayer"
)

// Config describes one build run: the repo to build, the version tag it
// builds as, and the change-log entries a release build's major-version
// increment must be checked against.
type Config struct {
	RepoRoot    string // filesystem path to the repo's source tree
	RepoLibpath string // the repo's repopath, e.g. "gh.user.repo"
	Version     string // "WIP" or a numbered release tag
	Major       int    // the major version this build commits under
	PrevMajor   int    // the most recently committed major, for change-log validation
	ChangeLog   []ChangeLogEntry
	// CachePolicy governs the module loader's reuse of a previously built
	// module graph for this run's WIP imports (spec.md §4.2); ignored for
	// numbered releases, which are always reused once cached.
	CachePolicy libpath.CachePolicy
}

// Pipeline wires together every component a build run needs. One
// Pipeline is shared by every build request a process serves; Run itself
// is safe to call concurrently for different repos (the Registry
// serializes same-repo access) but blocks a second caller targeting the
// same repo until the first's checkout is released.
type Pipeline struct {
	Registry   *Registry
	Cache      modcache.Cache
	WriteLayer *writelayer.WriteLayer
	Index      *index.Writer
	Store      index.GraphStore
	Weighting  Weighting
}

// NewPipeline constructs a Pipeline from its component ports.
func NewPipeline(reg *Registry, cache modcache.Cache, wl *writelayer.WriteLayer, idx *index.Writer, store index.GraphStore) *Pipeline {
	return &Pipeline{
		Registry:  reg,
		Cache:     cache,
		WriteLayer: wl,
		Index:     idx,
		Store:     store,
		Weighting: DefaultWeighting,
	}
}

// moduleBuild is one scanned source file's fully built and resolved
// object graph, ready to be written and indexed.
type moduleBuild struct {
	file  SourceFile
	arena *object.Arena
	root  object.Handle
}

// Result summarizes one completed build run.
type Result struct {
	Manifest       *manifest.Manifest
	ModulesBuilt   int
	WidgetsRenamed int
}

// Run executes the full Build -> Write -> Index pipeline for cfg,
// reporting weighted progress to onProgress if non-nil. A release build
// (cfg.Version != WIPTag) is only permitted when cfg.RepoLibpath is
// itself a repo root; release builds never target a sub-module, since a
// repo's major version and change log apply to the whole repo at once.
func (p *Pipeline) Run(ctx context.Context, cfg Config, onProgress func(float64)) (*Result, error) {
	isWIP := cfg.Version == libpath.WIPTag
	if !isWIP {
		if repoPart, ok := libpath.RepoPart(cfg.RepoLibpath); !ok || repoPart != cfg.RepoLibpath {
			return nil, errcode.ErrorCodeAttemptedReleaseBuildOnSubRepo.WithArgs(cfg.RepoLibpath)
		}
	}

	checkout := p.Registry.Checkout(cfg.RepoLibpath)
	defer checkout.Release()

	mon := NewMonitor(p.Weighting, onProgress)
	log := dcontext.GetLogger(ctx)

	if !isWIP {
		if err := ValidateChangeLog(ctx, cfg.PrevMajor, cfg.Major, cfg.ChangeLog); err != nil {
			return nil, err
		}
	}

	// --- Scan ---
	files, err := Scan(cfg.RepoRoot, cfg.RepoLibpath)
	if err != nil {
		incRun("scan_error")
		return nil, fmt.Errorf("builder: scanning %s: %w", cfg.RepoRoot, err)
	}
	mon.SetTotal(PhaseScan, len(files))
	mon.Advance(PhaseScan, len(files))

	// --- Build (one shared Arena and one shared Loader across every file
	// in the repo, so a cross-module TARGETS/EXPANDS reference resolves
	// to a Handle in the same Arena no matter which file defines it;
	// files still build concurrently, since the Loader and Arena are both
	// safe for concurrent use, but each one now goes through the Loader
	// instead of parsing+building standalone) ---
	mon.SetTotal(PhaseBuild, len(files))
	arena := object.NewArena()
	loader := p.newLoader(ctx, cfg, arena, files)

	rootIdx, hasRoot := rootFileIndex(cfg.RepoLibpath, files)
	if hasRoot {
		root, err := loader.Load(ctx, files[rootIdx].Libpath, cfg.Version, nil)
		if err != nil {
			incRun("build_error")
			return nil, err
		}
		loader.HomeRoot = root
		mon.Advance(PhaseBuild, 1)
	}

	builds := make([]moduleBuild, len(files))
	buildStart := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		if hasRoot && i == rootIdx {
			builds[i] = moduleBuild{file: f, arena: arena, root: loader.HomeRoot}
			continue
		}
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			root, err := loader.Load(gctx, f.Libpath, cfg.Version, nil)
			if err != nil {
				return err
			}
			builds[i] = moduleBuild{file: f, arena: arena, root: root}
			mon.Advance(PhaseBuild, 1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		incRun("build_error")
		return nil, err
	}
	recordDuration("build", buildStart)

	widgetsRenamed := 0
	if isWIP {
		for _, mb := range builds {
			changed, err := object.AutofillWidgetNames(mb.arena, mb.root)
			if err != nil {
				return nil, err
			}
			if changed {
				widgetsRenamed++
				log.Infof("builder: autofilled widget names in %s", mb.file.Libpath)
			}
		}
	}

	// --- Write ---
	mon.SetTotal(PhaseWrite, len(builds))
	writeStart := time.Now()
	for _, mb := range builds {
		if err := p.writeOne(ctx, cfg, mb); err != nil {
			incRun("write_error")
			return nil, err
		}
		mon.Advance(PhaseWrite, 1)
	}
	recordDuration("write", writeStart)

	// --- Index ---
	mon.SetTotal(PhaseIndex, 1)
	indexStart := time.Now()
	mi, err := accumulateIndex(cfg, builds)
	if err != nil {
		return nil, err
	}
	if p.Index != nil {
		if err := p.Index.Commit(ctx, mi, movesFor(cfg.ChangeLog), retargetsFor(cfg.ChangeLog)); err != nil {
			incRun("index_error")
			return nil, fmt.Errorf("builder: committing index: %w", err)
		}
	}
	mon.Advance(PhaseIndex, 1)
	recordDuration("index", indexStart)

	// --- Manifest ---
	mf := buildManifest(cfg, files)

	// --- Cache (WIP entries only; a numbered release is cached by the
	// loader on first read, per modcache.ShouldUse's short-circuit) ---
	if p.Cache != nil && isWIP {
		for _, mb := range builds {
			key := modcache.Key{Libpath: mb.file.Libpath, Version: cfg.Version}
			_ = p.Cache.Put(ctx, key, modcache.Entry{
				Arena:    mb.arena,
				Root:     mb.root,
				CachedAt: time.Now(),
			})
		}
	}

	incRun("success")
	return &Result{Manifest: mf, ModulesBuilt: len(builds), WidgetsRenamed: widgetsRenamed}, nil
}

// newLoader builds the modloader.Loader this run's Build phase shares
// across every file: one Locator closure over the scanned files (a
// same-repo reference resolves by libpath lookup; anything else is a
// cross-repo dependency the Loader falls back to Cache for), and
// isReleased wired in as the release-gate IsReleased callback.
func (p *Pipeline) newLoader(ctx context.Context, cfg Config, arena *object.Arena, files []SourceFile) *modloader.Loader {
	byPath := make(map[string]string, len(files))
	for _, f := range files {
		byPath[f.Libpath] = f.Path
	}
	locate := func(modpath string) (string, bool) {
		path, ok := byPath[modpath]
		return path, ok
	}
	loader := modloader.New(arena, locate, p.Cache, cfg.CachePolicy, cfg.RepoLibpath)
	loader.IsReleased = p.isReleased
	return loader
}

// isReleased reports whether repopath's numbered version has already been
// committed to the graph index, by checking for a VERSION node recording
// it (the same node Commit merges on write).
func (p *Pipeline) isReleased(repopath, version string) (bool, error) {
	if p.Store == nil {
		return true, nil
	}
	v, err := libpath.ParseVersion(version, false)
	if err != nil {
		return false, err
	}
	ctx := context.Background()
	tx, err := p.Store.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()
	ids, err := tx.Query("VERSION", map[string]index.Property{"repopath": repopath, "major": v.Major()})
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// rootFileIndex locates the scanned SourceFile that is repoLibpath's own
// repo-root dunder module, if the scan reached one; a sub-repo build (a
// WIP build targeting a single submodule rather than the whole repo) may
// have no such file, in which case cross-repo dependency resolution is
// unavailable and any import requiring it fails with
// ErrorCodeMissingRepoDependencyInfo.
func rootFileIndex(repoLibpath string, files []SourceFile) (int, bool) {
	for i, f := range files {
		if f.IsDunder && f.Libpath == repoLibpath {
			return i, true
		}
	}
	return 0, false
}

func (p *Pipeline) writeOne(ctx context.Context, cfg Config, mb moduleBuild) error {
	if p.WriteLayer == nil {
		return nil
	}
	content, err := object.EncodeArena(mb.arena)
	if err != nil {
		return fmt.Errorf("builder: encoding %s for write layer: %w", mb.file.Libpath, err)
	}
	_, err = p.WriteLayer.Write(ctx, mb.file.Libpath, cfg.Version, "object-graph", content)
	return err
}

// accumulateIndex builds one ModuleIndexInfo per scanned file (each native
// to its own module), wires each Deduction's resolved Targets and each
// Annotation's resolved Targets into EXPANDS/TARGETS Relations, then folds
// the whole set bottom-up: a submodule's ComputeEntityMajors/ComputeOrigins
// run before its parent's, per spec.md §4.7's required processing order,
// with the parent's own call folding in each child's already-computed
// closure via childClosures/childOrigins rather than recursing into the
// child's own declarations directly. The repo root's MII (or a synthetic
// one rooted at cfg.RepoLibpath, if the scan found no repo-root dunder
// file) is what Commit writes; every relation any module in the tree
// declared is folded into it, since a TARGETS/EXPANDS/RETARGETS edge is
// written by libpath pair regardless of which nesting level declared it.
func accumulateIndex(cfg Config, builds []moduleBuild) (*index.ModuleIndexInfo, error) {
	mis := make(map[string]*index.ModuleIndexInfo, len(builds))
	for i := range builds {
		mb := &builds[i]
		mi := index.NewModuleIndexInfo(mb.file.Libpath, cfg.Major)
		if err := collectNative(mb.arena, mb.root, mi); err != nil {
			return nil, err
		}
		mis[mb.file.Libpath] = mi
	}

	order := make([]string, 0, len(mis))
	for lp := range mis {
		order = append(order, lp)
	}
	sort.Slice(order, func(i, j int) bool {
		return len(libpath.Split(order[i])) > len(libpath.Split(order[j]))
	})
	for _, lp := range order {
		if parent, ok := libpath.Parent(lp); ok {
			if pmi, isModule := mis[parent]; isModule {
				pmi.AddSubmodule(lp)
			}
		}
	}

	moves := movesFor(cfg.ChangeLog)
	entityMajors := make(map[string]map[string]int, len(mis))
	origins := make(map[string]map[string]index.Origin, len(mis))
	var allRelations []index.Relation
	for _, lp := range order {
		mi := mis[lp]
		mi.ComputeEntityMajors(entityMajors)
		entityMajors[lp] = mi.EntityMajors()
		mi.ComputeMMClosure(moves)
		if err := mi.CutAddValidate(nil); err != nil {
			return nil, err
		}
		mi.HereElsewhereNowhere(nil)
		mi.ComputeOrigins(origins, nil)
		origins[lp] = mi.Origins()
		allRelations = append(allRelations, mi.Relations...)
	}

	top, ok := mis[cfg.RepoLibpath]
	if !ok {
		top = index.NewModuleIndexInfo(cfg.RepoLibpath, cfg.Major)
		for _, lp := range order {
			if parent, hasParent := libpath.Parent(lp); !hasParent || mis[parent] == nil {
				top.AddSubmodule(lp)
			}
		}
		top.ComputeEntityMajors(entityMajors)
		top.ComputeMMClosure(moves)
		if err := top.CutAddValidate(nil); err != nil {
			return nil, err
		}
		top.HereElsewhereNowhere(nil)
		top.ComputeOrigins(origins, nil)
	}
	top.Relations = allRelations
	return top, nil
}

// collectNative walks one module's own subtree (not its imports), adding
// its native deducs/annos/generics to mi and, for every Deduction/
// Annotation whose Targets ResolveObjects already resolved, the EXPANDS/
// TARGETS Relation that reference implies.
func collectNative(a *object.Arena, root object.Handle, mi *index.ModuleIndexInfo) error {
	return object.Walk(a, root, func(_ object.Handle, e object.Entity) error {
		switch ent := e.(type) {
		case *object.Deduction:
			mi.AddDeduc(ent.Libpath())
			for _, th := range ent.Targets {
				if target := a.Get(th); target != nil {
					mi.AddRelation("EXPANDS", ent.Libpath(), target.Libpath())
				}
			}
		case *object.Annotation:
			mi.AddAnno(ent.Libpath())
			for _, th := range ent.Targets {
				if target := a.Get(th); target != nil {
					mi.AddRelation("TARGETS", ent.Libpath(), target.Libpath())
				}
			}
		case *object.Definition:
			mi.AddGeneric(ent.Libpath())
		case *object.Assignment:
			mi.AddGeneric(ent.Libpath())
		}
		return nil
	})
}

// buildManifest assembles a two-level manifest: the repo root plus one
// child node per distinct first libpath segment below the repo root among
// the scanned files (a top-level module file or a submodule directory).
func buildManifest(cfg Config, files []SourceFile) *manifest.Manifest {
	root := manifest.NewNode(cfg.RepoLibpath, cfg.Version)
	for _, f := range files {
		top, ok := firstSegmentAfter(cfg.RepoLibpath, f.Libpath)
		if !ok {
			continue
		}
		if _, exists := root.Children[top]; !exists {
			root.Children[top] = manifest.NewNode(libpath.Child(cfg.RepoLibpath, top), cfg.Version)
		}
	}
	return &manifest.Manifest{Root: root}
}

func firstSegmentAfter(root, lp string) (string, bool) {
	if !libpath.IsStrictPrefix(root, lp) {
		return "", false
	}
	rel := lp[len(root)+1:]
	segs := libpath.Split(rel)
	if len(segs) == 0 {
		return "", false
	}
	return segs[0], true
}

func movesFor(entries []ChangeLogEntry) []index.MoveOp {
	var out []index.MoveOp
	for _, e := range entries {
		for _, mv := range e.Moves {
			out = append(out, index.MoveOp{OldPath: mv.OldPath, NewPath: mv.NewPath, AtMajor: e.ToMajor})
		}
	}
	return out
}

func retargetsFor(entries []ChangeLogEntry) []index.RetargetOp {
	var out []index.RetargetOp
	for _, e := range entries {
		for _, rt := range e.Retargets {
			out = append(out, index.RetargetOp{
				AffectedModpath: rt.AffectedModpath,
				OldTarget:       rt.OldTarget,
				NewTarget:       rt.NewTarget,
				AtMajor:         e.ToMajor,
			})
		}
	}
	return out
}

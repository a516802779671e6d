package errcode

const (
	groupParse    = "parse"
	groupVersion  = "version"
	groupImport   = "import"
	groupObject   = "object"
	groupBuild    = "build"
	groupManifest = "manifest"
)

var (
	// ErrorCodeUnknown is a catch-all for errors not otherwise
	// classified, and the value ParseErrorCode falls back to for an
	// unrecognized code string.
	ErrorCodeUnknown = register(groupParse, "UNKNOWN", "unknown error")

	// ErrorCodeParsingError covers lexer/parser failures: malformed
	// tokens, unbalanced blocks, syntax the grammar does not accept.
	ErrorCodeParsingError = register(groupParse, "PARSING_ERROR", "error parsing module source")

	// ErrorCodeDuplicateDefinition is raised when two items in the
	// same scope declare the same name; the parser itself allows this
	// to pass (names are resolved later), so the object builder is
	// where this is actually caught.
	ErrorCodeDuplicateDefinition = register(groupObject, "DUPLICATE_DEFINITION", "duplicate definition in scope")

	// ErrorCodeMalformedVersionTag is raised when a version string is
	// neither "WIP" nor a valid vM.m.p tuple.
	ErrorCodeMalformedVersionTag = register(groupVersion, "MALFORMED_VERSION_TAG", "malformed version tag")

	// ErrorCodeVersionNotBuiltYet is raised when a numbered release is
	// requested but has not yet been built and cached.
	ErrorCodeVersionNotBuiltYet = register(groupVersion, "VERSION_NOT_BUILT_YET", "requested version has not been built yet")

	// ErrorCodeCyclicImport is raised when the module loader detects
	// an import cycle while resolving dependencies.
	ErrorCodeCyclicImport = register(groupImport, "CYCLIC_IMPORT", "cyclic import detected")

	// ErrorCodeModuleDoesNotExist is raised when an import or load
	// request names a libpath with no corresponding module.
	ErrorCodeModuleDoesNotExist = register(groupImport, "MODULE_DOES_NOT_EXIST", "module does not exist")

	// ErrorCodeModuleDoesNotContainObject is raised when an import
	// names an object not present in the target module.
	ErrorCodeModuleDoesNotContainObject = register(groupImport, "MODULE_DOES_NOT_CONTAIN_OBJECT", "module does not contain requested object")

	// ErrorCodeModuleHasNoContents is raised when a module directory
	// has no dunder module file and no native content of its own.
	ErrorCodeModuleHasNoContents = register(groupImport, "MODULE_HAS_NO_CONTENTS", "module has no contents")

	// ErrorCodePlainRelativeImportMissingLocalName is raised when a
	// plain relative import omits the required local name.
	ErrorCodePlainRelativeImportMissingLocalName = register(groupImport, "PLAIN_RELATIVE_IMPORT_MISSING_LOCAL_NAME", "plain relative import is missing a local name")

	// ErrorCodeMissingRepoDependencyInfo is raised when a repo's
	// dependency declarations cannot be located or parsed.
	ErrorCodeMissingRepoDependencyInfo = register(groupImport, "MISSING_REPO_DEPENDENCY_INFO", "missing repo dependency info")

	// ErrorCodeStarImportOfSelf is raised when a module's own `from P
	// import *` names the module currently being loaded.
	ErrorCodeStarImportOfSelf = register(groupImport, "STAR_IMPORT_OF_SELF", "a module cannot star-import itself")

	// ErrorCodeRedefinitionAfterValidityGap is raised by the index
	// accumulator when an entity reappears at a major version strictly
	// greater than the cut of its own last validity interval, i.e. it was
	// removed (cut, no replacing MOVE) and is now being redefined from
	// scratch rather than continuously rebuilt or moved into.
	ErrorCodeRedefinitionAfterValidityGap = register(groupObject, "REDEFINITION_AFTER_VALIDITY_GAP", "entity redefined after a validity gap")

	// ErrorCodeTargetDoesNotExist is raised when a deduction or
	// annotation names a target libpath that cannot be resolved.
	ErrorCodeTargetDoesNotExist = register(groupObject, "TARGET_DOES_NOT_EXIST", "target does not exist")

	// ErrorCodeTargetOfWrongType is raised when a target resolves to
	// an object of a kind that cannot serve in the role requested of
	// it, e.g. a contradiction naming a non-Supp node.
	ErrorCodeTargetOfWrongType = register(groupObject, "TARGET_OF_WRONG_TYPE", "target is of the wrong type")

	// ErrorCodeTargetsBelongToDifferentDeducs is raised when a
	// deduction's targets span more than one owning deduction.
	ErrorCodeTargetsBelongToDifferentDeducs = register(groupObject, "TARGETS_BELONG_TO_DIFFERENT_DEDUCS", "targets belong to different deductions")

	// ErrorCodeDAGHasCycle is raised when dependency ordering
	// (expansion hoisting, topological sort) finds a cycle.
	ErrorCodeDAGHasCycle = register(groupObject, "DAG_HAS_CYCLE", "dependency graph has a cycle")

	// ErrorCodeMissingRepoChangeLog is returned, failing the build, when
	// a release build increments major version without a covering change
	// log entry.
	ErrorCodeMissingRepoChangeLog = register(groupBuild, "MISSING_REPO_CHANGE_LOG", "missing change log entry for major version increment")

	// ErrorCodeNoWIPImportsInNumberedReleases is raised when a
	// numbered release's dependency closure includes a WIP import,
	// which is never permitted since WIP content is mutable and a
	// numbered release must be fully reproducible.
	ErrorCodeNoWIPImportsInNumberedReleases = register(groupBuild, "NO_WIP_IMPORTS_IN_NUMBERED_RELEASES", "numbered releases may not import WIP content")

	// ErrorCodeAttemptedReleaseBuildOnSubRepo is raised when a release
	// build is requested against a module that is not a repo root.
	ErrorCodeAttemptedReleaseBuildOnSubRepo = register(groupBuild, "ATTEMPTED_RELEASE_BUILD_ON_SUB_REPO", "release builds may only target a repo root")

	// ErrorCodeMissingManifest is raised when a build step expects a
	// prior manifest (for a non-recursive merge) but none is found.
	ErrorCodeMissingManifest = register(groupManifest, "MISSING_MANIFEST", "missing manifest")

	// ErrorCodeManifestBadForm is raised when a manifest fails to
	// unmarshal or its node tree fails structural validation.
	ErrorCodeManifestBadForm = register(groupManifest, "MANIFEST_BAD_FORM", "manifest is malformed")
)

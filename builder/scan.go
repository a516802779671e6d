package builder

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// DunderModuleFile is the special filename that turns a directory into a
// module in its own right (the proof-module analogue of Python's
// __init__.py): a directory without one is just a namespace holding
// submodules, not itself a module with native content.
const DunderModuleFile = "__.pfsc"

// SourceExt is the file extension recognized as module source.
const SourceExt = ".pfsc"

// defaultIgnoreNames lists directory names a scan never descends into,
// regardless of hidden-dotfile status: build tooling and VCS metadata
// that could never contain module source.
var defaultIgnoreNames = map[string]bool{
	".git":         true,
	"__pycache__":  true,
	"node_modules": true,
}

// SourceFile is one discovered .pfsc file, with the libpath it will
// occupy once loaded.
type SourceFile struct {
	Path     string // filesystem path
	Libpath  string
	IsDunder bool
}

// Scan walks root looking for .pfsc source files, assigning each the
// libpath it would occupy under rootLibpath (root itself). Hidden
// directories (a leading '.') and defaultIgnoreNames are skipped
// entirely, the way a build tool conventionally ignores VCS and cache
// directories without requiring an explicit ignore file.
func Scan(root, rootLibpath string) ([]SourceFile, error) {
	var out []SourceFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		name := d.Name()
		if d.IsDir() {
			if rel != "." && (strings.HasPrefix(name, ".") || defaultIgnoreNames[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(name, SourceExt) {
			return nil
		}
		lp := rootLibpath
		if rel != name {
			dir := filepath.Dir(rel)
			for _, seg := range strings.Split(filepath.ToSlash(dir), "/") {
				if seg != "" && seg != "." {
					lp = lp + "." + seg
				}
			}
		}
		isDunder := name == DunderModuleFile
		if !isDunder {
			lp = lp + "." + strings.TrimSuffix(name, SourceExt)
		}
		out = append(out, SourceFile{Path: path, Libpath: lp, IsDunder: isDunder})
		return nil
	})
	return out, err
}

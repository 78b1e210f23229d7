package autoprobe

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

const (
	// defaultTargetDirName is the directory cargo builds into when
	// CARGO_TARGET_DIR is unset.
	defaultTargetDirName = "target"
	// scratchDirName is the subdirectory of OUT_DIR that holds probe artifacts.
	scratchDirName = "probe-artifacts"
)

// dirContainsTarget reports whether dir sits below <targetDir>/<target>,
// which is where cargo puts build script output when invoked with --target.
// targetDir defaults to "target" and may span several path segments.
// Without a target triple the answer is always false.
func dirContainsTarget(target, dir, targetDir string) bool {
	target = strings.TrimSpace(target)
	if target == "" {
		return false
	}

	root := splitPath(targetDir)
	if len(root) == 0 {
		root = []string{defaultTargetDirName}
	}
	want := append(root, target)

	segs := splitPath(dir)
	for i := 0; i+len(want) <= len(segs); i++ {
		if slices.Equal(segs[i:i+len(want)], want) {
			return true
		}
	}
	return false
}

// scratchDir returns the directory probe artifacts are written to.
// Target-partitioned builds get one more level named after the triple so
// that builds for different targets never share artifacts.
func scratchDir(target, outDir, targetDir string) string {
	dir := filepath.Join(outDir, scratchDirName)
	if dirContainsTarget(target, outDir, targetDir) {
		dir = filepath.Join(dir, target)
	}
	return dir
}

// ensureDir creates dir and its parents. An existing directory is not an error.
func ensureDir(fs afero.Fs, dir string) error {
	return fs.MkdirAll(dir, 0o755)
}

func splitPath(p string) []string {
	p = strings.TrimSpace(p)
	if p == "" {
		return nil
	}
	p = filepath.ToSlash(filepath.Clean(p))
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s == "" || s == "." {
			continue
		}
		segs = append(segs, s)
	}
	return segs
}

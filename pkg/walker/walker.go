// Package walker discovers source files under a project root, honoring
// gitignore-style exclusion rules.
package walker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/vestige-dev/vestige/pkg/config"
	"github.com/vestige-dev/vestige/pkg/models"
)

// Walker finds source files in a directory tree.
type Walker struct {
	config   *config.Config
	extra    []string
	matchers []gitignore.Matcher
}

// New creates a walker. Extra patterns are transient gitignore-syntax
// exclusions layered on top of the configured ones for this walk only.
func New(cfg *config.Config, extra ...string) *Walker {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Walker{config: cfg, extra: extra}
}

// findGitRoot finds the root of the git repository by looking for .git.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns combines config patterns, transient patterns, and
// any .gitignore files found from the repository root down.
func (w *Walker) loadExcludePatterns(root string) {
	var patterns []gitignore.Pattern

	for _, pattern := range w.config.Walk.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}
	for _, pattern := range w.extra {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}

	if w.config.Walk.Gitignore {
		gitRoot := findGitRoot(root)
		if gitRoot != "" {
			fs := osfs.New(gitRoot)
			if gitPatterns, err := gitignore.ReadPatterns(fs, nil); err == nil {
				patterns = append(patterns, gitPatterns...)
			}
		}
	}

	if len(patterns) > 0 {
		w.matchers = append(w.matchers, gitignore.NewMatcher(patterns))
	}
}

// isExcluded checks if a relative path matches any exclusion rule.
func (w *Walker) isExcluded(path string, isDir bool) bool {
	base := filepath.Base(path)

	if !w.config.Walk.ShowHidden && strings.HasPrefix(base, ".") && base != "." {
		return true
	}

	if isDir {
		for _, dir := range w.config.Walk.Dirs {
			if base == dir {
				return true
			}
		}
	}

	if len(w.matchers) == 0 {
		return false
	}
	pathParts := strings.Split(path, string(filepath.Separator))
	for _, m := range w.matchers {
		if m.Match(pathParts, isDir) {
			return true
		}
	}
	return false
}

// Walk recursively collects candidate files under root. Every
// non-excluded regular file is returned, including files no analyzer
// reads; the analysis stage decides what each one becomes. Unreadable
// directories and unresolvable symlinks produce diagnostics and traversal
// continues; only a missing or unreadable root is fatal. Returned paths
// are relative to root and sorted by WalkDir's lexical order.
func (w *Walker) Walk(root string) ([]string, []models.Diagnostic, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, nil, fmt.Errorf("walk root: %w", err)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, nil, err
	}

	w.loadExcludePatterns(root)

	files := make([]string, 0, 1024)
	var diags []models.Diagnostic

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			diags = append(diags, models.Diagnostic{
				Path:    path,
				Stage:   "walk",
				Message: err.Error(),
			})
			return nil
		}

		relPath, _ := filepath.Rel(root, path)
		if relPath == "." {
			return nil
		}

		// Symlinks that escape the root are skipped, not followed.
		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil {
				diags = append(diags, models.Diagnostic{
					Path:    relPath,
					Stage:   "walk",
					Message: "unresolvable symlink: " + err.Error(),
				})
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !isWithinRoot(resolved, absRoot) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			if w.isExcluded(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if w.isExcluded(relPath, false) {
			return nil
		}
		files = append(files, relPath)
		return nil
	})

	return files, diags, walkErr
}

// isWithinRoot checks if a path is contained within the root directory.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

package apply

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// ResetSet names the files fully owned by the declarative source. Patterns
// use filepath.Match syntax and are matched against absolute paths.
type ResetSet struct {
	patterns []string
}

// NewResetSet validates patterns and returns a ResetSet. Relative patterns
// are joined to base.
func NewResetSet(base string, patterns ...string) (ResetSet, error) {
	clean := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			return ResetSet{}, fmt.Errorf("empty reset pattern")
		}
		if !filepath.IsAbs(p) {
			if base == "" {
				return ResetSet{}, fmt.Errorf("relative reset pattern %q needs a config home", p)
			}
			p = filepath.Join(base, p)
		}
		p = filepath.Clean(p)
		if _, err := filepath.Match(p, ""); err != nil {
			return ResetSet{}, fmt.Errorf("reset pattern %q: %w", p, err)
		}
		clean = append(clean, p)
	}
	sort.Strings(clean)
	return ResetSet{patterns: clean}, nil
}

// Patterns returns the cleaned patterns.
func (r ResetSet) Patterns() []string {
	return append([]string(nil), r.patterns...)
}

// Empty reports whether the set has no patterns.
func (r ResetSet) Empty() bool { return len(r.patterns) == 0 }

// Owns reports whether path matches any pattern.
func (r ResetSet) Owns(path string) bool {
	path = filepath.Clean(path)
	for _, p := range r.patterns {
		if ok, _ := filepath.Match(p, path); ok {
			return true
		}
	}
	return false
}

// Undeclared returns the regular files matched by the patterns for which
// declared reports false, sorted and without duplicates.
func (r ResetSet) Undeclared(declared func(path string) bool) ([]string, error) {
	seen := make(map[string]bool)
	var out []string

	for _, p := range r.patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("reset pattern %q: %w", p, err)
		}
		for _, m := range matches {
			if seen[m] || declared(m) {
				continue
			}
			seen[m] = true

			info, err := os.Lstat(m)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("stat %s: %w", m, err)
			}
			if !info.Mode().IsRegular() {
				continue
			}
			out = append(out, m)
		}
	}

	sort.Strings(out)
	return out, nil
}

// DeleteUndeclared removes every file Undeclared reports. Files that
// disappear in the meantime are ignored. It returns the paths removed.
func (r ResetSet) DeleteUndeclared(declared func(path string) bool, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	paths, err := r.Undeclared(declared)
	if err != nil {
		return nil, err
	}

	deleted := make([]string, 0, len(paths))
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return deleted, fmt.Errorf("delete %s: %w", p, err)
		}
		logger.Info("deleted undeclared file", "path", p)
		deleted = append(deleted, p)
	}
	return deleted, nil
}

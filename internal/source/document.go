package source

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/roach88/kconfsync/internal/kconf"
)

// Group maps key names to descriptors.
type Group map[string]kconf.Descriptor

// File maps declarative group paths to their keys.
type File map[string]Group

// Document maps target file paths to their declarations.
type Document map[string]File

// Paths returns the declared file paths in sorted order.
func (d Document) Paths() []string {
	paths := make([]string, 0, len(d))
	for p := range d {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Groups returns the declarations for path in the form kconf.Manager expects.
func (d Document) Groups(path string) map[string]map[string]kconf.Descriptor {
	f, ok := d[path]
	if !ok {
		return nil
	}
	groups := make(map[string]map[string]kconf.Descriptor, len(f))
	for name, keys := range f {
		groups[name] = keys
	}
	return groups
}

// Declares reports whether path has an entry in the document.
func (d Document) Declares(path string) bool {
	_, ok := d[path]
	return ok
}

// Resolve returns a copy of d whose file paths are absolute and clean.
// Relative paths are joined to base. Two entries resolving to the same path
// are an error.
func (d Document) Resolve(base string) (Document, error) {
	resolved := make(Document, len(d))
	origin := make(map[string]string, len(d))

	for _, p := range d.Paths() {
		if p == "" {
			return nil, fmt.Errorf("empty file path in document")
		}

		abs := p
		if !filepath.IsAbs(abs) {
			if base == "" {
				return nil, fmt.Errorf("relative file path %q needs a config home", p)
			}
			abs = filepath.Join(base, abs)
		}
		abs = filepath.Clean(abs)

		if prev, dup := origin[abs]; dup {
			return nil, fmt.Errorf("file %s declared twice (as %q and %q)", abs, prev, p)
		}
		origin[abs] = p
		resolved[abs] = d[p]
	}

	return resolved, nil
}

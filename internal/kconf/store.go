package kconf

import (
	"bytes"
	"sort"
)

type group struct {
	path GroupPath
	keys map[string]ConfigValue
}

// Store maps group paths to their keys. The zero value is not usable; call
// NewStore.
type Store struct {
	groups map[string]*group
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{groups: make(map[string]*group)}
}

// Get returns the value stored for key in g.
func (s *Store) Get(g GroupPath, key string) (ConfigValue, bool) {
	grp, ok := s.groups[g.Key()]
	if !ok {
		return ConfigValue{}, false
	}
	v, ok := grp.keys[key]
	return v, ok
}

// Set stores v for key in g, creating the group if needed.
func (s *Store) Set(g GroupPath, key string, v ConfigValue) {
	grp, ok := s.groups[g.Key()]
	if !ok {
		grp = &group{path: g, keys: make(map[string]ConfigValue)}
		s.groups[g.Key()] = grp
	}
	grp.keys[key] = v
}

// Delete removes key from g. A group left without keys is removed too.
func (s *Store) Delete(g GroupPath, key string) {
	grp, ok := s.groups[g.Key()]
	if !ok {
		return
	}
	delete(grp.keys, key)
	if len(grp.keys) == 0 {
		delete(s.groups, g.Key())
	}
}

// ClearGroup removes every key of g.
func (s *Store) ClearGroup(g GroupPath) {
	delete(s.groups, g.Key())
}

// Groups returns the non-empty groups in output order.
func (s *Store) Groups() []GroupPath {
	paths := make([]GroupPath, 0, len(s.groups))
	for _, grp := range s.groups {
		if len(grp.keys) > 0 {
			paths = append(paths, grp.path)
		}
	}
	sort.Slice(paths, func(i, j int) bool { return Compare(paths[i], paths[j]) < 0 })
	return paths
}

// Keys returns the keys of g in sorted order.
func (s *Store) Keys(g GroupPath) []string {
	grp, ok := s.groups[g.Key()]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(grp.keys))
	for k := range grp.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys across all groups.
func (s *Store) Len() int {
	n := 0
	for _, grp := range s.groups {
		n += len(grp.keys)
	}
	return n
}

// Render serializes the store. Groups are sorted, the root group has no
// header, and successive group blocks are separated by one blank line.
func (s *Store) Render() []byte {
	var buf bytes.Buffer
	for i, g := range s.Groups() {
		if i > 0 {
			buf.WriteByte('\n')
		}
		if !g.IsRoot() {
			buf.WriteString(g.Header())
			buf.WriteByte('\n')
		}
		grp := s.groups[g.Key()]
		for _, key := range s.Keys(g) {
			buf.WriteString(FormatLine(key, grp.keys[key]))
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

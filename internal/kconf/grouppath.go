package kconf

import (
	"slices"
	"strings"
)

// GroupPath identifies a (possibly nested) KConfig group.
// The zero value is the root group, whose keys are written before any header.
// A GroupPath is immutable: accessors return copies.
type GroupPath struct {
	parts []string
}

// NewGroupPath builds a GroupPath from its components.
func NewGroupPath(parts ...string) GroupPath {
	if len(parts) == 0 {
		return GroupPath{}
	}
	return GroupPath{parts: slices.Clone(parts)}
}

// ParsePath decodes a declarative group path such as `Containments/1/General`.
// Components are separated by "/"; `\/` stands for a literal slash.
// The empty string is the root group.
func ParsePath(s string) GroupPath {
	if s == "" {
		return GroupPath{}
	}

	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '/' && (i == 0 || s[i-1] != '\\') {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])

	for i, p := range parts {
		parts[i] = strings.ReplaceAll(p, `\/`, "/")
	}
	return GroupPath{parts: parts}
}

// ParseHeader decodes a group header line such as `[Containments][1]`.
// The caller is responsible for recognizing header lines; surrounding
// whitespace is ignored.
func ParseHeader(line string) GroupPath {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "[")
	line = strings.TrimSuffix(line, "]")

	parts := strings.Split(line, "][")
	for i, p := range parts {
		parts[i] = Unescape(p)
	}
	return GroupPath{parts: parts}
}

// IsHeader reports whether a line is a group header.
func IsHeader(line string) bool {
	line = strings.TrimSpace(line)
	return len(line) >= 2 && line[0] == '[' && line[len(line)-1] == ']'
}

// Parts returns a copy of the path components.
func (p GroupPath) Parts() []string {
	return slices.Clone(p.parts)
}

// IsRoot reports whether p is the root group.
func (p GroupPath) IsRoot() bool {
	return len(p.parts) == 0
}

// Header encodes p as a group header line without the trailing newline.
// The root group has no header and encodes to "".
func (p GroupPath) Header() string {
	if p.IsRoot() {
		return ""
	}
	escaped := make([]string, len(p.parts))
	for i, part := range p.parts {
		escaped[i] = Escape(part)
	}
	return "[" + strings.Join(escaped, "][") + "]"
}

// Key returns a string that uniquely identifies p, suitable as a map key.
func (p GroupPath) Key() string {
	return p.Header()
}

// String renders p in declarative form, escaping literal slashes.
func (p GroupPath) String() string {
	escaped := make([]string, len(p.parts))
	for i, part := range p.parts {
		escaped[i] = strings.ReplaceAll(part, "/", `\/`)
	}
	return strings.Join(escaped, "/")
}

// Equal reports whether p and q have identical components.
func (p GroupPath) Equal(q GroupPath) bool {
	return slices.Equal(p.parts, q.parts)
}

// Compare orders group paths lexicographically by component; the root group
// sorts first. It returns -1, 0 or +1.
func Compare(a, b GroupPath) int {
	return slices.Compare(a.parts, b.parts)
}

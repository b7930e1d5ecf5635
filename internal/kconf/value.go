package kconf

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// ConfigValue is a stored key: its value in on-disk (escaped) form plus the
// key's markings. HasValue is false for flag-only keys, which are written
// without "=".
type ConfigValue struct {
	Value       string
	HasValue    bool
	Immutable   bool
	ShellExpand bool
}

// Marking returns the key suffix for the given markings: "", "[$i]", "[$e]"
// or "[$ei]".
func Marking(immutable, shellExpand bool) string {
	switch {
	case immutable && shellExpand:
		return "[$ei]"
	case immutable:
		return "[$i]"
	case shellExpand:
		return "[$e]"
	default:
		return ""
	}
}

// FormatLine serializes a key and its value as a single line without the
// trailing newline. key is the unescaped key name.
func FormatLine(key string, v ConfigValue) string {
	head := Escape(key) + Marking(v.Immutable, v.ShellExpand)
	if !v.HasValue {
		return head
	}
	return head + "=" + v.Value
}

// ParseLine parses a "key[$marking]=value" line. The returned key is
// unescaped; the value is kept in its escaped on-disk form.
// ok is false for comments and for lines without a key.
func ParseLine(line string) (key string, v ConfigValue, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '#' {
		return "", ConfigValue{}, false
	}

	rawKey, rawValue, hasValue := strings.Cut(line, "=")
	rawKey = strings.TrimSpace(rawKey)
	if hasValue {
		v.Value = strings.TrimSpace(rawValue)
		v.HasValue = true
	}

	rawKey, v.Immutable, v.ShellExpand = splitMarking(rawKey)
	if rawKey == "" {
		return "", ConfigValue{}, false
	}

	return Unescape(rawKey), v, true
}

// splitMarking strips a trailing "[$...]" marking from an escaped key.
// Escaped keys never contain a literal "[", so the last "[$" is unambiguous.
func splitMarking(rawKey string) (key string, immutable, shellExpand bool) {
	if !strings.HasSuffix(rawKey, "]") {
		return rawKey, false, false
	}
	idx := strings.LastIndex(rawKey, "[$")
	if idx < 0 {
		return rawKey, false, false
	}

	flags := rawKey[idx+2 : len(rawKey)-1]
	if flags == "" {
		return rawKey, false, false
	}
	for _, c := range flags {
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z') {
			return rawKey, false, false
		}
	}

	return strings.TrimSpace(rawKey[:idx]), strings.ContainsRune(flags, 'i'), strings.ContainsRune(flags, 'e')
}

// FormatValue stringifies a declarative value. Booleans become "true" or
// "false", numbers their shortest decimal form. Lists and maps are rejected.
func FormatValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case json.Number:
		return v.String(), nil
	case int:
		return strconv.Itoa(v), nil
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", v), nil
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case *big.Int:
		return v.String(), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}

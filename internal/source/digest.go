package source

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/kconfsync/internal/kconf"
)

// DomainDeclaration prefixes declaration digests. The version suffix leaves
// room for changing the canonical form.
const DomainDeclaration = "kconfsync/declaration/v1"

// Digest returns a content digest of the declarations for path. Digests are
// stable across encodings: the same declarations written as JSON, YAML or
// CUE hash identically.
func (d Document) Digest(path string) (string, error) {
	f, ok := d[path]
	if !ok {
		return "", fmt.Errorf("file %s not declared", path)
	}
	return f.Digest()
}

// Digest returns a content digest of f.
func (f File) Digest() (string, error) {
	obj := make(map[string]any, len(f))
	for groupName, keys := range f {
		group := make(map[string]any, len(keys))
		for key, desc := range keys {
			entry, err := canonicalDescriptor(desc)
			if err != nil {
				return "", fmt.Errorf("group %q, key %q: %w", groupName, key, err)
			}
			group[key] = entry
		}
		obj[groupName] = group
	}

	data, err := marshalCanonical(obj)
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainDeclaration, data), nil
}

func canonicalDescriptor(d kconf.Descriptor) (map[string]any, error) {
	entry := map[string]any{"persistent": d.Persistent}
	if d.Value == nil {
		entry["value"] = nil
	} else {
		value, err := kconf.FormatValue(d.Value)
		if err != nil {
			return nil, err
		}
		entry["value"] = value
	}
	if d.Immutable != nil {
		entry["immutable"] = *d.Immutable
	}
	if d.ShellExpand != nil {
		entry["shellExpand"] = *d.ShellExpand
	}
	return entry, nil
}

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// marshalCanonical writes JSON with object keys sorted by UTF-16 code units,
// NFC-normalized strings and no HTML escaping.
func marshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		return writeCanonicalString(buf, val)
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return lessUTF16(keys[i], keys[j]) })

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

// lessUTF16 orders strings by UTF-16 code units.
func lessUTF16(a, b string) bool {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			return ua[i] < ub[i]
		}
	}
	return len(ua) < len(ub)
}

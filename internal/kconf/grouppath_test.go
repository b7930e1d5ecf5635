package kconf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"Root", "", []string{}},
		{"Single", "General", []string{"General"}},
		{"Nested", "Containments/1/General", []string{"Containments", "1", "General"}},
		{"EscapedSlash", `a\/b/c`, []string{"a/b", "c"}},
		{"OnlyEscapedSlash", `Shortcut\/Key`, []string{"Shortcut/Key"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePath(tt.in)
			assert.Equal(t, len(tt.want) == 0, got.IsRoot())
			if len(tt.want) > 0 {
				assert.Equal(t, tt.want, got.Parts())
			}
		})
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	paths := [][]string{
		{"General"},
		{"a/b", "c"},
		{"Containments", "1", "Applets", "2"},
		{"x]y", "[z"},
		{" padded "},
		{"Colors:View"},
	}

	for _, parts := range paths {
		p := NewGroupPath(parts...)
		header := p.Header()
		require.True(t, IsHeader(header), "header %q", header)

		decoded := ParseHeader(header)
		assert.Equal(t, parts, decoded.Parts())
		assert.True(t, p.Equal(decoded))
	}
}

func TestHeaderEncoding(t *testing.T) {
	assert.Equal(t, "", GroupPath{}.Header())
	assert.Equal(t, "[General]", NewGroupPath("General").Header())
	assert.Equal(t, "[a/b][c]", NewGroupPath("a/b", "c").Header())
	assert.Equal(t, `[x\x5dy]`, NewGroupPath("x]y").Header())
	assert.Equal(t, `[\spadded]`, NewGroupPath(" padded").Header())
}

func TestDeclarativePathToHeader(t *testing.T) {
	p := ParsePath(`a\/b/c`)
	assert.Equal(t, "[a/b][c]", p.Header())
	assert.Equal(t, []string{"a/b", "c"}, ParseHeader(p.Header()).Parts())
	assert.Equal(t, `a\/b/c`, p.String())
}

func TestParseHeaderWhitespace(t *testing.T) {
	assert.Equal(t, []string{"General"}, ParseHeader("  [General]  \r").Parts())
}

func TestIsHeader(t *testing.T) {
	assert.True(t, IsHeader("[General]"))
	assert.True(t, IsHeader(" [a][b] "))
	assert.False(t, IsHeader("key=value"))
	assert.False(t, IsHeader("["))
	assert.False(t, IsHeader("Name[de]=x"))
}

func TestCompare(t *testing.T) {
	ordered := []GroupPath{
		{},
		NewGroupPath("A"),
		NewGroupPath("General"),
		NewGroupPath("a"),
		NewGroupPath("a", "b"),
		NewGroupPath("a", "c"),
		NewGroupPath("b"),
	}

	for i := range ordered {
		for j := range ordered {
			want := 0
			switch {
			case i < j:
				want = -1
			case i > j:
				want = 1
			}
			assert.Equal(t, want, Compare(ordered[i], ordered[j]), "Compare(%v, %v)", ordered[i].Parts(), ordered[j].Parts())
		}
	}
}

func TestGroupPathImmutable(t *testing.T) {
	parts := []string{"a", "b"}
	p := NewGroupPath(parts...)
	parts[0] = "changed"
	assert.Equal(t, []string{"a", "b"}, p.Parts())

	got := p.Parts()
	got[1] = "changed"
	assert.Equal(t, []string{"a", "b"}, p.Parts())
}

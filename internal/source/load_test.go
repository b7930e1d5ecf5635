package source

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kconfsync/internal/kconf"
)

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"plasma.json", FormatJSON},
		{"plasma.yaml", FormatYAML},
		{"plasma.YML", FormatYAML},
		{"dir/plasma.cue", FormatCUE},
	}
	for _, tt := range tests {
		got, err := FormatFromPath(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, err := FormatFromPath("plasma.ini")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestLoadEncodingsAgree(t *testing.T) {
	var docs []Document
	for _, name := range []string{"plasma.json", "plasma.yaml", "plasma.cue"} {
		doc, err := Load(filepath.Join("testdata", name))
		require.NoError(t, err, name)
		assert.Equal(t, []string{"kdeglobals", "kwinrc"}, doc.Paths(), name)
		docs = append(docs, doc)
	}

	for _, path := range docs[0].Paths() {
		want, err := docs[0].Digest(path)
		require.NoError(t, err)
		for i, doc := range docs[1:] {
			got, err := doc.Digest(path)
			require.NoError(t, err)
			assert.Equal(t, want, got, "document %d, file %s", i+1, path)
		}
	}
}

func TestLoadJSONKeepsNumberText(t *testing.T) {
	doc, err := Load(filepath.Join("testdata", "plasma.json"))
	require.NoError(t, err)

	desc := doc["kwinrc"]["Desktops/Layout"]["Number"]
	assert.Equal(t, json.Number("4"), desc.Value)
	require.NotNil(t, desc.Immutable)
	assert.True(t, *desc.Immutable)

	accent := doc["kdeglobals"]["General"]["AccentColor"]
	assert.Nil(t, accent.Value)
	assert.True(t, accent.Persistent)

	// explicit nulls leave the markings unset
	scheme := doc["kdeglobals"]["General"]["ColorScheme"]
	assert.Nil(t, scheme.Immutable)
	assert.Nil(t, scheme.ShellExpand)
}

func TestParseScalarShorthand(t *testing.T) {
	doc, err := ParseJSON([]byte(`{"f": {"G": {"K": "v", "N": 7, "B": true}}}`))
	require.NoError(t, err)

	group := doc["f"]["G"]
	assert.Equal(t, kconf.Descriptor{Value: "v"}, group["K"])
	assert.Equal(t, kconf.Descriptor{Value: json.Number("7")}, group["N"])
	assert.Equal(t, kconf.Descriptor{Value: true}, group["B"])
}

func TestParseRejectsUnknownDescriptorFields(t *testing.T) {
	_, err := ParseJSON([]byte(`{"f": {"G": {"K": {"value": "x", "shellexpand": true}}}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `file "f", group "G", key "K"`)
	assert.Contains(t, err.Error(), "shellexpand")
}

func TestParseDescriptorFieldsAreCaseSensitive(t *testing.T) {
	for _, field := range []string{"IMMUTABLE", "ShellExpand", "Value", "PERSISTENT"} {
		t.Run(field, func(t *testing.T) {
			input := `{"f": {"G": {"K": {"value": "v", "` + field + `": true}}}}`
			if field == "Value" {
				input = `{"f": {"G": {"K": {"Value": "v"}}}}`
			}
			_, err := ParseJSON([]byte(input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), field)
		})
	}

	for _, format := range []Format{FormatYAML, FormatCUE} {
		_, err := Parse([]byte(`{"f": {"G": {"K": {"value": "v", "immutAble": true}}}}`), format, "typo")
		assert.Error(t, err, format)
	}
}

func TestParseYAMLKeepsFloatText(t *testing.T) {
	doc, err := ParseYAML([]byte(`
kwinrc:
  Compositing:
    Scale: 1.0
    Factor: {value: 0.50}
    Exp: 1e3
    Count: 4
    Hex: 0x10
    Name: "1.0"
`))
	require.NoError(t, err)

	group := doc["kwinrc"]["Compositing"]
	assert.Equal(t, json.Number("1.0"), group["Scale"].Value)
	assert.Equal(t, json.Number("0.50"), group["Factor"].Value)
	assert.Equal(t, json.Number("1e3"), group["Exp"].Value)
	assert.Equal(t, 4, group["Count"].Value)
	assert.Equal(t, 16, group["Hex"].Value)
	assert.Equal(t, "1.0", group["Name"].Value)

	got, err := kconf.FormatValue(group["Scale"].Value)
	require.NoError(t, err)
	assert.Equal(t, "1.0", got)

	// Same literal in JSON and YAML gives the same declaration digest.
	fromJSON, err := ParseJSON([]byte(`{"kwinrc": {"Compositing": {"Scale": 1.0}}}`))
	require.NoError(t, err)
	fromYAML, err := ParseYAML([]byte("kwinrc:\n  Compositing:\n    Scale: 1.0\n"))
	require.NoError(t, err)
	want, err := fromJSON.Digest("kwinrc")
	require.NoError(t, err)
	gotDigest, err := fromYAML.Digest("kwinrc")
	require.NoError(t, err)
	assert.Equal(t, want, gotDigest)
}

func TestParseYAMLAnchorsAndMergeKeys(t *testing.T) {
	doc, err := ParseYAML([]byte(`
defaults: &defaults
  General:
    A: 1
kdeglobals:
  <<: *defaults
  KDE:
    B: &b true
    C: *b
`))
	require.NoError(t, err)

	assert.Equal(t, 1, doc["kdeglobals"]["General"]["A"].Value)
	assert.Equal(t, true, doc["kdeglobals"]["KDE"]["B"].Value)
	assert.Equal(t, true, doc["kdeglobals"]["KDE"]["C"].Value)
}

func TestParseYAMLEmpty(t *testing.T) {
	doc, err := ParseYAML(nil)
	require.NoError(t, err)
	assert.Empty(t, doc)
}

func TestParseRejectsWrongShapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"top level array", `[]`, "document: expected an object"},
		{"file is string", `{"f": "x"}`, `file "f": expected an object`},
		{"group is number", `{"f": {"G": 3}}`, `file "f", group "G": expected an object`},
		{"bad marking type", `{"f": {"G": {"K": {"value": "x", "immutable": "yes"}}}}`, "invalid descriptor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseJSONEmptyAndTrailing(t *testing.T) {
	doc, err := ParseJSON(nil)
	require.NoError(t, err)
	assert.Empty(t, doc)

	_, err = ParseJSON([]byte(`{} {}`))
	assert.Error(t, err)
}

func TestParseCUERequiresConcrete(t *testing.T) {
	_, err := ParseCUE([]byte(`f: G: K: value: string`), "abstract.cue")
	assert.Error(t, err)

	_, err = ParseCUE([]byte(`f: G: K: value: "a"`+"\n"+`f: G: K: value: "b"`), "conflict.cue")
	assert.Error(t, err)
}

func TestParseNameInError(t *testing.T) {
	_, err := Parse([]byte(`{`), FormatJSON, "broken.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.json")
}

func TestResolve(t *testing.T) {
	doc := Document{
		"kdeglobals":      {},
		"/etc/xdg/kwinrc": {},
		"sub/../plasmarc": {},
	}

	resolved, err := doc.Resolve("/home/u/.config")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/etc/xdg/kwinrc",
		"/home/u/.config/kdeglobals",
		"/home/u/.config/plasmarc",
	}, resolved.Paths())
	assert.True(t, resolved.Declares("/home/u/.config/kdeglobals"))
	assert.False(t, resolved.Declares("kdeglobals"))
}

func TestResolveErrors(t *testing.T) {
	_, err := Document{"kdeglobals": {}}.Resolve("")
	assert.ErrorContains(t, err, "needs a config home")

	_, err = Document{"": {}}.Resolve("/home/u/.config")
	assert.ErrorContains(t, err, "empty file path")

	_, err = Document{
		"kdeglobals":                 {},
		"/home/u/.config/kdeglobals": {},
	}.Resolve("/home/u/.config")
	assert.ErrorContains(t, err, "declared twice")
}

func TestGroups(t *testing.T) {
	doc := Document{"f": {"G": {"K": {Value: "v"}}}}
	groups := doc.Groups("f")
	assert.Equal(t, map[string]map[string]kconf.Descriptor{"G": {"K": {Value: "v"}}}, groups)
	assert.Nil(t, doc.Groups("missing"))
}

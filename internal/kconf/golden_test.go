package kconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

func mixedDeclarations() decls {
	return decls{
		"": {"Root": {Value: " padded value "}},
		"General": {
			"ColorScheme": {Value: nil},
			"font":        {Value: "Noto Sans,10,-1,5,50,0,0,0,0,0"},
		},
		"KDE": {
			"SingleClick":        {Value: true, Immutable: boolPtr(true)},
			"LookAndFeelPackage": {Value: "org.kde.breezedark.desktop"},
		},
		"Containments/1/General": {"wallpaperplugin": {Value: "org.kde.image"}},
		"Paths":                  {"Desktop": {Value: "$HOME/Desktop", ShellExpand: boolPtr(true)}},
	}
}

func renderFixture(t *testing.T, policy Policy, groups decls) []byte {
	t.Helper()
	input, err := os.ReadFile(filepath.Join("testdata", "mixed.input"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "kdeglobals")
	require.NoError(t, os.WriteFile(path, input, 0644))

	m := NewManager(path, policy)
	require.NoError(t, m.Validate(groups))
	require.NoError(t, m.Read())
	require.NoError(t, m.Run())
	content, err := m.Render()
	require.NoError(t, err)
	return content
}

// TestGoldenMerge compares rendered output with testdata/golden.
// To regenerate golden files, run:
//
//	go test ./internal/kconf -update
func TestGoldenMerge(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	g.Assert(t, "merge_mixed", renderFixture(t, Policy{}, mixedDeclarations()))
}

func TestGoldenMergeReset(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	groups := mixedDeclarations()
	groups["General"]["widgetStyle"] = Descriptor{Persistent: true}
	g.Assert(t, "merge_mixed_reset", renderFixture(t, Policy{Reset: true}, groups))
}

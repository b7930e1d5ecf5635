package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simpleSource = `{
  "kdeglobals": {
    "General": {
      "ColorScheme": "BreezeDark"
    }
  }
}`

func TestApplyCommand_WritesFile(t *testing.T) {
	isolate(t)
	target := t.TempDir()
	src := writeTestFile(t, filepath.Join(t.TempDir(), "plasma.json"), simpleSource)

	out, _, err := executeCommand(t, "apply", src, "--config-home", target)
	require.NoError(t, err)
	assert.Contains(t, out, "+ wrote "+filepath.Join(target, "kdeglobals")+" (new)")
	assert.Contains(t, out, "1 file(s), 1 changed, 0 deleted")

	assert.Equal(t, "[General]\nColorScheme=BreezeDark\n", readTestFile(t, filepath.Join(target, "kdeglobals")))
}

func TestApplyCommand_Idempotent(t *testing.T) {
	isolate(t)
	target := t.TempDir()
	src := writeTestFile(t, filepath.Join(t.TempDir(), "plasma.json"), simpleSource)

	_, _, err := executeCommand(t, "apply", src, "--config-home", target)
	require.NoError(t, err)

	out, _, err := executeCommand(t, "--format", "json", "apply", src, "--config-home", target)
	require.NoError(t, err)

	resp, result := decodeResponse[ApplyResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, result.Changed)
	require.Len(t, result.Files, 1)
	assert.False(t, result.Files[0].Changed)
	assert.NotEmpty(t, result.Files[0].Digest)
	assert.NotEmpty(t, result.Files[0].SourceDigest)
}

func TestApplyCommand_ValidationFailure(t *testing.T) {
	isolate(t)
	target := t.TempDir()
	src := writeTestFile(t, filepath.Join(t.TempDir(), "plasma.json"), `{
  "kdeglobals": {"General": {"A": {"persistent": true}}},
  "kwinrc": {"General": {"B": 1}}
}`)

	out, _, err := executeCommand(t, "--format", "json", "apply", src, "--config-home", target)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp, result := decodeResponse[ValidationResult](t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E204", resp.Error.Code)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)

	// Nothing is written when any file fails validation.
	assert.NoFileExists(t, filepath.Join(target, "kwinrc"))
}

func TestApplyCommand_ResetFromFlag(t *testing.T) {
	isolate(t)
	target := t.TempDir()
	writeTestFile(t, filepath.Join(target, "kdeglobals"), "[General]\nA=1\nStale=x\n")
	writeTestFile(t, filepath.Join(target, "plasma-old"), "[General]\nX=1\n")
	src := writeTestFile(t, filepath.Join(t.TempDir(), "plasma.yaml"), `
kdeglobals:
  General:
    A: {persistent: true}
    B: 2
`)

	out, _, err := executeCommand(t, "apply", src,
		"--config-home", target,
		"--reset", "kdeglobals",
		"--reset", "plasma-*",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "- deleted "+filepath.Join(target, "plasma-old"))

	assert.Equal(t, "[General]\nA=1\nB=2\n", readTestFile(t, filepath.Join(target, "kdeglobals")))
	assert.NoFileExists(t, filepath.Join(target, "plasma-old"))
}

func TestApplyCommand_ResetFromSettings(t *testing.T) {
	isolate(t)
	target := t.TempDir()
	writeTestFile(t, filepath.Join(target, "kdeglobals"), "[General]\nA=1\nStale=x\n")
	settings := writeTestFile(t, filepath.Join(t.TempDir(), "config.toml"),
		"config_home = \""+filepath.ToSlash(target)+"\"\nreset_files = [\"kdeglobals\"]\n")
	src := writeTestFile(t, filepath.Join(t.TempDir(), "plasma.json"),
		`{"kdeglobals": {"General": {"A": {"persistent": true}}}}`)

	_, _, err := executeCommand(t, "--config", settings, "apply", src)
	require.NoError(t, err)
	assert.Equal(t, "[General]\nA=1\n", readTestFile(t, filepath.Join(target, "kdeglobals")))
}

func TestApplyCommand_DryRun(t *testing.T) {
	isolate(t)
	target := t.TempDir()
	writeTestFile(t, filepath.Join(target, "plasma-old"), "[General]\nX=1\n")
	src := writeTestFile(t, filepath.Join(t.TempDir(), "plasma.json"), simpleSource)

	out, _, err := executeCommand(t, "apply", src, "--config-home", target, "--reset", "plasma-*", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "- would delete "+filepath.Join(target, "plasma-old"))
	assert.Contains(t, out, "+ would write "+filepath.Join(target, "kdeglobals")+" (new)")
	assert.Contains(t, out, "ColorScheme=BreezeDark")

	assert.FileExists(t, filepath.Join(target, "plasma-old"))
	assert.NoFileExists(t, filepath.Join(target, "kdeglobals"))
}

func TestApplyCommand_SourceNotFound(t *testing.T) {
	isolate(t)

	out, _, err := executeCommand(t, "--format", "json", "apply", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp, _ := decodeResponse[ApplyResult](t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestApplyCommand_MalformedSource(t *testing.T) {
	isolate(t)
	src := writeTestFile(t, filepath.Join(t.TempDir(), "plasma.json"), `{"kdeglobals": [1, 2]}`)

	out, _, err := executeCommand(t, "apply", src, "--config-home", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeLoadFailed+"]")
}

func TestApplyCommand_MissingExplicitSettings(t *testing.T) {
	isolate(t)
	src := writeTestFile(t, filepath.Join(t.TempDir(), "plasma.json"), simpleSource)

	out, _, err := executeCommand(t, "--config", filepath.Join(t.TempDir(), "nope.toml"), "apply", src)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestApplyCommand_WriteFailure(t *testing.T) {
	isolate(t)
	target := t.TempDir()
	// A directory where the file should be makes the read fail.
	require.NoError(t, os.Mkdir(filepath.Join(target, "kdeglobals"), 0755))
	src := writeTestFile(t, filepath.Join(t.TempDir(), "plasma.json"), simpleSource)

	out, _, err := executeCommand(t, "apply", src, "--config-home", target)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeWriteFailed+"]")
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		args     []string
		wantCode int
		wantOut  string
	}{
		{
			name:    "valid",
			source:  simpleSource,
			wantOut: "✓ 1 file(s) valid",
		},
		{
			name:     "persistent_without_reset",
			source:   `{"kdeglobals": {"General": {"A": {"persistent": true}}}}`,
			wantCode: ExitFailure,
			wantOut:  "E204",
		},
		{
			name:    "persistent_with_reset",
			source:  `{"kdeglobals": {"General": {"A": {"persistent": true}}}}`,
			args:    []string{"--reset", "kdeglobals"},
			wantOut: "✓ 1 file(s) valid",
		},
		{
			name:     "persistent_with_value",
			source:   `{"kdeglobals": {"General": {"A": {"value": 1, "persistent": true}}}}`,
			args:     []string{"--reset", "kdeglobals"},
			wantCode: ExitFailure,
			wantOut:  "E201",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			target := t.TempDir()
			src := writeTestFile(t, filepath.Join(t.TempDir(), "plasma.json"), tt.source)

			args := append([]string{"validate", src, "--config-home", target}, tt.args...)
			out, _, err := executeCommand(t, args...)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
			assert.Contains(t, out, tt.wantOut)

			entries, err := os.ReadDir(target)
			require.NoError(t, err)
			assert.Empty(t, entries, "validate must not touch the config home")
		})
	}
}

func TestValidateCommand_JSON(t *testing.T) {
	isolate(t)
	src := writeTestFile(t, filepath.Join(t.TempDir(), "plasma.json"), simpleSource)

	out, _, err := executeCommand(t, "--format", "json", "validate", src, "--config-home", t.TempDir())
	require.NoError(t, err)

	resp, result := decodeResponse[ValidationResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Equal(t, 1, result.Files)
}

// Package harness runs conformance scenarios against the apply pipeline.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: persistent_survives_reset
//	description: "A persistent key keeps its on-disk value under reset"
//	reset_files: [kdeglobals]
//	files:
//	  kdeglobals: |
//	    [General]
//	    AccentColor=61,174,233
//	source:
//	  kdeglobals:
//	    General:
//	      AccentColor: {persistent: true}
//	      ColorScheme: BreezeDark
//	idempotent: true
//	assertions:
//	  - type: file_equals
//	    path: kdeglobals
//	    content: |
//	      [General]
//	      AccentColor=61,174,233
//	      ColorScheme=BreezeDark
//
// files are written into a fresh sandbox directory before the run; every
// relative path (files, source entries, reset_files, assertion paths) is
// resolved against that sandbox. Instead of an inline source, source_file
// may name a JSON, YAML or CUE document relative to the scenario file.
//
// # Assertion Types
//
//   - file_equals: the file exists with exactly content
//   - file_absent: the file does not exist
//   - file_contains: the file has a line equal to line
//   - file_lacks: the file has no line equal to line
//   - deleted: the reset phase deleted exactly paths
//   - error_code: the run failed validation with code among its errors
//
// With idempotent set, the scenario is applied a second time and must not
// change any file.
//
// # Golden Snapshots
//
// Result.Snapshot renders the final sandbox as text. RunWithGolden compares
// it against testdata/golden/<name>.golden using goldie.
package harness

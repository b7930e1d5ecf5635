package harness

import (
	"fmt"
	"slices"
	"strings"
)

// evaluateAssertions checks every assertion and returns one message per
// failure.
func evaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return failures
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertFileEquals:
		content, ok := result.Files[a.Path]
		if !ok {
			return fmt.Errorf("%s does not exist", a.Path)
		}
		if content != a.Content {
			return fmt.Errorf("%s content mismatch\n  expected: %q\n  actual:   %q", a.Path, a.Content, content)
		}
	case AssertFileAbsent:
		if _, ok := result.Files[a.Path]; ok {
			return fmt.Errorf("%s exists", a.Path)
		}
	case AssertFileContains:
		content, ok := result.Files[a.Path]
		if !ok {
			return fmt.Errorf("%s does not exist", a.Path)
		}
		if !hasLine(content, a.Line) {
			return fmt.Errorf("%s has no line %q", a.Path, a.Line)
		}
	case AssertFileLacks:
		if content, ok := result.Files[a.Path]; ok && hasLine(content, a.Line) {
			return fmt.Errorf("%s has line %q", a.Path, a.Line)
		}
	case AssertDeleted:
		want := slices.Clone(a.Paths)
		slices.Sort(want)
		got := slices.Clone(result.Deleted)
		slices.Sort(got)
		if !slices.Equal(want, got) {
			return fmt.Errorf("expected deletions %v, got %v", want, got)
		}
	case AssertErrorCode:
		if !slices.Contains(result.ErrorCodes, a.Code) {
			if len(result.ErrorCodes) == 0 {
				return fmt.Errorf("expected error %s, run succeeded", a.Code)
			}
			return fmt.Errorf("expected error %s, got %v", a.Code, result.ErrorCodes)
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func hasLine(content, line string) bool {
	for _, l := range strings.Split(content, "\n") {
		if l == line {
			return true
		}
	}
	return false
}

package harness

import (
	"bytes"
	"fmt"
	"sort"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates that every assertion held.
	Pass bool `json:"pass"`

	// Errors contains assertion failure messages.
	Errors []string `json:"errors,omitempty"`

	// Files is the final sandbox content keyed by relative path.
	Files map[string]string `json:"files"`

	// Deleted lists the files removed by the reset phase, relative.
	Deleted []string `json:"deleted,omitempty"`

	// ErrorCodes holds the validation error codes when the run was
	// rejected.
	ErrorCodes []string `json:"error_codes,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:  true,
		Files: make(map[string]string),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Snapshot renders the result as text for golden comparison:
//
//	# scenario: <name>
//	# deleted: <path>
//	# error: <code>
//
//	--- <path>
//	<content>
func (r *Result) Snapshot(name string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# scenario: %s\n", name)
	for _, p := range r.Deleted {
		fmt.Fprintf(&buf, "# deleted: %s\n", p)
	}
	for _, c := range r.ErrorCodes {
		fmt.Fprintf(&buf, "# error: %s\n", c)
	}

	paths := make([]string, 0, len(r.Files))
	for p := range r.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fmt.Fprintf(&buf, "\n--- %s\n", p)
		buf.WriteString(r.Files[p])
	}
	return buf.Bytes()
}

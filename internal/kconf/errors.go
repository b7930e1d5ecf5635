package kconf

import (
	"errors"
	"fmt"
	"strings"
)

// ErrState is returned when Manager operations are called out of order.
var ErrState = errors.New("kconf: operation called out of order")

// Validation error codes (E200-E299).
const (
	ErrPersistentValue       = "E201" // persistent key carries a value
	ErrPersistentImmutable   = "E202" // persistent key with non-default immutability
	ErrPersistentShellExpand = "E203" // persistent key with shell expansion
	ErrPersistentNoReset     = "E204" // persistent key in a file without reset
	ErrUnsupportedValue      = "E205" // value is not a scalar
)

// ValidationError describes a declarative entry that violates a rule.
type ValidationError struct {
	File    string `json:"file"`
	Group   string `json:"group"`
	Key     string `json:"key"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: group %q, key %q: %s", e.Code, e.File, e.Group, e.Key, e.Message)
}

// ValidationErrors collects every violation found in a batch.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (es ValidationErrors) Error() string {
	switch len(es) {
	case 0:
		return "no validation errors"
	case 1:
		return es[0].Error()
	}
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d validation errors:\n%s", len(es), strings.Join(msgs, "\n"))
}

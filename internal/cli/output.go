package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/kconfsync/internal/kconf"
)

// Process exit statuses.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // validation errors or failing scenarios
	ExitCommandError = 2 // unreadable input, I/O failure, bad flags
)

// Codes for command failures. Validation failures report the kconf codes
// (E201-E205) instead.
const (
	ErrCodeGeneric     = "E001"
	ErrCodeLoadFailed  = "E004"
	ErrCodeNotFound    = "E005"
	ErrCodeWriteFailed = "E007"
)

// ExitError carries the exit status of a failed command. Its message has
// already been reported through an OutputFormatter.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError wrapping err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps a command error to a process exit status. Errors that are
// not ExitErrors (cobra flag parsing, for one) count as failures.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
	RunID  string    `json:"run_id,omitempty"` // journal run, when recorded
}

// CLIError describes a failure. Validation failures name the offending
// file, group and key.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Group   string `json:"group,omitempty"`
	Key     string `json:"key,omitempty"`
}

func validationCLIError(e kconf.ValidationError) *CLIError {
	return &CLIError{Code: e.Code, Message: e.Message, File: e.File, Group: e.Group, Key: e.Key}
}

// OutputFormatter writes command results as text or as a JSON CLIResponse.
// Diagnostics go to ErrWriter so they never mix with JSON on Writer.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

func (f *OutputFormatter) isJSON() bool { return f.Format == "json" }

// Success reports data. Text output prints it with its default format.
func (f *OutputFormatter) Success(data any) error {
	if f.isJSON() {
		return f.respond(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Fail reports a command failure and returns the ExitError for it.
func (f *OutputFormatter) Fail(exitCode int, code, message string, err error) error {
	shown := message
	if err != nil {
		shown = message + ": " + err.Error()
	}

	if f.isJSON() {
		_ = f.respond(CLIResponse{Status: "error", Error: &CLIError{Code: code, Message: shown}})
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, shown)
	}
	return WrapExitError(exitCode, code+": "+message, err)
}

// Validation reports every validation error of a batch of files and
// returns an ExitFailure error. Text output groups the errors by file.
func (f *OutputFormatter) Validation(errs kconf.ValidationErrors, files int) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if f.isJSON() {
		resp := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Files: files, Errors: errs},
		}
		if len(errs) > 0 {
			resp.Error = validationCLIError(errs[0])
		}
		if err := f.respond(resp); err != nil {
			return err
		}
		return exitErr
	}

	w := f.Writer
	fmt.Fprintln(w, "✗ Validation failed")
	current := ""
	for _, e := range errs {
		if e.File != current {
			current = e.File
			fmt.Fprintf(w, "\n%s\n", current)
		}
		fmt.Fprintf(w, "  %s group %q, key %q: %s\n", e.Code, e.Group, e.Key, e.Message)
	}
	fmt.Fprintf(w, "\n%d error(s) in %d file(s) checked\n", len(errs), files)
	return exitErr
}

// VerboseLog writes a diagnostic line when verbose output is on.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if f.Verbose {
		fmt.Fprintf(f.diag(), format+"\n", args...)
	}
}

func (f *OutputFormatter) diag() io.Writer {
	if f.ErrWriter == nil {
		return f.Writer
	}
	return f.ErrWriter
}

func (f *OutputFormatter) respond(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

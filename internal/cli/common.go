package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/kconfsync/internal/config"
	"github.com/roach88/kconfsync/internal/kconf"
	"github.com/roach88/kconfsync/internal/source"
)

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// newLogger returns a text logger on w, at debug level when verbose.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadSettings reads the settings file. A missing file at the default
// location yields the defaults; a missing file named with --config is an
// error.
func loadSettings(opts *RootOptions, formatter *OutputFormatter) (config.Settings, error) {
	path := opts.ConfigPath
	explicit := path != ""
	if !explicit {
		path = config.DefaultPath()
	}
	if path == "" {
		return config.Default(), nil
	}

	settings, err := config.Load(path)
	switch {
	case errors.Is(err, config.ErrConfigNotFound) && !explicit:
		formatter.VerboseLog("No settings file at %s, using defaults", path)
		return settings, nil
	case errors.Is(err, config.ErrConfigNotFound):
		return settings, formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("settings file not found: %s", path), nil)
	case err != nil:
		return settings, formatter.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to load settings", err)
	}
	formatter.VerboseLog("Loaded settings from %s", path)
	return settings, nil
}

// loadDocument loads the declarative source and resolves its paths against
// configHome.
func loadDocument(path, configHome string, formatter *OutputFormatter) (source.Document, error) {
	doc, err := source.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("source not found: %s", path), nil)
		}
		return nil, formatter.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to load source", err)
	}

	resolved, err := doc.Resolve(configHome)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to resolve source paths", err)
	}
	formatter.VerboseLog("Loaded %d file declaration(s) from %s", len(resolved), path)
	return resolved, nil
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                    `json:"valid"`
	Files  int                     `json:"files"`
	Errors []kconf.ValidationError `json:"errors,omitempty"`
}

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/kconfsync/internal/apply"
	"github.com/roach88/kconfsync/internal/kconf"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	ConfigHome         string
	Reset              []string
	ImmutableByDefault bool
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <source>",
		Short: "Validate a declarative source without touching any file",
		Long: `Validate a declarative source without touching any file.

Loads the source and checks every declaration against the merge rules,
reporting all violations at once. Reset patterns matter: persistent keys
are only allowed in files owned by a --reset pattern.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigHome, "config-home", "", "directory relative paths resolve against (default $XDG_CONFIG_HOME)")
	cmd.Flags().StringArrayVar(&opts.Reset, "reset", nil, "glob of files owned by the source (repeatable)")
	cmd.Flags().BoolVar(&opts.ImmutableByDefault, "immutable-by-default", false, "mark keys immutable unless declared otherwise")

	return cmd
}

func runValidate(opts *ValidateOptions, sourcePath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	settings, err := loadSettings(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	if opts.ConfigHome != "" {
		settings.ConfigHome = opts.ConfigHome
	}
	if cmd.Flags().Changed("reset") {
		settings.ResetFiles = opts.Reset
	}
	if cmd.Flags().Changed("immutable-by-default") {
		settings.ImmutableByDefault = opts.ImmutableByDefault
	}

	doc, err := loadDocument(sourcePath, settings.ConfigHome, formatter)
	if err != nil {
		return err
	}

	reset, err := apply.NewResetSet(settings.ConfigHome, settings.ResetFiles...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "invalid reset pattern", err)
	}

	managers, err := apply.Plan(doc, apply.Options{
		ImmutableByDefault: settings.ImmutableByDefault,
		Reset:              reset,
	})
	if err != nil {
		var verrs kconf.ValidationErrors
		if errors.As(err, &verrs) {
			return formatter.Validation(verrs, len(doc))
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "validation error", err)
	}

	for _, m := range managers {
		formatter.VerboseLog("%s: %d declaration(s), reset=%t", m.Path(), len(m.Entries()), m.Policy().Reset)
	}

	if opts.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Files: len(managers)})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d file(s) valid\n", len(managers))
	return nil
}

// Package cli provides the command-line interface for charm-release.
package cli

import (
	stderrors "errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/canonical/charm-release/internal/errors"
)

// Exit codes for the CLI.
const (
	// ExitSuccess indicates successful execution. Per-track failures are
	// reported through the results file and logs, never the exit code; one
	// track's failure must not block reporting on the others.
	ExitSuccess = 0
	// ExitError indicates a general error.
	ExitError = 1
	// ExitInvalidInput indicates invalid user input.
	ExitInvalidInput = 2
)

// GlobalFlags holds flags available to all commands.
type GlobalFlags struct {
	// Verbose enables debug-level logging.
	Verbose bool
	// Quiet suppresses non-essential output (warn level only).
	Quiet bool
	// DryRun suppresses all mutating calls while still logging decisions.
	DryRun bool
}

// AddGlobalFlags adds global flags to a command.
// These flags are available to all subcommands via PersistentFlags.
func AddGlobalFlags(cmd *cobra.Command, flags *GlobalFlags) {
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress non-essential output")
	cmd.PersistentFlags().BoolVar(&flags.DryRun, "dry-run", false, "log decisions without mutating anything")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// BindGlobalFlags binds global flags to Viper for configuration file and
// environment variable support. The CHARM_RELEASE_ prefix is used for
// environment variables (e.g., CHARM_RELEASE_VERBOSE).
func BindGlobalFlags(v *viper.Viper, cmd *cobra.Command) error {
	rootFlags := cmd.Root().PersistentFlags()

	if err := v.BindPFlag("verbose", rootFlags.Lookup("verbose")); err != nil {
		return err
	}
	if err := v.BindPFlag("quiet", rootFlags.Lookup("quiet")); err != nil {
		return err
	}
	if err := v.BindPFlag("dry_run", rootFlags.Lookup("dry-run")); err != nil {
		return err
	}

	v.SetEnvPrefix("CHARM_RELEASE")
	v.AutomaticEnv()

	return nil
}

// TrackFlags selects the tracks a command operates on. The two flags are
// mutually exclusive: either an explicit track list or a least-supported
// version whose newer stable releases are discovered upstream.
type TrackFlags struct {
	// SupportedTracks is an explicit list of tracks to process.
	SupportedTracks []string
	// After is the least supported track (inclusive) for discovery.
	After string
}

// AddTrackFlags adds the track selection flags to a command.
func AddTrackFlags(cmd *cobra.Command, flags *TrackFlags) {
	cmd.Flags().StringSliceVar(&flags.SupportedTracks, "supported-tracks", nil, "explicit list of tracks to check")
	cmd.Flags().StringVar(&flags.After, "after", "1.32", "least supported track (inclusive)")
	cmd.MarkFlagsMutuallyExclusive("supported-tracks", "after")
}

// ExitCodeForError returns the appropriate exit code for the given error.
// Returns ExitSuccess (0) for nil errors, ExitInvalidInput (2) for user
// input errors (invalid flags, bad arguments), and ExitError (1) for all
// other errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if stderrors.Is(err, errors.ErrConflictingFlags) || stderrors.Is(err, errors.ErrInvalidTrack) {
		return ExitInvalidInput
	}

	if isInvalidInputError(err.Error()) {
		return ExitInvalidInput
	}

	return ExitError
}

// isInvalidInputError checks if an error message indicates invalid user
// input. This catches Cobra's built-in flag validation errors.
func isInvalidInputError(errMsg string) bool {
	invalidInputPatterns := []string{
		"unknown flag",
		"unknown shorthand flag",
		"flag needs an argument",
		"invalid argument",
		"if any flags in the group",
		"required flag",
		"unknown command",
	}

	for _, pattern := range invalidInputPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}

// Package cmd holds the root cobra command for phylum, wiring each
// subsystem's own command group (auth, update, extension, analyze) into
// a single dispatcher and mapping the typed errors each one returns to
// the dedicated exit codes from spec §6.
package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/phylum-dev/cli/internal/auth"
	"github.com/phylum-dev/cli/internal/cmd/analyzecmd"
	"github.com/phylum-dev/cli/internal/cmd/authcmd"
	"github.com/phylum-dev/cli/internal/cmd/extensioncmd"
	"github.com/phylum-dev/cli/internal/cmd/updatecmd"
	"github.com/phylum-dev/cli/internal/cmdutil"
	"github.com/phylum-dev/cli/internal/extension"
	"github.com/phylum-dev/cli/internal/util"
)

// getCmd assembles the root command and registers every subsystem's
// subcommand group onto it exactly once.
func getCmd(h *cmdutil.Helper) *cobra.Command {
	root := &cobra.Command{
		Use:           "phylum",
		Short:         "Analyze your dependencies for risk before you ship them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().SortFlags = false
	h.AddFlags(root.PersistentFlags())

	root.AddCommand(
		authcmd.NewCmd(h),
		updatecmd.NewCmd(h),
		extensioncmd.NewCmd(h),
		analyzecmd.NewCmd(h),
	)

	return root
}

// resolveArgs rewrites a first non-flag argument that doesn't match any
// built-in subcommand into an `extension run` invocation, so installed
// extensions are reachable as `phylum <name> [args...]` per §4.4.
func resolveArgs(root *cobra.Command, args []string) []string {
	if len(args) == 0 {
		return args
	}
	first := args[0]
	if first == "" || first[0] == '-' {
		return args
	}
	if _, _, err := root.Find(args); err == nil {
		return args
	}
	return append([]string{"extension", "run"}, args...)
}

// RunWithArgs runs phylum with the specified arguments (not including the
// binary name) and returns a process exit code, mapping the typed errors
// of each subsystem to the dedicated codes from spec §6.
func RunWithArgs(ctx context.Context, args []string, version string) int {
	util.InitPrintf()

	h := cmdutil.NewHelper(version)
	root := getCmd(h)
	defer h.Cleanup(root.Flags())

	root.SetArgs(resolveArgs(root, args))

	err := root.ExecuteContext(ctx)
	return exitCodeFor(root.Flags(), h, err)
}

// exitCodeFor maps a returned error to one of the dedicated exit codes
// from spec §6, falling back to the generic failure code for anything
// not explicitly classified.
func exitCodeFor(flags *pflag.FlagSet, h *cmdutil.Helper, err error) int {
	if err == nil {
		return util.ExitOK
	}

	var exitErr *util.ExitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode
	}

	switch {
	case errors.Is(err, auth.ErrNotLoggedIn), errors.Is(err, auth.ErrAccountNotActivated):
		return util.ExitAuthenticationError
	case errors.Is(err, extension.ErrNotInstalled):
		return util.ExitNotFound
	case errors.Is(err, extension.ErrNameReserved):
		return util.ExitAlreadyExists
	case isPermissionDenied(err):
		return util.ExitPolicyFailure
	}

	h.PrintError(flags, err)
	return util.ExitGenericFailure
}

func isPermissionDenied(err error) bool {
	var permErr *extension.PermissionDeniedError
	return errors.As(err, &permErr)
}

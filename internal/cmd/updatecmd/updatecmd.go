// Package updatecmd wires internal/update's release discovery/verify/apply
// flow into the `phylum update` subcommand.
package updatecmd

import (
	"github.com/spf13/cobra"

	"github.com/phylum-dev/cli/internal/cmdutil"
	"github.com/phylum-dev/cli/internal/update"
)

// defaultIndexBaseURL is the release index consulted for update checks.
const defaultIndexBaseURL = "https://api.github.com/repos/phylum-dev/cli/releases"

// NewCmd returns the `phylum update` command.
func NewCmd(h *cmdutil.Helper) *cobra.Command {
	var prerelease bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Check for a new release of the Phylum CLI tool and update if one exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := h.GetCmdBase(cmd.Flags())
			if err != nil {
				return err
			}

			u := update.New(defaultIndexBaseURL)
			release, err := u.Check(cmd.Context(), base.Version, prerelease)
			if err != nil {
				return err
			}
			if release == nil {
				base.LogInfo("already up to date")
				return nil
			}

			triple, err := update.CurrentTargetTriple()
			if err != nil {
				return err
			}

			if v, err := update.ParseVersion(release.Tag); err == nil {
				base.LogInfo("downloading " + v.String())
			} else {
				base.LogInfo("downloading " + release.Tag)
			}
			zipBytes, err := u.FetchAndVerify(cmd.Context(), release, triple)
			if err != nil {
				return err
			}

			if err := update.Apply(cmd.Context(), zipBytes); err != nil {
				return err
			}
			base.LogInfo("updated to " + release.Tag)
			return nil
		},
	}
	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "Consider prerelease versions when checking for updates")
	return cmd
}

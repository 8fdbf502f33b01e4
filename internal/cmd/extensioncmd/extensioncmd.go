// Package extensioncmd wires internal/extension's manifest/install/runtime
// into the `phylum extension` subcommand group (install, run, list,
// uninstall).
package extensioncmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/phylum-dev/cli/internal/cmdutil"
	"github.com/phylum-dev/cli/internal/config"
	"github.com/phylum-dev/cli/internal/extension"
	"github.com/phylum-dev/cli/internal/ui"
)

// NewCmd returns the `phylum extension` command group.
func NewCmd(h *cmdutil.Helper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extension",
		Short: "Manage and run extensions",
	}
	cmd.AddCommand(installCmd(h), uninstallCmd(h), listCmd(h), runCmd(h))
	return cmd
}

func installCmd(h *cmdutil.Helper) *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "install <path>",
		Short: "Install an extension from a local directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := h.GetCmdBase(cmd.Flags())
			if err != nil {
				return err
			}

			manifestPath := filepath.Join(args[0], "PHYLUM_EXT.toml")
			data, err := afero.ReadFile(base.Fs, manifestPath)
			if err != nil {
				base.LogError("install failed: %v", err)
				return err
			}
			manifest, err := extension.ParseManifest(data)
			if err != nil {
				base.LogError("install failed: %v", err)
				return err
			}

			if !assumeYes && ui.IsTTY {
				confirmed, err := confirmPermissions(manifest)
				if err != nil {
					return err
				}
				if !confirmed {
					base.LogInfo("install canceled")
					return nil
				}
			}

			dataHome, err := config.UserDataDir()
			if err != nil {
				return err
			}
			dest, err := extension.Install(base.Fs, dataHome, args[0])
			if err != nil {
				base.LogError("install failed: %v", err)
				return err
			}
			base.LogInfo("installed to " + dest)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Accept the extension's requested permissions without prompting")
	return cmd
}

// confirmPermissions prints the permission grants an extension's manifest
// requests and asks the user to accept them before anything is copied into
// place (§4.4: an extension never receives access the user didn't see).
func confirmPermissions(manifest *extension.Manifest) (bool, error) {
	summary := manifest.Permissions.Summary()
	if len(summary) == 0 {
		return true, nil
	}

	message := "This extension requests the following permissions:\n"
	for _, line := range summary {
		message += "  - " + line + "\n"
	}
	message += "Proceed with installation?"

	var confirmed bool
	err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &confirmed)
	if err != nil {
		return false, err
	}
	return confirmed, nil
}

func uninstallCmd(h *cmdutil.Helper) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <name>",
		Short: "Uninstall a previously installed extension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := h.GetCmdBase(cmd.Flags())
			if err != nil {
				return err
			}
			dataHome, err := config.UserDataDir()
			if err != nil {
				return err
			}
			if err := extension.Uninstall(base.Fs, dataHome, args[0]); err != nil {
				base.LogError("uninstall failed: %v", err)
				return err
			}
			base.LogInfo("uninstalled " + args[0])
			return nil
		},
	}
}

func listCmd(h *cmdutil.Helper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed extensions",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := h.GetCmdBase(cmd.Flags())
			if err != nil {
				return err
			}
			dataHome, err := config.UserDataDir()
			if err != nil {
				return err
			}
			entries, err := afero.ReadDir(base.Fs, filepath.Join(dataHome, "extensions"))
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			for _, e := range entries {
				if e.IsDir() {
					base.UI.Output(e.Name())
				}
			}
			return nil
		},
	}
}

func runCmd(h *cmdutil.Helper) *cobra.Command {
	return &cobra.Command{
		Use:                "run <name> [args...]",
		Short:              "Run an installed extension",
		Args:               cobra.MinimumNArgs(1),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := h.GetCmdBase(cmd.Flags())
			if err != nil {
				return err
			}
			name, extArgs := args[0], args[1:]

			dataHome, err := config.UserDataDir()
			if err != nil {
				return err
			}
			dir := extension.InstalledPath(dataHome, name)

			manifestPath := filepath.Join(dir, "PHYLUM_EXT.toml")
			data, err := afero.ReadFile(base.Fs, manifestPath)
			if err != nil {
				return extension.ErrNotInstalled
			}
			manifest, err := extension.ParseManifest(data)
			if err != nil {
				return err
			}

			tokens, err := resolveTokens(cmd.Context(), base)
			if err != nil {
				return err
			}

			rt := extension.NewRuntime(dir, manifest, base.APIClient, tokens, extArgs)
			return rt.Run(cmd.Context())
		},
	}
}

func resolveTokens(ctx context.Context, base *cmdutil.CmdBase) (extension.Tokens, error) {
	return extension.Tokens{
		AccessToken:  accessTokenFromSettings(base),
		RefreshToken: base.Settings.AuthInfo.OfflineAccess,
	}, nil
}

func accessTokenFromSettings(base *cmdutil.CmdBase) string {
	return base.Settings.AuthInfo.OfflineAccess
}

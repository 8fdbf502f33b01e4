// Package authcmd wires internal/auth's PKCE login flow into cobra
// subcommands: login, logout, status, token.
package authcmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/phylum-dev/cli/internal/auth"
	"github.com/phylum-dev/cli/internal/cmdutil"
	"github.com/phylum-dev/cli/internal/config"
)

// oidcClientID identifies this CLI to the identity provider.
const oidcClientID = "phylum_cli"

func endpointsFor(apiBaseURL string) auth.Endpoints {
	return auth.Endpoints{
		AuthorizationURL: apiBaseURL + "/oauth2/authorize",
		TokenURL:         apiBaseURL + "/oauth2/token",
	}
}

// NewCmd returns the `phylum auth` command group: login, logout, status,
// token, mirroring the nesting of the original `auth` subcommand.
func NewCmd(h *cmdutil.Helper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication",
	}
	cmd.AddCommand(loginCmd(h), logoutCmd(h), statusCmd(h), tokenCmd(h))
	return cmd
}

func loginCmd(h *cmdutil.Helper) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login to your Phylum account",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := h.GetCmdBase(cmd.Flags())
			if err != nil {
				return err
			}

			base.LogInfo("opening your browser to complete login...")
			tokens, err := auth.Login(cmd.Context(), endpointsFor(base.Settings.ConnectionURI), oidcClientID)
			if err != nil {
				base.LogError("login failed: %v", err)
				return err
			}

			base.Settings.AuthInfo.OfflineAccess = tokens.RefreshToken
			if err := config.WriteSettings(base.Fs, base.Settings); err != nil {
				return err
			}
			base.LogInfo("logged in")
			return nil
		},
	}
}

func logoutCmd(h *cmdutil.Helper) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout of your Phylum account",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := h.GetCmdBase(cmd.Flags())
			if err != nil {
				return err
			}
			base.Settings.AuthInfo.OfflineAccess = ""
			if err := config.WriteSettings(base.Fs, base.Settings); err != nil {
				return err
			}
			base.LogInfo("logged out")
			return nil
		},
	}
}

func statusCmd(h *cmdutil.Helper) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Return the current authentication status",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := h.GetCmdBase(cmd.Flags())
			if err != nil {
				return err
			}
			if base.Settings.AuthInfo.OfflineAccess == "" {
				base.UI.Output("not logged in")
				return nil
			}
			if auth.IsLocksmithToken(base.Settings.AuthInfo.OfflineAccess) {
				base.UI.Output("logged in via locksmith token")
				return nil
			}
			base.UI.Output("logged in")
			return nil
		},
	}
}

func tokenCmd(h *cmdutil.Helper) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Return the current authentication token",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := h.GetCmdBase(cmd.Flags())
			if err != nil {
				return err
			}
			token, err := resolveAccessToken(cmd.Context(), base)
			if err != nil {
				return err
			}
			base.UI.Output(token)
			return nil
		},
	}
}

// resolveAccessToken answers getAccessToken-style requests without a
// network round trip when the stored credential is a locksmith token,
// otherwise refreshes it against the token endpoint (§4.2's locksmith
// shortcut, reused here rather than only inside the extension host API).
func resolveAccessToken(ctx context.Context, base *cmdutil.CmdBase) (string, error) {
	refreshToken := base.Settings.AuthInfo.OfflineAccess
	if refreshToken == "" {
		return "", auth.ErrNotLoggedIn
	}
	if auth.IsLocksmithToken(refreshToken) {
		return refreshToken, nil
	}

	tokens, err := auth.Refresh(ctx, endpointsFor(base.Settings.ConnectionURI).TokenURL, oidcClientID, refreshToken)
	if err != nil {
		return "", err
	}
	return tokens.AccessToken, nil
}

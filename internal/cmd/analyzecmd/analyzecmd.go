// Package analyzecmd wires the dependency-file intake subsystem
// (internal/lockfile) and the risk-analysis client into the top-level
// `phylum analyze` subcommand.
package analyzecmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/phylum-dev/cli/internal/client"
	"github.com/phylum-dev/cli/internal/cmdutil"
	"github.com/phylum-dev/cli/internal/lockfile"
)

// pollInterval is how often job status is re-checked after submission.
const pollInterval = 2 * time.Second

// NewCmd returns the `phylum analyze` command.
func NewCmd(h *cmdutil.Helper) *cobra.Command {
	var project, group, label, formatFlag string

	cmd := &cobra.Command{
		Use:   "analyze <depfile>",
		Short: "Submit a request for analysis to the processing system",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := h.GetCmdBase(cmd.Flags())
			if err != nil {
				return err
			}

			depfilePath := args[0]
			content, err := os.ReadFile(depfilePath)
			if err != nil {
				return err
			}

			var hint *lockfile.Format
			if formatFlag != "" {
				f, ok := lockfile.FormatByName(formatFlag)
				if !ok {
					return fmt.Errorf("unknown --lockfile-type %q", formatFlag)
				}
				hint = &f
			}

			pkgs, warning, err := lockfile.Resolve(hint, depfilePath, content)
			if err != nil {
				base.LogError("could not parse %s: %v", depfilePath, err)
				return err
			}
			if warning != "" {
				base.LogWarning("", fmt.Errorf("%s", warning))
			}
			pkgs = lockfile.FilterForSubmission(pkgs)

			req := client.AnalyzeRequest{Project: project, Group: group, Label: label}
			for _, p := range pkgs {
				req.Packages = append(req.Packages, client.Package{
					Name:      p.Name,
					Version:   lockfile.SubmissionVersion(p),
					Ecosystem: string(p.Ecosystem),
				})
			}

			resp, err := base.APIClient.Analyze(cmd.Context(), req)
			if err != nil {
				base.LogError("submission failed: %v", err)
				return err
			}
			base.LogInfo("submitted job " + resp.JobID)

			return pollUntilComplete(cmd, base, resp.JobID)
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project name to associate this analysis with")
	cmd.Flags().StringVar(&group, "group", "", "Group name to associate this analysis with")
	cmd.Flags().StringVar(&label, "label", "", "Label to attach to this analysis run")
	cmd.Flags().StringVar(&formatFlag, "lockfile-type", "", "Override automatic dependency-file format detection")
	return cmd
}

func pollUntilComplete(cmd *cobra.Command, base *cmdutil.CmdBase, jobID string) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		status, err := base.APIClient.GetJobStatus(cmd.Context(), jobID)
		if err != nil {
			return err
		}
		if status.Complete {
			base.UI.Output(fmt.Sprintf("score=%.2f pass_status=%s", status.Score, status.PassStatus))
			return nil
		}

		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-ticker.C:
		}
	}
}

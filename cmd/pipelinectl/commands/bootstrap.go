package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/secretpipe/internal/application"
	"github.com/ericfisherdev/secretpipe/internal/domain/model"
)

// NewBootstrapCommand prints the runner bootstrap script for an existing
// registration token. It makes no network calls.
func NewBootstrapCommand() *cobra.Command {
	var (
		owner         string
		repo          string
		token         string
		name          string
		labels        []string
		runnerVersion string
		webURL        string
	)

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Print the self-hosted runner bootstrap script",
		Long: `Print the shell script that installs, configures and starts a runner.

The token must be a runner registration token, not a personal access token.

Examples:
  pipelinectl bootstrap --owner octo --repo app --token AABBCC
  pipelinectl bootstrap --owner octo --repo app --token AABBCC --name build-1 --labels self-hosted,linux`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if token == "" {
				return fmt.Errorf("--token must not be empty")
			}

			target, err := application.NormalizeTarget(model.ProvisionTarget{
				RepoOwner: owner, RepoName: repo, RunnerName: name, Labels: labels,
			})
			if err != nil {
				return err
			}

			script := application.NewRunnerProvisioner(runnerVersion, webURL).
				BuildBootstrapScript(target.RepoOwner, target.RepoName, token, target.RunnerName, target.Labels)
			_, err = fmt.Fprint(cmd.OutOrStdout(), script)
			return err
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Repository owner (required)")
	cmd.Flags().StringVar(&repo, "repo", "", "Repository name (required)")
	cmd.Flags().StringVar(&token, "token", "", "Runner registration token (required)")
	cmd.Flags().StringVar(&name, "name", "", "Runner name (default <repo>-runner)")
	cmd.Flags().StringSliceVar(&labels, "labels", nil, "Comma-separated runner labels (default self-hosted)")
	cmd.Flags().StringVar(&runnerVersion, "runner-version", "2.311.0", "Pinned runner release")
	cmd.Flags().StringVar(&webURL, "web-url", "https://github.com", "GitHub web URL")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("repo")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

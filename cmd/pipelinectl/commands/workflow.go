// Package commands holds the pipelinectl subcommands.
package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/secretpipe/internal/adapter/driven/workflowyaml"
	"github.com/ericfisherdev/secretpipe/internal/application"
	"github.com/ericfisherdev/secretpipe/internal/domain/model"
)

// NewWorkflowCommand prints the rendered workflow for a project type and name.
func NewWorkflowCommand() *cobra.Command {
	var (
		projectType string
		name        string
	)

	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Print the GitHub Actions workflow for a project",
		Long: `Render the CI/CD workflow that provisioning would commit.

Examples:
  pipelinectl workflow --type backend --name svc-a
  pipelinectl workflow --type frontend --name web > .github/workflows/web.yml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := application.NormalizeTarget(model.ProvisionTarget{
				RepoOwner: "local", RepoName: name, ProjectName: name,
			})
			if err != nil {
				return err
			}

			pt, ok := application.ExplicitProjectType(projectType)
			if !ok {
				if !strings.EqualFold(projectType, string(model.ProjectTypeUnknown)) {
					return fmt.Errorf("unknown project type %q: expected backend, frontend or unknown", projectType)
				}
				pt = model.ProjectTypeUnknown
			}

			out, err := workflowyaml.NewRenderer().Render(application.BuildSpec(pt, target.ProjectName))
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().StringVarP(&projectType, "type", "t", "unknown", "Project type: backend, frontend or unknown")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Project name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/ericfisherdev/secretpipe/internal/domain/model"
	"github.com/ericfisherdev/secretpipe/internal/domain/port/driven"
)

// RunnerProvisioner acquires registration tokens and assembles the runner
// bootstrap script. It holds no secrets between calls.
type RunnerProvisioner struct {
	runnerVersion string
	webURL        string
}

// NewRunnerProvisioner creates a provisioner that pins runnerVersion and
// builds repository URLs under webURL (e.g. https://github.com).
func NewRunnerProvisioner(runnerVersion, webURL string) *RunnerProvisioner {
	return &RunnerProvisioner{
		runnerVersion: runnerVersion,
		webURL:        strings.TrimRight(webURL, "/"),
	}
}

// Provision requests a registration token scoped to owner/repo and returns it
// with the bootstrap script. On token failure nothing is returned but the
// error: a *driven.ProviderAPIError or an error wrapping
// driven.ErrProviderUnavailable. Each call consumes a new token at the
// provider, so callers must not retry blindly.
func (p *RunnerProvisioner) Provision(
	ctx context.Context,
	client driven.ActionsClient,
	owner, repo, runnerName string,
	labels []string,
) (*model.RunnerProvisioningResult, error) {
	token, err := client.CreateRegistrationToken(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("request registration token for %s/%s: %w", owner, repo, err)
	}

	return &model.RunnerProvisioningResult{
		RegistrationToken: token.Token,
		ExpiresAt:         token.ExpiresAt,
		BootstrapScript:   p.BuildBootstrapScript(owner, repo, token.Token, runnerName, labels),
	}, nil
}

// BuildBootstrapScript renders the shell script that installs and starts a
// runner. Only the repository URL, token, name and labels vary.
func (p *RunnerProvisioner) BuildBootstrapScript(owner, repo, token, runnerName string, labels []string) string {
	tarball := fmt.Sprintf("actions-runner-linux-x64-%s.tar.gz", p.runnerVersion)
	downloadURL := fmt.Sprintf("https://github.com/actions/runner/releases/download/v%s/%s", p.runnerVersion, tarball)

	lines := []string{
		"#!/usr/bin/env bash",
		"set -euo pipefail",
		"# Create a runner",
		"mkdir -p ~/actions-runner && cd ~/actions-runner",
		"# Download the runner package",
		fmt.Sprintf("curl -o %s -L %s", tarball, downloadURL),
		"# Extract the installer",
		"tar xzf ./" + tarball,
		"# Configure the runner",
		fmt.Sprintf(`./config.sh --url %s/%s/%s --token %s --name "%s" --labels "%s" --unattended`,
			p.webURL, owner, repo, token, runnerName, strings.Join(labels, ",")),
		"# Install service and start",
		"sudo ./svc.sh install",
		"sudo ./svc.sh start",
	}
	return strings.Join(lines, "\n") + "\n"
}

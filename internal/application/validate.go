package application

import (
	"regexp"
	"strings"

	"github.com/ericfisherdev/secretpipe/internal/domain/model"
)

// Names end up inside shell and YAML text, so they are kept to a safe set.
var (
	namePattern  = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	labelPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)
)

const defaultRunnerLabel = "self-hosted"

// NormalizeTarget validates t and fills in defaults: the project name falls
// back to the repo, the runner name to "<repo>-runner" and the labels to
// ["self-hosted"].
func NormalizeTarget(t model.ProvisionTarget) (model.ProvisionTarget, error) {
	t.RepoOwner = strings.TrimSpace(t.RepoOwner)
	t.RepoName = strings.TrimSpace(t.RepoName)
	t.ProjectType = strings.TrimSpace(t.ProjectType)
	t.ProjectName = strings.TrimSpace(t.ProjectName)
	t.RunnerName = strings.TrimSpace(t.RunnerName)

	if err := checkName("owner", t.RepoOwner); err != nil {
		return t, err
	}
	if err := checkName("repo", t.RepoName); err != nil {
		return t, err
	}

	if t.ProjectName == "" {
		t.ProjectName = t.RepoName
	}
	if err := checkName("project_name", t.ProjectName); err != nil {
		return t, err
	}

	if t.RunnerName == "" {
		t.RunnerName = t.RepoName + "-runner"
	}
	if err := checkName("runner_name", t.RunnerName); err != nil {
		return t, err
	}

	labels := make([]string, 0, len(t.Labels))
	for _, l := range t.Labels {
		l = strings.TrimSpace(l)
		if !labelPattern.MatchString(l) {
			return t, &ValidationError{Field: "labels", Message: "labels may only contain letters, digits, '.', '_', '-' and ':'"}
		}
		labels = append(labels, l)
	}
	if len(labels) == 0 {
		labels = []string{defaultRunnerLabel}
	}
	t.Labels = labels

	return t, nil
}

func checkName(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: "must not be empty"}
	}
	if !namePattern.MatchString(value) {
		return &ValidationError{Field: field, Message: "may only contain letters, digits, '.', '_' and '-'"}
	}
	return nil
}

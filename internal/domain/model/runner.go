package model

import "time"

// RegistrationToken is a single-use, short-lived runner registration token.
type RegistrationToken struct {
	Token     string
	ExpiresAt time.Time
}

// RunnerProvisioningResult is created per request and handed back to the
// caller; it is never persisted.
type RunnerProvisioningResult struct {
	RegistrationToken string
	ExpiresAt         time.Time
	BootstrapScript   string
}

// ProvisionTarget describes the repository and runner to provision.
type ProvisionTarget struct {
	RepoOwner      string
	RepoName       string
	ProjectType    string // Optional explicit type; detection runs otherwise.
	ProjectName    string
	RunnerName     string
	Labels         []string
	CommitWorkflow bool
}

// RepoFullName returns "owner/repo".
func (t ProvisionTarget) RepoFullName() string {
	return t.RepoOwner + "/" + t.RepoName
}

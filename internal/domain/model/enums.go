package model

// Provider identifies the third party that issued a credential.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderAWS    Provider = "aws"
)

// VerificationOutcome is the tri-state classification of a credential check.
type VerificationOutcome string

const (
	OutcomeValid          VerificationOutcome = "valid"
	OutcomeInvalid        VerificationOutcome = "invalid"
	OutcomeTransientError VerificationOutcome = "transientError"
)

// ProjectType selects the project-specific tail of a workflow.
type ProjectType string

const (
	ProjectTypeBackend  ProjectType = "backend"
	ProjectTypeFrontend ProjectType = "frontend"
	ProjectTypeUnknown  ProjectType = "unknown"
)

// PipelineState is a state of a single provisioning request.
type PipelineState string

const (
	StateReceived                PipelineState = "received"
	StateEncrypted               PipelineState = "encrypted"
	StateVerifying               PipelineState = "verifying"
	StateVerified                PipelineState = "verified"
	StateRejected                PipelineState = "rejected"
	StateVerificationUnavailable PipelineState = "verification_unavailable"
	StateDetecting               PipelineState = "detecting"
	StateSpecBuilt               PipelineState = "spec_built"
	StateProvisioning            PipelineState = "provisioning"
	StateProvisioned             PipelineState = "provisioned"
	StateProvisioningFailed      PipelineState = "provisioning_failed"
)

// IsTerminal reports whether no further transition follows s.
func (s PipelineState) IsTerminal() bool {
	switch s {
	case StateRejected, StateVerificationUnavailable, StateProvisioned, StateProvisioningFailed:
		return true
	}
	return false
}

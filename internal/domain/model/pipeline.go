package model

import "time"

// PipelineOutcome is what the orchestrator hands back for one request. It
// carries the state trace, the verification result and, on the provisioning
// path, the built spec and runner bootstrap.
type PipelineOutcome struct {
	AccountID    string
	Provider     Provider
	State        PipelineState
	Trace        []PipelineState
	Verification *VerificationResult
	ProjectType  ProjectType
	Spec         *WorkflowSpec
	WorkflowPath string
	WorkflowYAML string
	Runner       *RunnerProvisioningResult
}

// Enter records a transition to s.
func (o *PipelineOutcome) Enter(s PipelineState) {
	o.State = s
	o.Trace = append(o.Trace, s)
}

// ProvisioningRun is the persisted audit entry of a post-verification run.
// It never contains tokens or scripts.
type ProvisioningRun struct {
	ID           string
	AccountID    string
	RepoFullName string
	ProjectType  ProjectType
	RunnerName   string
	State        PipelineState
	Error        string
	CreatedAt    time.Time
}

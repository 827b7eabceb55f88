package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/secretpipe/internal/application"
	"github.com/ericfisherdev/secretpipe/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error","kind":"internal"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code, kind and message.
func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: message, Kind: kind})
}

// errorResponse is the standard error response body. Kind is one of the
// mutually exclusive failure classes; Outcome is set when the request got
// far enough to have a state trace.
type errorResponse struct {
	Error   string           `json:"error"`
	Kind    string           `json:"kind"`
	Field   string           `json:"field,omitempty"`
	Outcome *OutcomeResponse `json:"outcome,omitempty"`
}

// TargetRequest is the JSON description of the repository to provision.
type TargetRequest struct {
	Owner          string   `json:"owner"`
	Repo           string   `json:"repo"`
	ProjectType    string   `json:"project_type"`
	ProjectName    string   `json:"project_name"`
	RunnerName     string   `json:"runner_name"`
	Labels         []string `json:"labels"`
	CommitWorkflow bool     `json:"commit_workflow"`
}

// GitHubCredentialRequest is the JSON body for registering a GitHub token.
type GitHubCredentialRequest struct {
	Token     string         `json:"token"`
	Provision *TargetRequest `json:"provision,omitempty"`
}

// AWSCredentialRequest is the JSON body for registering an AWS key pair.
type AWSCredentialRequest struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	Region          string `json:"region"`
}

// AccountResponse is the JSON representation of an account.
type AccountResponse struct {
	AccountID  string `json:"account_id"`
	SecretsSet bool   `json:"secrets_set"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// SecretStatusResponse is the non-secret view of an account's credentials.
type SecretStatusResponse struct {
	AccountID  string                   `json:"account_id"`
	SecretsSet bool                     `json:"secrets_set"`
	Providers  []ProviderStatusResponse `json:"providers"`
}

// ProviderStatusResponse is one verified provider credential.
type ProviderStatusResponse struct {
	Provider          string `json:"provider"`
	ProviderAccountID string `json:"provider_account_id"`
	Region            string `json:"region,omitempty"`
	VerifiedAt        string `json:"verified_at"`
}

// VerificationResponse is the JSON representation of a verification result.
type VerificationResponse struct {
	Outcome           string `json:"outcome"`
	ProviderAccountID string `json:"provider_account_id,omitempty"`
	Principal         string `json:"principal,omitempty"`
	ErrorDetail       string `json:"error_detail,omitempty"`
}

// WorkflowResponse is the built workflow.
type WorkflowResponse struct {
	Name string `json:"name"`
	Path string `json:"path"`
	YAML string `json:"yaml"`
}

// RunnerResponse carries the single-use registration token and bootstrap
// script back to the caller. Neither is stored server-side.
type RunnerResponse struct {
	RegistrationToken string `json:"registration_token"`
	ExpiresAt         string `json:"expires_at,omitempty"`
	BootstrapScript   string `json:"bootstrap_script"`
}

// OutcomeResponse is the JSON representation of a pipeline run.
type OutcomeResponse struct {
	AccountID    string                `json:"account_id"`
	Provider     string                `json:"provider"`
	State        string                `json:"state"`
	Trace        []string              `json:"trace"`
	Verification *VerificationResponse `json:"verification,omitempty"`
	ProjectType  string                `json:"project_type,omitempty"`
	Workflow     *WorkflowResponse     `json:"workflow,omitempty"`
	Runner       *RunnerResponse       `json:"runner,omitempty"`
}

// ProvisioningRunResponse is one provisioning log entry.
type ProvisioningRunResponse struct {
	ID          string `json:"id"`
	Repository  string `json:"repository"`
	ProjectType string `json:"project_type"`
	RunnerName  string `json:"runner_name"`
	State       string `json:"state"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func (t TargetRequest) toModel() model.ProvisionTarget {
	return model.ProvisionTarget{
		RepoOwner:      t.Owner,
		RepoName:       t.Repo,
		ProjectType:    t.ProjectType,
		ProjectName:    t.ProjectName,
		RunnerName:     t.RunnerName,
		Labels:         t.Labels,
		CommitWorkflow: t.CommitWorkflow,
	}
}

func toAccountResponse(rec *model.UserSecretRecord) AccountResponse {
	resp := AccountResponse{AccountID: rec.AccountID, SecretsSet: rec.SecretsSet}
	if !rec.CreatedAt.IsZero() {
		resp.CreatedAt = rec.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func toSecretStatusResponse(s *application.SecretStatus) SecretStatusResponse {
	providers := make([]ProviderStatusResponse, 0, len(s.Providers))
	for _, p := range s.Providers {
		providers = append(providers, ProviderStatusResponse{
			Provider:          string(p.Provider),
			ProviderAccountID: p.ProviderAccountID,
			Region:            p.Region,
			VerifiedAt:        p.VerifiedAt.UTC().Format(time.RFC3339),
		})
	}
	return SecretStatusResponse{AccountID: s.AccountID, SecretsSet: s.SecretsSet, Providers: providers}
}

// toOutcomeResponse converts a pipeline outcome to its JSON representation.
// The verification error detail is only exposed for unavailable providers.
func toOutcomeResponse(o *model.PipelineOutcome) *OutcomeResponse {
	if o == nil {
		return nil
	}

	trace := make([]string, 0, len(o.Trace))
	for _, s := range o.Trace {
		trace = append(trace, string(s))
	}

	resp := &OutcomeResponse{
		AccountID:   o.AccountID,
		Provider:    string(o.Provider),
		State:       string(o.State),
		Trace:       trace,
		ProjectType: string(o.ProjectType),
	}

	if v := o.Verification; v != nil {
		resp.Verification = &VerificationResponse{
			Outcome:           string(v.Outcome),
			ProviderAccountID: v.ProviderAccountID,
			Principal:         v.Principal,
			ErrorDetail:       v.ErrorDetail,
		}
	}

	if o.Spec != nil {
		resp.Workflow = &WorkflowResponse{Name: o.Spec.Name, Path: o.WorkflowPath, YAML: o.WorkflowYAML}
	}

	if r := o.Runner; r != nil {
		resp.Runner = &RunnerResponse{RegistrationToken: r.RegistrationToken, BootstrapScript: r.BootstrapScript}
		if !r.ExpiresAt.IsZero() {
			resp.Runner.ExpiresAt = r.ExpiresAt.UTC().Format(time.RFC3339)
		}
	}

	return resp
}

func toProvisioningRunResponse(run model.ProvisioningRun) ProvisioningRunResponse {
	return ProvisioningRunResponse{
		ID:          run.ID,
		Repository:  run.RepoFullName,
		ProjectType: string(run.ProjectType),
		RunnerName:  run.RunnerName,
		State:       string(run.State),
		Error:       run.Error,
		CreatedAt:   run.CreatedAt.UTC().Format(time.RFC3339),
	}
}

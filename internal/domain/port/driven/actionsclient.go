package driven

import (
	"context"

	"github.com/ericfisherdev/secretpipe/internal/domain/model"
)

// ActionsClient defines the repository automation calls made with a
// decrypted token. Non-success responses are returned as *ProviderAPIError;
// transport failures wrap ErrProviderUnavailable.
type ActionsClient interface {
	// FetchManifest returns the raw contents of path at the default branch.
	// Returns ErrManifestNotFound if the file does not exist.
	FetchManifest(ctx context.Context, owner, repo, path string) ([]byte, error)

	// CreateRegistrationToken requests a single-use runner registration token
	// scoped to the repository.
	CreateRegistrationToken(ctx context.Context, owner, repo string) (model.RegistrationToken, error)

	// PutWorkflowFile creates or updates a file on branch. Identical content
	// is left untouched.
	PutWorkflowFile(ctx context.Context, owner, repo, path, branch, message string, content []byte) error
}

// ActionsClientFactory builds an ActionsClient authenticated with token.
type ActionsClientFactory interface {
	ForToken(token string) ActionsClient
}

// WorkflowRenderer renders a spec to the provider's pipeline markup.
type WorkflowRenderer interface {
	Render(spec model.WorkflowSpec) (string, error)
}

// PipelineRecorder receives verification and provisioning outcomes for
// metrics.
type PipelineRecorder interface {
	ObserveVerification(provider model.Provider, outcome model.VerificationOutcome)
	ObserveProvisioning(state model.PipelineState)
}

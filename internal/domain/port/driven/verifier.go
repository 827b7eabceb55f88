package driven

import (
	"context"

	"github.com/ericfisherdev/secretpipe/internal/domain/model"
)

// TokenVerifier checks a source-control personal access token against the
// provider's authenticated-user endpoint. It never retries.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) model.VerificationResult
}

// CloudVerifier checks a cloud access key pair against the provider's
// identity endpoint. It never retries.
type CloudVerifier interface {
	VerifyKeys(ctx context.Context, cred model.CloudCredential) model.VerificationResult
}

// Package aws implements the CloudVerifier port with the AWS STS
// GetCallerIdentity call.
package aws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/ericfisherdev/secretpipe/internal/domain/model"
	"github.com/ericfisherdev/secretpipe/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CloudVerifier = (*Verifier)(nil)

// invalidCredentialCodes are the STS error codes that mean the key pair
// itself is bad. Every other failure is transient.
var invalidCredentialCodes = map[string]bool{
	"InvalidClientTokenId":        true,
	"SignatureDoesNotMatch":       true,
	"UnrecognizedClientException": true,
}

// IdentityAPI is the subset of the STS client used for verification.
type IdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// ClientFunc builds an IdentityAPI for one key pair.
type ClientFunc func(ctx context.Context, cred model.CloudCredential) (IdentityAPI, error)

// Verifier checks AWS access keys.
type Verifier struct {
	newClient ClientFunc
	logger    *slog.Logger
}

// NewVerifier creates a Verifier that talks to the real STS endpoint.
func NewVerifier(logger *slog.Logger) *Verifier {
	return NewVerifierWithClient(newSTSClient, logger)
}

// NewVerifierWithClient creates a Verifier with a custom client constructor.
// This constructor is intended for testing.
func NewVerifierWithClient(newClient ClientFunc, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{newClient: newClient, logger: logger}
}

// VerifyKeys calls GetCallerIdentity with cred. A response carrying an ARN
// and account id is valid; client-token and signature errors are invalid;
// everything else is transient.
func (v *Verifier) VerifyKeys(ctx context.Context, cred model.CloudCredential) model.VerificationResult {
	client, err := v.newClient(ctx, cred)
	if err != nil {
		return model.TransientError(fmt.Sprintf("building sts client: %v", err))
	}

	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			if invalidCredentialCodes[apiErr.ErrorCode()] {
				v.logger.Debug("aws credential rejected", "code", apiErr.ErrorCode(), "region", cred.Region)
				return model.Invalid()
			}
			return model.TransientError(fmt.Sprintf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage()))
		}
		return model.TransientError(err.Error())
	}

	account := awssdk.ToString(out.Account)
	arn := awssdk.ToString(out.Arn)
	if account == "" || arn == "" {
		return model.TransientError("GetCallerIdentity response is missing Account or Arn")
	}

	v.logger.Debug("aws credential verified", "account", account, "user_id", awssdk.ToString(out.UserId))
	return model.Valid(account, arn)
}

// newSTSClient builds a client bound to the static key pair. Retries are
// disabled; retry policy belongs to the caller.
func newSTSClient(ctx context.Context, cred model.CloudCredential) (IdentityAPI, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cred.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cred.AccessKeyID, cred.SecretAccessKey, ""),
		),
		awsconfig.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return sts.NewFromConfig(cfg), nil
}

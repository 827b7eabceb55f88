// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/secretpipe/internal/domain/model"
	"github.com/ericfisherdev/secretpipe/internal/domain/port/driven"
)

// PipelineDeps bundles the ports PipelineService drives.
type PipelineDeps struct {
	Accounts driven.AccountStore
	Runs     driven.ProvisioningLog
	Cipher   driven.Cipher
	Tokens   driven.TokenVerifier
	Cloud    driven.CloudVerifier
	Actions  driven.ActionsClientFactory
	Renderer driven.WorkflowRenderer
	Runner   *RunnerProvisioner
	Recorder driven.PipelineRecorder // Optional.
}

// PipelineConfig holds the tunables imposed by the composition root.
type PipelineConfig struct {
	// StageTimeout bounds each provider call. Zero means no bound beyond the
	// caller's context.
	StageTimeout   time.Duration
	WorkflowBranch string
}

// ProviderStatus is the non-secret view of one verified provider credential.
type ProviderStatus struct {
	Provider          model.Provider
	ProviderAccountID string
	Region            string
	VerifiedAt        time.Time
}

// SecretStatus is the non-secret view of an account's secret record.
type SecretStatus struct {
	AccountID  string
	SecretsSet bool
	Providers  []ProviderStatus
}

// PipelineService moves a raw credential through encryption, verification and,
// for source-control tokens, workflow and runner provisioning. Plaintext
// secrets live only on the stack of a single call.
type PipelineService struct {
	accounts driven.AccountStore
	runs     driven.ProvisioningLog
	cipher   driven.Cipher
	tokens   driven.TokenVerifier
	cloud    driven.CloudVerifier
	actions  driven.ActionsClientFactory
	renderer driven.WorkflowRenderer
	runner   *RunnerProvisioner
	recorder driven.PipelineRecorder

	stageTimeout   time.Duration
	workflowBranch string

	now   func() time.Time
	newID func() string
}

// NewPipelineService creates a PipelineService. A nil recorder disables
// metrics.
func NewPipelineService(deps PipelineDeps, cfg PipelineConfig) *PipelineService {
	recorder := deps.Recorder
	if recorder == nil {
		recorder = noopRecorder{}
	}
	branch := cfg.WorkflowBranch
	if branch == "" {
		branch = "main"
	}

	return &PipelineService{
		accounts:       deps.Accounts,
		runs:           deps.Runs,
		cipher:         deps.Cipher,
		tokens:         deps.Tokens,
		cloud:          deps.Cloud,
		actions:        deps.Actions,
		renderer:       deps.Renderer,
		runner:         deps.Runner,
		recorder:       recorder,
		stageTimeout:   cfg.StageTimeout,
		workflowBranch: branch,
		now:            time.Now,
		newID:          uuid.NewString,
	}
}

// CreateAccount ensures the account exists. The salt is generated only on
// first creation; an existing account is returned unchanged.
func (s *PipelineService) CreateAccount(ctx context.Context, accountID string) (*model.UserSecretRecord, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, &ValidationError{Field: "account", Message: "must not be empty"}
	}

	rec, err := s.accounts.GetSecretRecord(ctx, accountID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, driven.ErrAccountNotFound) {
		return nil, err
	}

	salt, err := s.cipher.NewSalt()
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	rec, err = s.accounts.CreateAccount(ctx, accountID, salt)
	if errors.Is(err, driven.ErrAccountExists) {
		return s.accounts.GetSecretRecord(ctx, accountID)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("account created", "account", accountID)
	return rec, nil
}

// SecretStatus reports which providers hold a verified credential.
func (s *PipelineService) SecretStatus(ctx context.Context, accountID string) (*SecretStatus, error) {
	rec, err := s.accounts.GetSecretRecord(ctx, accountID)
	if err != nil {
		return nil, err
	}

	status := &SecretStatus{AccountID: accountID, SecretsSet: rec.SecretsSet, Providers: []ProviderStatus{}}
	for p, id := range rec.ProviderAccountIDs {
		status.Providers = append(status.Providers, ProviderStatus{
			Provider:          p,
			ProviderAccountID: id,
			Region:            rec.CloudKeys[p].Region,
			VerifiedAt:        rec.VerifiedAt[p],
		})
	}
	slices.SortFunc(status.Providers, func(a, b ProviderStatus) int {
		return strings.Compare(string(a.Provider), string(b.Provider))
	})
	return status, nil
}

// RegisterGitHubToken encrypts and verifies a personal access token and
// persists it only when the provider confirms it. With a non-nil target the
// run continues into workflow and runner provisioning.
//
// The returned outcome is non-nil whenever the request got past input
// validation and always carries the state trace reached.
func (s *PipelineService) RegisterGitHubToken(
	ctx context.Context,
	accountID, token string,
	target *model.ProvisionTarget,
) (*model.PipelineOutcome, error) {
	if strings.TrimSpace(token) == "" {
		return nil, &ValidationError{Field: "token", Message: "must not be empty"}
	}
	var normalized model.ProvisionTarget
	if target != nil {
		var err error
		if normalized, err = NormalizeTarget(*target); err != nil {
			return nil, err
		}
	}

	rec, err := s.accounts.GetSecretRecord(ctx, accountID)
	if err != nil {
		return nil, err
	}

	outcome := &model.PipelineOutcome{AccountID: accountID, Provider: model.ProviderGitHub}
	outcome.Enter(model.StateReceived)

	envelope, err := s.cipher.Encrypt(token, rec.Salt)
	if err != nil {
		return outcome, fmt.Errorf("encrypt token: %w", err)
	}
	outcome.Enter(model.StateEncrypted)

	outcome.Enter(model.StateVerifying)
	vctx, cancel := s.stageContext(ctx)
	result := s.tokens.VerifyToken(vctx, token)
	cancel()

	err = s.settleVerification(ctx, outcome, result, model.VerifiedCredential{
		Provider: model.ProviderGitHub,
		Envelope: envelope,
	})
	if err != nil || target == nil {
		return outcome, err
	}

	plaintext, err := s.cipher.Decrypt(envelope, rec.Salt)
	if err != nil {
		return outcome, s.failProvisioning(ctx, outcome, normalized, "decrypt", err)
	}
	return outcome, s.provision(ctx, outcome, plaintext, normalized)
}

// RegisterCloudCredential encrypts and verifies an access key pair. Both key
// halves are stored as envelopes; the region is stored in clear.
func (s *PipelineService) RegisterCloudCredential(
	ctx context.Context,
	accountID string,
	cred model.CloudCredential,
) (*model.PipelineOutcome, error) {
	switch {
	case strings.TrimSpace(cred.AccessKeyID) == "":
		return nil, &ValidationError{Field: "access_key_id", Message: "must not be empty"}
	case strings.TrimSpace(cred.SecretAccessKey) == "":
		return nil, &ValidationError{Field: "secret_access_key", Message: "must not be empty"}
	case strings.TrimSpace(cred.Region) == "":
		return nil, &ValidationError{Field: "region", Message: "must not be empty"}
	}

	rec, err := s.accounts.GetSecretRecord(ctx, accountID)
	if err != nil {
		return nil, err
	}

	outcome := &model.PipelineOutcome{AccountID: accountID, Provider: model.ProviderAWS}
	outcome.Enter(model.StateReceived)

	secretEnvelope, err := s.cipher.Encrypt(cred.SecretAccessKey, rec.Salt)
	if err != nil {
		return outcome, fmt.Errorf("encrypt secret access key: %w", err)
	}
	keyIDEnvelope, err := s.cipher.Encrypt(cred.AccessKeyID, rec.Salt)
	if err != nil {
		return outcome, fmt.Errorf("encrypt access key id: %w", err)
	}
	outcome.Enter(model.StateEncrypted)

	outcome.Enter(model.StateVerifying)
	vctx, cancel := s.stageContext(ctx)
	result := s.cloud.VerifyKeys(vctx, cred)
	cancel()

	return outcome, s.settleVerification(ctx, outcome, result, model.VerifiedCredential{
		Provider:      model.ProviderAWS,
		Envelope:      secretEnvelope,
		KeyIDEnvelope: keyIDEnvelope,
		Region:        cred.Region,
	})
}

// ProvisionStored provisions a workflow and runner with the account's stored
// GitHub token. A stored envelope that cannot be decrypted is reported as
// driven.ErrDecryption, never as a rejected credential.
func (s *PipelineService) ProvisionStored(
	ctx context.Context,
	accountID string,
	target model.ProvisionTarget,
) (*model.PipelineOutcome, error) {
	normalized, err := NormalizeTarget(target)
	if err != nil {
		return nil, err
	}

	rec, err := s.accounts.GetSecretRecord(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !rec.HasVerified(model.ProviderGitHub) {
		return nil, &ValidationError{Field: "token", Message: "no verified github token stored"}
	}

	token, err := s.cipher.Decrypt(rec.ProviderTokens[model.ProviderGitHub], rec.Salt)
	if err != nil {
		slog.Error("stored token unreadable", "account", accountID, "error", err)
		return nil, fmt.Errorf("decrypt stored github token: %w", err)
	}

	outcome := &model.PipelineOutcome{AccountID: accountID, Provider: model.ProviderGitHub}
	outcome.Enter(model.StateVerified)
	return outcome, s.provision(ctx, outcome, token, normalized)
}

// ListRuns returns the account's provisioning log, newest first.
func (s *PipelineService) ListRuns(ctx context.Context, accountID string) ([]model.ProvisioningRun, error) {
	if _, err := s.accounts.GetSecretRecord(ctx, accountID); err != nil {
		return nil, err
	}
	return s.runs.ListByAccount(ctx, accountID)
}

// settleVerification applies the verification result. Only a valid result
// persists anything; cred gets the verified account id filled in.
func (s *PipelineService) settleVerification(
	ctx context.Context,
	outcome *model.PipelineOutcome,
	result model.VerificationResult,
	cred model.VerifiedCredential,
) error {
	outcome.Verification = &result
	s.recorder.ObserveVerification(cred.Provider, result.Outcome)

	switch result.Outcome {
	case model.OutcomeValid:
	case model.OutcomeInvalid:
		outcome.Enter(model.StateRejected)
		slog.Info("credential rejected", "account", outcome.AccountID, "provider", cred.Provider)
		return fmt.Errorf("%s credential: %w", cred.Provider, ErrCredentialInvalid)
	default:
		outcome.Enter(model.StateVerificationUnavailable)
		slog.Warn("credential verification unavailable",
			"account", outcome.AccountID, "provider", cred.Provider, "detail", result.ErrorDetail)
		return fmt.Errorf("verify %s credential: %s: %w", cred.Provider, result.ErrorDetail, ErrProviderUnavailable)
	}

	if result.ProviderAccountID == "" {
		outcome.Enter(model.StateVerificationUnavailable)
		return fmt.Errorf("verify %s credential: no account id in response: %w", cred.Provider, ErrProviderUnavailable)
	}

	// Nothing is persisted once the caller has gone away.
	if err := ctx.Err(); err != nil {
		return s.abandonVerification(outcome, cred.Provider, err)
	}

	cred.ProviderAccountID = result.ProviderAccountID
	cred.VerifiedAt = s.now().UTC()
	if err := s.accounts.SaveVerifiedCredential(ctx, outcome.AccountID, cred); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return s.abandonVerification(outcome, cred.Provider, ctxErr)
		}
		return fmt.Errorf("persist %s credential: %w", cred.Provider, err)
	}

	outcome.Enter(model.StateVerified)
	slog.Info("credential verified",
		"account", outcome.AccountID, "provider", cred.Provider, "provider_account", result.ProviderAccountID)
	return nil
}

// abandonVerification settles a verification whose context ended before the
// credential was written. The caller sees it as the provider being
// unavailable; ctxErr stays in the chain.
func (s *PipelineService) abandonVerification(outcome *model.PipelineOutcome, provider model.Provider, ctxErr error) error {
	outcome.Enter(model.StateVerificationUnavailable)
	slog.Warn("credential verification abandoned",
		"account", outcome.AccountID, "provider", provider, "error", ctxErr)
	return fmt.Errorf("persist %s credential: %w: %w", provider, ErrProviderUnavailable, ctxErr)
}

// provision runs Detecting through Provisioned with a decrypted token. Any
// failure is a *ProvisioningFailedError; the persisted credential is never
// touched here.
func (s *PipelineService) provision(
	ctx context.Context,
	outcome *model.PipelineOutcome,
	token string,
	target model.ProvisionTarget,
) error {
	client := s.actions.ForToken(token)

	outcome.Enter(model.StateDetecting)
	dctx, cancel := s.stageContext(ctx)
	outcome.ProjectType = DetectProjectType(dctx, client, target.RepoOwner, target.RepoName, target.ProjectType)
	cancel()

	spec := BuildSpec(outcome.ProjectType, target.ProjectName)
	outcome.Spec = &spec
	outcome.Enter(model.StateSpecBuilt)

	rendered, err := s.renderer.Render(spec)
	if err != nil {
		return s.failProvisioning(ctx, outcome, target, "render", err)
	}
	outcome.WorkflowYAML = rendered
	outcome.WorkflowPath = WorkflowPath(spec)

	outcome.Enter(model.StateProvisioning)

	if target.CommitWorkflow {
		cctx, cancel := s.stageContext(ctx)
		err := client.PutWorkflowFile(cctx, target.RepoOwner, target.RepoName, outcome.WorkflowPath,
			s.workflowBranch, fmt.Sprintf("Add %s workflow", spec.Name), []byte(rendered))
		cancel()
		if err != nil {
			return s.failProvisioning(ctx, outcome, target, "commit_workflow", err)
		}
	}

	pctx, cancel := s.stageContext(ctx)
	result, err := s.runner.Provision(pctx, client, target.RepoOwner, target.RepoName, target.RunnerName, target.Labels)
	cancel()
	if err != nil {
		return s.failProvisioning(ctx, outcome, target, "registration_token", err)
	}

	outcome.Runner = result
	outcome.Enter(model.StateProvisioned)
	s.recordRun(ctx, outcome, target, "")
	slog.Info("runner provisioned",
		"account", outcome.AccountID, "repo", target.RepoFullName(),
		"project_type", outcome.ProjectType, "runner", target.RunnerName)
	return nil
}

func (s *PipelineService) failProvisioning(
	ctx context.Context,
	outcome *model.PipelineOutcome,
	target model.ProvisionTarget,
	stage string,
	cause error,
) error {
	outcome.Enter(model.StateProvisioningFailed)
	s.recordRun(ctx, outcome, target, cause.Error())
	slog.Error("provisioning failed",
		"account", outcome.AccountID, "repo", target.RepoFullName(), "stage", stage, "error", cause)
	return &ProvisioningFailedError{Stage: stage, Cause: cause}
}

// recordRun appends to the provisioning log. A log failure is reported but
// does not change the run's outcome.
func (s *PipelineService) recordRun(ctx context.Context, outcome *model.PipelineOutcome, target model.ProvisionTarget, errText string) {
	s.recorder.ObserveProvisioning(outcome.State)

	run := model.ProvisioningRun{
		ID:           s.newID(),
		AccountID:    outcome.AccountID,
		RepoFullName: target.RepoFullName(),
		ProjectType:  outcome.ProjectType,
		RunnerName:   target.RunnerName,
		State:        outcome.State,
		Error:        errText,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.runs.Record(context.WithoutCancel(ctx), run); err != nil {
		slog.Error("record provisioning run failed", "account", outcome.AccountID, "run", run.ID, "error", err)
	}
}

func (s *PipelineService) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.stageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.stageTimeout)
}

type noopRecorder struct{}

func (noopRecorder) ObserveVerification(model.Provider, model.VerificationOutcome) {}
func (noopRecorder) ObserveProvisioning(model.PipelineState)                      {}

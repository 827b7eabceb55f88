package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/secretpipe/internal/adapter/driven/cipher"
	"github.com/ericfisherdev/secretpipe/internal/adapter/driven/workflowyaml"
	"github.com/ericfisherdev/secretpipe/internal/domain/model"
	"github.com/ericfisherdev/secretpipe/internal/domain/port/driven"
)

type pipelineFixture struct {
	svc      *PipelineService
	accounts *memAccountStore
	runs     *memRunLog
	cipher   *cipher.AESCBC
	tokens   *stubTokenVerifier
	cloud    *stubCloudVerifier
	client   *fakeActionsClient
	factory  *fakeActionsFactory
	recorder *countingRecorder
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	c, err := cipher.New(bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)

	f := &pipelineFixture{
		accounts: newMemAccountStore(),
		runs:     &memRunLog{},
		cipher:   c,
		tokens:   &stubTokenVerifier{result: model.Valid("alice", "https://github.com/alice")},
		cloud:    &stubCloudVerifier{result: model.Valid("123456789012", "arn:aws:iam::123456789012:user/ci")},
		client: &fakeActionsClient{
			manifest: []byte(`{"scripts":{"build":"tsc"}}`),
			token:    model.RegistrationToken{Token: "REGTOKEN", ExpiresAt: fixedNow.Add(time.Hour)},
		},
		recorder: newCountingRecorder(),
	}
	f.factory = &fakeActionsFactory{client: f.client}

	f.svc = NewPipelineService(PipelineDeps{
		Accounts: f.accounts,
		Runs:     f.runs,
		Cipher:   f.cipher,
		Tokens:   f.tokens,
		Cloud:    f.cloud,
		Actions:  f.factory,
		Renderer: workflowyaml.NewRenderer(),
		Runner:   NewRunnerProvisioner("2.311.0", "https://github.com"),
		Recorder: f.recorder,
	}, PipelineConfig{StageTimeout: time.Second, WorkflowBranch: "main"})
	f.svc.now = func() time.Time { return fixedNow }
	f.svc.newID = func() string { return "run-1" }

	return f
}

func (f *pipelineFixture) account(t *testing.T, id string) *model.UserSecretRecord {
	t.Helper()
	rec, err := f.svc.CreateAccount(context.Background(), id)
	require.NoError(t, err)
	return rec
}

func (f *pipelineFixture) stored(t *testing.T, id string) *model.UserSecretRecord {
	t.Helper()
	rec, err := f.accounts.GetSecretRecord(context.Background(), id)
	require.NoError(t, err)
	return rec
}

func target() *model.ProvisionTarget {
	return &model.ProvisionTarget{RepoOwner: "octo", RepoName: "app"}
}

// --- Account lifecycle ---

func TestCreateAccount_SaltGeneratedOnce(t *testing.T) {
	f := newPipelineFixture(t)

	first := f.account(t, "acct-1")
	require.Len(t, first.Salt, 32)

	second := f.account(t, "acct-1")
	assert.Equal(t, first.Salt, second.Salt)

	other := f.account(t, "acct-2")
	assert.NotEqual(t, first.Salt, other.Salt)
}

func TestCreateAccount_EmptyID(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.svc.CreateAccount(context.Background(), "  ")
	require.ErrorIs(t, err, ErrValidation)
}

func TestSecretStatus(t *testing.T) {
	f := newPipelineFixture(t)
	f.account(t, "acct-1")

	status, err := f.svc.SecretStatus(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.False(t, status.SecretsSet)
	assert.Empty(t, status.Providers)

	_, err = f.svc.RegisterGitHubToken(context.Background(), "acct-1", "ghp_secret", nil)
	require.NoError(t, err)
	_, err = f.svc.RegisterCloudCredential(context.Background(), "acct-1", model.CloudCredential{
		AccessKeyID: "AKIAEXAMPLE", SecretAccessKey: "wJalr", Region: "eu-west-1",
	})
	require.NoError(t, err)

	status, err = f.svc.SecretStatus(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.True(t, status.SecretsSet)
	require.Len(t, status.Providers, 2)
	assert.Equal(t, ProviderStatus{
		Provider: model.ProviderAWS, ProviderAccountID: "123456789012", Region: "eu-west-1", VerifiedAt: fixedNow,
	}, status.Providers[0])
	assert.Equal(t, model.ProviderGitHub, status.Providers[1].Provider)
	assert.Equal(t, "alice", status.Providers[1].ProviderAccountID)
}

func TestSecretStatus_UnknownAccount(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.svc.SecretStatus(context.Background(), "ghost")
	require.ErrorIs(t, err, driven.ErrAccountNotFound)
}

// --- End-to-end scenarios ---

func TestRegisterGitHubToken_ValidPersistsDecryptableEnvelope(t *testing.T) {
	f := newPipelineFixture(t)
	f.account(t, "acct-1")

	outcome, err := f.svc.RegisterGitHubToken(context.Background(), "acct-1", "ghp_secret", nil)
	require.NoError(t, err)

	assert.Equal(t, model.StateVerified, outcome.State)
	assert.Equal(t, []model.PipelineState{
		model.StateReceived, model.StateEncrypted, model.StateVerifying, model.StateVerified,
	}, outcome.Trace)
	assert.Equal(t, "ghp_secret", f.tokens.gotToken)

	rec := f.stored(t, "acct-1")
	assert.Equal(t, "alice", rec.ProviderAccountIDs[model.ProviderGitHub])
	assert.True(t, rec.SecretsSet)

	envelope := rec.ProviderTokens[model.ProviderGitHub]
	require.NotEmpty(t, envelope)
	assert.NotContains(t, envelope, "ghp_secret")
	plaintext, err := f.cipher.Decrypt(envelope, rec.Salt)
	require.NoError(t, err)
	assert.Equal(t, "ghp_secret", plaintext)

	assert.Equal(t, 1, f.recorder.verifications["github/valid"])
	assert.Empty(t, f.runs.runs, "no provisioning without a target")
}

func TestRegisterCloudCredential_SignatureMismatchPersistsNothing(t *testing.T) {
	f := newPipelineFixture(t)
	f.account(t, "acct-1")
	f.cloud.result = model.Invalid()

	outcome, err := f.svc.RegisterCloudCredential(context.Background(), "acct-1", model.CloudCredential{
		AccessKeyID: "AKIAEXAMPLE", SecretAccessKey: "bad", Region: "us-east-1",
	})

	require.ErrorIs(t, err, ErrCredentialInvalid)
	assert.NotErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, model.StateRejected, outcome.State)
	assert.Equal(t, 0, f.accounts.saves)

	rec := f.stored(t, "acct-1")
	assert.False(t, rec.SecretsSet)
	assert.Empty(t, rec.ProviderTokens)
	assert.Equal(t, 1, f.recorder.verifications["aws/invalid"])
}

func TestRegisterGitHubToken_ManifestTimeoutBuildsUnknownSpec(t *testing.T) {
	f := newPipelineFixture(t)
	f.account(t, "acct-1")
	f.client.manifestBlock = true
	f.svc.stageTimeout = 20 * time.Millisecond

	outcome, err := f.svc.RegisterGitHubToken(context.Background(), "acct-1", "ghp_secret", target())
	require.NoError(t, err)

	assert.Equal(t, model.ProjectTypeUnknown, outcome.ProjectType)
	require.NotNil(t, outcome.Spec)
	assert.Equal(t, model.ProjectTypeUnknown, outcome.Spec.ProjectType)
	assert.True(t, outcome.Spec.HasRunStep("npm run build || echo 'No build script found'"))
	for _, step := range outcome.Spec.Steps {
		assert.NotContains(t, step.Run, "pm2")
	}
	assert.Equal(t, model.StateProvisioned, outcome.State)
}

func TestRegisterGitHubToken_RegistrationForbiddenKeepsVerifiedSecret(t *testing.T) {
	f := newPipelineFixture(t)
	f.account(t, "acct-1")
	f.client.tokenErr = &driven.ProviderAPIError{StatusCode: 403, Message: "Resource not accessible by personal access token"}

	outcome, err := f.svc.RegisterGitHubToken(context.Background(), "acct-1", "ghp_secret", target())

	require.ErrorIs(t, err, ErrProvisioningFailed)
	var failed *ProvisioningFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "registration_token", failed.Stage)
	var apiErr *driven.ProviderAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.StatusCode)

	assert.Equal(t, model.StateProvisioningFailed, outcome.State)
	assert.Nil(t, outcome.Runner, "no bootstrap script on failure")
	assert.Contains(t, outcome.Trace, model.StateVerified)

	rec := f.stored(t, "acct-1")
	assert.True(t, rec.SecretsSet)
	assert.Equal(t, "alice", rec.ProviderAccountIDs[model.ProviderGitHub])
	assert.NotEmpty(t, rec.ProviderTokens[model.ProviderGitHub])

	require.Len(t, f.runs.runs, 1)
	assert.Equal(t, model.StateProvisioningFailed, f.runs.runs[0].State)
	assert.Contains(t, f.runs.runs[0].Error, "403")
	assert.Equal(t, 1, f.recorder.provisioning[model.StateProvisioningFailed])
}

// --- Orchestrator behaviour ---

func TestRegisterGitHubToken_FullProvisioning(t *testing.T) {
	f := newPipelineFixture(t)
	f.account(t, "acct-1")

	tgt := target()
	tgt.CommitWorkflow = true
	tgt.Labels = []string{"self-hosted", "linux"}

	outcome, err := f.svc.RegisterGitHubToken(context.Background(), "acct-1", "ghp_secret", tgt)
	require.NoError(t, err)

	assert.Equal(t, []model.PipelineState{
		model.StateReceived, model.StateEncrypted, model.StateVerifying, model.StateVerified,
		model.StateDetecting, model.StateSpecBuilt, model.StateProvisioning, model.StateProvisioned,
	}, outcome.Trace)
	assert.Equal(t, model.ProjectTypeBackend, outcome.ProjectType)
	assert.Equal(t, ".github/workflows/app.yml", outcome.WorkflowPath)
	assert.Contains(t, outcome.WorkflowYAML, "name: app Backend CI/CD")

	require.NotNil(t, outcome.Runner)
	assert.Equal(t, "REGTOKEN", outcome.Runner.RegistrationToken)
	assert.Contains(t, outcome.Runner.BootstrapScript, `--name "app-runner" --labels "self-hosted,linux"`)

	assert.Equal(t, []string{"ghp_secret"}, f.factory.tokens, "actions client gets the decrypted token")
	require.Len(t, f.client.puts, 1)
	assert.Equal(t, "main", f.client.puts[0].branch)
	assert.Equal(t, outcome.WorkflowYAML, string(f.client.puts[0].content))

	require.Len(t, f.runs.runs, 1)
	run := f.runs.runs[0]
	assert.Equal(t, model.ProvisioningRun{
		ID: "run-1", AccountID: "acct-1", RepoFullName: "octo/app", ProjectType: model.ProjectTypeBackend,
		RunnerName: "app-runner", State: model.StateProvisioned, CreatedAt: fixedNow,
	}, run)
}

func TestRegisterGitHubToken_InvalidToken(t *testing.T) {
	f := newPipelineFixture(t)
	f.account(t, "acct-1")
	f.tokens.result = model.Invalid()

	outcome, err := f.svc.RegisterGitHubToken(context.Background(), "acct-1", "ghp_revoked", target())

	require.ErrorIs(t, err, ErrCredentialInvalid)
	assert.Equal(t, model.StateRejected, outcome.State)
	assert.Equal(t, 0, f.accounts.saves)
	assert.Empty(t, f.factory.tokens, "no provisioning after rejection")
	assert.False(t, f.stored(t, "acct-1").SecretsSet)
}

func TestRegisterGitHubToken_TransientIsDistinctFromRejected(t *testing.T) {
	f := newPipelineFixture(t)
	f.account(t, "acct-1")
	f.tokens.result = model.TransientError("status 502")

	outcome, err := f.svc.RegisterGitHubToken(context.Background(), "acct-1", "ghp_secret", nil)

	require.ErrorIs(t, err, ErrProviderUnavailable)
	assert.NotErrorIs(t, err, ErrCredentialInvalid)
	assert.Contains(t, err.Error(), "status 502")
	assert.Equal(t, model.StateVerificationUnavailable, outcome.State)
	assert.Equal(t, 0, f.accounts.saves)
	assert.Equal(t, 1, f.recorder.verifications["github/transientError"])
}

func TestRegisterGitHubToken_ValidWithoutAccountIDIsUnavailable(t *testing.T) {
	f := newPipelineFixture(t)
	f.account(t, "acct-1")
	f.tokens.result = model.VerificationResult{Outcome: model.OutcomeValid}

	outcome, err := f.svc.RegisterGitHubToken(context.Background(), "acct-1", "ghp_secret", nil)

	require.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, model.StateVerificationUnavailable, outcome.State)
	assert.Equal(t, 0, f.accounts.saves)
}

func TestRegisterGitHubToken_ValidationBeforeProviderCalls(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		target *model.ProvisionTarget
		field  string
	}{
		{"empty token", "", nil, "token"},
		{"blank token", "   ", nil, "token"},
		{"missing owner", "ghp", &model.ProvisionTarget{RepoName: "app"}, "owner"},
		{"shell in repo", "ghp", &model.ProvisionTarget{RepoOwner: "o", RepoName: "app;rm -rf"}, "repo"},
		{"quote in runner", "ghp", &model.ProvisionTarget{RepoOwner: "o", RepoName: "r", RunnerName: `x"y`}, "runner_name"},
		{"space in label", "ghp", &model.ProvisionTarget{RepoOwner: "o", RepoName: "r", Labels: []string{"a b"}}, "labels"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(t)
			f.account(t, "acct-1")

			outcome, err := f.svc.RegisterGitHubToken(context.Background(), "acct-1", tt.token, tt.target)

			require.ErrorIs(t, err, ErrValidation)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Nil(t, outcome)
			assert.Equal(t, 0, f.tokens.calls)
		})
	}
}

func TestRegisterGitHubToken_UnknownAccount(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.svc.RegisterGitHubToken(context.Background(), "ghost", "ghp", nil)
	require.ErrorIs(t, err, driven.ErrAccountNotFound)
	assert.Equal(t, 0, f.tokens.calls)
}

func TestRegisterGitHubToken_CancelledBeforePersistStoresNothing(t *testing.T) {
	f := newPipelineFixture(t)
	f.account(t, "acct-1")

	ctx, cancel := context.WithCancel(context.Background())
	f.tokens.result = model.Valid("alice", "")
	verifier := &cancellingVerifier{inner: f.tokens, cancel: cancel}
	f.svc.tokens = verifier

	outcome, err := f.svc.RegisterGitHubToken(ctx, "acct-1", "ghp_secret", nil)

	require.ErrorIs(t, err, ErrProviderUnavailable)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrCredentialInvalid)
	require.NotNil(t, outcome)
	assert.Equal(t, model.StateVerificationUnavailable, outcome.State)
	assert.Equal(t, 0, f.accounts.saves)
	assert.False(t, f.stored(t, "acct-1").SecretsSet)
}

func TestRegisterGitHubToken_DeadlineBeforePersistIsUnavailable(t *testing.T) {
	f := newPipelineFixture(t)
	f.account(t, "acct-1")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	f.tokens.result = model.Valid("alice", "")
	f.svc.tokens = &expiringVerifier{inner: f.tokens, caller: ctx}

	outcome, err := f.svc.RegisterGitHubToken(ctx, "acct-1", "ghp_secret", target())

	require.ErrorIs(t, err, ErrProviderUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, model.StateVerificationUnavailable, outcome.State)
	assert.Equal(t, 0, f.client.tokenCalls, "no provisioning after an abandoned verification")
	assert.False(t, f.stored(t, "acct-1").SecretsSet)
}

type cancellingVerifier struct {
	inner  driven.TokenVerifier
	cancel context.CancelFunc
}

func (v *cancellingVerifier) VerifyToken(ctx context.Context, token string) model.VerificationResult {
	res := v.inner.VerifyToken(ctx, token)
	v.cancel()
	return res
}

// expiringVerifier returns a valid result only after the caller's deadline
// has passed.
type expiringVerifier struct {
	inner  driven.TokenVerifier
	caller context.Context
}

func (v *expiringVerifier) VerifyToken(ctx context.Context, token string) model.VerificationResult {
	res := v.inner.VerifyToken(ctx, token)
	<-v.caller.Done()
	return res
}

func TestRegisterGitHubToken_CommitFailureIsProvisioningFailure(t *testing.T) {
	f := newPipelineFixture(t)
	f.account(t, "acct-1")
	f.client.putErr = fmt.Errorf("put: %w", driven.ErrProviderUnavailable)

	tgt := target()
	tgt.CommitWorkflow = true
	outcome, err := f.svc.RegisterGitHubToken(context.Background(), "acct-1", "ghp_secret", tgt)

	var failed *ProvisioningFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "commit_workflow", failed.Stage)
	assert.Equal(t, model.StateProvisioningFailed, outcome.State)
	assert.Equal(t, 0, f.client.tokenCalls, "no runner token after a failed commit")
	assert.True(t, f.stored(t, "acct-1").SecretsSet)
}

func TestRegisterGitHubToken_RenderFailure(t *testing.T) {
	f := newPipelineFixture(t)
	f.account(t, "acct-1")
	f.svc.renderer = staticRenderer{err: errors.New("boom")}

	_, err := f.svc.RegisterGitHubToken(context.Background(), "acct-1", "ghp_secret", target())

	var failed *ProvisioningFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "render", failed.Stage)
}

func TestRegisterCloudCredential_Valid(t *testing.T) {
	f := newPipelineFixture(t)
	f.account(t, "acct-1")

	cred := model.CloudCredential{AccessKeyID: "AKIAEXAMPLE", SecretAccessKey: "wJalrXUtnFEMI", Region: "eu-west-1"}
	outcome, err := f.svc.RegisterCloudCredential(context.Background(), "acct-1", cred)
	require.NoError(t, err)

	assert.Equal(t, model.StateVerified, outcome.State)
	assert.Equal(t, cred, f.cloud.got)

	rec := f.stored(t, "acct-1")
	assert.Equal(t, "123456789012", rec.ProviderAccountIDs[model.ProviderAWS])
	assert.Equal(t, "eu-west-1", rec.CloudKeys[model.ProviderAWS].Region)

	secret, err := f.cipher.Decrypt(rec.ProviderTokens[model.ProviderAWS], rec.Salt)
	require.NoError(t, err)
	assert.Equal(t, "wJalrXUtnFEMI", secret)

	keyID, err := f.cipher.Decrypt(rec.CloudKeys[model.ProviderAWS].KeyIDEnvelope, rec.Salt)
	require.NoError(t, err)
	assert.Equal(t, "AKIAEXAMPLE", keyID)
}

func TestRegisterCloudCredential_Validation(t *testing.T) {
	f := newPipelineFixture(t)
	f.account(t, "acct-1")

	for _, cred := range []model.CloudCredential{
		{SecretAccessKey: "s", Region: "r"},
		{AccessKeyID: "a", Region: "r"},
		{AccessKeyID: "a", SecretAccessKey: "s"},
	} {
		_, err := f.svc.RegisterCloudCredential(context.Background(), "acct-1", cred)
		require.ErrorIs(t, err, ErrValidation)
	}
	assert.Equal(t, 0, f.cloud.calls)
}

func TestProvisionStored(t *testing.T) {
	f := newPipelineFixture(t)
	f.account(t, "acct-1")
	_, err := f.svc.RegisterGitHubToken(context.Background(), "acct-1", "ghp_secret", nil)
	require.NoError(t, err)

	outcome, err := f.svc.ProvisionStored(context.Background(), "acct-1", model.ProvisionTarget{
		RepoOwner: "octo", RepoName: "web", ProjectType: "Frontend", ProjectName: "site",
	})
	require.NoError(t, err)

	assert.Equal(t, model.StateVerified, outcome.Trace[0])
	assert.Equal(t, model.StateProvisioned, outcome.State)
	assert.Equal(t, model.ProjectTypeFrontend, outcome.ProjectType)
	assert.Equal(t, "site Frontend CI/CD", outcome.Spec.Name)
	assert.Contains(t, outcome.Runner.BootstrapScript, `--name "web-runner"`)
	assert.Equal(t, []string{"ghp_secret"}, f.factory.tokens)
	assert.Equal(t, 1, f.tokens.calls, "stored path does not re-verify")
}

func TestProvisionStored_NoVerifiedToken(t *testing.T) {
	f := newPipelineFixture(t)
	f.account(t, "acct-1")

	_, err := f.svc.ProvisionStored(context.Background(), "acct-1", *target())
	require.ErrorIs(t, err, ErrValidation)
}

func TestProvisionStored_UnreadableEnvelopeIsDecryptionError(t *testing.T) {
	f := newPipelineFixture(t)
	f.account(t, "acct-1")
	require.NoError(t, f.accounts.SaveVerifiedCredential(context.Background(), "acct-1", model.VerifiedCredential{
		Provider: model.ProviderGitHub, Envelope: "zz:not-hex", ProviderAccountID: "alice",
	}))

	outcome, err := f.svc.ProvisionStored(context.Background(), "acct-1", *target())

	require.ErrorIs(t, err, driven.ErrDecryption)
	assert.NotErrorIs(t, err, ErrCredentialInvalid)
	assert.Nil(t, outcome)
	assert.Empty(t, f.factory.tokens)
	assert.True(t, f.stored(t, "acct-1").SecretsSet, "stored secret is kept")
}

func TestListRuns(t *testing.T) {
	f := newPipelineFixture(t)
	f.account(t, "acct-1")

	_, err := f.svc.RegisterGitHubToken(context.Background(), "acct-1", "ghp_secret", target())
	require.NoError(t, err)

	runs, err := f.svc.ListRuns(context.Background(), "acct-1")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "octo/app", runs[0].RepoFullName)

	_, err = f.svc.ListRuns(context.Background(), "ghost")
	require.ErrorIs(t, err, driven.ErrAccountNotFound)
}

func TestNormalizeTarget_Defaults(t *testing.T) {
	got, err := NormalizeTarget(model.ProvisionTarget{RepoOwner: " octo ", RepoName: "app"})
	require.NoError(t, err)

	assert.Equal(t, "octo", got.RepoOwner)
	assert.Equal(t, "app", got.ProjectName)
	assert.Equal(t, "app-runner", got.RunnerName)
	assert.Equal(t, []string{"self-hosted"}, got.Labels)

	got, err = NormalizeTarget(model.ProvisionTarget{RepoOwner: "o", RepoName: "r", Labels: []string{"gpu:a100"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"gpu:a100"}, got.Labels)
}

func TestErrorTaxonomy(t *testing.T) {
	vErr := &ValidationError{Field: "token", Message: "must not be empty"}
	assert.ErrorIs(t, vErr, ErrValidation)
	assert.Equal(t, "invalid token: must not be empty", vErr.Error())

	cause := &driven.ProviderAPIError{StatusCode: 403}
	pErr := &ProvisioningFailedError{Stage: "registration_token", Cause: cause}
	assert.ErrorIs(t, pErr, ErrProvisioningFailed)
	assert.ErrorIs(t, pErr, cause)
	assert.NotErrorIs(t, pErr, ErrValidation)
}

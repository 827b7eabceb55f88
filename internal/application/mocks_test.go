package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ericfisherdev/secretpipe/internal/domain/model"
	"github.com/ericfisherdev/secretpipe/internal/domain/port/driven"
)

// --- In-memory ports shared by application tests ---

type memAccountStore struct {
	mu        sync.Mutex
	records   map[string]*model.UserSecretRecord
	saves     int
	saveErr   error
	createErr error
}

func newMemAccountStore() *memAccountStore {
	return &memAccountStore{records: map[string]*model.UserSecretRecord{}}
}

func (m *memAccountStore) CreateAccount(_ context.Context, accountID, salt string) (*model.UserSecretRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	if _, ok := m.records[accountID]; ok {
		return nil, driven.ErrAccountExists
	}
	rec := model.NewUserSecretRecord(accountID, salt)
	m.records[accountID] = rec
	return clone(rec), nil
}

func (m *memAccountStore) GetSecretRecord(_ context.Context, accountID string) (*model.UserSecretRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[accountID]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", accountID, driven.ErrAccountNotFound)
	}
	return clone(rec), nil
}

func (m *memAccountStore) SaveVerifiedCredential(_ context.Context, accountID string, cred model.VerifiedCredential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	rec, ok := m.records[accountID]
	if !ok {
		return driven.ErrAccountNotFound
	}
	rec.ProviderTokens[cred.Provider] = cred.Envelope
	rec.ProviderAccountIDs[cred.Provider] = cred.ProviderAccountID
	rec.VerifiedAt[cred.Provider] = cred.VerifiedAt
	if cred.KeyIDEnvelope != "" || cred.Region != "" {
		rec.CloudKeys[cred.Provider] = model.CloudKey{KeyIDEnvelope: cred.KeyIDEnvelope, Region: cred.Region}
	}
	rec.SecretsSet = true
	return nil
}

func clone(rec *model.UserSecretRecord) *model.UserSecretRecord {
	out := model.NewUserSecretRecord(rec.AccountID, rec.Salt)
	out.SecretsSet = rec.SecretsSet
	out.CreatedAt = rec.CreatedAt
	for k, v := range rec.ProviderTokens {
		out.ProviderTokens[k] = v
	}
	for k, v := range rec.ProviderAccountIDs {
		out.ProviderAccountIDs[k] = v
	}
	for k, v := range rec.CloudKeys {
		out.CloudKeys[k] = v
	}
	for k, v := range rec.VerifiedAt {
		out.VerifiedAt[k] = v
	}
	return out
}

type memRunLog struct {
	mu   sync.Mutex
	runs []model.ProvisioningRun
}

func (m *memRunLog) Record(_ context.Context, run model.ProvisioningRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *memRunLog) ListByAccount(_ context.Context, accountID string) ([]model.ProvisioningRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.ProvisioningRun{}
	for i := len(m.runs) - 1; i >= 0; i-- {
		if m.runs[i].AccountID == accountID {
			out = append(out, m.runs[i])
		}
	}
	return out, nil
}

type stubTokenVerifier struct {
	result   model.VerificationResult
	calls    int
	gotToken string
}

func (s *stubTokenVerifier) VerifyToken(_ context.Context, token string) model.VerificationResult {
	s.calls++
	s.gotToken = token
	return s.result
}

type stubCloudVerifier struct {
	result model.VerificationResult
	calls  int
	got    model.CloudCredential
}

func (s *stubCloudVerifier) VerifyKeys(_ context.Context, cred model.CloudCredential) model.VerificationResult {
	s.calls++
	s.got = cred
	return s.result
}

type putCall struct {
	owner, repo, path, branch, message string
	content                            []byte
}

type fakeActionsClient struct {
	manifest      []byte
	manifestErr   error
	manifestBlock bool

	token      model.RegistrationToken
	tokenErr   error
	tokenCalls int

	putErr error
	puts   []putCall
}

func (f *fakeActionsClient) FetchManifest(ctx context.Context, _, _, _ string) ([]byte, error) {
	if f.manifestBlock {
		<-ctx.Done()
		return nil, fmt.Errorf("fetch manifest: %w: %w", driven.ErrProviderUnavailable, ctx.Err())
	}
	if f.manifestErr != nil {
		return nil, f.manifestErr
	}
	return f.manifest, nil
}

func (f *fakeActionsClient) CreateRegistrationToken(_ context.Context, _, _ string) (model.RegistrationToken, error) {
	f.tokenCalls++
	if f.tokenErr != nil {
		return model.RegistrationToken{}, f.tokenErr
	}
	return f.token, nil
}

func (f *fakeActionsClient) PutWorkflowFile(_ context.Context, owner, repo, path, branch, message string, content []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.puts = append(f.puts, putCall{owner, repo, path, branch, message, content})
	return nil
}

type fakeActionsFactory struct {
	client *fakeActionsClient
	tokens []string
}

func (f *fakeActionsFactory) ForToken(token string) driven.ActionsClient {
	f.tokens = append(f.tokens, token)
	return f.client
}

type countingRecorder struct {
	mu            sync.Mutex
	verifications map[string]int
	provisioning  map[model.PipelineState]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{verifications: map[string]int{}, provisioning: map[model.PipelineState]int{}}
}

func (r *countingRecorder) ObserveVerification(p model.Provider, o model.VerificationOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifications[string(p)+"/"+string(o)]++
}

func (r *countingRecorder) ObserveProvisioning(s model.PipelineState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.provisioning[s]++
}

type staticRenderer struct {
	err error
}

func (r staticRenderer) Render(spec model.WorkflowSpec) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "name: " + spec.Name + "\n", nil
}

var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/secretpipe/internal/application"
	"github.com/ericfisherdev/secretpipe/internal/domain/model"
	"github.com/ericfisherdev/secretpipe/internal/domain/port/driven"
)

// maxBodyBytes caps request bodies; credentials and targets are small.
const maxBodyBytes = 64 << 10

// Pipeline is the application surface the REST API drives.
type Pipeline interface {
	CreateAccount(ctx context.Context, accountID string) (*model.UserSecretRecord, error)
	SecretStatus(ctx context.Context, accountID string) (*application.SecretStatus, error)
	RegisterGitHubToken(ctx context.Context, accountID, token string, target *model.ProvisionTarget) (*model.PipelineOutcome, error)
	RegisterCloudCredential(ctx context.Context, accountID string, cred model.CloudCredential) (*model.PipelineOutcome, error)
	ProvisionStored(ctx context.Context, accountID string, target model.ProvisionTarget) (*model.PipelineOutcome, error)
	ListRuns(ctx context.Context, accountID string) ([]model.ProvisioningRun, error)
}

var _ Pipeline = (*application.PipelineService)(nil)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	pipeline Pipeline
	metrics  http.Handler
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. metrics may be
// nil, in which case /metrics is not served.
func NewHandler(pipeline Pipeline, metrics http.Handler, logger *slog.Logger) *Handler {
	return &Handler{
		pipeline: pipeline,
		metrics:  metrics,
		logger:   logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/account", requireIdentity(h.CreateAccount))
	mux.HandleFunc("GET /api/v1/account/secrets", requireIdentity(h.GetSecretStatus))
	mux.HandleFunc("POST /api/v1/account/credentials/github", requireIdentity(h.RegisterGitHubToken))
	mux.HandleFunc("POST /api/v1/account/credentials/aws", requireIdentity(h.RegisterAWSCredential))
	mux.HandleFunc("POST /api/v1/account/pipelines", requireIdentity(h.ProvisionPipeline))
	mux.HandleFunc("GET /api/v1/account/pipelines", requireIdentity(h.ListPipelines))
	mux.HandleFunc("GET /api/v1/health", h.Health)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// CreateAccount ensures the caller's account exists.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	rec, err := h.pipeline.CreateAccount(r.Context(), accountFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(rec))
}

// GetSecretStatus returns which providers hold a verified credential.
func (h *Handler) GetSecretStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.pipeline.SecretStatus(r.Context(), accountFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, toSecretStatusResponse(status))
}

// RegisterGitHubToken verifies and stores a GitHub token, optionally
// provisioning a workflow and runner in the same request.
func (h *Handler) RegisterGitHubToken(w http.ResponseWriter, r *http.Request) {
	var req GitHubCredentialRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var target *model.ProvisionTarget
	if req.Provision != nil {
		t := req.Provision.toModel()
		target = &t
	}

	outcome, err := h.pipeline.RegisterGitHubToken(r.Context(), accountFrom(r.Context()), req.Token, target)
	if err != nil {
		h.writeServiceError(w, r, err, outcome)
		return
	}

	writeJSON(w, http.StatusOK, toOutcomeResponse(outcome))
}

// RegisterAWSCredential verifies and stores an AWS access key pair.
func (h *Handler) RegisterAWSCredential(w http.ResponseWriter, r *http.Request) {
	var req AWSCredentialRequest
	if !decodeBody(w, r, &req) {
		return
	}

	outcome, err := h.pipeline.RegisterCloudCredential(r.Context(), accountFrom(r.Context()), model.CloudCredential{
		AccessKeyID:     req.AccessKeyID,
		SecretAccessKey: req.SecretAccessKey,
		Region:          req.Region,
	})
	if err != nil {
		h.writeServiceError(w, r, err, outcome)
		return
	}

	writeJSON(w, http.StatusOK, toOutcomeResponse(outcome))
}

// ProvisionPipeline provisions a workflow and runner with the stored token.
func (h *Handler) ProvisionPipeline(w http.ResponseWriter, r *http.Request) {
	var req TargetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	outcome, err := h.pipeline.ProvisionStored(r.Context(), accountFrom(r.Context()), req.toModel())
	if err != nil {
		h.writeServiceError(w, r, err, outcome)
		return
	}

	writeJSON(w, http.StatusCreated, toOutcomeResponse(outcome))
}

// ListPipelines returns the caller's provisioning log, newest first.
func (h *Handler) ListPipelines(w http.ResponseWriter, r *http.Request) {
	runs, err := h.pipeline.ListRuns(r.Context(), accountFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}

	resp := make([]ProvisioningRunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toProvisioningRunResponse(run))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeServiceError maps the application error taxonomy onto mutually
// exclusive response kinds. Provisioning failures are checked before provider
// outages because their cause may itself be an outage.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, outcome *model.PipelineOutcome) {
	resp := errorResponse{Error: err.Error(), Outcome: toOutcomeResponse(outcome)}
	var status int

	var vErr *application.ValidationError
	switch {
	case errors.As(err, &vErr):
		status, resp.Kind, resp.Field = http.StatusBadRequest, "validation_rejected", vErr.Field
	case errors.Is(err, application.ErrCredentialInvalid):
		status, resp.Kind = http.StatusUnprocessableEntity, "credential_rejected"
		resp.Error = "credential rejected by provider"
	case errors.Is(err, application.ErrProvisioningFailed):
		status, resp.Kind = http.StatusBadGateway, "provisioning_failed"
	case errors.Is(err, application.ErrProviderUnavailable):
		status, resp.Kind = http.StatusServiceUnavailable, "provider_unavailable"
	case errors.Is(err, driven.ErrDecryption):
		status, resp.Kind = http.StatusInternalServerError, "secret_unreadable"
		resp.Error = "stored secret could not be decrypted"
	case errors.Is(err, driven.ErrAccountNotFound):
		status, resp.Kind = http.StatusNotFound, "account_not_found"
		resp.Error = "account not found"
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		status, resp.Kind = http.StatusInternalServerError, "internal"
		resp.Error = "internal server error"
	}

	writeJSON(w, status, resp)
}

// decodeBody decodes a size-limited body holding exactly one JSON object into
// v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "validation_rejected", "invalid request body")
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "validation_rejected", "request body must hold a single JSON object")
		return false
	}
	return true
}

// Package github implements the source-control ports using the go-github library.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit/github_primary_ratelimit"

	"github.com/ericfisherdev/secretpipe/internal/domain/model"
	"github.com/ericfisherdev/secretpipe/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.ActionsClient        = (*Client)(nil)
	_ driven.ActionsClientFactory = (*Factory)(nil)
	_ driven.TokenVerifier        = (*Factory)(nil)
)

// Client implements driven.ActionsClient for a single token.
type Client struct {
	gh *gh.Client
}

// Factory builds token-scoped clients. It holds no token itself.
type Factory struct {
	baseURL    *url.URL      // nil means api.github.com.
	httpClient *http.Client  // nil means the production transport stack.
	timeout    time.Duration // Applied to one-shot verification clients.
}

// NewFactory creates a Factory for api.github.com, or for a GitHub Enterprise
// API root when apiURL is non-empty.
func NewFactory(apiURL string) (*Factory, error) {
	f := &Factory{timeout: 10 * time.Second}
	if apiURL != "" {
		u, err := parseBaseURL(apiURL)
		if err != nil {
			return nil, err
		}
		f.baseURL = u
	}
	return f, nil
}

// NewFactoryWithHTTPClient creates a Factory that sends every request through
// httpClient to baseURL. This constructor is intended for testing, allowing
// injection of an httptest server.
func NewFactoryWithHTTPClient(httpClient *http.Client, baseURL string) (*Factory, error) {
	u, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Factory{baseURL: u, httpClient: httpClient}, nil
}

// ForToken returns a client authenticated with token. Production clients use
// the following transport stack:
//  1. go-github-ratelimit primary limiter (fails fast once a limit is hit,
//     never re-sends a request)
//  2. httpcache (ETag-based conditional request caching)
//  3. tokenTransport ("Authorization: token <value>")
//
// The secondary limiter is not used: it re-sends requests after sleeping,
// and registration-token POSTs and contents PUTs must be sent at most once.
func (f *Factory) ForToken(token string) driven.ActionsClient {
	return f.newClient(token)
}

func (f *Factory) newClient(token string) *Client {
	var httpClient *http.Client
	if f.httpClient != nil {
		c := *f.httpClient
		c.Transport = &tokenTransport{token: token, next: f.httpClient.Transport}
		httpClient = &c
	} else {
		cacheTransport := httpcache.NewMemoryCacheTransport()
		cacheTransport.Transport = &tokenTransport{token: token}
		httpClient = &http.Client{
			Transport: github_ratelimit.NewPrimaryLimiter(cacheTransport,
				github_primary_ratelimit.WithLimitDetectedCallback(logPrimaryLimit),
			),
		}
	}

	client := gh.NewClient(httpClient)
	if f.baseURL != nil {
		u := *f.baseURL
		client.BaseURL = &u
	}
	return &Client{gh: client}
}

// FetchManifest downloads a file from the repository's default branch.
func (c *Client) FetchManifest(ctx context.Context, owner, repo, path string) ([]byte, error) {
	file, _, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s/%s %s: %w", owner, repo, path, driven.ErrManifestNotFound)
		}
		return nil, fmt.Errorf("fetching %s from %s/%s: %w", path, owner, repo, classify(err))
	}
	logRateLimit(resp, owner+"/"+repo+"/contents")

	if file == nil {
		return nil, fmt.Errorf("%s in %s/%s is a directory: %w", path, owner, repo, driven.ErrManifestNotFound)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decoding %s from %s/%s: %w: %v", path, owner, repo, driven.ErrProviderUnavailable, err)
	}
	return []byte(content), nil
}

// CreateRegistrationToken requests a runner registration token for the repository.
// An empty token field in a success response is reported as an error rather
// than passed on.
func (c *Client) CreateRegistrationToken(ctx context.Context, owner, repo string) (model.RegistrationToken, error) {
	tok, resp, err := c.gh.Actions.CreateRegistrationToken(ctx, owner, repo)
	if err != nil {
		return model.RegistrationToken{}, fmt.Errorf("creating runner registration token for %s/%s: %w", owner, repo, classify(err))
	}
	logRateLimit(resp, owner+"/"+repo+"/registration-token")

	if tok.GetToken() == "" {
		return model.RegistrationToken{}, fmt.Errorf("registration token response for %s/%s has no token field: %w", owner, repo, driven.ErrProviderUnavailable)
	}

	return model.RegistrationToken{
		Token:     tok.GetToken(),
		ExpiresAt: tok.GetExpiresAt().Time,
	}, nil
}

// PutWorkflowFile creates path on branch, or updates it with the current blob
// sha. Identical content is not rewritten.
func (c *Client) PutWorkflowFile(ctx context.Context, owner, repo, path, branch, message string, content []byte) error {
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(message),
		Content: content,
		Branch:  gh.Ptr(branch),
	}

	existing, _, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, &gh.RepositoryContentGetOptions{Ref: branch})
	switch {
	case err == nil && existing != nil:
		current, decodeErr := existing.GetContent()
		if decodeErr == nil && current == string(content) {
			slog.Debug("workflow file unchanged", "repo", owner+"/"+repo, "path", path)
			return nil
		}
		opts.SHA = gh.Ptr(existing.GetSHA())
	case err != nil && (resp == nil || resp.StatusCode != http.StatusNotFound):
		return fmt.Errorf("reading %s from %s/%s: %w", path, owner, repo, classify(err))
	}

	if _, _, err := c.gh.Repositories.CreateFile(ctx, owner, repo, path, opts); err != nil {
		return fmt.Errorf("writing %s to %s/%s: %w", path, owner, repo, classify(err))
	}
	return nil
}

// classify maps go-github errors to the port error contract.
func classify(err error) error {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) && rateErr.Response != nil {
		return &driven.ProviderAPIError{StatusCode: rateErr.Response.StatusCode, Message: rateErr.Message}
	}
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) && abuseErr.Response != nil {
		return &driven.ProviderAPIError{StatusCode: abuseErr.Response.StatusCode, Message: abuseErr.Message}
	}
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return &driven.ProviderAPIError{StatusCode: ghErr.Response.StatusCode, Message: ghErr.Message}
	}
	return fmt.Errorf("%w: %v", driven.ErrProviderUnavailable, err)
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// logPrimaryLimit reports a reached primary rate limit. Further requests in
// the category fail until the reset time.
func logPrimaryLimit(cb *github_primary_ratelimit.CallbackContext) {
	attrs := []any{"category", string(cb.Category)}
	if cb.ResetTime != nil {
		attrs = append(attrs, "reset_in", time.Until(*cb.ResetTime).Round(time.Second))
	}
	slog.Warn("github primary rate limit reached", attrs...)
}

// tokenTransport sets the "token" authorization scheme on every request.
type tokenTransport struct {
	token string
	next  http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "token "+t.token)

	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(clone)
}

func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parsing base URL %q: scheme and host are required", raw)
	}
	if u.Path == "" || u.Path[len(u.Path)-1] != '/' {
		u.Path += "/"
	}
	return u, nil
}

package github

import (
	"context"
	"errors"
	"net/http"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/secretpipe/internal/domain/model"
)

// VerifyToken calls the authenticated-user endpoint with token. A 200 with a
// login is valid, a 401 is invalid, anything else is a transient error. The
// check uses a one-shot client so no cache or token outlives the call.
func (f *Factory) VerifyToken(ctx context.Context, token string) model.VerificationResult {
	client := f.verificationClient(token)

	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		var ghErr *gh.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusUnauthorized {
			return model.Invalid()
		}
		return model.TransientError(err.Error())
	}

	login := user.GetLogin()
	if login == "" {
		return model.TransientError("authenticated-user response has no login field")
	}
	return model.Valid(login, user.GetHTMLURL())
}

func (f *Factory) verificationClient(token string) *gh.Client {
	var httpClient *http.Client
	if f.httpClient != nil {
		c := *f.httpClient
		c.Transport = &tokenTransport{token: token, next: f.httpClient.Transport}
		httpClient = &c
	} else {
		httpClient = &http.Client{Timeout: f.timeout, Transport: &tokenTransport{token: token}}
	}

	client := gh.NewClient(httpClient)
	if f.baseURL != nil {
		u := *f.baseURL
		client.BaseURL = &u
	}
	return client
}

// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// secretKeyLen is the required length of the decoded process secret key.
const secretKeyLen = 32

// ErrSecretKeyMissing is returned when SECRETPIPE_SECRET_KEY is unset or empty.
// There is no fallback key.
var ErrSecretKeyMissing = errors.New("SECRETPIPE_SECRET_KEY is required")

// Config holds the application configuration loaded from environment variables.
type Config struct {
	SecretKey      []byte
	ListenAddr     string
	DBPath         string
	GitHubAPIURL   string // Empty means the public API.
	GitHubWebURL   string
	RunnerVersion  string
	WorkflowBranch string
	StageTimeout   time.Duration
}

// Load reads configuration from environment variables and returns a validated Config.
// SECRETPIPE_SECRET_KEY (64 hex characters) is required.
// Optional variables with defaults: SECRETPIPE_LISTEN_ADDR (127.0.0.1:8080),
// SECRETPIPE_DB_PATH (secretpipe.db), SECRETPIPE_GITHUB_API_URL (public API),
// SECRETPIPE_GITHUB_WEB_URL (https://github.com), SECRETPIPE_RUNNER_VERSION
// (2.311.0), SECRETPIPE_WORKFLOW_BRANCH (main), SECRETPIPE_STAGE_TIMEOUT (20s).
func Load() (*Config, error) {
	key, err := loadSecretKey()
	if err != nil {
		return nil, err
	}

	stageTimeout := 20 * time.Second
	if v, ok := os.LookupEnv("SECRETPIPE_STAGE_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SECRETPIPE_STAGE_TIMEOUT has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("SECRETPIPE_STAGE_TIMEOUT must be positive, got %s", parsed)
		}
		stageTimeout = parsed
	}

	apiURL := os.Getenv("SECRETPIPE_GITHUB_API_URL")
	if apiURL != "" {
		if err := checkURL("SECRETPIPE_GITHUB_API_URL", apiURL); err != nil {
			return nil, err
		}
	}

	webURL := envOr("SECRETPIPE_GITHUB_WEB_URL", "https://github.com")
	if err := checkURL("SECRETPIPE_GITHUB_WEB_URL", webURL); err != nil {
		return nil, err
	}

	return &Config{
		SecretKey:      key,
		ListenAddr:     envOr("SECRETPIPE_LISTEN_ADDR", "127.0.0.1:8080"),
		DBPath:         envOr("SECRETPIPE_DB_PATH", "secretpipe.db"),
		GitHubAPIURL:   apiURL,
		GitHubWebURL:   strings.TrimRight(webURL, "/"),
		RunnerVersion:  envOr("SECRETPIPE_RUNNER_VERSION", "2.311.0"),
		WorkflowBranch: envOr("SECRETPIPE_WORKFLOW_BRANCH", "main"),
		StageTimeout:   stageTimeout,
	}, nil
}

func loadSecretKey() ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv("SECRETPIPE_SECRET_KEY"))
	if raw == "" {
		return nil, ErrSecretKeyMissing
	}

	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("SECRETPIPE_SECRET_KEY must be hex encoded: %w", err)
	}
	if len(key) != secretKeyLen {
		return nil, fmt.Errorf("SECRETPIPE_SECRET_KEY must decode to %d bytes, got %d", secretKeyLen, len(key))
	}
	return key, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func checkURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s has invalid URL %q: %w", name, raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
	}
	return nil
}

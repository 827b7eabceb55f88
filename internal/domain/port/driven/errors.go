package driven

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by driven adapters.
var (
	// ErrDecryption indicates a corrupt envelope or a key/salt mismatch. It
	// never means the credential itself is invalid.
	ErrDecryption = errors.New("decryption failed")

	// ErrProviderUnavailable indicates a network failure, timeout or an
	// unexpected response shape from a provider.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrAccountNotFound indicates the account has no secret record.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists indicates an account with the same id already exists.
	ErrAccountExists = errors.New("account already exists")

	// ErrManifestNotFound indicates the repository has no manifest file.
	ErrManifestNotFound = errors.New("manifest not found")
)

// ProviderAPIError is a provider response with a non-success HTTP status.
type ProviderAPIError struct {
	StatusCode int
	Message    string
}

func (e *ProviderAPIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("provider API error: status %d: %s", e.StatusCode, e.Message)
}

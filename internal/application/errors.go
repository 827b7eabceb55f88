package application

import (
	"errors"
	"fmt"

	"github.com/ericfisherdev/secretpipe/internal/domain/port/driven"
)

// Caller-facing error taxonomy. Each PipelineService error matches exactly one
// of these through errors.Is, checked in this order: ErrValidation,
// ErrCredentialInvalid, ErrProvisioningFailed, ErrProviderUnavailable,
// driven.ErrDecryption.
var (
	ErrValidation          = errors.New("validation rejected")
	ErrCredentialInvalid   = errors.New("credential rejected by provider")
	ErrProvisioningFailed  = errors.New("provisioning failed")
	ErrProviderUnavailable = driven.ErrProviderUnavailable
)

// ValidationError reports malformed caller input. It is raised before any
// provider call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ProvisioningFailedError wraps a failure that happened after the credential
// was verified and persisted. The persisted secret is left intact.
type ProvisioningFailedError struct {
	Stage string
	Cause error
}

func (e *ProvisioningFailedError) Error() string {
	return fmt.Sprintf("provisioning failed during %s: %v", e.Stage, e.Cause)
}

func (e *ProvisioningFailedError) Unwrap() error {
	return e.Cause
}

// Is makes every ProvisioningFailedError match ErrProvisioningFailed.
func (e *ProvisioningFailedError) Is(target error) bool {
	return target == ErrProvisioningFailed
}

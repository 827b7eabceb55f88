package driven

import (
	"context"

	"github.com/ericfisherdev/secretpipe/internal/domain/model"
)

// AccountStore defines the driven port for the account's secret record.
// Implementations must serialize writes per account so a verified write is
// never clobbered by a concurrent request for the same account.
type AccountStore interface {
	// CreateAccount stores a new record with the given salt. Returns
	// ErrAccountExists if the account already exists.
	CreateAccount(ctx context.Context, accountID, salt string) (*model.UserSecretRecord, error)

	// GetSecretRecord returns the account's record or ErrAccountNotFound.
	GetSecretRecord(ctx context.Context, accountID string) (*model.UserSecretRecord, error)

	// SaveVerifiedCredential atomically upserts the provider's envelope and
	// verified account id and sets the secrets-set flag.
	SaveVerifiedCredential(ctx context.Context, accountID string, cred model.VerifiedCredential) error
}

// ProvisioningLog defines the driven port for provisioning audit entries.
type ProvisioningLog interface {
	Record(ctx context.Context, run model.ProvisioningRun) error
	ListByAccount(ctx context.Context, accountID string) ([]model.ProvisioningRun, error)
}

package model

// VerificationResult is the transient outcome of checking a credential with
// its issuing provider. ProviderAccountID is set only for OutcomeValid and
// ErrorDetail only for OutcomeTransientError.
type VerificationResult struct {
	Outcome           VerificationOutcome
	ProviderAccountID string
	Principal         string // ARN or login URL; informational only.
	ErrorDetail       string
}

// Valid builds a successful result.
func Valid(accountID, principal string) VerificationResult {
	return VerificationResult{Outcome: OutcomeValid, ProviderAccountID: accountID, Principal: principal}
}

// Invalid builds a result for a credential the provider rejected.
func Invalid() VerificationResult {
	return VerificationResult{Outcome: OutcomeInvalid}
}

// TransientError builds a result for a failed check whose cause is not the
// credential itself.
func TransientError(detail string) VerificationResult {
	return VerificationResult{Outcome: OutcomeTransientError, ErrorDetail: detail}
}

// CloudCredential is an access key pair scoped to a region.
type CloudCredential struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
}

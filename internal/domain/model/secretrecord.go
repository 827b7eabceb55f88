package model

import "time"

// UserSecretRecord is the secret-bearing part of an account. Token maps hold
// envelopes ("<ivHex>:<ciphertextHex>"), never plaintext. Salt is generated
// once at account creation and never changes.
type UserSecretRecord struct {
	AccountID          string
	Salt               string
	ProviderTokens     map[Provider]string
	ProviderAccountIDs map[Provider]string
	CloudKeys          map[Provider]CloudKey
	VerifiedAt         map[Provider]time.Time
	SecretsSet         bool
	CreatedAt          time.Time
}

// CloudKey holds the non-secret half of a cloud key pair. KeyIDEnvelope is
// still encrypted; Region is stored in clear.
type CloudKey struct {
	KeyIDEnvelope string
	Region        string
}

// NewUserSecretRecord returns an empty record with initialized maps.
func NewUserSecretRecord(accountID, salt string) *UserSecretRecord {
	return &UserSecretRecord{
		AccountID:          accountID,
		Salt:               salt,
		ProviderTokens:     map[Provider]string{},
		ProviderAccountIDs: map[Provider]string{},
		CloudKeys:          map[Provider]CloudKey{},
		VerifiedAt:         map[Provider]time.Time{},
	}
}

// HasVerified reports whether a verified envelope is stored for p.
func (r *UserSecretRecord) HasVerified(p Provider) bool {
	return r.ProviderTokens[p] != "" && r.ProviderAccountIDs[p] != ""
}

// VerifiedCredential is the unit persisted after a valid verification.
// ProviderAccountID must be non-empty.
type VerifiedCredential struct {
	Provider          Provider
	Envelope          string
	ProviderAccountID string
	KeyIDEnvelope     string
	Region            string
	VerifiedAt        time.Time
}

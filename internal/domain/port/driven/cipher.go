package driven

// Cipher encrypts secrets with a key derived from a process-wide secret and
// a per-account salt. Empty input is returned unchanged by both directions.
type Cipher interface {
	// Encrypt returns the envelope "<ivHex>:<ciphertextHex>" for plaintext.
	Encrypt(plaintext, salt string) (string, error)

	// Decrypt reverses Encrypt. A malformed envelope or a salt other than the
	// one used at encryption time yields an error matching ErrDecryption.
	Decrypt(envelope, salt string) (string, error)

	// NewSalt returns a fresh random salt for a new account.
	NewSalt() (string, error)
}

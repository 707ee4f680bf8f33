// Package vault seals and opens small secrets at rest, binding every
// ciphertext to the owning user and a purpose so a blob copied between rows
// or columns can never be opened.
package vault

// Vault defines the contract for sealing and opening secret material.
type Vault interface {
	// Seal returns ciphertext for the given plaintext and scope.
	Seal(plaintext []byte, scope Scope) (ciphertext []byte, err error)
	// Open returns plaintext for the given ciphertext and scope.
	Open(ciphertext []byte, scope Scope) (plaintext []byte, err error)
}

// KeyProvider provides raw AES keys.
// For AES-256-GCM, keys must be 32 bytes.
type KeyProvider interface {
	// Key returns the raw AES key to use for this scope.
	// Implementations may return per-tenant or per-environment keys.
	Key(scope Scope) ([]byte, error)
}

// Purpose identifies what kind of secret a ciphertext holds.
type Purpose string

const (
	// PurposeTOTPSeed scopes sealing to authenticator seeds.
	PurposeTOTPSeed Purpose = "totp_seed"
	// PurposeRecoveryCodes scopes sealing to recovery code batches.
	PurposeRecoveryCodes Purpose = "recovery_codes"
)

// Scope binds a ciphertext to its owner and purpose.
// It is fed into AES-GCM as AAD (Additional Authenticated Data).
type Scope struct {
	// UserID is the owning user identifier.
	UserID int64
	// Purpose is the sealing purpose.
	Purpose Purpose
}

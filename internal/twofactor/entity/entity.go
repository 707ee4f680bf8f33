package entity

import (
	"time"

	"github.com/gatewarden/gatewarden/internal/pkg/valueobject"
)

// UserLoginInfo is the projection used by the password step of login.
type UserLoginInfo struct {
	ID               int64
	Email            string
	Status           UserStatus
	Password         string // hashed
	TwoFactorEnabled bool
}

// UserCredentialInfo is the projection used for password re-checks on
// authenticated endpoints.
type UserCredentialInfo struct {
	ID       int64
	Email    string
	Status   UserStatus
	Password string // hashed
}

// TwoFactorCredential is the second-factor material stored on the user row.
// The seed and recovery codes are vault-sealed; plaintext never touches the
// database.
type TwoFactorCredential struct {
	UserID              int64
	SealedSeed          []byte
	Enabled             bool
	SealedRecoveryCodes []byte
}

// State derives the credential lifecycle state from the stored columns.
// Pending enrollments live in challenge sessions, never on the row, so a row
// is either Absent or Active.
func (c TwoFactorCredential) State() CredentialState {
	if c.Enabled && len(c.SealedSeed) > 0 {
		return CredentialStateActive
	}
	return CredentialStateAbsent
}

// Challenge is a short-lived session binding an opaque token to a user and a
// purpose. Only the HMAC of the token is stored.
type Challenge struct {
	ID        int64               `json:"id,string"`
	UserID    int64               `json:"user_id,string"`
	TokenHash string              `json:"token_hash"`
	Purpose   ChallengePurpose    `json:"purpose"`
	Remember  bool                `json:"remember"`
	ExpiresAt time.Time           `json:"expires_at"`
	Metadata  valueobject.JSONMap `json:"metadata,omitempty"`
}

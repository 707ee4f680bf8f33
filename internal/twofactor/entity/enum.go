package entity

type UserStatus int16

const (
	// UserStatusUnknown is mean status is not known / not set.
	UserStatusUnknown UserStatus = 0

	// UserStatusUnverified mean user exists but has not completed verification.
	UserStatusUnverified UserStatus = 1

	// UserStatusActive mean user is verified and allowed to use the app.
	UserStatusActive UserStatus = 2

	// UserStatusBanned mean user is blocked from using the app (policy/abuse/etc).
	UserStatusBanned UserStatus = 3

	// UserStatusInactive mean user is not currently active (e.g., deactivated, closed).
	UserStatusInactive UserStatus = 4
)

func (us UserStatus) String() string {
	switch us {
	case UserStatusActive:
		return "Active"
	case UserStatusBanned:
		return "Banned"
	case UserStatusInactive:
		return "Inactive"
	case UserStatusUnverified:
		return "Unverified"
	default:
		return "Unknown"
	}
}

func (us UserStatus) Ensure() UserStatus {
	switch us {
	case UserStatusActive:
		return UserStatusActive
	case UserStatusBanned:
		return UserStatusBanned
	case UserStatusInactive:
		return UserStatusInactive
	case UserStatusUnverified:
		return UserStatusUnverified
	default:
		return UserStatusUnknown
	}
}

// CredentialState is the two-factor credential lifecycle.
//
// Absent -> PendingConfirmation (enroll) -> Active (confirm), with disable
// returning to Absent from either non-absent state.
type CredentialState int16

const (
	CredentialStateAbsent              CredentialState = 0
	CredentialStatePendingConfirmation CredentialState = 1
	CredentialStateActive              CredentialState = 2
)

func (cs CredentialState) String() string {
	switch cs {
	case CredentialStatePendingConfirmation:
		return "PendingConfirmation"
	case CredentialStateActive:
		return "Active"
	default:
		return "Absent"
	}
}

type ChallengePurpose int16

const (
	ChallengePurposeUnknown       ChallengePurpose = 0
	ChallengePurposeLogin         ChallengePurpose = 1
	ChallengePurposeEnrollConfirm ChallengePurpose = 2
)

func (cp ChallengePurpose) String() string {
	switch cp {
	case ChallengePurposeLogin:
		return "Login"
	case ChallengePurposeEnrollConfirm:
		return "EnrollConfirm"
	default:
		return "Unknown"
	}
}

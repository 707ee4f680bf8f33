package inbound

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type LoginResponse struct {
	TwoFactorRequired bool   `json:"two_factor_required,omitempty"`
	ChallengeToken    string `json:"challenge_token,omitempty"`
	AccessToken       string `json:"access_token,omitempty"`
}

type VerifyLoginRequest struct {
	ChallengeToken string `json:"challenge_token"`
	Code           string `json:"code"`
	UseRecovery    bool   `json:"use_recovery"`
}

type VerifyLoginResponse struct {
	AccessToken string `json:"access_token"`
}

type AbandonChallengeRequest struct {
	ChallengeToken string `json:"challenge_token"`
}

type AbandonChallengeResponse struct{}

func (AbandonChallengeResponse) Message() string {
	return "Challenge abandoned. Please sign in again with your password."
}

type StatusResponse struct {
	Enabled                bool `json:"enabled"`
	RecoveryCodesRemaining int  `json:"recovery_codes_remaining"`
}

type EnrollRequest struct {
	CurrentPassword string `json:"current_password"`
}

type EnrollResponse struct {
	ChallengeToken  string   `json:"challenge_token"`
	Secret          string   `json:"secret"`
	ProvisioningURI string   `json:"provisioning_uri"`
	RecoveryCodes   []string `json:"recovery_codes"`
}

func (EnrollResponse) Message() string {
	return "Scan the QR code with your authenticator app, then confirm with a code. Store your recovery codes somewhere safe; they will not be shown again."
}

type ConfirmRequest struct {
	ChallengeToken string `json:"challenge_token"`
	Code           string `json:"code"`
}

type ConfirmResponse struct{}

func (ConfirmResponse) Message() string {
	return "Two-factor authentication is now enabled."
}

type DisableRequest struct {
	CurrentPassword string `json:"current_password"`
}

type DisableResponse struct{}

func (DisableResponse) Message() string {
	return "Two-factor authentication has been disabled."
}

type RotateRecoveryCodesRequest struct {
	CurrentPassword string `json:"current_password"`
}

type RotateRecoveryCodesResponse struct {
	RecoveryCodes []string `json:"recovery_codes"`
}

func (RotateRecoveryCodesResponse) Message() string {
	return "New recovery codes generated. Your previous codes no longer work."
}

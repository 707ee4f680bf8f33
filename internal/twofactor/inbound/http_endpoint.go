package inbound

import (
	"github.com/gatewarden/gatewarden/internal/pkg/router"
	"github.com/gatewarden/gatewarden/internal/twofactor/usecase"
)

// HTTPEndpoint exposes HTTP handlers for login and second-factor workflows.
type HTTPEndpoint struct {
	uc uc
}

// Login authenticates with email and password. When the account has an
// active second factor, the response carries a challenge token instead of
// an access token.
func (h *HTTPEndpoint) Login(r *router.Request) (any, error) {
	var req LoginRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Login(r.Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Remember: req.Remember,
	})
	if err != nil {
		return nil, err
	}

	return LoginResponse{
		TwoFactorRequired: resp.TwoFactorRequired,
		ChallengeToken:    resp.ChallengeToken,
		AccessToken:       resp.AccessToken,
	}, nil
}

// VerifyLogin completes a pending login with an authenticator code or a
// recovery code.
func (h *HTTPEndpoint) VerifyLogin(r *router.Request) (any, error) {
	var req VerifyLoginRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.VerifyLogin(r.Context(), usecase.VerifyLoginInput{
		ChallengeToken: req.ChallengeToken,
		Code:           req.Code,
		UseRecovery:    req.UseRecovery,
		ClientIP:       r.ClientIP(),
	})
	if err != nil {
		return nil, err
	}

	return VerifyLoginResponse{AccessToken: resp.AccessToken}, nil
}

// AbandonChallenge discards a pending login challenge.
func (h *HTTPEndpoint) AbandonChallenge(r *router.Request) (any, error) {
	var req AbandonChallengeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.AbandonChallenge(r.Context(), usecase.AbandonChallengeInput{
		ChallengeToken: req.ChallengeToken,
	}); err != nil {
		return nil, err
	}

	return &AbandonChallengeResponse{}, nil
}

// Status reports whether the caller has an active second factor.
func (h *HTTPEndpoint) Status(r *router.Request) (any, error) {
	resp, err := h.uc.Status(r.Context())
	if err != nil {
		return nil, err
	}

	return StatusResponse{
		Enabled:                resp.Enabled,
		RecoveryCodesRemaining: resp.RecoveryCodesRemaining,
	}, nil
}

// Enroll starts two-factor enrollment. The secret, provisioning URI, and
// recovery codes in the response are shown exactly once.
func (h *HTTPEndpoint) Enroll(r *router.Request) (any, error) {
	var req EnrollRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Enroll(r.Context(), usecase.EnrollInput{
		Password: req.CurrentPassword,
	})
	if err != nil {
		return nil, err
	}

	return EnrollResponse{
		ChallengeToken:  resp.ChallengeToken,
		Secret:          resp.Secret,
		ProvisioningURI: resp.ProvisioningURI,
		RecoveryCodes:   resp.RecoveryCodes,
	}, nil
}

// Confirm activates a pending enrollment by verifying an authenticator code.
func (h *HTTPEndpoint) Confirm(r *router.Request) (any, error) {
	var req ConfirmRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if _, err := h.uc.Confirm(r.Context(), usecase.ConfirmInput{
		ChallengeToken: req.ChallengeToken,
		Code:           req.Code,
	}); err != nil {
		return nil, err
	}

	return &ConfirmResponse{}, nil
}

// Disable turns off the second factor after a password re-check.
func (h *HTTPEndpoint) Disable(r *router.Request) (any, error) {
	var req DisableRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.Disable(r.Context(), usecase.DisableInput{
		Password: req.CurrentPassword,
	}); err != nil {
		return nil, err
	}

	return &DisableResponse{}, nil
}

// RotateRecoveryCodes replaces the caller's recovery code batch.
func (h *HTTPEndpoint) RotateRecoveryCodes(r *router.Request) (any, error) {
	var req RotateRecoveryCodesRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RotateRecoveryCodes(r.Context(), usecase.RotateRecoveryCodesInput{
		Password: req.CurrentPassword,
	})
	if err != nil {
		return nil, err
	}

	return RotateRecoveryCodesResponse{RecoveryCodes: resp.RecoveryCodes}, nil
}

package inbound

import (
	"context"

	"github.com/gatewarden/gatewarden/internal/pkg/router"
	"github.com/gatewarden/gatewarden/internal/twofactor/usecase"
)

type uc interface {
	Login(ctx context.Context, in usecase.LoginInput) (*usecase.LoginOutput, error)
	VerifyLogin(ctx context.Context, in usecase.VerifyLoginInput) (*usecase.VerifyLoginOutput, error)
	AbandonChallenge(ctx context.Context, in usecase.AbandonChallengeInput) error

	Enroll(ctx context.Context, in usecase.EnrollInput) (*usecase.EnrollOutput, error)
	Confirm(ctx context.Context, in usecase.ConfirmInput) (*usecase.ConfirmOutput, error)
	Disable(ctx context.Context, in usecase.DisableInput) error
	RotateRecoveryCodes(ctx context.Context, in usecase.RotateRecoveryCodesInput) (*usecase.RotateRecoveryCodesOutput, error)
	Status(ctx context.Context) (*usecase.StatusOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// Login flow
	r.POST("/api/v1/auth/login", end.Login)
	r.POST("/api/v1/auth/login/2fa", end.VerifyLogin)
	r.POST("/api/v1/auth/login/2fa/abandon", end.AbandonChallenge)

	// Credential management (need authenticated)
	r.GET("/api/v1/twofactor", end.Status)
	r.POST("/api/v1/twofactor/enroll", end.Enroll)
	r.POST("/api/v1/twofactor/confirm", end.Confirm)
	r.POST("/api/v1/twofactor/disable", end.Disable)
	r.POST("/api/v1/twofactor/recovery-codes", end.RotateRecoveryCodes)
}

package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gatewarden/gatewarden/internal/pkg/goerror"
	"github.com/gatewarden/gatewarden/internal/pkg/jwt"
	"github.com/gatewarden/gatewarden/internal/pkg/recovery"
	"github.com/gatewarden/gatewarden/internal/pkg/vault"
	"github.com/gatewarden/gatewarden/internal/twofactor/entity"
)

type StatusOutput struct {
	Enabled                bool
	RecoveryCodesRemaining int
}

// Status reports whether the authenticated user has an active second factor
// and how many recovery codes they have left. It never returns secret
// material.
func (s *Usecase) Status(ctx context.Context) (*StatusOutput, error) {
	ctx, span := s.startSpan(ctx, "Status")
	defer span.End()

	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("authentication required", goerror.CodeUnauthorized)
	}

	cred, err := s.repoDB.GetTwoFactorCredential(ctx, clm.UserID)
	if errors.Is(err, goerror.ErrNotFound) {
		return &StatusOutput{}, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get two-factor credential", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if cred.State() != entity.CredentialStateActive {
		return &StatusOutput{}, nil
	}

	opened, err := s.vault.Open(cred.SealedRecoveryCodes, vault.Scope{
		UserID:  clm.UserID,
		Purpose: vault.PurposeRecoveryCodes,
	})
	if errors.Is(err, vault.ErrOpenFailed) {
		s.reportVaultIntegrity(ctx, clm.UserID, vault.PurposeRecoveryCodes)
		return nil, goerror.NewServer(err)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to open sealed recovery codes", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	set, err := recovery.ParseSet(opened)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse recovery code set", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &StatusOutput{
		Enabled:                true,
		RecoveryCodesRemaining: set.Remaining(),
	}, nil
}

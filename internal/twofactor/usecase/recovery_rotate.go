package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gatewarden/gatewarden/internal/pkg/goerror"
	"github.com/gatewarden/gatewarden/internal/pkg/vault"
	"github.com/gatewarden/gatewarden/internal/twofactor/entity"
)

type RotateRecoveryCodesInput struct {
	Password string `validate:"required"`
}

type RotateRecoveryCodesOutput struct {
	RecoveryCodes []string
}

// RotateRecoveryCodes replaces the whole recovery code batch for the
// authenticated user. The old codes stop working immediately and the new
// plaintext batch is returned exactly once.
func (s *Usecase) RotateRecoveryCodes(ctx context.Context, in RotateRecoveryCodesInput) (*RotateRecoveryCodesOutput, error) {
	ctx, span := s.startSpan(ctx, "RotateRecoveryCodes")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	user, err := s.authenticatedUser(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	cred, err := s.repoDB.GetTwoFactorCredential(ctx, user.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "two-factor credential not found", "user_id", user.ID)
		return nil, goerror.NewBusiness("two-factor authentication is not enabled", goerror.CodeConflict)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get two-factor credential", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if cred.State() != entity.CredentialStateActive {
		slog.WarnContext(ctx, "two-factor is not enabled", "user_id", user.ID)
		return nil, goerror.NewBusiness("two-factor authentication is not enabled", goerror.CodeConflict)
	}

	codes, err := s.recovery.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate recovery codes", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	encoded, err := codes.Encode()
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode recovery code set", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	sealed, err := s.vault.Seal(encoded, vault.Scope{
		UserID:  user.ID,
		Purpose: vault.PurposeRecoveryCodes,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to seal recovery code set", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.repoDB.ReplaceRecoveryCodes(ctx, user.ID, sealed); err != nil {
		slog.ErrorContext(ctx, "failed to repo replace recovery codes", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &RotateRecoveryCodesOutput{RecoveryCodes: codes}, nil
}

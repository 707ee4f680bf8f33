package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"

	"github.com/gatewarden/gatewarden/internal/pkg/goerror"
	"github.com/gatewarden/gatewarden/internal/pkg/jwt"
	"github.com/gatewarden/gatewarden/internal/pkg/vault"
	"github.com/gatewarden/gatewarden/internal/twofactor/entity"
)

type ConfirmInput struct {
	ChallengeToken string `validate:"required"`
	Code           string `validate:"required"`
}

type ConfirmOutput struct {
	Enabled bool
}

// Confirm proves possession of the authenticator enrolled via Enroll and
// activates the second factor. Activation writes the sealed seed and recovery
// codes to the user row in one statement, so the credential is never half
// enabled.
func (s *Usecase) Confirm(ctx context.Context, in ConfirmInput) (*ConfirmOutput, error) {
	ctx, span := s.startSpan(ctx, "Confirm")
	defer span.End()

	in.Code = strings.TrimSpace(in.Code)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("authentication required", goerror.CodeUnauthorized)
	}

	if !isTOTPCodeShape(in.Code) {
		slog.WarnContext(ctx, "totp code is not valid", "user_id", clm.UserID)
		return nil, goerror.NewBusiness("invalid challenge session or code", goerror.CodeUnauthorized)
	}

	ch, err := s.loadChallenge(ctx, in.ChallengeToken, entity.ChallengePurposeEnrollConfirm)
	if err != nil {
		return nil, err
	}

	// An enrollment can only be confirmed by the user who started it.
	if ch.UserID != clm.UserID {
		slog.WarnContext(ctx, "enrollment challenge user mismatch", "user_id", clm.UserID, "challenge_user_id", ch.UserID)
		return nil, goerror.NewBusiness("invalid challenge session or code", goerror.CodeUnauthorized)
	}

	sealedSeed, err := base64.StdEncoding.DecodeString(ch.Metadata.GetString(metaKeySealedSeed))
	if err != nil || len(sealedSeed) == 0 {
		slog.ErrorContext(ctx, "enrollment challenge has no sealed seed", "user_id", ch.UserID, "error", err)
		return nil, goerror.NewBusiness("invalid challenge session or code", goerror.CodeUnauthorized)
	}

	sealedCodes, err := base64.StdEncoding.DecodeString(ch.Metadata.GetString(metaKeySealedCodes))
	if err != nil || len(sealedCodes) == 0 {
		slog.ErrorContext(ctx, "enrollment challenge has no sealed recovery codes", "user_id", ch.UserID, "error", err)
		return nil, goerror.NewBusiness("invalid challenge session or code", goerror.CodeUnauthorized)
	}

	seed, err := s.vault.Open(sealedSeed, vault.Scope{
		UserID:  ch.UserID,
		Purpose: vault.PurposeTOTPSeed,
	})
	if errors.Is(err, vault.ErrOpenFailed) {
		s.reportVaultIntegrity(ctx, ch.UserID, vault.PurposeTOTPSeed)
		return nil, goerror.NewBusiness("invalid challenge session or code", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to open sealed authenticator seed", "user_id", ch.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !s.totp.Validate(in.Code, string(seed), s.clock.Now()) {
		slog.WarnContext(ctx, "invalid totp code for enrollment", "user_id", ch.UserID)
		return nil, goerror.NewBusiness("invalid challenge session or code", goerror.CodeUnauthorized)
	}

	if err := s.repoDB.EnableTwoFactor(ctx, ch.UserID, sealedSeed, sealedCodes); err != nil {
		slog.ErrorContext(ctx, "failed to repo enable two-factor", "user_id", ch.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	s.deleteChallenge(ctx, ch)

	ev := TwoFactorEvent{UserID: ch.UserID, Email: clm.UserEmail, At: s.clock.Now()}
	s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		if err := s.repoMessaging.PublishTwoFactorEnabled(ctx, ev); err != nil {
			slog.ErrorContext(ctx, "failed to publish two-factor enabled event", "user_id", ev.UserID, "error", err)
			return err
		}
		return nil
	})

	return &ConfirmOutput{Enabled: true}, nil
}

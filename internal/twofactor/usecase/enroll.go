package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"

	"github.com/gatewarden/gatewarden/internal/pkg/goerror"
	"github.com/gatewarden/gatewarden/internal/pkg/valueobject"
	"github.com/gatewarden/gatewarden/internal/pkg/vault"
	"github.com/gatewarden/gatewarden/internal/twofactor/entity"
)

// Challenge metadata keys for a pending enrollment. The sealed material
// lives only in the challenge session until Confirm promotes it to the user
// row, so an abandoned enrollment simply expires.
const (
	metaKeySealedSeed  = "sealed_seed"
	metaKeySealedCodes = "sealed_codes"
)

type EnrollInput struct {
	Password string `validate:"required"`
}

type EnrollOutput struct {
	ChallengeToken  string
	Secret          string
	ProvisioningURI string
	RecoveryCodes   []string
}

// Enroll starts two-factor enrollment for the authenticated user. The secret
// and recovery codes are returned exactly once here; nothing becomes active
// until the user proves possession of the authenticator via Confirm.
func (s *Usecase) Enroll(ctx context.Context, in EnrollInput) (*EnrollOutput, error) {
	ctx, span := s.startSpan(ctx, "Enroll")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	user, err := s.authenticatedUser(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	cred, err := s.repoDB.GetTwoFactorCredential(ctx, user.ID)
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo get two-factor credential", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}
	if cred != nil && cred.State() == entity.CredentialStateActive {
		slog.WarnContext(ctx, "two-factor already enabled", "user_id", user.ID)
		return nil, goerror.NewBusiness("two-factor authentication is already enabled", goerror.CodeConflict)
	}

	secret, uri, err := s.totp.Generate(user.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate authenticator secret", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	codes, err := s.recovery.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate recovery codes", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	sealedSeed, err := s.vault.Seal([]byte(secret), vault.Scope{
		UserID:  user.ID,
		Purpose: vault.PurposeTOTPSeed,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to seal authenticator seed", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	encodedCodes, err := codes.Encode()
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode recovery code set", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	sealedCodes, err := s.vault.Seal(encodedCodes, vault.Scope{
		UserID:  user.ID,
		Purpose: vault.PurposeRecoveryCodes,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to seal recovery code set", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	ttl := s.cfg.GetMinute("modules.twofactor.enroll_challenge_ttl_minutes")
	metadata := valueobject.JSONMap{
		metaKeySealedSeed:  base64.StdEncoding.EncodeToString(sealedSeed),
		metaKeySealedCodes: base64.StdEncoding.EncodeToString(sealedCodes),
	}

	cToken, err := s.newChallenge(ctx, user.ID, entity.ChallengePurposeEnrollConfirm, false, ttl, metadata)
	if err != nil {
		return nil, err
	}

	return &EnrollOutput{
		ChallengeToken:  cToken,
		Secret:          secret,
		ProvisioningURI: uri,
		RecoveryCodes:   codes,
	}, nil
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gatewarden/gatewarden/internal/pkg/goerror"
	"github.com/gatewarden/gatewarden/internal/pkg/recovery"
	"github.com/gatewarden/gatewarden/internal/pkg/vault"
	"github.com/gatewarden/gatewarden/internal/twofactor/entity"
)

type VerifyLoginInput struct {
	ChallengeToken string `validate:"required"`
	Code           string `validate:"required"`
	UseRecovery    bool
	ClientIP       string
}

type VerifyLoginOutput struct {
	AccessToken string
}

// VerifyLogin completes the second factor of a pending login. It accepts an
// authenticator code or a single-use recovery code. UseRecovery forces the
// recovery path; otherwise the two are told apart by shape. All failures
// collapse into one generic error so a caller cannot tell which part was
// wrong.
func (s *Usecase) VerifyLogin(ctx context.Context, in VerifyLoginInput) (*VerifyLoginOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyLogin")
	defer span.End()

	in.Code = strings.TrimSpace(in.Code)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	isTOTP := !in.UseRecovery && isTOTPCodeShape(in.Code)
	if !isTOTP && !isRecoveryCodeShape(in.Code) {
		slog.WarnContext(ctx, "submitted code has no recognized shape")
		return nil, goerror.NewBusiness("invalid challenge session or code", goerror.CodeUnauthorized)
	}

	ch, err := s.loadChallenge(ctx, in.ChallengeToken, entity.ChallengePurposeLogin)
	if err != nil {
		return nil, err
	}

	user, err := s.repoDB.GetUserCredentialInfo(ctx, ch.UserID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user account for challenge not found", "user_id", ch.UserID)
		return nil, goerror.NewBusiness("invalid challenge session or code", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by id", "user_id", ch.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.ensureUserStatusAllowed(ctx, user.ID, user.Status); err != nil {
		return nil, err
	}

	cred, err := s.loadActiveCredential(ctx, ch)
	if err != nil {
		return nil, err
	}

	throttleKey := fmt.Sprintf("%d|%s", user.ID, in.ClientIP)

	res, err := s.limiter.Check(ctx, throttleKey)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check attempt throttle", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}
	if res.Limited() {
		slog.WarnContext(ctx, "verification attempts throttled", "user_id", user.ID, "attempts", res.Attempts)
		return nil, goerror.NewRateLimited("too many verification attempts", res.RetryAfterSeconds())
	}

	var ok bool
	if isTOTP {
		ok, err = s.verifyTOTPCode(ctx, cred, in.Code)
	} else {
		ok, err = s.consumeRecoveryCode(ctx, cred, in.Code)
	}
	if err != nil {
		return nil, err
	}

	if !ok {
		if _, err := s.limiter.Hit(ctx, throttleKey); err != nil {
			slog.ErrorContext(ctx, "failed to record throttle attempt", "user_id", user.ID, "error", err)
		}
		return nil, goerror.NewBusiness("invalid challenge session or code", goerror.CodeUnauthorized)
	}

	if err := s.limiter.Clear(ctx, throttleKey); err != nil {
		slog.ErrorContext(ctx, "failed to clear attempt throttle", "user_id", user.ID, "error", err)
	}

	// The challenge must be gone before a token is issued. If destruction
	// fails the login fails, otherwise the consumed token could mint
	// another access token until its TTL expires.
	if err := s.repoChallenge.Delete(ctx, ch.TokenHash, ch.Purpose); err != nil {
		slog.ErrorContext(ctx, "failed to repo delete challenge", "user_id", ch.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	acToken, err := s.jwt.Generate(user.ID, user.Email, ch.Remember)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate access jwt token", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &VerifyLoginOutput{AccessToken: acToken}, nil
}

// loadActiveCredential fetches the second-factor row for the challenge user.
// A challenge whose credential is no longer active is consumed and rejected,
// so a disable during a pending login cannot be raced.
func (s *Usecase) loadActiveCredential(ctx context.Context, ch *entity.Challenge) (*entity.TwoFactorCredential, error) {
	cred, err := s.repoDB.GetTwoFactorCredential(ctx, ch.UserID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "two-factor credential not found for challenge", "user_id", ch.UserID)
		s.deleteChallenge(ctx, ch)
		return nil, goerror.NewBusiness("invalid challenge session or code", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get two-factor credential", "user_id", ch.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if cred.State() != entity.CredentialStateActive {
		slog.WarnContext(ctx, "two-factor credential is not active for challenge", "user_id", ch.UserID)
		s.deleteChallenge(ctx, ch)
		return nil, goerror.NewBusiness("invalid challenge session or code", goerror.CodeUnauthorized)
	}

	return cred, nil
}

func (s *Usecase) verifyTOTPCode(ctx context.Context, cred *entity.TwoFactorCredential, code string) (bool, error) {
	seed, err := s.vault.Open(cred.SealedSeed, vault.Scope{
		UserID:  cred.UserID,
		Purpose: vault.PurposeTOTPSeed,
	})
	if errors.Is(err, vault.ErrOpenFailed) {
		s.reportVaultIntegrity(ctx, cred.UserID, vault.PurposeTOTPSeed)
		return false, goerror.NewBusiness("invalid challenge session or code", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to open sealed authenticator seed", "user_id", cred.UserID, "error", err)
		return false, goerror.NewServer(err)
	}

	return s.totp.Validate(code, string(seed), s.clock.Now()), nil
}

// consumeRecoveryCode burns a recovery code via compare-and-swap on the
// sealed blob, so two concurrent logins can never spend the same code.
func (s *Usecase) consumeRecoveryCode(ctx context.Context, cred *entity.TwoFactorCredential, code string) (bool, error) {
	opened, err := s.vault.Open(cred.SealedRecoveryCodes, vault.Scope{
		UserID:  cred.UserID,
		Purpose: vault.PurposeRecoveryCodes,
	})
	if errors.Is(err, vault.ErrOpenFailed) {
		s.reportVaultIntegrity(ctx, cred.UserID, vault.PurposeRecoveryCodes)
		return false, goerror.NewBusiness("invalid challenge session or code", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to open sealed recovery codes", "user_id", cred.UserID, "error", err)
		return false, goerror.NewServer(err)
	}

	set, err := recovery.ParseSet(opened)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse recovery code set", "user_id", cred.UserID, "error", err)
		return false, goerror.NewServer(err)
	}

	remaining, matched := set.Consume(code)
	if !matched {
		slog.WarnContext(ctx, "recovery code not match", "user_id", cred.UserID)
		return false, nil
	}

	encoded, err := remaining.Encode()
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode recovery code set", "user_id", cred.UserID, "error", err)
		return false, goerror.NewServer(err)
	}

	newSealed, err := s.vault.Seal(encoded, vault.Scope{
		UserID:  cred.UserID,
		Purpose: vault.PurposeRecoveryCodes,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to seal recovery code set", "user_id", cred.UserID, "error", err)
		return false, goerror.NewServer(err)
	}

	swapped, err := s.repoDB.SwapRecoveryCodes(ctx, cred.UserID, cred.SealedRecoveryCodes, newSealed)
	if err != nil {
		slog.ErrorContext(ctx, "failed to swap recovery code set", "user_id", cred.UserID, "error", err)
		return false, goerror.NewServer(err)
	}
	if !swapped {
		slog.WarnContext(ctx, "recovery code set changed concurrently", "user_id", cred.UserID)
		return false, nil
	}

	return true, nil
}

func isTOTPCodeShape(code string) bool {
	if len(code) != 6 {
		return false
	}

	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}

	return true
}

func isRecoveryCodeShape(code string) bool {
	if len(code) != 10 {
		return false
	}

	for i := 0; i < len(code); i++ {
		c := code[i]
		isDigit := c >= '0' && c <= '9'
		isHexLetter := (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		if !isDigit && !isHexLetter {
			return false
		}
	}

	return true
}

package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gatewarden/gatewarden/internal/pkg/goerror"
	"github.com/gatewarden/gatewarden/internal/twofactor/entity"
)

type LoginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
	Remember bool
}

type LoginOutput struct {
	TwoFactorRequired bool
	ChallengeToken    string
	//
	AccessToken string
}

// Login verifies the password factor. Accounts with an active second factor
// get a challenge token instead of an access token; the access token is only
// issued after VerifyLogin succeeds.
func (s *Usecase) Login(ctx context.Context, in LoginInput) (*LoginOutput, error) {
	ctx, span := s.startSpan(ctx, "Login")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	email := strings.TrimSpace(in.Email)
	user, err := s.repoDB.GetUserLoginInfo(ctx, email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user account not found", "email", email)
		return nil, goerror.NewBusiness("invalid email or password", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.ensureUserStatusAllowed(ctx, user.ID, user.Status); err != nil {
		return nil, err
	}

	if !s.bcrypt.Verify(user.Password, in.Password) {
		slog.WarnContext(ctx, "password user account not match", "user_id", user.ID)
		return nil, goerror.NewBusiness("invalid email or password", goerror.CodeUnauthorized)
	}

	if user.TwoFactorEnabled {
		ttl := s.cfg.GetMinute("modules.twofactor.login_challenge_ttl_minutes")

		cToken, err := s.newChallenge(ctx, user.ID, entity.ChallengePurposeLogin, in.Remember, ttl, nil)
		if err != nil {
			return nil, err
		}

		return &LoginOutput{
			TwoFactorRequired: true,
			ChallengeToken:    cToken,
		}, nil
	}

	acToken, err := s.jwt.Generate(user.ID, user.Email, in.Remember)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate access jwt token", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &LoginOutput{AccessToken: acToken}, nil
}

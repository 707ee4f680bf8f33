package usecase

import (
	"context"
	"log/slog"

	"github.com/gatewarden/gatewarden/internal/pkg/goerror"
	"github.com/gatewarden/gatewarden/internal/twofactor/entity"
)

type AbandonChallengeInput struct {
	ChallengeToken string `validate:"required"`
}

// AbandonChallenge discards a pending login challenge so the user can start
// over with their password. Unknown or already-expired tokens succeed too,
// which keeps the endpoint idempotent and unprobeable.
func (s *Usecase) AbandonChallenge(ctx context.Context, in AbandonChallengeInput) error {
	ctx, span := s.startSpan(ctx, "AbandonChallenge")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	tokenHash, err := s.hmac.Hash(in.ChallengeToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash challenge token", "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoChallenge.Delete(ctx, string(tokenHash), entity.ChallengePurposeLogin); err != nil {
		slog.ErrorContext(ctx, "failed to repo delete challenge", "error", err)
		return goerror.NewServer(err)
	}

	return nil
}

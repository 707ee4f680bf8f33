package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gatewarden/gatewarden/internal/pkg/goerror"
	"github.com/gatewarden/gatewarden/internal/twofactor/entity"
)

type DisableInput struct {
	Password string `validate:"required"`
}

// Disable removes the second factor from the authenticated account after a
// password re-check. The seed and recovery codes are cleared in one
// statement; future logins need the password only.
func (s *Usecase) Disable(ctx context.Context, in DisableInput) error {
	ctx, span := s.startSpan(ctx, "Disable")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	user, err := s.authenticatedUser(ctx, in.Password)
	if err != nil {
		return err
	}

	cred, err := s.repoDB.GetTwoFactorCredential(ctx, user.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "two-factor credential not found", "user_id", user.ID)
		return goerror.NewBusiness("two-factor authentication is not enabled", goerror.CodeConflict)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get two-factor credential", "user_id", user.ID, "error", err)
		return goerror.NewServer(err)
	}

	if cred.State() != entity.CredentialStateActive {
		slog.WarnContext(ctx, "two-factor is not enabled", "user_id", user.ID)
		return goerror.NewBusiness("two-factor authentication is not enabled", goerror.CodeConflict)
	}

	if err := s.repoDB.DisableTwoFactor(ctx, user.ID); err != nil {
		slog.ErrorContext(ctx, "failed to repo disable two-factor", "user_id", user.ID, "error", err)
		return goerror.NewServer(err)
	}

	ev := TwoFactorEvent{UserID: user.ID, Email: user.Email, At: s.clock.Now()}
	s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		if err := s.repoMessaging.PublishTwoFactorDisabled(ctx, ev); err != nil {
			slog.ErrorContext(ctx, "failed to publish two-factor disabled event", "user_id", ev.UserID, "error", err)
			return err
		}
		return nil
	})

	return nil
}

package usecase

import (
	"context"
	"testing"

	"github.com/gatewarden/gatewarden/internal/pkg/goerror"
	"github.com/gatewarden/gatewarden/internal/twofactor/entity"
)

func TestConfirm(t *testing.T) {
	enroll := func(t *testing.T, env *testEnv) *EnrollOutput {
		t.Helper()

		out, err := env.uc.Enroll(env.authedCtx(1, "alice@example.com"), EnrollInput{
			Password: "s3cret-pass",
		})
		if err != nil {
			t.Fatalf("enroll: %v", err)
		}
		return out
	}

	t.Run("valid code activates the credential", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		pending := enroll(t, env)

		out, err := env.uc.Confirm(env.authedCtx(1, "alice@example.com"), ConfirmInput{
			ChallengeToken: pending.ChallengeToken,
			Code:           env.totpCode(t, pending.Secret),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !out.Enabled {
			t.Error("expected enabled result")
		}

		cred, err := env.db.GetTwoFactorCredential(context.Background(), 1)
		if err != nil {
			t.Fatalf("get credential: %v", err)
		}
		if cred.State() != entity.CredentialStateActive {
			t.Errorf("expected active credential, got %s", cred.State())
		}
		if env.challenges.count() != 0 {
			t.Error("enrollment challenge must be consumed")
		}

		if err := env.goroutine.Wait(); err != nil {
			t.Fatalf("goroutines: %v", err)
		}
		if enabled, _, _ := env.msgs.counts(); enabled != 1 {
			t.Errorf("expected one enabled event, got %d", enabled)
		}
	})

	t.Run("wrong code leaves the credential absent", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		pending := enroll(t, env)

		_, err := env.uc.Confirm(env.authedCtx(1, "alice@example.com"), ConfirmInput{
			ChallengeToken: pending.ChallengeToken,
			Code:           "000000",
		})
		assertErrorCode(t, err, goerror.CodeUnauthorized)

		cred, err := env.db.GetTwoFactorCredential(context.Background(), 1)
		if err != nil {
			t.Fatalf("get credential: %v", err)
		}
		if cred.State() != entity.CredentialStateAbsent {
			t.Errorf("expected absent credential, got %s", cred.State())
		}
	})

	t.Run("another user cannot confirm the enrollment", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		env.addUser(t, 2, "bob@example.com", "other-pass")
		pending := enroll(t, env)

		_, err := env.uc.Confirm(env.authedCtx(2, "bob@example.com"), ConfirmInput{
			ChallengeToken: pending.ChallengeToken,
			Code:           env.totpCode(t, pending.Secret),
		})

		assertErrorCode(t, err, goerror.CodeUnauthorized)
	})

	t.Run("full flow from enrollment to verified login", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		pending := enroll(t, env)

		if _, err := env.uc.Confirm(env.authedCtx(1, "alice@example.com"), ConfirmInput{
			ChallengeToken: pending.ChallengeToken,
			Code:           env.totpCode(t, pending.Secret),
		}); err != nil {
			t.Fatalf("confirm: %v", err)
		}

		token := loginWithTwoFactor(t, env, false)
		out, err := env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
			ChallengeToken: token,
			Code:           env.totpCode(t, pending.Secret),
			ClientIP:       "203.0.113.9",
		})
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if out.AccessToken == "" {
			t.Error("expected access token")
		}
	})

	t.Run("recovery codes from enrollment work after activation", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		pending := enroll(t, env)

		if _, err := env.uc.Confirm(env.authedCtx(1, "alice@example.com"), ConfirmInput{
			ChallengeToken: pending.ChallengeToken,
			Code:           env.totpCode(t, pending.Secret),
		}); err != nil {
			t.Fatalf("confirm: %v", err)
		}

		token := loginWithTwoFactor(t, env, false)
		if _, err := env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
			ChallengeToken: token,
			Code:           pending.RecoveryCodes[3],
			ClientIP:       "203.0.113.9",
		}); err != nil {
			t.Fatalf("verify with recovery code: %v", err)
		}
	})
}

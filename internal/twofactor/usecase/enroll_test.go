package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/gatewarden/gatewarden/internal/pkg/goerror"
	"github.com/gatewarden/gatewarden/internal/pkg/recovery"
	"github.com/gatewarden/gatewarden/internal/twofactor/entity"
)

func TestEnroll(t *testing.T) {
	t.Run("returns secret and recovery codes once", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")

		out, err := env.uc.Enroll(env.authedCtx(1, "alice@example.com"), EnrollInput{
			Password: "s3cret-pass",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if out.ChallengeToken == "" {
			t.Error("expected challenge token")
		}
		if out.Secret == "" {
			t.Error("expected plaintext secret")
		}
		if !strings.HasPrefix(out.ProvisioningURI, "otpauth://totp/") {
			t.Errorf("unexpected provisioning uri %q", out.ProvisioningURI)
		}
		if len(out.RecoveryCodes) != recovery.BatchSize {
			t.Errorf("expected %d recovery codes, got %d", recovery.BatchSize, len(out.RecoveryCodes))
		}
	})

	t.Run("enrollment does not touch the stored credential", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")

		if _, err := env.uc.Enroll(env.authedCtx(1, "alice@example.com"), EnrollInput{
			Password: "s3cret-pass",
		}); err != nil {
			t.Fatalf("enroll: %v", err)
		}

		cred, err := env.db.GetTwoFactorCredential(context.Background(), 1)
		if err != nil {
			t.Fatalf("get credential: %v", err)
		}
		if cred.State() != entity.CredentialStateAbsent {
			t.Errorf("expected absent credential before confirm, got %s", cred.State())
		}

		// login must still be password only
		out, err := env.uc.Login(context.Background(), LoginInput{
			Email:    "alice@example.com",
			Password: "s3cret-pass",
		})
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		if out.TwoFactorRequired {
			t.Error("pending enrollment must not require a second factor")
		}
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")

		_, err := env.uc.Enroll(env.authedCtx(1, "alice@example.com"), EnrollInput{
			Password: "wrong-pass",
		})

		assertErrorCode(t, err, goerror.CodeUnauthorized)
	})

	t.Run("conflict when already enabled", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		env.activateTwoFactor(t, 1)

		_, err := env.uc.Enroll(env.authedCtx(1, "alice@example.com"), EnrollInput{
			Password: "s3cret-pass",
		})

		assertErrorCode(t, err, goerror.CodeConflict)
	})

	t.Run("requires authentication", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")

		_, err := env.uc.Enroll(context.Background(), EnrollInput{Password: "s3cret-pass"})

		assertErrorCode(t, err, goerror.CodeUnauthorized)
	})

	t.Run("re-enrollment issues fresh material", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")

		first, err := env.uc.Enroll(env.authedCtx(1, "alice@example.com"), EnrollInput{Password: "s3cret-pass"})
		if err != nil {
			t.Fatalf("first enroll: %v", err)
		}
		second, err := env.uc.Enroll(env.authedCtx(1, "alice@example.com"), EnrollInput{Password: "s3cret-pass"})
		if err != nil {
			t.Fatalf("second enroll: %v", err)
		}

		if first.Secret == second.Secret {
			t.Error("expected a fresh secret per enrollment")
		}
		if first.ChallengeToken == second.ChallengeToken {
			t.Error("expected a fresh challenge per enrollment")
		}
	})
}

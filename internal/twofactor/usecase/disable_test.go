package usecase

import (
	"context"
	"testing"

	"github.com/gatewarden/gatewarden/internal/pkg/goerror"
)

func TestDisable(t *testing.T) {
	t.Run("removes the second factor", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		env.activateTwoFactor(t, 1)

		if err := env.uc.Disable(env.authedCtx(1, "alice@example.com"), DisableInput{
			Password: "s3cret-pass",
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out, err := env.uc.Login(context.Background(), LoginInput{
			Email:    "alice@example.com",
			Password: "s3cret-pass",
		})
		if err != nil {
			t.Fatalf("login after disable: %v", err)
		}
		if out.TwoFactorRequired {
			t.Error("login must be password only after disable")
		}

		if err := env.goroutine.Wait(); err != nil {
			t.Fatalf("goroutines: %v", err)
		}
		if _, disabled, _ := env.msgs.counts(); disabled != 1 {
			t.Errorf("expected one disabled event, got %d", disabled)
		}
	})

	t.Run("wrong password keeps the credential", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		env.activateTwoFactor(t, 1)

		err := env.uc.Disable(env.authedCtx(1, "alice@example.com"), DisableInput{
			Password: "wrong-pass",
		})
		assertErrorCode(t, err, goerror.CodeUnauthorized)

		out, err := env.uc.Login(context.Background(), LoginInput{
			Email:    "alice@example.com",
			Password: "s3cret-pass",
		})
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		if !out.TwoFactorRequired {
			t.Error("credential must survive a failed disable")
		}
	})

	t.Run("conflict when not enabled", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")

		err := env.uc.Disable(env.authedCtx(1, "alice@example.com"), DisableInput{
			Password: "s3cret-pass",
		})

		assertErrorCode(t, err, goerror.CodeConflict)
	})
}

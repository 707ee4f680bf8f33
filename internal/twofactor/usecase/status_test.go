package usecase

import (
	"context"
	"testing"

	"github.com/gatewarden/gatewarden/internal/pkg/goerror"
	"github.com/gatewarden/gatewarden/internal/pkg/recovery"
)

func TestStatus(t *testing.T) {
	t.Run("disabled account reports not enabled", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")

		out, err := env.uc.Status(env.authedCtx(1, "alice@example.com"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if out.Enabled {
			t.Error("expected enabled false")
		}
		if out.RecoveryCodesRemaining != 0 {
			t.Errorf("expected zero remaining, got %d", out.RecoveryCodesRemaining)
		}
	})

	t.Run("active credential reports the full batch", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		env.activateTwoFactor(t, 1)

		out, err := env.uc.Status(env.authedCtx(1, "alice@example.com"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !out.Enabled {
			t.Error("expected enabled true")
		}
		if out.RecoveryCodesRemaining != recovery.BatchSize {
			t.Errorf("expected %d remaining, got %d", recovery.BatchSize, out.RecoveryCodesRemaining)
		}
	})

	t.Run("consumed recovery code lowers the count", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		_, codes := env.activateTwoFactor(t, 1)

		token := loginWithTwoFactor(t, env, false)
		if _, err := env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
			ChallengeToken: token,
			Code:           codes[0],
			ClientIP:       "203.0.113.9",
		}); err != nil {
			t.Fatalf("verify: %v", err)
		}

		out, err := env.uc.Status(env.authedCtx(1, "alice@example.com"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.RecoveryCodesRemaining != recovery.BatchSize-1 {
			t.Errorf("expected %d remaining, got %d", recovery.BatchSize-1, out.RecoveryCodesRemaining)
		}
	})

	t.Run("requires authentication", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.uc.Status(context.Background())

		assertErrorCode(t, err, goerror.CodeUnauthorized)
	})

	t.Run("tampered recovery blob raises an integrity event", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		env.activateTwoFactor(t, 1)

		env.db.mu.Lock()
		blob := env.db.creds[1].SealedRecoveryCodes
		blob[len(blob)-1] ^= 0xff
		env.db.mu.Unlock()

		_, err := env.uc.Status(env.authedCtx(1, "alice@example.com"))
		assertErrorCode(t, err, goerror.CodeInternal)

		if err := env.goroutine.Wait(); err != nil {
			t.Fatalf("goroutines: %v", err)
		}
		if _, _, integrity := env.msgs.counts(); integrity != 1 {
			t.Errorf("expected one integrity event, got %d", integrity)
		}
	})
}

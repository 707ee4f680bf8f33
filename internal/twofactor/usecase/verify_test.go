package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gatewarden/gatewarden/internal/pkg/goerror"
)

// loginWithTwoFactor drives the password step and returns the challenge token.
func loginWithTwoFactor(t *testing.T, env *testEnv, remember bool) string {
	t.Helper()

	out, err := env.uc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "s3cret-pass",
		Remember: remember,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !out.TwoFactorRequired || out.ChallengeToken == "" {
		t.Fatalf("expected pending challenge, got %+v", out)
	}

	return out.ChallengeToken
}

func TestVerifyLogin(t *testing.T) {
	t.Run("valid authenticator code completes login", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		secret, _ := env.activateTwoFactor(t, 1)
		token := loginWithTwoFactor(t, env, false)

		out, err := env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
			ChallengeToken: token,
			Code:           env.totpCode(t, secret),
			ClientIP:       "203.0.113.9",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if out.AccessToken == "" {
			t.Error("expected access token")
		}
		if env.challenges.count() != 0 {
			t.Error("challenge must be consumed on success")
		}
	})

	t.Run("remember flag survives the challenge round trip", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		secret, _ := env.activateTwoFactor(t, 1)
		token := loginWithTwoFactor(t, env, true)

		out, err := env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
			ChallengeToken: token,
			Code:           env.totpCode(t, secret),
			ClientIP:       "203.0.113.9",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.HasSuffix(out.AccessToken, ":true") {
			t.Errorf("expected remember token, got %q", out.AccessToken)
		}
	})

	t.Run("challenge token is single use", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		secret, _ := env.activateTwoFactor(t, 1)
		token := loginWithTwoFactor(t, env, false)
		code := env.totpCode(t, secret)

		if _, err := env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
			ChallengeToken: token, Code: code, ClientIP: "203.0.113.9",
		}); err != nil {
			t.Fatalf("first verify: %v", err)
		}

		_, err := env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
			ChallengeToken: token, Code: code, ClientIP: "203.0.113.9",
		})
		assertErrorCode(t, err, goerror.CodeUnauthorized)
	})

	t.Run("recovery code completes login and is burned", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		_, codes := env.activateTwoFactor(t, 1)

		token := loginWithTwoFactor(t, env, false)
		out, err := env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
			ChallengeToken: token,
			Code:           strings.ToLower(codes[0]),
			ClientIP:       "203.0.113.9",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.AccessToken == "" {
			t.Error("expected access token")
		}

		token = loginWithTwoFactor(t, env, false)
		_, err = env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
			ChallengeToken: token,
			Code:           codes[0],
			ClientIP:       "203.0.113.9",
		})
		assertErrorCode(t, err, goerror.CodeUnauthorized)
	})

	t.Run("use_recovery flag routes to the recovery set", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		_, codes := env.activateTwoFactor(t, 1)
		token := loginWithTwoFactor(t, env, false)

		out, err := env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
			ChallengeToken: token,
			Code:           codes[0],
			UseRecovery:    true,
			ClientIP:       "203.0.113.9",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.AccessToken == "" {
			t.Error("expected access token")
		}

		// the code is burned, so a second login cannot reuse it
		token = loginWithTwoFactor(t, env, false)
		_, err = env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
			ChallengeToken: token,
			Code:           codes[0],
			UseRecovery:    true,
			ClientIP:       "203.0.113.9",
		})
		assertErrorCode(t, err, goerror.CodeUnauthorized)
	})

	t.Run("use_recovery flag rejects authenticator codes", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		secret, _ := env.activateTwoFactor(t, 1)
		token := loginWithTwoFactor(t, env, false)

		_, err := env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
			ChallengeToken: token,
			Code:           env.totpCode(t, secret),
			UseRecovery:    true,
			ClientIP:       "203.0.113.9",
		})
		assertErrorCode(t, err, goerror.CodeUnauthorized)
	})

	t.Run("no token is issued when the challenge cannot be destroyed", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		secret, _ := env.activateTwoFactor(t, 1)
		token := loginWithTwoFactor(t, env, false)

		env.challenges.failDelete = true

		_, err := env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
			ChallengeToken: token,
			Code:           env.totpCode(t, secret),
			ClientIP:       "203.0.113.9",
		})
		assertErrorCode(t, err, goerror.CodeInternal)
	})

	t.Run("wrong code fails with a generic error", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		env.activateTwoFactor(t, 1)
		token := loginWithTwoFactor(t, env, false)

		_, err := env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
			ChallengeToken: token,
			Code:           "000000",
			ClientIP:       "203.0.113.9",
		})

		assertErrorCode(t, err, goerror.CodeUnauthorized)
	})

	t.Run("malformed code shapes are rejected before any lookup", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		env.activateTwoFactor(t, 1)
		token := loginWithTwoFactor(t, env, false)

		for _, code := range []string{"12345", "1234567", "abcdef", "XYZXYZXYZX", "12345678901"} {
			_, err := env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
				ChallengeToken: token,
				Code:           code,
				ClientIP:       "203.0.113.9",
			})
			assertErrorCode(t, err, goerror.CodeUnauthorized)
		}

		// shape failures never consume the challenge
		if env.challenges.count() != 1 {
			t.Error("challenge must survive malformed submissions")
		}
	})

	t.Run("forged token fails like an expired one", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		secret, _ := env.activateTwoFactor(t, 1)

		_, err := env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
			ChallengeToken: "forged-token",
			Code:           env.totpCode(t, secret),
			ClientIP:       "203.0.113.9",
		})

		assertErrorCode(t, err, goerror.CodeUnauthorized)
	})

	t.Run("throttled after repeated failures", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		env.activateTwoFactor(t, 1)
		token := loginWithTwoFactor(t, env, false)

		for i := 0; i < 5; i++ {
			_, err := env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
				ChallengeToken: token,
				Code:           "000000",
				ClientIP:       "203.0.113.9",
			})
			assertErrorCode(t, err, goerror.CodeUnauthorized)
		}

		_, err := env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
			ChallengeToken: token,
			Code:           "000000",
			ClientIP:       "203.0.113.9",
		})
		assertErrorCode(t, err, goerror.CodeTooManyRequest)

		var gerr *goerror.Error
		if !errors.As(err, &gerr) || gerr.RetryAfter() < 1 {
			t.Errorf("expected positive retry-after, got %v", err)
		}
	})

	t.Run("attempts from another address are not throttled", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		secret, _ := env.activateTwoFactor(t, 1)
		token := loginWithTwoFactor(t, env, false)

		for i := 0; i < 5; i++ {
			_, _ = env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
				ChallengeToken: token,
				Code:           "000000",
				ClientIP:       "203.0.113.9",
			})
		}

		if _, err := env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
			ChallengeToken: token,
			Code:           env.totpCode(t, secret),
			ClientIP:       "198.51.100.7",
		}); err != nil {
			t.Fatalf("unexpected error from fresh address: %v", err)
		}
	})

	t.Run("success clears the failure counter", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		secret, _ := env.activateTwoFactor(t, 1)

		token := loginWithTwoFactor(t, env, false)
		for i := 0; i < 4; i++ {
			_, _ = env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
				ChallengeToken: token, Code: "000000", ClientIP: "203.0.113.9",
			})
		}
		if _, err := env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
			ChallengeToken: token, Code: env.totpCode(t, secret), ClientIP: "203.0.113.9",
		}); err != nil {
			t.Fatalf("verify after failures: %v", err)
		}

		// a fresh challenge starts with a clean budget
		token = loginWithTwoFactor(t, env, false)
		for i := 0; i < 4; i++ {
			_, err := env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
				ChallengeToken: token, Code: "000000", ClientIP: "203.0.113.9",
			})
			assertErrorCode(t, err, goerror.CodeUnauthorized)
		}
	})

	t.Run("credential disabled mid-challenge fails closed", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		secret, _ := env.activateTwoFactor(t, 1)
		token := loginWithTwoFactor(t, env, false)

		if err := env.db.DisableTwoFactor(context.Background(), 1); err != nil {
			t.Fatalf("disable: %v", err)
		}

		_, err := env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
			ChallengeToken: token,
			Code:           env.totpCode(t, secret),
			ClientIP:       "203.0.113.9",
		})
		assertErrorCode(t, err, goerror.CodeUnauthorized)

		if env.challenges.count() != 0 {
			t.Error("stale challenge must be consumed")
		}
	})

	t.Run("tampered sealed seed raises an integrity event", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		secret, _ := env.activateTwoFactor(t, 1)
		token := loginWithTwoFactor(t, env, false)

		env.db.mu.Lock()
		env.db.creds[1].SealedSeed[len(env.db.creds[1].SealedSeed)-1] ^= 0xff
		env.db.mu.Unlock()

		_, err := env.uc.VerifyLogin(context.Background(), VerifyLoginInput{
			ChallengeToken: token,
			Code:           env.totpCode(t, secret),
			ClientIP:       "203.0.113.9",
		})
		assertErrorCode(t, err, goerror.CodeUnauthorized)

		if err := env.goroutine.Wait(); err != nil {
			t.Fatalf("goroutines: %v", err)
		}
		if _, _, integrity := env.msgs.counts(); integrity != 1 {
			t.Errorf("expected one integrity event, got %d", integrity)
		}
	})
}

func TestCodeShapes(t *testing.T) {
	totpCases := map[string]bool{
		"123456":  true,
		"000000":  true,
		"12345":   false,
		"1234567": false,
		"12345a":  false,
		"":        false,
	}
	for code, want := range totpCases {
		if got := isTOTPCodeShape(code); got != want {
			t.Errorf("isTOTPCodeShape(%q) = %v, want %v", code, got, want)
		}
	}

	recoveryCases := map[string]bool{
		"3F9A01BC7D":  true,
		"3f9a01bc7d":  true,
		"1234567890":  true,
		"3F9A01BC7":   false,
		"3F9A01BC7DX": false,
		"GGGGGGGGGG":  false,
	}
	for code, want := range recoveryCases {
		if got := isRecoveryCodeShape(code); got != want {
			t.Errorf("isRecoveryCodeShape(%q) = %v, want %v", code, got, want)
		}
	}
}

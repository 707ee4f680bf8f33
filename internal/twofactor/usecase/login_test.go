package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/gatewarden/gatewarden/internal/pkg/goerror"
)

func assertErrorCode(t *testing.T, err error, want goerror.Code) {
	t.Helper()

	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *goerror.Error, got %T: %v", err, err)
	}
	if gerr.Code() != want {
		t.Fatalf("expected code %s, got %s", want, gerr.Code())
	}
}

func TestLogin(t *testing.T) {
	t.Run("password only account gets access token", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")

		out, err := env.uc.Login(context.Background(), LoginInput{
			Email:    "alice@example.com",
			Password: "s3cret-pass",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if out.TwoFactorRequired {
			t.Error("expected no second factor requirement")
		}
		if out.AccessToken == "" {
			t.Error("expected access token")
		}
		if out.ChallengeToken != "" {
			t.Errorf("expected no challenge token, got %q", out.ChallengeToken)
		}
	})

	t.Run("two-factor account gets challenge instead of token", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")
		env.activateTwoFactor(t, 1)

		out, err := env.uc.Login(context.Background(), LoginInput{
			Email:    "alice@example.com",
			Password: "s3cret-pass",
			Remember: true,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !out.TwoFactorRequired {
			t.Error("expected second factor requirement")
		}
		if out.ChallengeToken == "" {
			t.Error("expected challenge token")
		}
		if out.AccessToken != "" {
			t.Error("access token must not be issued before verification")
		}
		if env.challenges.count() != 1 {
			t.Errorf("expected one stored challenge, got %d", env.challenges.count())
		}
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")

		_, err := env.uc.Login(context.Background(), LoginInput{
			Email:    "alice@example.com",
			Password: "wrong-pass",
		})

		assertErrorCode(t, err, goerror.CodeUnauthorized)
	})

	t.Run("unknown email yields the same error as wrong password", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, 1, "alice@example.com", "s3cret-pass")

		_, errUnknown := env.uc.Login(context.Background(), LoginInput{
			Email:    "nobody@example.com",
			Password: "s3cret-pass",
		})
		_, errWrongPass := env.uc.Login(context.Background(), LoginInput{
			Email:    "alice@example.com",
			Password: "wrong-pass",
		})

		if errUnknown.Error() != errWrongPass.Error() {
			t.Errorf("error messages differ: %q vs %q", errUnknown.Error(), errWrongPass.Error())
		}
	})

	t.Run("invalid email shape fails validation", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.uc.Login(context.Background(), LoginInput{
			Email:    "not-an-email",
			Password: "s3cret-pass",
		})

		assertErrorCode(t, err, goerror.CodeInvalidInput)
	})
}

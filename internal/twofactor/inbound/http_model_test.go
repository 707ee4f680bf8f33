package inbound

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gatewarden/gatewarden/internal/pkg/router"
)

func TestVerifyLoginRequestDecode(t *testing.T) {
	t.Run("accepts the full documented body", func(t *testing.T) {
		body := `{"challenge_token":"tok-123","code":"3F9A01BC7D","use_recovery":true}`
		req := &router.Request{Request: httptest.NewRequest(http.MethodPost, "/auth/login/verify", strings.NewReader(body))}

		var got VerifyLoginRequest
		if err := req.DecodeBody(&got); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got.ChallengeToken != "tok-123" {
			t.Errorf("ChallengeToken = %q, want %q", got.ChallengeToken, "tok-123")
		}
		if got.Code != "3F9A01BC7D" {
			t.Errorf("Code = %q, want %q", got.Code, "3F9A01BC7D")
		}
		if !got.UseRecovery {
			t.Error("UseRecovery = false, want true")
		}
	})

	t.Run("flag defaults to false when omitted", func(t *testing.T) {
		body := `{"challenge_token":"tok-123","code":"123456"}`
		req := &router.Request{Request: httptest.NewRequest(http.MethodPost, "/auth/login/verify", strings.NewReader(body))}

		var got VerifyLoginRequest
		if err := req.DecodeBody(&got); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.UseRecovery {
			t.Error("UseRecovery = true, want false")
		}
	})
}

package otp

import (
	"strings"
	"testing"
	"time"

	pquerna "github.com/pquerna/otp"
)

func TestTOTP_GenerateAndValidate(t *testing.T) {
	// Arrange
	engine := NewTOTP("Gatewarden", 30, 1, pquerna.DigitsSix)
	at := time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC)

	secret, uri, err := engine.Generate("alice@example.com")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if secret == "" {
		t.Fatal("Generate() returned empty secret")
	}
	if !strings.HasPrefix(uri, "otpauth://totp/") {
		t.Fatalf("Generate() uri = %q, want otpauth://totp/ prefix", uri)
	}
	if !strings.Contains(uri, "Gatewarden") {
		t.Fatalf("Generate() uri = %q, want issuer embedded", uri)
	}

	code, err := engine.GenerateCode(secret, at)
	if err != nil {
		t.Fatalf("GenerateCode() error = %v", err)
	}

	t.Run("accepts code at the same instant", func(t *testing.T) {
		if !engine.Validate(code, secret, at) {
			t.Error("Validate() = false, want true")
		}
	})

	t.Run("is deterministic for a fixed time step", func(t *testing.T) {
		again, err := engine.GenerateCode(secret, at.Add(3*time.Second))
		if err != nil {
			t.Fatalf("GenerateCode() error = %v", err)
		}
		if again != code {
			t.Errorf("GenerateCode() = %q within same step, want %q", again, code)
		}
	})

	t.Run("accepts one step of clock drift either way", func(t *testing.T) {
		if !engine.Validate(code, secret, at.Add(30*time.Second)) {
			t.Error("Validate(+1 step) = false, want true")
		}
		if !engine.Validate(code, secret, at.Add(-30*time.Second)) {
			t.Error("Validate(-1 step) = false, want true")
		}
	})

	t.Run("rejects codes two steps away", func(t *testing.T) {
		if engine.Validate(code, secret, at.Add(90*time.Second)) {
			t.Error("Validate(+3 steps) = true, want false")
		}
	})

	t.Run("rejects a near-miss code", func(t *testing.T) {
		flipped := flipLastDigit(code)
		if engine.Validate(flipped, secret, at) {
			t.Error("Validate(wrong code) = true, want false")
		}
	})
}

func TestTOTP_ValidateRejectsMalformedInput(t *testing.T) {
	engine := NewTOTP("Gatewarden", 30, 1, pquerna.DigitsSix)
	at := time.Now()

	secret, _, err := engine.Generate("alice@example.com")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	cases := []struct {
		name string
		code string
	}{
		{name: "empty", code: ""},
		{name: "too short", code: "12345"},
		{name: "too long", code: "1234567"},
		{name: "letters", code: "12a456"},
		{name: "whitespace", code: "123 56"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if engine.Validate(tc.code, secret, at) {
				t.Errorf("Validate(%q) = true, want false", tc.code)
			}
		})
	}
}

func TestTOTP_ProvisioningURI(t *testing.T) {
	// Arrange
	engine := NewTOTP("Gatewarden", 30, 1, pquerna.DigitsSix)

	// Act
	uri := engine.ProvisioningURI("alice@example.com", "JBSWY3DPEHPK3PXP")

	// Assert
	if !strings.HasPrefix(uri, "otpauth://totp/Gatewarden:alice@example.com?") {
		t.Fatalf("ProvisioningURI() = %q, want label with issuer and account", uri)
	}
	for _, want := range []string{"secret=JBSWY3DPEHPK3PXP", "issuer=Gatewarden", "period=30", "algorithm=SHA1", "digits=6"} {
		if !strings.Contains(uri, want) {
			t.Errorf("ProvisioningURI() = %q, missing %q", uri, want)
		}
	}
}

func flipLastDigit(code string) string {
	last := code[len(code)-1]
	if last == '9' {
		last = '0'
	} else {
		last++
	}
	return code[:len(code)-1] + string(last)
}

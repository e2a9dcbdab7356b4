package tokens

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAccessToken_ValidAndClaims(t *testing.T) {
	iss := NewIssuer("test-secret-32-bytes-should-be-long-enough", 2*time.Minute)

	tokenStr, err := iss.GenerateAccessToken("admin")
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}

	verified, err := iss.Verify(context.Background(), tokenStr)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	var claims map[string]interface{}
	if err := verified.Claims(&claims); err != nil {
		t.Fatalf("Claims error: %v", err)
	}
	if claims["sub"] != "admin" {
		t.Fatalf("unexpected sub claim: got=%v want=admin", claims["sub"])
	}
	if claims["role"] != "admin" {
		t.Fatalf("unexpected role claim: got=%v", claims["role"])
	}
}

func TestVerify_Expired(t *testing.T) {
	iss := NewIssuer("another-secret-32-bytes-longgggg", time.Minute)
	iss.now = func() time.Time { return time.Now().Add(-5 * time.Minute) }

	tokenStr, err := iss.GenerateAccessToken("admin")
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}
	if _, err := iss.Verify(context.Background(), tokenStr); err == nil {
		t.Fatalf("expected verification to fail for expired token")
	}
}

func TestVerify_WrongSecretFails(t *testing.T) {
	iss := NewIssuer("secret-one-32-bytes-xxxxxxxxxxxxxxxx", 2*time.Minute)
	other := NewIssuer("different-secret-xxxxxxxxxxxxxxxx", 2*time.Minute)

	tokenStr, err := iss.GenerateAccessToken("admin")
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}
	if _, err := other.Verify(context.Background(), tokenStr); err == nil {
		t.Fatalf("expected verification to fail with wrong secret")
	}
}

func TestVerify_Malformed(t *testing.T) {
	iss := NewIssuer("x", time.Minute)
	if _, err := iss.Verify(context.Background(), "not.a.jwt"); err == nil {
		t.Fatalf("expected verification to fail for malformed token")
	}
}

// Rejected when alg=none (unsigned token)
func TestVerify_AlgNoneRejected(t *testing.T) {
	iss := NewIssuer("x", time.Minute)
	enc := new(jwt.Token)
	headerEnc := enc.EncodeSegment([]byte(`{"alg":"none"}`))
	payloadEnc := enc.EncodeSegment([]byte(`{"sub":"admin","exp":9999999999}`))
	tok := headerEnc + "." + payloadEnc + "."
	if _, err := iss.Verify(context.Background(), tok); err == nil {
		t.Fatalf("expected verification to reject alg=none token")
	}
}

// Tampering with payload must fail signature verification
func TestVerify_TamperedPayload(t *testing.T) {
	iss := NewIssuer("tamper-test-secret-32-bytes-xxxxxxx", 5*time.Minute)
	tokenStr, err := iss.GenerateAccessToken("admin")
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token parts")
	}
	payloadBytes, _ := jwt.NewParser().DecodeSegment(parts[1])
	payloadStr := strings.Replace(string(payloadBytes), "admin", "attacker", 1)
	parts[1] = new(jwt.Token).EncodeSegment([]byte(payloadStr))
	if _, err := iss.Verify(context.Background(), strings.Join(parts, ".")); err == nil {
		t.Fatalf("expected signature verification to fail for tampered token")
	}
}

func TestCheckCredentials(t *testing.T) {
	if !CheckCredentials("admin", "hunter2", "admin", "hunter2") {
		t.Fatalf("expected matching credentials to pass")
	}
	if CheckCredentials("admin", "hunter2", "admin", "wrong") {
		t.Fatalf("expected wrong password to fail")
	}
	if CheckCredentials("admin", "hunter2", "other", "hunter2") {
		t.Fatalf("expected wrong username to fail")
	}
	if CheckCredentials("", "", "", "") {
		t.Fatalf("expected unconfigured credentials to always fail")
	}
}

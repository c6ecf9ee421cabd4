package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssuer_IssueAndVerify_RoundTrip(t *testing.T) {
	issuer := NewIssuer("test-secret", 7*24*time.Hour)

	signed, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if signed == "" {
		t.Fatal("expected non-empty token")
	}

	userID, err := issuer.Verify(signed)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("userID = %q, want %q", userID, "user-1")
	}
}

// クレームの形が外部認証コラボレーターとの契約 {userId, exp} に一致することを検証
func TestIssuer_ClaimShape(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)

	signed, err := issuer.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(signed, claims)
	if err != nil {
		t.Fatalf("ParseUnverified returned error: %v", err)
	}

	if claims["userId"] != "user-42" {
		t.Errorf("claim userId = %v, want %q", claims["userId"], "user-42")
	}
	if _, ok := claims["exp"]; !ok {
		t.Error("expected exp claim to be present")
	}
}

func TestIssuer_Verify_WrongSecret(t *testing.T) {
	issuer := NewIssuer("secret-a", time.Hour)
	other := NewIssuer("secret-b", time.Hour)

	signed, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := other.Verify(signed); err == nil {
		t.Error("expected verification with wrong secret to fail")
	}
}

func TestIssuer_Verify_Expired(t *testing.T) {
	issuer := NewIssuer("test-secret", -time.Minute)

	signed, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := issuer.Verify(signed); err == nil {
		t.Error("expected expired token verification to fail")
	}
}

func TestIssuer_Verify_TamperedToken(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)

	signed, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	// 署名部分を破壊する
	parts := strings.Split(signed, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected JWT format: %s", signed)
	}
	tampered := parts[0] + "." + parts[1] + ".AAAA"

	if _, err := issuer.Verify(tampered); err == nil {
		t.Error("expected tampered token verification to fail")
	}
}

func TestIssuer_Verify_RejectsNoneAlgorithm(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "user-1"})
	signed, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString returned error: %v", err)
	}

	if _, err := issuer.Verify(signed); err == nil {
		t.Error("expected none-algorithm token verification to fail")
	}
}

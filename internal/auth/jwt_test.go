package auth

import (
	"testing"
	"time"
)

func TestServiceTokenRoundTrip(t *testing.T) {
	iss, err := NewIssuer("s3cret", time.Minute)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	tok, err := iss.ServiceToken()
	if err != nil {
		t.Fatalf("ServiceToken: %v", err)
	}
	claims, err := iss.Verify(tok, ScopeControl)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "service:"+issuerName {
		t.Fatalf("subject = %q", claims.Subject)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	iss, _ := NewIssuer("s3cret", time.Minute)
	issuedAt := time.Now().Add(-time.Hour)
	iss.now = func() time.Time { return issuedAt }
	tok, _ := iss.ServiceToken()

	iss.now = time.Now
	if _, err := iss.Verify(tok, ScopeControl); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestVerifyRejectsForeignSecretAndScope(t *testing.T) {
	iss, _ := NewIssuer("s3cret", time.Minute)
	other, _ := NewIssuer("different", time.Minute)
	tok, _ := other.ServiceToken()
	if _, err := iss.Verify(tok, ScopeControl); err == nil {
		t.Fatal("token signed with another secret accepted")
	}
	own, _ := iss.ServiceToken()
	if _, err := iss.Verify(own, "admin:write"); err == nil {
		t.Fatal("token accepted for a scope it does not carry")
	}
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer("", time.Minute); err == nil {
		t.Fatal("empty secret accepted")
	}
}

package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mustSigner(t *testing.T, secret string) *Signer {
	t.Helper()
	s, err := NewSigner(secret, time.Hour)
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}
	return s
}

func TestIssueAndParse(t *testing.T) {
	t.Parallel()

	s := mustSigner(t, "test-secret")
	tok, err := s.Issue("sess-123")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if strings.Count(tok, ".") != 2 {
		t.Errorf("token is not a compact JWT: %q", tok)
	}

	claims, err := s.Parse(tok)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.SessionID() != "sess-123" || claims.Issuer != Issuer {
		t.Errorf("claims = %+v", claims)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != time.Hour {
		t.Errorf("lifetime = %v; want 1h", got)
	}
}

func TestParse_SameSecretAcrossSigners(t *testing.T) {
	t.Parallel()

	tok, err := mustSigner(t, "shared").Issue("s1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := mustSigner(t, "shared").Parse(tok); err != nil {
		t.Errorf("second signer with the same secret rejected token: %v", err)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := mustSigner(t, "one").Issue("s1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := mustSigner(t, "two").Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Parse with wrong secret = %v; want ErrInvalidToken", err)
	}
}

func TestNewSigner_EmptySecretIsRandom(t *testing.T) {
	t.Parallel()

	tok, err := mustSigner(t, "").Issue("s1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := mustSigner(t, "").Parse(tok); err == nil {
		t.Error("two random-secret signers accepted each other's tokens")
	}
}

func TestParse_Expired(t *testing.T) {
	t.Parallel()

	s := mustSigner(t, "k")
	base := time.Now()
	s.now = func() time.Time { return base }
	tok, err := s.Issue("s1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, err = s.Parse(tok)
	if !errors.Is(err, ErrInvalidToken) || !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("Parse expired = %v; want ErrInvalidToken wrapping ErrTokenExpired", err)
	}
}

func TestParse_Empty(t *testing.T) {
	t.Parallel()

	if _, err := mustSigner(t, "k").Parse(""); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("Parse(\"\") = %v; want ErrEmptyToken", err)
	}
}

func TestParse_Garbage(t *testing.T) {
	t.Parallel()

	for _, tok := range []string{"nope", "a.b.c", "eyJhbGciOiJub25lIn0.eyJzdWIiOiJ4In0."} {
		if _, err := mustSigner(t, "k").Parse(tok); err == nil {
			t.Errorf("Parse(%q) succeeded; want error", tok)
		}
	}
}

func TestParse_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	s := mustSigner(t, "k")
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   "s1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(s.key)
	if err != nil {
		t.Fatalf("sign HS512: %v", err)
	}
	if _, err := s.Parse(tok); err == nil {
		t.Error("HS512 token accepted; only HS256 is valid")
	}
}

func TestParse_RequiresSubject(t *testing.T) {
	t.Parallel()

	s := mustSigner(t, "k")
	tok, err := s.Issue("")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := s.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Parse(no subject) = %v; want ErrInvalidToken", err)
	}
}

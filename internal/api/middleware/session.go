// Session cookie middleware.
// Reads the signed cookie, or starts a new session when it is missing,
// expired or forged, and injects the session id into the context.
package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"pkt.systems/pslog"

	"github.com/matiasleandrokruk/cleverq/internal/api/ctxkeys"
	"github.com/matiasleandrokruk/cleverq/pkg/token"
)

// CookieName is the session cookie set on every browser.
const CookieName = "cleverq_session"

// TokenSigner is the contract used by Session. *token.Signer satisfies it.
type TokenSigner interface {
	Issue(sessionID string) (string, error)
	Parse(tokenString string) (*token.Claims, error)
	TTL() time.Duration
}

// NewSessionID returns a time-ordered random id.
func NewSessionID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Session resolves the caller's session id.
//
// Flow:
//  1. Read the cleverq_session cookie and verify it
//  2. On a missing or invalid cookie, mint a new session id
//  3. Re-issue the cookie when new or past half of its lifetime
//  4. Inject ctxkeys.SessionID into context
//  5. Call next handler
func Session(signer TokenSigner) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, renew := resolveSession(r, signer)

			if renew {
				if err := setSessionCookie(w, r, signer, sessionID); err != nil {
					pslog.Ctx(r.Context()).Error("issue session cookie", "err", err)
					http.Error(w, "session unavailable", http.StatusInternalServerError)
					return
				}
			}

			ctx := ctxkeys.WithValue(r.Context(), ctxkeys.SessionID, sessionID)
			annotateSession(ctx, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// resolveSession returns the session id and whether the cookie must be (re)issued.
func resolveSession(r *http.Request, signer TokenSigner) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return NewSessionID(), true
	}

	claims, err := signer.Parse(cookie.Value)
	if err != nil {
		pslog.Ctx(r.Context()).Debug("session cookie rejected", "err", err)
		return NewSessionID(), true
	}

	renew := claims.ExpiresAt != nil && time.Until(claims.ExpiresAt.Time) < signer.TTL()/2
	return claims.SessionID(), renew
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, signer TokenSigner, sessionID string) error {
	value, err := signer.Issue(sessionID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(signer.TTL().Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

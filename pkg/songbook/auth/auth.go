// Package auth verifies session tokens and gates admin-only routes.
//
// A session is an HS256 JWT carried in the Authorization bearer header or the
// jwt cookie. The sub claim is the user id. Admin rights require the isAdmin
// claim to be the boolean true; any other value, including the string "true",
// is treated as a regular user.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"

	"github.com/tendant/songbook/pkg/songbook"
)

// AdminClaim is the private claim holding the admin flag
const AdminClaim = "isAdmin"

// Identity is the caller resolved from a session
type Identity struct {
	UserID  string
	IsAdmin bool
}

// Authenticator verifies and issues session tokens
type Authenticator struct {
	ja *jwtauth.JWTAuth
}

// New creates an authenticator signing with secret
func New(secret string) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	return &Authenticator{ja: jwtauth.New("HS256", []byte(secret), nil)}, nil
}

// IssueToken mints a session token expiring ttl from now. A negative ttl
// yields an already expired token; only a zero ttl omits the exp claim.
func (a *Authenticator) IssueToken(userID string, isAdmin bool, ttl time.Duration) (string, error) {
	claims := map[string]interface{}{
		"sub":      userID,
		AdminClaim: isAdmin,
	}
	jwtauth.SetIssuedNow(claims)
	if ttl != 0 {
		jwtauth.SetExpiry(claims, time.Now().Add(ttl))
	}

	_, token, err := a.ja.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("failed to encode token: %w", err)
	}
	return token, nil
}

// Session verifies a token when one is present and stores the result in the
// request context. It never rejects a request.
func (a *Authenticator) Session(next http.Handler) http.Handler {
	return jwtauth.Verify(a.ja, jwtauth.TokenFromHeader, jwtauth.TokenFromCookie)(next)
}

// RequireAdmin rejects the request with 403 unless the session belongs to an
// admin. The check happens before next runs, so a rejected request has no
// side effects.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return a.Session(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := IdentityFromContext(r.Context())
		if err == nil && !identity.IsAdmin {
			err = songbook.ErrUnauthorized
		}
		if err != nil {
			slog.Warn("Admin access denied", "path", r.URL.Path, "user_id", identity.UserID, "error", err)
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, map[string]interface{}{
				"error": map[string]string{
					"code":    "unauthorized",
					"message": "Unauthorized: Admin access required",
				},
			})
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// IdentityFromContext returns the caller identity verified by Session.
// It fails with songbook.ErrUnauthorized when there is no valid session.
func IdentityFromContext(ctx context.Context) (Identity, error) {
	token, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", songbook.ErrUnauthorized, err)
	}
	if token == nil {
		return Identity{}, fmt.Errorf("%w: no session", songbook.ErrUnauthorized)
	}

	identity := Identity{UserID: token.Subject()}
	if isAdmin, ok := claims[AdminClaim].(bool); ok && isAdmin {
		identity.IsAdmin = true
	}
	return identity, nil
}

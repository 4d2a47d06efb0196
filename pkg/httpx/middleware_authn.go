package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/wattlehq/partnerdesk/pkg/jwtx"
	"github.com/wattlehq/partnerdesk/pkg/slogx"
)

// SessionCookieName is the cookie the dashboard's login flow sets.
const SessionCookieName = "pd_session"

// SessionVerifier is the subset of jwtx.Signer the middleware needs.
type SessionVerifier interface {
	Verify(raw string) (jwtx.SessionClaims, error)
}

// AuthnMiddleware authenticates a request from the session cookie, falling
// back to an Authorization bearer header for non-browser API clients. Tokens
// still pending a second factor are rejected here; only the 2FA completion
// endpoint accepts those.
func AuthnMiddleware(v SessionVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw := sessionTokenFromRequest(r)
			if raw == "" {
				writeUnauthenticated(w, "missing session")
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("session verify failed", "err", err)
				writeUnauthenticated(w, "session verification failed")
				return
			}

			if claims.PendingTwoFactor {
				writeUnauthenticated(w, "two-factor verification required")
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithSession(ctx, claims)))
		})
	}
}

// RequireRole restricts a route to callers whose session carries one of the
// given roles. Must run after AuthnMiddleware.
func RequireRole(roles ...string) Middleware {
	want := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		want[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := want[roleFromCtx(r.Context())]; !ok {
				WriteError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sessionTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
	}
	return ""
}

func contextWithSession(ctx context.Context, c jwtx.SessionClaims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyRole, c.Role)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}

func writeUnauthenticated(w http.ResponseWriter, desc string) {
	NoCache(w)
	WriteError(w, http.StatusUnauthorized, desc)
}

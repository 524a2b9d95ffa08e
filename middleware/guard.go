package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	goGrant "github.com/MrEthical07/goGrant"
	"github.com/MrEthical07/goGrant/grant"
	"github.com/MrEthical07/goGrant/token"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the claims stored by a guard.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*token.Claims)
	return claims, ok
}

// RequireGrant admits requests whose bearer token grants action on target.
func RequireGrant(engine *goGrant.Engine, target, action string) func(http.Handler) http.Handler {
	expected := grant.New(target, action)
	return RequireGrantFunc(engine, func(*http.Request) grant.Grant { return expected })
}

// RequireGrantFunc admits requests whose bearer token carries the grant expected(r)
// returns. Missing or invalid tokens get 401; a valid token for another grant gets 403.
func RequireGrantFunc(engine *goGrant.Engine, expected func(*http.Request) grant.Grant) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			tok, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := goGrant.WithClientIP(r.Context(), remoteIP(r))
			claims, err := engine.Verify(ctx, tok, expected(r))
			switch {
			case err == nil:
			case errors.Is(err, token.ErrGrantMismatch):
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			case errors.Is(err, goGrant.ErrKeyringRequired), errors.Is(err, goGrant.ErrNoSigningKey):
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			default:
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsContextKey{}, claims)))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	tok := value[len(bearer):]
	if tok == "" {
		return "", false
	}

	return tok, true
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

// DefaultAccessCookie is the cookie Guard falls back to when no bearer token is sent.
const DefaultAccessCookie = "access_token"

// Validator resolves an access token to a principal. *goSession.Engine satisfies it.
type Validator interface {
	ValidateAccess(ctx context.Context, accessToken string) (*goSession.Principal, error)
}

// ErrorHandler writes the response for a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, status int, err error)

// Options tunes Guard. The zero value is usable.
type Options struct {
	CookieName string
	OnError    ErrorHandler
}

// ErrNoCredentials is passed to the error handler when the request carries no token.
var ErrNoCredentials = errors.New("not authenticated")

type principalContextKey struct{}

// PrincipalFromContext returns the principal stored by Guard.
func PrincipalFromContext(ctx context.Context) (*goSession.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*goSession.Principal)
	return p, ok && p != nil
}

// WithPrincipal stores p in ctx the way Guard does.
func WithPrincipal(ctx context.Context, p *goSession.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// Guard rejects requests without a valid access token.
func Guard(v Validator) func(http.Handler) http.Handler {
	return GuardWithOptions(v, Options{})
}

func GuardWithOptions(v Validator, opts Options) func(http.Handler) http.Handler {
	cookieName := opts.CookieName
	if cookieName == "" {
		cookieName = DefaultAccessCookie
	}
	onError := opts.OnError
	if onError == nil {
		onError = WriteError
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				onError(w, r, http.StatusUnauthorized, goSession.ErrEngineNotReady)
				return
			}

			token, ok := AccessToken(r, cookieName)
			if !ok {
				onError(w, r, http.StatusUnauthorized, ErrNoCredentials)
				return
			}

			p, err := v.ValidateAccess(r.Context(), token)
			if err != nil {
				status := http.StatusUnauthorized
				if goSession.IsUnavailable(err) {
					status = http.StatusServiceUnavailable
				}
				onError(w, r, status, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireRole allows only principals holding role. It must run after Guard.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				WriteError(w, r, http.StatusUnauthorized, ErrNoCredentials)
				return
			}
			if !p.HasRole(role) {
				writeDetail(w, http.StatusForbidden, "Insufficient permissions, need: "+role)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientMeta records r.RemoteAddr (without port) and the User-Agent in the
// request context. Run it after chi's RealIP so proxies are honored.
func ClientMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := goSession.WithClientIP(r.Context(), clientIP(r.RemoteAddr))
		ctx = goSession.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccessToken extracts the bearer token, falling back to cookieName.
func AccessToken(r *http.Request, cookieName string) (string, bool) {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token, true
	}
	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// WriteError renders the default JSON rejection body.
func WriteError(w http.ResponseWriter, _ *http.Request, status int, err error) {
	writeDetail(w, status, rejectionDetail(err))
}

func rejectionDetail(err error) string {
	switch {
	case errors.Is(err, ErrNoCredentials):
		return "Not authenticated"
	case errors.Is(err, goSession.ErrTokenRevoked):
		return "Token revoked (logged out)"
	case errors.Is(err, goSession.ErrUserInactive):
		return "User inactive"
	case goSession.IsUnavailable(err):
		return "Service temporarily unavailable"
	default:
		return "Invalid or expired access token"
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/JonMunkholm/stateport/internal/config"
	"github.com/JonMunkholm/stateport/internal/core"
)

// AdminClaims are the claims of an admin console token. The subject is the
// user id.
type AdminClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type (
	principalKey struct{}
	holderKey    struct{}
)

// principalHolder lets Logger, which wraps AdminAuth, learn who the caller
// was after the request has been served.
type principalHolder struct {
	id string
}

func withHolder(ctx context.Context, h *principalHolder) context.Context {
	return context.WithValue(ctx, holderKey{}, h)
}

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p core.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal AdminAuth stored in ctx.
func PrincipalFrom(ctx context.Context) (core.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(core.Principal)
	return p, ok
}

// AdminAuth returns middleware that authenticates the caller from an HMAC
// signed JWT, sent as a Bearer token or in the configured cookie. It does not
// check the role: the pipeline's access stage does, so that non-admin
// attempts are audited.
func AdminAuth(cfg config.AuthConfig) func(http.Handler) http.Handler {
	secret := []byte(cfg.JWTSecret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r, cfg.CookieName)
			if raw == "" {
				slog.Warn("auth: missing token",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"missing token","code":"AUTH_MISSING_TOKEN"}`, http.StatusUnauthorized)
				return
			}

			p, err := ParseToken(raw, secret, cfg.Issuer)
			if err != nil {
				slog.Warn("auth: invalid token",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				http.Error(w, `{"error":"invalid token","code":"AUTH_INVALID_TOKEN"}`, http.StatusUnauthorized)
				return
			}

			if h, ok := r.Context().Value(holderKey{}).(*principalHolder); ok {
				h.id = p.ID
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func tokenFromRequest(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil {
			return c.Value
		}
	}
	return ""
}

// ParseToken verifies raw and returns the principal it names.
func ParseToken(raw string, secret []byte, issuer string) (core.Principal, error) {
	if len(secret) == 0 {
		return core.Principal{}, errors.New("token secret not configured")
	}

	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return core.Principal{}, fmt.Errorf("invalid or expired token: %w", err)
	}
	if !token.Valid {
		return core.Principal{}, errors.New("invalid token")
	}
	if issuer != "" && !claims.VerifyIssuer(issuer, true) {
		return core.Principal{}, errors.New("unexpected token issuer")
	}
	if claims.Subject == "" {
		return core.Principal{}, errors.New("token has no subject")
	}

	return core.Principal{ID: claims.Subject, Username: claims.Username, Role: claims.Role}, nil
}

// SignToken issues a token for p valid for ttl.
func SignToken(p core.Principal, secret []byte, issuer string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AdminClaims{
		Username: p.Username,
		Role:     p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

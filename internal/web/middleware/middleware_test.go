package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/stateport/internal/config"
	"github.com/JonMunkholm/stateport/internal/core"
)

var (
	secret = []byte("test-secret")
	root   = core.Principal{ID: "1", Username: "root", Role: core.RoleAdmin}
)

// ----------------------------------------------------------------------------
// Tokens
// ----------------------------------------------------------------------------

func TestParseToken(t *testing.T) {
	tok, err := SignToken(root, secret, "stateport", time.Hour)
	require.NoError(t, err)

	p, err := ParseToken(tok, secret, "stateport")
	require.NoError(t, err)
	assert.Equal(t, root, p)

	// No issuer configured accepts any issuer.
	_, err = ParseToken(tok, secret, "")
	assert.NoError(t, err)
}

func TestParseToken_Rejects(t *testing.T) {
	valid, err := SignToken(root, secret, "stateport", time.Hour)
	require.NoError(t, err)
	expired, err := SignToken(root, secret, "stateport", -time.Minute)
	require.NoError(t, err)
	noSubject, err := SignToken(core.Principal{Role: core.RoleAdmin}, secret, "stateport", time.Hour)
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, AdminClaims{
		Role:             core.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		raw    string
		secret []byte
		issuer string
	}{
		{"wrong secret", valid, []byte("other"), "stateport"},
		{"wrong issuer", valid, secret, "someone-else"},
		{"expired", expired, secret, "stateport"},
		{"no subject", noSubject, secret, "stateport"},
		{"alg none", unsigned, secret, ""},
		{"garbage", "abc.def.ghi", secret, ""},
		{"no secret", valid, nil, "stateport"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.raw, tt.secret, tt.issuer)
			assert.Error(t, err)
		})
	}
}

func TestAdminAuth(t *testing.T) {
	cfg := config.AuthConfig{JWTSecret: string(secret), Issuer: "stateport", CookieName: "admin_token"}
	var got core.Principal
	h := AdminAuth(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	tok, err := SignToken(root, secret, "stateport", time.Hour)
	require.NoError(t, err)

	t.Run("bearer", func(t *testing.T) {
		got = core.Principal{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, root, got)
	})

	t.Run("cookie", func(t *testing.T) {
		got = core.Principal{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "admin_token", Value: tok})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, root, got)
	})

	t.Run("non-bearer scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic "+tok)
		req.AddCookie(&http.Cookie{Name: "admin_token", Value: tok})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non-admin passes through", func(t *testing.T) {
		member := core.Principal{ID: "2", Username: "bob", Role: "user"}
		mt, err := SignToken(member, secret, "stateport", time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+mt)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, member, got)
	})
}

// ----------------------------------------------------------------------------
// Real IP
// ----------------------------------------------------------------------------

func TestTrustedRealIP(t *testing.T) {
	mw := TrustedRealIP([]string{"10.0.0.0/8", "192.0.2.1", "not-an-ip"})
	var seen string
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientIP(r)
	}))

	tests := []struct {
		name   string
		remote string
		header map[string]string
		want   string
	}{
		{"trusted cidr forwarded", "10.1.2.3:5555", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.1.2.3"}, "203.0.113.9"},
		{"trusted single ip real-ip", "192.0.2.1:80", map[string]string{"X-Real-IP": "203.0.113.10"}, "203.0.113.10"},
		{"untrusted ignores headers", "198.51.100.7:1234", map[string]string{"X-Forwarded-For": "203.0.113.9"}, "198.51.100.7"},
		{"trusted with junk header", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "nonsense"}, "10.0.0.1"},
		{"trusted without header", "10.0.0.2:1", nil, "10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, seen)
		})
	}
}

func TestClientIP_BareAddress(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "2001:db8::1"
	assert.Equal(t, "2001:db8::1", ClientIP(req))

	req.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", ClientIP(req))
}

// ----------------------------------------------------------------------------
// Logger
// ----------------------------------------------------------------------------

func TestLogger_RecordsAdminAndSize(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	cfg := config.AuthConfig{JWTSecret: string(secret)}
	h := Logger(AdminAuth(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("hello"))
	})))
	tok, err := SignToken(root, secret, "", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/import", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	out := buf.String()
	assert.Contains(t, out, "status=201")
	assert.Contains(t, out, "bytes=5")
	assert.Contains(t, out, "admin_id=1")
	assert.Contains(t, out, "path=/api/admin/import")
}

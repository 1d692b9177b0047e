package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/stateport/internal/core"
	"github.com/JonMunkholm/stateport/internal/web/middleware"
)

// requestContext returns r's context carrying the client address and agent
// for audit events, and the authenticated principal.
func requestContext(r *http.Request) (context.Context, core.Principal) {
	p, _ := middleware.PrincipalFrom(r.Context())
	ctx := core.WithClientInfo(r.Context(), core.ClientInfo{
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	return ctx, p
}

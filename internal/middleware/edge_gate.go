package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"sdp-backend/internal/apperr"
	"sdp-backend/internal/auth"
	"sdp-backend/pkg/utils"
)

const DefaultLoginPath = "/admin/login"

var (
	DefaultEdgePrefixes = []string{"/admin", "/api/admin"}
	DefaultEdgeBypass   = []string{
		"/admin/login",
		"/admin/logout",
		"/admin/forgot-password",
		"/api/admin/auth/login",
		"/api/admin/auth/logout",
		"/api/admin/auth/forgot-password",
	}
)

// EdgeGate guards whole URL prefixes with a signature and expiry check on the
// session token. It does not touch the database; route-level RequireAdmin
// does the full operator lookup.
type EdgeGate struct {
	signer    *auth.TokenSigner
	prefixes  []string
	bypass    map[string]bool
	loginPath string
}

func NewEdgeGate(signer *auth.TokenSigner, prefixes, bypass []string, loginPath string) *EdgeGate {
	if len(prefixes) == 0 {
		prefixes = DefaultEdgePrefixes
	}
	if bypass == nil {
		bypass = DefaultEdgeBypass
	}
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}

	g := &EdgeGate{
		signer:    signer,
		prefixes:  make([]string, 0, len(prefixes)),
		bypass:    make(map[string]bool, len(bypass)),
		loginPath: loginPath,
	}
	for _, p := range prefixes {
		g.prefixes = append(g.prefixes, strings.TrimSuffix(p, "/"))
	}
	for _, p := range bypass {
		g.bypass[strings.TrimSuffix(p, "/")] = true
	}
	return g
}

// Guards reports whether path falls under a gated prefix and is not bypassed
func (g *EdgeGate) Guards(path string) bool {
	clean := strings.TrimSuffix(path, "/")
	if g.bypass[clean] {
		return false
	}
	for _, p := range g.prefixes {
		if clean == p || strings.HasPrefix(clean, p+"/") {
			return true
		}
	}
	return false
}

func (g *EdgeGate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Guards(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		claims, ok := g.signer.Verify(auth.TokenFromRequest(r))
		if ok && claims.Kind == auth.KindAdmin {
			next.ServeHTTP(w, r)
			return
		}

		if !strings.HasPrefix(r.URL.Path, "/api/") && (r.Method == http.MethodGet || utils.WantsHTML(r)) {
			http.Redirect(w, r, g.loginPath+"?returnTo="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		}
		utils.WriteError(w, r, apperr.ErrUnauthorized)
	})
}

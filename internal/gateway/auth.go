package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/flemzord/coffee/internal/security"
)

// tokenQueryParam carries the bearer token on websocket upgrades, which
// browsers cannot send with an Authorization header.
const tokenQueryParam = "access_token"

// authenticate reports which credential r presented, or "" when none of
// the configured methods matched.
func authenticate(cfg AuthConfig, r *http.Request) string {
	if cfg.BearerToken != "" {
		if tok, ok := bearerToken(r); ok && constantTimeEqual(tok, cfg.BearerToken) {
			return "bearer"
		}
	}
	if cfg.BasicUser != "" && cfg.BasicPass != "" {
		user, pass, ok := r.BasicAuth()
		if ok && constantTimeEqual(user, cfg.BasicUser) && constantTimeEqual(pass, cfg.BasicPass) {
			return "basic"
		}
	}
	return ""
}

func bearerToken(r *http.Request) (string, bool) {
	if tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return tok, true
	}
	if isUpgrade(r) {
		if tok := r.URL.Query().Get(tokenQueryParam); tok != "" {
			return tok, true
		}
	}
	return "", false
}

func isUpgrade(r *http.Request) bool {
	return r.Method == http.MethodGet && strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// authMiddleware rejects requests without valid credentials and records
// the outcome in the audit log.
func authMiddleware(cfg AuthConfig, audit *security.AuditLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method := authenticate(cfg, r)
			if method == "" {
				detail := "invalid credentials"
				if r.Header.Get("Authorization") == "" && !r.URL.Query().Has(tokenQueryParam) {
					detail = "missing credentials"
				}
				auditAuth(audit, security.EventAuthFailure, r, detail)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			auditAuth(audit, security.EventAuthSuccess, r, method)
			next.ServeHTTP(w, r)
		})
	}
}

func auditAuth(audit *security.AuditLogger, typ security.EventType, r *http.Request, detail string) {
	audit.Log(security.AuditEvent{
		Type:   typ,
		Detail: detail,
		Metadata: map[string]string{
			"remote_addr": r.RemoteAddr,
			"method":      r.Method,
			"path":        r.URL.Path,
		},
	})
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

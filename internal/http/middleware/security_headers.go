package middleware

import (
	"fmt"
	"net/http"

	"github.com/tendant/simple-projects/internal/config"
)

const defaultCacheControl = "no-store"

type header struct {
	name  string
	value string
}

// SecurityHeaders creates middleware that sets the configured security
// headers on every response. Responses carry tenant data, so Cache-Control
// falls back to no-store when unset.
func SecurityHeaders(cfg config.SecurityHeadersConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	headers := securityHeaders(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, h := range headers {
				w.Header().Set(h.name, h.value)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// securityHeaders resolves the header set once. Empty values are skipped.
func securityHeaders(cfg config.SecurityHeadersConfig) []header {
	var headers []header
	add := func(name, value string) {
		if value != "" {
			headers = append(headers, header{name: name, value: value})
		}
	}

	add("Content-Security-Policy", cfg.CSP)
	if cfg.HSTSMaxAge > 0 {
		add("Strict-Transport-Security", fmt.Sprintf("max-age=%d; includeSubDomains", cfg.HSTSMaxAge))
	}
	add("X-Frame-Options", cfg.FrameOptions)
	add("X-Content-Type-Options", cfg.ContentTypeOptions)
	add("X-XSS-Protection", cfg.XSSProtection)
	add("Referrer-Policy", cfg.ReferrerPolicy)
	add("Permissions-Policy", cfg.PermissionsPolicy)

	cacheControl := cfg.CacheControl
	if cacheControl == "" {
		cacheControl = defaultCacheControl
	}
	add("Cache-Control", cacheControl)
	return headers
}

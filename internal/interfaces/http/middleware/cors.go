package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// CORS answers preflight requests and sets Access-Control-Allow-Origin for
// origins in allowed. "*" allows any origin. Requests from other origins are
// passed through without CORS headers, so browsers block the response.
func CORS(allowed []string) func(http.Handler) http.Handler {
	origins := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		origins[trimmed] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin, ok := matchOrigin(origins, r.Header.Get("Origin"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+RequestIDHeader)
				h.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			h.Set("Access-Control-Expose-Headers", RequestIDHeader)
			next.ServeHTTP(w, r)
		})
	}
}

func matchOrigin(allowed map[string]struct{}, origin string) (string, bool) {
	if len(allowed) == 0 {
		return "", false
	}

	origin = strings.TrimSpace(origin)
	if origin == "" {
		return "", false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return "", false
	}

	normalized := parsed.Scheme + "://" + parsed.Host
	if _, ok := allowed[normalized]; ok {
		return normalized, true
	}
	if _, ok := allowed["*"]; ok {
		return normalized, true
	}
	return "", false
}

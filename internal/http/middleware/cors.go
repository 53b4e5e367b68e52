package middleware

import (
	"net/http"
	"strings"
)

// The widget only ever sends JSON posts and the websocket upgrade, so the
// grant is deliberately narrow.
const (
	corsHeaders = "Content-Type, X-Request-ID"
	corsMethods = "GET, POST, OPTIONS"
	corsMaxAge  = "600"
)

// CORS grants cross-origin access to the listed origins. An entry of "*"
// echoes any Origin back; everything else must match exactly. Requests from
// origins outside the list pass through without CORS headers and the
// browser enforces the denial.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	granted := newOriginSet(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || !granted.contains(origin) {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Max-Age", corsMaxAge)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type originSet struct {
	any   bool
	exact map[string]struct{}
}

func newOriginSet(origins []string) originSet {
	set := originSet{exact: make(map[string]struct{}, len(origins))}
	for _, origin := range origins {
		switch origin = strings.TrimSpace(origin); origin {
		case "":
		case "*":
			set.any = true
		default:
			set.exact[origin] = struct{}{}
		}
	}
	return set
}

func (s originSet) contains(origin string) bool {
	if s.any {
		return true
	}
	_, ok := s.exact[origin]
	return ok
}

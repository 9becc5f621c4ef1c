package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy defines the CORS headers to emit for matching origins.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

type corsRules struct {
	origins     []string
	anyOrigin   bool
	credentials bool
	methods     string
	headers     string
	exposed     string
	maxAge      string
}

func compileCORS(cfg CORSPolicy) corsRules {
	rules := corsRules{
		credentials: cfg.AllowCredentials,
		methods:     strings.Join(normalizeList(cfg.AllowedMethods), ", "),
		headers:     strings.Join(normalizeList(cfg.AllowedHeaders), ", "),
		exposed:     strings.Join(normalizeList(append([]string{RequestIDHeader}, cfg.ExposedHeaders...)), ", "),
	}
	for _, origin := range normalizeList(cfg.AllowedOrigins) {
		if origin == "*" {
			rules.anyOrigin = true
			continue
		}
		rules.origins = append(rules.origins, origin)
	}
	if secs := int(cfg.MaxAge.Seconds()); secs > 0 {
		rules.maxAge = strconv.Itoa(secs)
	}
	return rules
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin. A wildcard
// policy echoes the origin when credentials are allowed since browsers reject "*" then.
func (c corsRules) allowOrigin(origin string) (string, bool) {
	for _, candidate := range c.origins {
		if strings.EqualFold(candidate, origin) {
			return origin, true
		}
	}
	if c.anyOrigin {
		if c.credentials {
			return origin, true
		}
		return "*", true
	}
	return "", false
}

// WithCORS adds CORS handling. With no allowed origins it is a no-op. Preflights
// from allowed origins are answered with 204 without reaching next.
func WithCORS(cfg CORSPolicy) Middleware {
	rules := compileCORS(cfg)
	if len(rules.origins) == 0 && !rules.anyOrigin {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			h := w.Header()
			h.Add("Vary", "Origin")

			allow, ok := rules.allowOrigin(origin)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			h.Set("Access-Control-Allow-Origin", allow)
			if rules.credentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Add("Vary", "Access-Control-Request-Method")
				h.Add("Vary", "Access-Control-Request-Headers")
				if rules.methods != "" {
					h.Set("Access-Control-Allow-Methods", rules.methods)
				}
				if rules.headers != "" {
					h.Set("Access-Control-Allow-Headers", rules.headers)
				}
				if rules.maxAge != "" {
					h.Set("Access-Control-Max-Age", rules.maxAge)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			h.Set("Access-Control-Expose-Headers", rules.exposed)
			next.ServeHTTP(w, r)
		})
	}
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

package httpmiddleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy describes which browser origins may call the API.
type CORSPolicy struct {
	// Origins allowed to make cross-origin requests. Empty or "*" allows all.
	Origins []string
	Methods []string
	Headers []string
	Expose  []string
	MaxAge  time.Duration
}

// DefaultCORSPolicy allows any origin to use the storefront API methods and
// read the request ID header.
func DefaultCORSPolicy() CORSPolicy {
	return CORSPolicy{
		Methods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		Headers: []string{"Content-Type", RequestIDHeader},
		Expose:  []string{RequestIDHeader},
		MaxAge:  10 * time.Minute,
	}
}

type corsRules struct {
	any     bool
	origins map[string]string
	methods string
	headers string
	expose  string
	maxAge  string
}

func (p CORSPolicy) compile() corsRules {
	c := corsRules{
		any:     len(p.Origins) == 0 || slices.Contains(p.Origins, "*"),
		origins: make(map[string]string, len(p.Origins)),
		methods: strings.Join(p.Methods, ", "),
		headers: strings.Join(p.Headers, ", "),
		expose:  strings.Join(p.Expose, ", "),
	}
	for _, o := range p.Origins {
		c.origins[strings.ToLower(o)] = o
	}
	if p.MaxAge > 0 {
		c.maxAge = strconv.Itoa(int(p.MaxAge / time.Second))
	}
	return c
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin,
// or "" when the origin is rejected.
func (c corsRules) allowOrigin(origin string) string {
	if c.any {
		return "*"
	}
	return c.origins[strings.ToLower(origin)]
}

// CORS answers preflight requests itself and decorates actual cross-origin
// requests with the allow and expose headers.
func CORS(p CORSPolicy) Middleware {
	c := p.compile()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if !c.any {
				h.Add("Vary", "Origin")
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			allowed := c.allowOrigin(origin)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Add("Vary", "Access-Control-Request-Method")
				h.Add("Vary", "Access-Control-Request-Headers")
				if allowed != "" {
					h.Set("Access-Control-Allow-Origin", allowed)
					if c.methods != "" {
						h.Set("Access-Control-Allow-Methods", c.methods)
					}
					if c.headers != "" {
						h.Set("Access-Control-Allow-Headers", c.headers)
					}
					if c.maxAge != "" {
						h.Set("Access-Control-Max-Age", c.maxAge)
					}
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if allowed != "" {
				h.Set("Access-Control-Allow-Origin", allowed)
				if c.expose != "" {
					h.Set("Access-Control-Expose-Headers", c.expose)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

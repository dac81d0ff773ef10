package web

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"orlandiv/internal/config"
)

// SecurityHeaders adds security headers to responses
func SecurityHeaders(handler http.Handler, cfg *config.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		// HSTS only behind TLS outside debug
		if !cfg.App.Debug && r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		handler.ServeHTTP(w, r)
	})
}

// CORS applies the configured cross-origin policy
func CORS(handler http.Handler, cfg *config.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		wildcard := len(cfg.CORS.AllowedOrigins) == 0 || cfg.CORS.AllowedOrigins[0] == "*"

		if !cfg.App.Debug && !wildcard && origin != "" && !originAllowed(origin, cfg.CORS.AllowedOrigins) {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		} else if cfg.App.Debug {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		w.Header().Set("Access-Control-Allow-Methods", strings.Join(cfg.CORS.AllowedMethods, ", "))
		w.Header().Set("Access-Control-Allow-Headers", strings.Join(cfg.CORS.AllowedHeaders, ", "))
		w.Header().Set("Access-Control-Expose-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", fmt.Sprintf("%d", cfg.CORS.MaxAge))
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		handler.ServeHTTP(w, r)
	})
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if origin == a {
			return true
		}
	}
	return false
}

// statusRecorder wraps http.ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RequestLogging logs every request except health checks and scrapes
func RequestLogging(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			handler.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		handler.ServeHTTP(wrapped, r)

		entry := log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   wrapped.statusCode,
			"duration": time.Since(start).String(),
			"remote":   r.RemoteAddr,
		})
		if wrapped.statusCode >= http.StatusInternalServerError {
			entry.Error("[RESPONSE]")
		} else {
			entry.Info("[RESPONSE]")
		}
	})
}

var staticRoutes = map[string]bool{
	"/": true, "/quotes": true, "/messages": true, "/iot-requests": true,
	"/admin": true, "/admin/login": true, "/admin/logout": true, "/admin/sample-works": true,
	"/api/v1/sample-works": true, "/api/v1/quotes": true, "/api/v1/messages": true,
	"/api/v1/iot-requests": true, "/api/v1/auth/login": true, "/api/v1/auth/logout": true,
	"/api/v1/admin/sample-works": true, "/health": true,
}

// RouteLabel maps a request path to its route pattern for metrics labels
func RouteLabel(r *http.Request) string {
	p := r.URL.Path
	switch {
	case staticRoutes[p]:
		return p
	case strings.HasPrefix(p, "/uploads/"):
		return "/uploads/{path}"
	case strings.HasPrefix(p, "/admin/sample-works/") && strings.HasSuffix(p, "/delete"):
		return "/admin/sample-works/{id}/delete"
	case strings.HasPrefix(p, "/api/v1/admin/sample-works/"):
		return "/api/v1/admin/sample-works/{id}"
	case strings.HasPrefix(p, "/api/v1/admin/"):
		return "/api/v1/admin/{table}"
	}
	return "other"
}

// Package web serves the marketing site, the admin panel and the JSON API.
package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	goahttp "goa.design/goa/v3/http"
	"goa.design/goa/v3/http/middleware"

	"orlandiv/internal/config"
	"orlandiv/internal/content"
	"orlandiv/internal/metrics"
	"orlandiv/internal/services"
)

//go:embed templates/*.html
var templateFS embed.FS

// Options wires the server to its services
type Options struct {
	Submissions *services.SubmissionService
	Admin       *services.AdminService
	Health      *services.HealthService
	Catalog     *content.Catalog

	CookieName     string
	SecureCookie   bool
	MaxUploadBytes int64
	UploadAccept   []string

	// Files serves /uploads/ for backends that keep objects locally
	Files http.Handler
}

// Server holds the HTTP handlers
type Server struct {
	opts      Options
	templates *template.Template
	vars      func(*http.Request) map[string]string
}

// New parses the page templates and creates a server
func New(opts Options) (*Server, error) {
	tmpl, err := template.New("site").Funcs(template.FuncMap{
		"date": formatDate,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if opts.CookieName == "" {
		opts.CookieName = "sb_session"
	}
	return &Server{opts: opts, templates: tmpl}, nil
}

// Mount registers every route on mux
func (s *Server) Mount(mux goahttp.Muxer) {
	s.vars = mux.Vars

	mux.Handle(http.MethodGet, "/", s.handleHome)
	mux.Handle(http.MethodPost, "/quotes", s.handleQuoteForm)
	mux.Handle(http.MethodPost, "/messages", s.handleMessageForm)
	mux.Handle(http.MethodPost, "/iot-requests", s.handleIoTForm)

	mux.Handle(http.MethodGet, "/admin", s.handleAdmin)
	mux.Handle(http.MethodPost, "/admin/login", s.handleAdminLogin)
	mux.Handle(http.MethodPost, "/admin/logout", s.handleAdminLogout)
	mux.Handle(http.MethodPost, "/admin/sample-works", s.requireSession(s.handleAddSampleWork))
	mux.Handle(http.MethodPost, "/admin/sample-works/{id}/delete", s.requireSession(s.handleDeleteSampleWork))

	mux.Handle(http.MethodGet, "/api/v1/sample-works", s.apiListSampleWorks)
	mux.Handle(http.MethodPost, "/api/v1/quotes", s.apiSubmitQuote)
	mux.Handle(http.MethodPost, "/api/v1/messages", s.apiSubmitMessage)
	mux.Handle(http.MethodPost, "/api/v1/iot-requests", s.apiSubmitIoTRequest)
	mux.Handle(http.MethodPost, "/api/v1/auth/login", s.apiLogin)
	mux.Handle(http.MethodPost, "/api/v1/auth/logout", s.requireBearer(s.apiLogout))
	mux.Handle(http.MethodGet, "/api/v1/admin/{table}", s.requireBearer(s.apiAdminList))
	mux.Handle(http.MethodPost, "/api/v1/admin/sample-works", s.requireBearer(s.apiAddSampleWork))
	mux.Handle(http.MethodDelete, "/api/v1/admin/sample-works/{id}", s.requireBearer(s.apiDeleteSampleWork))

	mux.Handle(http.MethodGet, "/health", s.handleHealth)
}

// Handler builds the full middleware chain around a fresh muxer
func (s *Server) Handler(cfg *config.Config) http.Handler {
	mux := goahttp.NewMuxer()
	s.Mount(mux)

	var inner http.Handler = mux
	inner = middleware.PopulateRequestContext()(inner)
	inner = middleware.RequestID()(inner)

	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/metrics":
			promhttp.Handler().ServeHTTP(w, r)
		case strings.HasPrefix(r.URL.Path, "/uploads/") && s.opts.Files != nil:
			s.opts.Files.ServeHTTP(w, r)
		default:
			inner.ServeHTTP(w, r)
		}
	})

	// Security -> CORS -> Logging -> Prometheus -> Handler
	return SecurityHeaders(CORS(RequestLogging(metrics.PrometheusMiddleware(RouteLabel)(root)), cfg), cfg)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	result := s.opts.Health.Check(r.Context())
	status := http.StatusOK
	if !result.Healthy() {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, r, status, result)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Errorf("[WEB] failed to render %s: %v", name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) pathVar(r *http.Request, name string) string {
	if s.vars == nil {
		return ""
	}
	return s.vars(r)[name]
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("1/2/2006, 3:04:05 PM")
}

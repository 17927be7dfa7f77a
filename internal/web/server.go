package web

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/vbonduro/ingredia/internal/service"
)

const (
	DefaultMaxImageBytes = 10 << 20
	shutdownTimeout      = 10 * time.Second
)

type Server struct {
	service       *service.AssistantService
	templates     embed.FS
	mux           *http.ServeMux
	tmplFuncs     template.FuncMap
	maxImageBytes int64
	logger        *slog.Logger
}

// NewServer builds the HTTP front end. maxImageBytes bounds a single upload;
// zero means DefaultMaxImageBytes.
func NewServer(svc *service.AssistantService, tmpl embed.FS, maxImageBytes int64, logger *slog.Logger) *Server {
	if maxImageBytes <= 0 {
		maxImageBytes = DefaultMaxImageBytes
	}
	s := &Server{
		service:       svc,
		templates:     tmpl,
		mux:           http.NewServeMux(),
		maxImageBytes: maxImageBytes,
		logger:        logger,
		tmplFuncs: template.FuncMap{
			"markdown": RenderMarkdown,
			"ago":   func(t time.Time) string { return humanize.Time(t) },
			"bytes": func(n int64) string { return humanize.IBytes(uint64(max(n, 0))) },
			"inc":   func(i int) int { return i + 1 },
		},
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /products", s.handleUploadProduct)
	s.mux.HandleFunc("GET /products/{id}", s.handleGetProduct)
	s.mux.HandleFunc("GET /products/{id}/image", s.handleGetImage)
	s.mux.HandleFunc("POST /products/{id}/questions", s.handleAsk)
	s.mux.HandleFunc("POST /products/{id}/describe", s.handleRedescribe)
	s.mux.HandleFunc("DELETE /products/{id}/answers/{answerID}", s.handleDeleteAnswer)
	s.mux.HandleFunc("DELETE /products/{id}", s.handleDeleteProduct)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' 'unsafe-inline' https://unpkg.com; "+
				"style-src 'self' 'unsafe-inline'; "+
				"img-src 'self' data:; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// renderPage parses and executes a full-page template set.
func (s *Server) renderPage(w http.ResponseWriter, data any, files ...string) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, files...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tmpl.ExecuteTemplate(w, "base", data)
}

// renderPartial parses files and executes the {{define}} block called name.
func (s *Server) renderPartial(w http.ResponseWriter, name string, data any, files ...string) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, files...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tmpl.ExecuteTemplate(w, name, data)
}

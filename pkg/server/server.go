// Package server exposes a slimdeps store over HTTP using the repository
// layout, so a populated store can act as a repository for other machines
// or for tests.
//
// Routes:
//
//	GET  /healthz  liveness probe
//	GET  /*        artifact bytes
//	HEAD /*        artifact existence and length
//
// Paths are validated with [errs.ValidatePath]; traversal attempts are
// rejected with 400. Staging files written by an in-progress download are
// never served.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	errs "github.com/matzehuels/slimdeps/pkg/errors"
)

const shutdownTimeout = 5 * time.Second

// Server serves the files under a store directory.
type Server struct {
	dir    string
	logger *log.Logger
	router chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger. Default discards.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a server for dir, which must exist.
func New(dir string, opts ...Option) (*Server, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "store directory %s", abs)
	}
	if !info.IsDir() {
		return nil, errs.New(errs.ErrCodeInvalidPath, "%s is not a directory", abs)
	}

	s := &Server{dir: abs, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/healthz", s.handleHealth)
	r.Get("/*", s.handleArtifact)
	r.Head("/*", s.handleArtifact)
	s.router = r
	return s, nil
}

// Dir returns the served directory.
func (s *Server) Dir() string { return s.dir }

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. ready, when non-nil, receives the bound address.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	if ready != nil {
		ready(ln.Addr())
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	if err := errs.ValidatePath(rel); err != nil {
		http.Error(w, errs.UserMessage(err), http.StatusBadRequest)
		return
	}
	if strings.Contains(filepath.Base(rel), ".part-") {
		http.NotFound(w, r)
		return
	}

	//nolint:gosec // G304: rel is validated above
	f, err := os.Open(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentType(rel))
	http.ServeContent(w, r, "", info.ModTime(), f)
}

func contentType(name string) string {
	switch filepath.Ext(name) {
	case ".jar":
		return "application/java-archive"
	case ".pom", ".xml":
		return "application/xml"
	case ".sha1", ".sha256", ".md5", ".asc":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "bytes", ww.BytesWritten(), "took", time.Since(start))
	})
}

package web

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hpungsan/harbor/internal/config"
	"github.com/hpungsan/harbor/internal/ops"
	"github.com/hpungsan/harbor/internal/preview"
	"github.com/hpungsan/harbor/internal/workspace"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// pageCSP applies to every page except preview documents, which carry
// their own policy.
const pageCSP = "default-src 'self'; script-src 'self'; style-src 'self'; " +
	"frame-src 'self'; connect-src 'self' ws: wss:"

// Deps is everything the web handlers operate on.
type Deps struct {
	Workspace *workspace.Workspace
	DB        *sql.DB // optional; export history
	Config    *config.Config
	Previews  *preview.Registry
	Gist      ops.GistEnv
}

// NewServer creates and configures the HTTP server for the Harbor web UI.
// The hub must be running (see Run) for console connections to attach. The
// current preview handle is released when the server shuts down.
func NewServer(deps Deps, hub *Hub, version, bind string, port int) *http.Server {
	h := newHandlers(deps, hub, version)
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           h.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(h.releasePreview)
	return srv
}

// NewHandler builds the router: HTML pages, preview documents, the console
// websocket and the JSON API under /api.
func NewHandler(deps Deps, hub *Hub, version string) http.Handler {
	return newHandlers(deps, hub, version).routes()
}

func newHandlers(deps Deps, hub *Hub, version string) *Handlers {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		log.Fatalf("failed to create template sub-FS: %v", err)
	}
	if deps.Previews == nil {
		deps.Previews = preview.NewRegistry(0)
	}
	return &Handlers{
		deps:     deps,
		renderer: NewRenderer(templateSub, version),
		hub:      hub,
	}
}

func (h *Handlers) routes() http.Handler {
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Fatalf("failed to create static sub-FS: %v", err)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestLogger(&chimiddleware.DefaultLogFormatter{Logger: log.Default(), NoColor: true}))
	r.Use(chimiddleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(securityHeaders)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/files", http.StatusFound)
		})
		r.Get("/files", h.HandleTree)
		r.Get("/files/*", h.HandleFile)
		r.Get("/search", h.HandleSearch)
		r.Get("/preview", h.HandlePreviewPage)
		r.Get("/history", h.HandleHistory)
		r.Get("/settings", h.HandleSettings)
		r.Post("/settings", h.HandleSettingsUpdate)
		r.Get("/export.zip", h.HandleExportDownload)

		r.Get("/static/highlight.css", h.HandleHighlightCSS)
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(staticSub)))
	})

	r.Get("/preview/{handle}", h.HandlePreviewDocument)
	r.Get("/ws/console", h.hub.ServeConsole)
	r.Mount("/api", h.apiRouter())

	return r
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", pageCSP)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the console hub and the HTTP server, and shuts both down on
// SIGINT/SIGTERM.
func Run(srv *http.Server, hub *Hub) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()
	go hub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Printf("Harbor UI running at http://%s", srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Printf("WARNING: Server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Println("Shutting down...")
		cancelHub()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Package rest exposes the property collection, its projections and media
// uploads over HTTP for the dashboard.
package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mesh-intelligence/propsync/internal/logging"
	"github.com/mesh-intelligence/propsync/internal/sqlite"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

// defaultMaxUploadBytes bounds a multipart upload request.
const defaultMaxUploadBytes = 100 << 20

// ObjectReader serves stored media. *sqlite.Backend implements it.
type ObjectReader interface {
	Object(ctx context.Context, bucket, path string) (sqlite.Object, error)
}

// Deps are the components behind the routes. Objects may be nil when the
// backend keeps no objects locally.
type Deps struct {
	Store    PropertyStore
	Uploader Uploader
	Objects  ObjectReader
}

// Server is the HTTP server.
type Server struct {
	httpServer *http.Server
	logger     logging.Logger
}

// NewRouter builds the route tree.
func NewRouter(cfg types.ServerConfig, deps Deps, logger logging.Logger) http.Handler {
	if logger == nil {
		logger = logging.Nop()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP, LoggerMiddleware(logger), middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", TraceHeader},
		ExposedHeaders: []string{TraceHeader},
		MaxAge:         300,
	}))

	props := NewPropertyHandler(deps.Store)
	media := &MediaHandler{uploader: deps.Uploader, objects: deps.Objects, maxBytes: defaultMaxUploadBytes}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/properties", func(r chi.Router) {
			r.Get("/", props.List)
			r.Post("/", props.Create)
			r.Post("/bulk-delete", props.BulkDelete)
			r.Get("/{id}", props.Get)
			r.Patch("/{id}", props.Update)
			r.Delete("/{id}", props.Delete)
			r.Post("/{id}/counters/{counter}", props.IncrementCounter)
		})
		if deps.Uploader != nil {
			r.Post("/media", media.Upload)
		}
		r.Get("/media/{bucket}/*", media.Object)
	})
	return r
}

// NewServer returns a server listening on cfg.Addr.
func NewServer(cfg types.ServerConfig, deps Deps, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	addr := cfg.Addr
	if addr == "" {
		addr = types.DefaultServerAddr
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(cfg, deps, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start serves until Stop is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting REST server", logging.Fields{"address": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down, waiting for in-flight requests until ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping REST server", nil)
	return s.httpServer.Shutdown(ctx)
}

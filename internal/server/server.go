package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/keepsite/apiserver/config"
	"github.com/keepsite/apiserver/internal/auth"
	"github.com/keepsite/apiserver/internal/db"
	"github.com/keepsite/apiserver/internal/handlers"
	"github.com/keepsite/apiserver/internal/mq"
	"github.com/keepsite/apiserver/internal/services"
	"github.com/keepsite/apiserver/internal/storage"
	"github.com/keepsite/apiserver/internal/store"
	"github.com/rs/zerolog"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	publisher  mq.Publisher
}

// New constructs a Server with its full dependency graph: database
// pool, repositories, services, token service, optional object storage
// and event broker, and the route tree.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Server, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	publisher, err := mq.NewFromConfig(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	objects, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if objects != nil {
		if err := objects.EnsureBucket(ctx); err != nil {
			_ = dbConn.Close()
			return nil, err
		}
	}

	userRepo := store.NewUserRepository(dbConn)
	noteRepo := store.NewNoteRepository(dbConn)
	pageRepo := store.NewPageRepository(dbConn)

	userService := services.NewUserService(userRepo)
	noteService := services.NewNoteService(noteRepo)
	pageService := services.NewPageService(pageRepo, publisherOrNil(publisher), logger)

	var attachmentService *services.AttachmentService
	if objects != nil {
		attachmentRepo := store.NewAttachmentRepository(dbConn)
		attachmentService = services.NewAttachmentService(attachmentRepo, pageRepo, objects, logger)
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, auth.DefaultTokenTTL)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		requestLogger(logger),
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		}),
	)

	router.Get("/", handlers.Welcome)
	router.Get("/healthz", handlers.Healthz)

	handlers.AuthRouter(router, userService, tokens, logger)
	handlers.NoteRouter(router, noteService, logger)
	handlers.PublicPageRouter(router, pageService, logger)
	if attachmentService != nil {
		handlers.PublicAttachmentRouter(router, attachmentService, logger)
	}

	router.Route("/admin", func(r chi.Router) {
		r.Use(handlers.RequireToken(tokens))
		handlers.AdminPageRouter(r, pageService, logger)
		if attachmentService != nil {
			handlers.AdminAttachmentRouter(r, attachmentService, logger)
		}
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		publisher:  publisher,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

// publisherOrNil keeps the page service's nil check meaningful: a nil
// *client stored in a non-nil interface would defeat it.
func publisherOrNil(p mq.Publisher) services.EventPublisher {
	if p == nil {
		return nil
	}
	return p
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}

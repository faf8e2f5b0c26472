package http

import (
	"log/slog"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	Logger         *slog.Logger
	AllowedOrigins []string
}

func NewRouter(
	cfg RouterConfig,
	JWTService jwt.Service,
	uploadHandler UploadHandler,
	attendanceHandler AttendanceHandler,
	pointHandler PointHandler,
) *chi.Mux {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
		r.Use(middleware.AuthRequired(JWTService))

		r.Route("/uploads", func(r chi.Router) {
			r.Post("/", uploadHandler.Create)
			r.Get("/{id}", uploadHandler.Get)
		})

		r.Route("/attendance", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(chiMiddleware.AllowContentType("application/json"))
				r.Post("/reprocess", attendanceHandler.Reprocess)
				r.Put("/{id}/verify", attendanceHandler.Verify)
			})
			r.Get("/review-queue", attendanceHandler.ReviewQueue)
			r.Get("/{id}", attendanceHandler.Get)
		})

		r.Route("/employees/{id}/points", func(r chi.Router) {
			r.Get("/", pointHandler.ListByEmployee)
			r.Get("/statistics", pointHandler.Statistics)
		})

		r.Route("/points", func(r chi.Router) {
			r.With(chiMiddleware.AllowContentType("application/json")).Post("/", pointHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.With(chiMiddleware.AllowContentType("application/json")).Put("/", pointHandler.Update)
				r.Delete("/", pointHandler.Delete)
				r.With(chiMiddleware.AllowContentType("application/json")).Post("/excuse", pointHandler.Excuse)
				r.Delete("/excuse", pointHandler.Unexcuse)
			})
		})
	})

	return r
}

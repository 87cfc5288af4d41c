// Package handlers exposes the image library procedures over HTTP.
package handlers

import (
	"net/http"

	"image-library/internal/config"
	"image-library/internal/domain/gallery"
	"image-library/internal/observability"
	"image-library/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
)

// Options carries everything the handlers need besides the services
type Options struct {
	Session       config.SessionConfig
	MaxUploadSize int64
	Version       string
	Logger        *observability.Logger
	Tracer        trace.Tracer
	Metrics       *observability.HTTPMetrics
	HealthChecks  map[string]services.HealthCheck
}

type Handler struct {
	folders       gallery.FolderService
	images        gallery.ImageService
	preferences   gallery.PreferenceService
	session       config.SessionConfig
	maxUploadSize int64
	version       string
	logger        *observability.Logger
	tracer        trace.Tracer
	metrics       *observability.HTTPMetrics
	healthChecks  map[string]services.HealthCheck
}

func New(folders gallery.FolderService, images gallery.ImageService, preferences gallery.PreferenceService, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}
	if opts.Tracer == nil {
		opts.Tracer = observability.GetTracer()
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = defaultMaxUploadSize
	}
	opts.Session = withSessionDefaults(opts.Session)

	return &Handler{
		folders:       folders,
		images:        images,
		preferences:   preferences,
		session:       opts.Session,
		maxUploadSize: opts.MaxUploadSize,
		version:       opts.Version,
		logger:        opts.Logger.WithComponent("http"),
		tracer:        opts.Tracer,
		metrics:       opts.Metrics,
		healthChecks:  opts.HealthChecks,
	}
}

// NewWithContainer builds a Handler from the dependency injection container
func NewWithContainer(c *services.Container, version string, metrics *observability.HTTPMetrics) *Handler {
	cfg := c.Config()
	return New(c.FolderService(), c.ImageService(), c.PreferenceService(), Options{
		Session:       cfg.Session,
		MaxUploadSize: cfg.Storage.MaxUploadSize,
		Version:       version,
		Logger:        c.Logger(),
		Metrics:       metrics,
		HealthChecks:  c.HealthChecks(),
	})
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.TracingMiddleware(h.tracer))
	if h.metrics != nil {
		r.Use(observability.MetricsMiddleware(h.metrics))
	}
	r.Use(observability.RequestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.healthzHandler)
	r.Get("/readyz", h.readyzHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", h.createSessionHandler)

		// Public images are viewable without a session
		r.With(h.optionalOwner).Get("/images/{id}/view", h.viewImageHandler)
		r.With(h.optionalOwner).Get("/images/{id}/url", h.imageURLHandler)

		r.Group(func(r chi.Router) {
			r.Use(h.requireOwner)

			r.Route("/folders", func(r chi.Router) {
				r.Get("/", h.listFoldersHandler)
				r.Post("/", h.createFolderHandler)
				r.Put("/{id}", h.updateFolderHandler)
				r.Delete("/{id}", h.deleteFolderHandler)
				r.Get("/{id}/images", h.listFolderImagesHandler)
			})

			r.Get("/images", h.listImagesHandler)
			r.Post("/images", h.uploadImageHandler)
			r.Post("/images/delete", h.deleteSelectedImagesHandler)
			r.Post("/images/move", h.moveSelectedImagesHandler)
			r.Put("/images/{id}", h.updateImageHandler)
			r.Delete("/images/{id}", h.deleteImageHandler)

			r.Get("/users/preferences/hide-private", h.getHidePrivateHandler)
			r.Put("/users/preferences/hide-private", h.toggleHidePrivateHandler)
		})
	})

	return r
}

package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"yesod/internal/domain"
	"yesod/internal/repository"
	"yesod/internal/service"
)

type NoticeGenerator interface {
	Generate(ctx context.Context, req domain.NoticeRequest, userID *int64) (*service.GeneratedNotice, error)
}

type NoticeQueries interface {
	Get(ctx context.Context, id string, userID int64) (*domain.Notice, error)
	List(ctx context.Context, f repository.NoticesFilter, userID int64) ([]domain.Notice, int64, error)
	DownloadURL(ctx context.Context, id string, userID int64) (string, error)
	Resend(ctx context.Context, id string, userID int64, to string) error
}

type NoticeExporter interface {
	StartNoticesExport(
		ctx context.Context,
		selected []string,
		filter repository.NoticesFilter,
		userID int64,
	) (string, error)
}

type ExportListService interface {
	GetExports(ctx context.Context, userID int64) ([]service.ExportView, error)
	GetExport(ctx context.Context, exportID string, userID int64) (*service.ExportView, error)
}

type HealthChecker interface {
	Check(ctx context.Context) service.HealthReport
}

type Handler struct {
	generator    NoticeGenerator
	notices      NoticeQueries
	exporter     NoticeExporter
	exportList   ExportListService
	health       HealthChecker
	exportPrefix string
	logger       *zap.Logger
}

func NewHandler(
	generator NoticeGenerator,
	notices NoticeQueries,
	exporter NoticeExporter,
	exportList ExportListService,
	health HealthChecker,
	exportPrefix string,
	logger *zap.Logger,
) *Handler {
	if exportPrefix == "" {
		exportPrefix = "exports:"
	}
	return &Handler{
		generator:    generator,
		notices:      notices,
		exporter:     exporter,
		exportList:   exportList,
		health:       health,
		exportPrefix: exportPrefix,
		logger:       logger,
	}
}

// Middlewares are the pieces of the router built outside this package. Nil
// entries are skipped.
type Middlewares struct {
	Auth         func(http.Handler) http.Handler
	OptionalAuth func(http.Handler) http.Handler
	RateLimit    func(http.Handler) http.Handler

	// Files serves GET /files/{file} when storage is local.
	Files http.HandlerFunc
	// WebSocket upgrades GET /ws for an authenticated user.
	WebSocket http.HandlerFunc

	AllowedOrigins []string
}

func use(r chi.Router, mws ...func(http.Handler) http.Handler) chi.Router {
	var set []func(http.Handler) http.Handler
	for _, mw := range mws {
		if mw != nil {
			set = append(set, mw)
		}
	}
	return r.With(set...)
}

func (h *Handler) InitRouter(mw Middlewares) *chi.Mux {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		SecurityHeaders,
		CORS(mw.AllowedOrigins),
	)

	r.Get("/health", h.healthCheck)
	r.Handle("/metrics", promhttp.Handler())
	if mw.Files != nil {
		r.Get("/files/{file}", mw.Files)
	}

	// Rendering is synchronous and can take a while on long bodies.
	use(r, middleware.Timeout(60*time.Second), mw.RateLimit, mw.OptionalAuth).
		Post("/api/generate-pdf", h.generatePDF)

	r.Group(func(r chi.Router) {
		if mw.Auth != nil {
			r.Use(mw.Auth)
		}

		if mw.WebSocket != nil {
			r.Get("/ws", mw.WebSocket)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Route("/notices", func(r chi.Router) {
				r.Get("/", h.listNotices)
				r.Get("/{id}", h.getNotice)
				r.Get("/{id}/download", h.downloadNotice)
				r.Post("/{id}/resend", h.resendNotice)
			})

			r.Route("/export", func(r chi.Router) {
				r.Get("/", h.listExports)
				r.Get("/{export_id}", h.getExport)
				r.Post("/notices", h.exportNotices)
			})
		})
	})

	return r
}

package routers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"interview/internal/api"
	"interview/internal/metrics"
	"interview/internal/middleware"
	"interview/internal/models"
)

const DefaultWSPath = "/ws/interview"

type Options struct {
	AllowedOrigins []string
	WSPath         string
}

func New(interviewHandler *api.InterviewHandler, healthHandler *api.HealthHandler, opts Options) *chi.Mux {
	if opts.WSPath == "" {
		opts.WSPath = DefaultWSPath
	}
	router := chi.NewRouter()

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	router.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer, metrics.Middleware)

	HealthRoutes(router, healthHandler)
	InterviewRoutes(router, interviewHandler, opts.WSPath)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	return router
}

func HealthRoutes(router *chi.Mux, healthHandler *api.HealthHandler) {
	router.Get("/healthz", healthHandler.HealthzHandler)
	router.Get("/readyz", healthHandler.ReadyzHandler)
}

// InterviewRoutes registers the live socket and its HTTP companions. Only the
// HTTP endpoints carry a request timeout.
func InterviewRoutes(router *chi.Mux, h *api.InterviewHandler, wsPath string) {
	router.Get(wsPath, h.InterviewWS)

	router.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(60 * time.Second))
		r.Post("/api/v1/interview/events", h.PollEvent)
		r.Get("/api/v1/interview/transcript", h.GetTranscript)
		r.With(middleware.ValidateRequest[*models.StartInterviewRequest]()).Post("/api/v1/interviews/{interviewId}/start", h.StartInterview)
	})
}

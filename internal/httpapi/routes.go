package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/party-queue/internal/hub"
	"github.com/DoyleJ11/party-queue/internal/ws"
)

func SetupRoutes(h *hub.Hub, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, log))

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", CreateSession(h, log))
		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", GetSession(h, log))
			r.Get("/preview", GetPreview(h, log))
			r.Post("/moves", PostMove(h, log))
			r.Get("/ingestion", GetIngestion(h, log))
			r.Put("/ingestion", PutIngestion(h, log))
		})
	})
	return r
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/docmentor/backend/internal/handler/chat"
	"github.com/zhouzirui/docmentor/backend/internal/handler/library"
	"github.com/zhouzirui/docmentor/backend/internal/handler/speech"
	"github.com/zhouzirui/docmentor/backend/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/docmentor/backend/internal/middleware"
	libraryModel "github.com/zhouzirui/docmentor/backend/internal/model/library"
	chatService "github.com/zhouzirui/docmentor/backend/internal/service/chat"
	intakeService "github.com/zhouzirui/docmentor/backend/internal/service/intake"
	speechService "github.com/zhouzirui/docmentor/backend/internal/service/speech"
	"github.com/zhouzirui/docmentor/backend/pkg/utils"
)

// Services bundles what the HTTP layer needs.
type Services struct {
	Library        libraryModel.Store
	Chat           *chatService.Service
	Describer      chat.Describer
	Intake         *intakeService.Service
	Speech         *speechService.Service
	MaxUploadBytes int64
}

// NewRouter wires HTTP routes to core services.
func NewRouter(svc Services) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	libraryHandler := library.New(svc.Library)
	chatHandler := chat.New(svc.Chat, svc.Library, svc.Describer, svc.Intake, svc.MaxUploadBytes)
	streamHandler := stream.New(svc.Chat, svc.Intake)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		libraryHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)

		if svc.Speech != nil {
			speech.New(svc.Speech).RegisterRoutes(api)
			speech.NewWebSocketHandler(svc.Speech, svc.Chat, svc.Intake).RegisterWebSocketRoutes(api)
		} else {
			api.Get("/ws/{sessionID}", func(w http.ResponseWriter, _ *http.Request) {
				utils.RespondError(w, http.StatusNotImplemented, "websocket not available")
			})
		}
	})

	return r
}

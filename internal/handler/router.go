package handler

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/digi-assistant/digi/backend/internal/config"
	"github.com/digi-assistant/digi/backend/internal/handler/chat"
	"github.com/digi-assistant/digi/backend/internal/handler/persona"
	"github.com/digi-assistant/digi/backend/internal/handler/web"
	middlewarePkg "github.com/digi-assistant/digi/backend/internal/middleware"
	personaModel "github.com/digi-assistant/digi/backend/internal/model/persona"
	chatService "github.com/digi-assistant/digi/backend/internal/service/chat"
	"github.com/digi-assistant/digi/backend/internal/service/upload"
)

// Deps groups what the router needs to build its handlers.
type Deps struct {
	Web     config.WebConfig
	UI      fs.FS
	Persona personaModel.Persona
	Chat    *chatService.Service
	Uploads *upload.Store
	Logger  *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.Web.AllowedOrigins))

	chatHandler := chat.New(deps.Chat, deps.Uploads, deps.Logger)
	personaHandler := persona.New(deps.Persona)
	webHandler := web.New(deps.Web.StaticDir, deps.UI, deps.Logger)

	// Registered first so the /api sub-router inherits the not-found handler.
	webHandler.RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		personaHandler.RegisterRoutes(api)
	})

	return r
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/game-friend/backend/internal/handler/catalog"
	"github.com/zhouzirui/game-friend/backend/internal/handler/live"
	sessionHandler "github.com/zhouzirui/game-friend/backend/internal/handler/session"
	speechHandler "github.com/zhouzirui/game-friend/backend/internal/handler/speech"
	middlewarePkg "github.com/zhouzirui/game-friend/backend/internal/middleware"
	"github.com/zhouzirui/game-friend/backend/internal/model/game"
	"github.com/zhouzirui/game-friend/backend/internal/model/persona"
	sessionService "github.com/zhouzirui/game-friend/backend/internal/service/session"
)

// Dependencies 路由所需的服务集合，Live 与 Speech 可为空。
type Dependencies struct {
	Games    game.Store
	Personas persona.Store
	Sessions *sessionService.Manager
	Live     *live.Handler
	Speech   *speechHandler.Handler
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	catalogHandler := catalog.New(deps.Games, deps.Personas)
	sessions := sessionHandler.New(deps.Sessions)

	r.Route("/api", func(api chi.Router) {
		catalogHandler.RegisterRoutes(api)
		sessions.RegisterRoutes(api)

		if deps.Live != nil {
			deps.Live.RegisterRoutes(api)
		}
		if deps.Speech != nil {
			deps.Speech.RegisterRoutes(api)
		}
	})

	return r
}

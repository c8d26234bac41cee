package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/game-friend/backend/internal/model/game"
	"github.com/zhouzirui/game-friend/backend/internal/model/persona"
	"github.com/zhouzirui/game-friend/backend/pkg/utils"
)

// Handler 游戏与角色目录的HTTP处理器
type Handler struct {
	games    game.Store
	personas persona.Store
}

// New 创建目录处理器
func New(games game.Store, personas persona.Store) *Handler {
	return &Handler{
		games:    games,
		personas: personas,
	}
}

// RegisterRoutes 注册目录相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/games", h.handleListGames)
	r.Get("/games/{gameID}", h.handleGetGame)
	r.Get("/personas", h.handleListPersonas)
}

func (h *Handler) handleListGames(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.games.List())
}

func (h *Handler) handleGetGame(w http.ResponseWriter, r *http.Request) {
	g, ok := h.games.FindByID(chi.URLParam(r, "gameID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "game not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, g)
}

// handleListPersonas 列出所有persona
func (h *Handler) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.personas.List())
}

package api

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ericogr/chimera-arena/internal/broadcast"
	"github.com/ericogr/chimera-arena/internal/constants"
	"github.com/ericogr/chimera-arena/internal/game"
	"github.com/ericogr/chimera-arena/internal/service"
)

// CardLister exposes the card catalog to clients.
type CardLister interface {
	Cards() []game.CardDefinition
}

// GameHandler groups all match-related HTTP handlers.
type GameHandler struct {
	svc      *service.Service
	hub      *broadcast.Hub
	cards    CardLister
	upgrader websocket.Upgrader
}

// NewGameHandler creates a GameHandler. Websocket upgrades are limited to
// allowedOrigins; an empty list accepts any origin.
func NewGameHandler(svc *service.Service, hub *broadcast.Hub, cards CardLister, allowedOrigins []string) *GameHandler {
	return &GameHandler{
		svc:      svc,
		hub:      hub,
		cards:    cards,
		upgrader: broadcast.NewUpgrader(allowedOrigins),
	}
}

// Register mounts the routes on r.
func (h *GameHandler) Register(r *gin.Engine) {
	r.GET(constants.RouteHealth, Health)

	apiRoutes := r.Group(constants.RouteAPIPrefix)
	{
		apiRoutes.GET(constants.RouteVersion, Version)
		apiRoutes.GET(constants.RouteCards, h.ListCards)

		// Everything below needs the caller identity from the outer layer.
		protected := apiRoutes.Group("")
		protected.Use(PlayerRequired())

		protected.POST(constants.RouteMatches, h.CreateMatch)
		protected.GET(constants.RouteMatchByID, h.GetMatch)
		protected.POST(constants.RouteMatchActions, h.SubmitAction)
		protected.POST(constants.RouteMatchEnd, h.EndMatch)
		protected.GET(constants.RouteMatchWS, h.Subscribe)
	}
}

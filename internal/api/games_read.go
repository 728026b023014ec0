package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ericogr/chimera-arena/internal/constants"
	"github.com/ericogr/chimera-arena/internal/logging"
	"github.com/ericogr/chimera-arena/internal/projection"
)

// ListCards returns the card catalog.
func (h *GameHandler) ListCards(c *gin.Context) {
	c.JSON(http.StatusOK, h.cards.Cards())
}

// GetMatch returns the match as seen by the caller. Non participants get
// the spectator view.
func (h *GameHandler) GetMatch(c *gin.Context) {
	g, err := h.svc.GetState(c.Request.Context(), c.Param(constants.ParamMatchID))
	if err != nil {
		respondError(c, err, constants.ErrFailedLoadMatch)
		return
	}
	c.Header(constants.CacheControlHeader, constants.CacheControlNoCache)
	c.JSON(http.StatusOK, projection.ForPlayer(g, playerID(c)))
}

// Subscribe upgrades to a websocket that receives the caller's view after
// every committed change.
func (h *GameHandler) Subscribe(c *gin.Context) {
	matchID := c.Param(constants.ParamMatchID)
	g, err := h.svc.GetState(c.Request.Context(), matchID)
	if err != nil {
		respondError(c, err, constants.ErrFailedLoadMatch)
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already wrote the response
		logging.Warn(constants.ErrWebsocketUpgrade, logging.Fields{
			constants.LogFieldMatchID: matchID,
			"error":                   err.Error(),
		})
		return
	}
	h.hub.Serve(matchID, playerID(c), conn, g)
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ericogr/chimera-arena/internal/constants"
	"github.com/ericogr/chimera-arena/internal/projection"
	"github.com/ericogr/chimera-arena/internal/service"
)

// SubmitAction applies an attack, endTurn or getState action for the
// caller and returns the resulting view.
func (h *GameHandler) SubmitAction(c *gin.Context) {
	var req service.Action
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest, constants.JSONKeyDetails: err.Error()})
		return
	}
	me := playerID(c)
	g, err := h.svc.SubmitAction(c.Request.Context(), c.Param(constants.ParamMatchID), me, req)
	if err != nil {
		respondError(c, err, constants.ErrFailedStoreAction)
		return
	}
	c.JSON(http.StatusOK, projection.ForPlayer(g, me))
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ericogr/chimera-arena/internal/constants"
	"github.com/ericogr/chimera-arena/internal/projection"
	"github.com/ericogr/chimera-arena/internal/service"
)

type CreateMatchRequest struct {
	Opponent         string   `json:"opponent" binding:"required"`
	Mode             string   `json:"mode"`
	Cards            []string `json:"cards" binding:"required,min=1"`
	OpponentCards    []string `json:"opponent_cards" binding:"required,min=1"`
	Player1GoesFirst *bool    `json:"player1_goes_first"`
}

// CreateMatch starts a match between the caller (player 1) and the named
// opponent.
func (h *GameHandler) CreateMatch(c *gin.Context) {
	var req CreateMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest, constants.JSONKeyDetails: err.Error()})
		return
	}
	me := playerID(c)
	g, err := h.svc.CreateMatch(c.Request.Context(), service.NewMatch{
		Player1ID:        me,
		Player2ID:        req.Opponent,
		Mode:             req.Mode,
		Player1Cards:     req.Cards,
		Player2Cards:     req.OpponentCards,
		Player1GoesFirst: req.Player1GoesFirst,
	})
	if err != nil {
		respondError(c, err, constants.ErrFailedCreateMatch)
		return
	}
	c.JSON(http.StatusCreated, projection.ForPlayer(g, me))
}

// EndMatch ends the match as a draw at the caller's request.
func (h *GameHandler) EndMatch(c *gin.Context) {
	me := playerID(c)
	g, err := h.svc.EndMatch(c.Request.Context(), c.Param(constants.ParamMatchID), me)
	if err != nil {
		respondError(c, err, constants.ErrFailedEndMatch)
		return
	}
	c.JSON(http.StatusOK, projection.ForPlayer(g, me))
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ericogr/chimera-arena/internal/constants"
	"github.com/ericogr/chimera-arena/internal/engine"
	"github.com/ericogr/chimera-arena/internal/logging"
	"github.com/ericogr/chimera-arena/internal/service"
)

// respondError maps a service error to a status code and JSON body.
// Unexpected errors are logged and reported with fallback.
func respondError(c *gin.Context, err error, fallback string) {
	status, msg := http.StatusInternalServerError, fallback
	details := ""
	switch {
	case errors.Is(err, service.ErrMatchNotFound):
		status, msg = http.StatusNotFound, constants.ErrMatchNotFound
	case errors.Is(err, service.ErrPlayerNotInMatch):
		status, msg = http.StatusForbidden, constants.ErrPlayerNotInMatch
	case errors.Is(err, service.ErrInvalidAction),
		errors.Is(err, service.ErrInvalidTarget),
		errors.Is(err, service.ErrInvalidMatch):
		status, msg, details = http.StatusBadRequest, constants.ErrInvalidRequest, err.Error()
	case errors.Is(err, service.ErrQueueFull):
		status, msg = http.StatusTooManyRequests, constants.ErrTooManyActions
	case errors.Is(err, service.ErrRetriesExhausted):
		status, msg = http.StatusConflict, constants.ErrStateUpdatedByOther
	case errors.Is(err, service.ErrMatchCorrupted):
		status, msg = http.StatusConflict, constants.ErrMatchUnavailable
	case errors.Is(err, service.ErrNotYourTurn),
		errors.Is(err, service.ErrTargetDefeated),
		errors.Is(err, service.ErrNotInteractive),
		errors.Is(err, service.ErrMatchCompleted),
		errors.Is(err, engine.ErrNotPlaying),
		errors.Is(err, engine.ErrNotYourTurn),
		errors.Is(err, engine.ErrMatchOver):
		status, msg = http.StatusConflict, err.Error()
	default:
		logging.Error(fallback, err, logging.Fields{
			constants.LogFieldMatchID: c.Param(constants.ParamMatchID),
			constants.LogFieldPath:    c.FullPath(),
		})
	}
	body := gin.H{constants.JSONKeyError: msg}
	if details != "" {
		body[constants.JSONKeyDetails] = details
	}
	c.JSON(status, body)
}

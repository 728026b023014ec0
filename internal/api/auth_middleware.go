package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ericogr/chimera-arena/internal/constants"
)

// PlayerRequired reads the caller identity set by the authenticating
// proxy and injects it into the context.
func PlayerRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(constants.HeaderPlayerID))
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{constants.JSONKeyError: constants.ErrPlayerIDRequired})
			return
		}
		c.Set(constants.ContextKeyPlayerID, id)
		c.Next()
	}
}

func playerID(c *gin.Context) string {
	return c.GetString(constants.ContextKeyPlayerID)
}

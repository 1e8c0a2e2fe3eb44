// Package api holds the HTTP handlers. Each handler struct carries the
// repositories and collaborators it needs plus a logger; main.go wires
// them onto the router.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rgayle/waterwatch/internal/apperr"
)

// respondError translates a taxonomy error into its HTTP status. Client
// errors carry their message; anything unclassified is logged and hidden
// behind a generic 500 so internals never leak to callers.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("unhandled error",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	if status == http.StatusServiceUnavailable {
		logger.Warn("dependency unavailable",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// notFound is the uniform response for rows that are absent or outside
// the caller's scope. The two cases are indistinguishable on purpose.
func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}

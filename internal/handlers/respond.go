// doc-flow/internal/handlers/respond.go
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/colaisr/doc-flow/internal/apperr"
)

// respondError maps the service error taxonomy onto HTTP. Anything outside the
// taxonomy is an internal error and its details stay out of the response.
func respondError(c *gin.Context, err error) {
	switch {
	case apperr.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperr.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperr.IsExpired(err):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	default:
		slog.Error("Internal error", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func currentUserID(c *gin.Context) uint {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

func currentOrgID(c *gin.Context) uint {
	if v, ok := c.Get("org_id"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

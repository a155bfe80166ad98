// doc-flow/internal/routes/signing_routes.go
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/colaisr/doc-flow/internal/handlers"
)

// RegisterSigningRoutes registers the token-based public signing endpoints.
// No session middleware here: the token is the whole credential.
func RegisterSigningRoutes(r *gin.Engine) {
	sign := r.Group("/sign/:token")
	{
		sign.GET("", handlers.SigningPageHandler)
		sign.GET("/validate", handlers.ValidateLinkHandler)
		sign.POST("", handlers.PublicSignHandler)
		sign.POST("/finish", handlers.PublicFinishHandler)
	}
}

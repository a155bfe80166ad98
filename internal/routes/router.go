// doc-flow/internal/routes/router.go
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/colaisr/doc-flow/internal/middleware"
)

// SetupRoutes wires the whole route tree: public auth and signing first, then
// everything that needs a session.
func SetupRoutes(r *gin.Engine) {
	RegisterAuthRoutes(r)
	RegisterSigningRoutes(r)

	authRequired := r.Group("/")
	authRequired.Use(middleware.AuthMiddleware())
	{
		RegisterAPIRoutes(authRequired)
	}
}

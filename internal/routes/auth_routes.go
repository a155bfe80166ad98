// doc-flow/internal/routes/auth_routes.go
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/colaisr/doc-flow/internal/handlers"
)

// RegisterAuthRoutes registers the public authentication endpoints.
func RegisterAuthRoutes(r *gin.Engine) {
	r.POST("/login", handlers.LoginHandler)
	r.POST("/register", handlers.RegisterHandler)
	r.GET("/logout", handlers.LogoutHandler)
}

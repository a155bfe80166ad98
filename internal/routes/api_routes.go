// doc-flow/internal/routes/api_routes.go
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/colaisr/doc-flow/internal/handlers"
)

// RegisterAPIRoutes registers the authenticated API.
func RegisterAPIRoutes(rg *gin.RouterGroup) {
	api := rg.Group("/api")
	{
		api.GET("/stages", handlers.ListStagesHandler)

		leads := api.Group("/leads")
		{
			leads.POST("", handlers.CreateLeadHandler)
			leads.GET("", handlers.ListLeadsHandler)
			leads.GET("/export", handlers.ExportLeadsHandler)
			leads.GET("/:id", handlers.GetLeadHandler)
			leads.PUT("/:id", handlers.UpdateLeadHandler)
			leads.DELETE("/:id", handlers.DeleteLeadHandler)
			leads.PUT("/:id/stage", handlers.SetLeadStageHandler)
			leads.GET("/:id/stage-history", handlers.LeadStageHistoryHandler)
		}

		templates := api.Group("/templates")
		{
			templates.POST("", handlers.CreateTemplateHandler)
			templates.GET("", handlers.ListTemplatesHandler)
			templates.POST("/validate", handlers.ValidateTemplateHandler)
			templates.GET("/:id", handlers.GetTemplateHandler)
			templates.PUT("/:id", handlers.UpdateTemplateHandler)
			templates.DELETE("/:id", handlers.DeleteTemplateHandler)
		}

		documents := api.Group("/documents")
		{
			documents.POST("", handlers.CreateDocumentHandler)
			documents.GET("", handlers.ListDocumentsHandler)
			documents.POST("/upload", handlers.UploadDocumentHandler)
			documents.GET("/:id", handlers.GetDocumentHandler)
			documents.DELETE("/:id", handlers.DeleteDocumentHandler)
			documents.PUT("/:id/status", handlers.UpdateDocumentStatusHandler)
			documents.POST("/:id/signing-links", handlers.IssueSigningLinkHandler)
			documents.GET("/:id/signing-links", handlers.ListSigningLinksHandler)
			documents.POST("/:id/sign", handlers.InternalSignHandler)
			documents.POST("/:id/finish", handlers.InternalFinishHandler)
		}
	}

	rg.GET("/ws/events", handlers.EventsHandler)
}

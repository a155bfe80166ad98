// doc-flow/internal/handlers/signing_handler.go
//
// Public signing endpoints. Everything here is reached through a token, never
// through a session, so no handler trusts anything beyond the token itself.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/colaisr/doc-flow/config"
	"github.com/colaisr/doc-flow/internal/services"
)

// SigningPageHandler returns the data the signing page renders: document
// content, blocks and their progress for the link's role.
func SigningPageHandler(c *gin.Context) {
	page, err := services.SigningPageForToken(config.DB, c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ValidateLinkHandler is the lightweight pre-check the frontend polls before
// showing the form.
func ValidateLinkHandler(c *gin.Context) {
	link, err := services.GetSigningLinkByToken(config.DB, c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	valid, reason := services.ValidateSigningLink(link)
	c.JSON(http.StatusOK, gin.H{"valid": valid, "reason": reason})
}

type publicSignInput struct {
	BlockID       string `json:"block_id"`
	SignerName    string `json:"signer_name" binding:"required"`
	SignerEmail   string `json:"signer_email"`
	SignatureData string `json:"signature_data" binding:"required"`
}

func PublicSignHandler(c *gin.Context) {
	var input publicSignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := services.SignViaLink(config.DB, c.Param("token"), services.SignatureSubmission{
		BlockID:       input.BlockID,
		SignerName:    input.SignerName,
		SignerEmail:   input.SignerEmail,
		SignatureData: input.SignatureData,
		IPAddress:     c.ClientIP(),
		UserAgent:     c.Request.UserAgent(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if result.Completed {
		GlobalHub.BroadcastDocumentEvent(result.Document.OrganizationID, result.Document)
	}
	c.JSON(http.StatusOK, result)
}

func PublicFinishHandler(c *gin.Context) {
	result, err := services.FinishViaLink(config.DB, c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	GlobalHub.BroadcastDocumentEvent(result.Document.OrganizationID, result.Document)
	c.JSON(http.StatusOK, result)
}

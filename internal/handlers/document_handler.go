// doc-flow/internal/handlers/document_handler.go
package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/colaisr/doc-flow/config"
	"github.com/colaisr/doc-flow/internal/services"
	"github.com/colaisr/doc-flow/models"
)

const maxUploadBytes = 20 << 20

type createDocumentInput struct {
	LeadID       uint   `json:"lead_id" binding:"required"`
	TemplateID   uint   `json:"template_id" binding:"required"`
	Title        string `json:"title"`
	ContractType string `json:"contract_type"`
}

func CreateDocumentHandler(c *gin.Context) {
	var input createDocumentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := services.CreateDocumentFromTemplate(config.DB, currentOrgID(c),
		input.LeadID, input.TemplateID, input.Title, input.ContractType, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func ListDocumentsHandler(c *gin.Context) {
	query := config.DB.Model(&models.Document{}).Where("organization_id = ?", currentOrgID(c))
	if leadID, err := strconv.Atoi(c.Query("lead_id")); err == nil && leadID > 0 {
		query = query.Where("lead_id = ?", leadID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(c, err)
		return
	}
	var documents []models.Document
	if err := query.Scopes(Paginate(c)).Order("id DESC").Find(&documents).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, documents, total))
}

type documentDetail struct {
	Document   models.Document            `json:"document"`
	Signatures []models.DocumentSignature `json:"signatures"`
	Links      []models.SigningLink       `json:"signing_links"`
	Blocks     []services.BlockStatus     `json:"block_statuses,omitempty"`
}

// GetDocumentHandler assembles the document with its signatures, active links
// and per-block progress; the three loads run concurrently.
func GetDocumentHandler(c *gin.Context) {
	doc, ok := findDocument(c)
	if !ok {
		return
	}

	detail := documentDetail{Document: doc}
	var g errgroup.Group

	g.Go(func() error {
		return config.DB.Where("document_id = ?", doc.ID).
			Order("signed_at ASC").Find(&detail.Signatures).Error
	})
	g.Go(func() error {
		links, err := services.ActiveSigningLinks(config.DB, doc.ID, "")
		if err == nil {
			detail.Links = links
		}
		return err
	})
	if doc.SignatureBlocks != "" {
		g.Go(func() error {
			blocks, err := services.BlockStatuses(config.DB, doc.ID, models.SignerTypeClient, doc.SignatureBlocks)
			if err == nil {
				detail.Blocks = blocks
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func DeleteDocumentHandler(c *gin.Context) {
	doc, ok := findDocument(c)
	if !ok {
		return
	}
	if doc.Status == models.DocumentStatusSigned {
		c.JSON(http.StatusConflict, gin.H{"error": "a signed document cannot be deleted"})
		return
	}
	if err := config.DB.Delete(&doc).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// UpdateDocumentStatusHandler covers the manual ready/sent transitions.
func UpdateDocumentStatusHandler(c *gin.Context) {
	doc, ok := findDocument(c)
	if !ok {
		return
	}
	var input struct {
		Status models.DocumentStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := services.UpdateDocumentStatus(config.DB, currentOrgID(c), doc.ID, input.Status, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	GlobalHub.BroadcastDocumentEvent(currentOrgID(c), updated)
	c.JSON(http.StatusOK, updated)
}

type issueLinkInput struct {
	SignerType    string `json:"signer_type" binding:"required"`
	IntendedEmail string `json:"intended_email"`
	ExpiresInDays *int   `json:"expires_in_days"`
}

func IssueSigningLinkHandler(c *gin.Context) {
	doc, ok := findDocument(c)
	if !ok {
		return
	}
	var input issueLinkInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	link, url, err := services.IssueSigningLink(config.DB, currentOrgID(c), doc.ID,
		input.SignerType, currentUserID(c), input.IntendedEmail, input.ExpiresInDays,
		config.App.FrontendBaseURL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"link": link, "url": url})
}

func ListSigningLinksHandler(c *gin.Context) {
	doc, ok := findDocument(c)
	if !ok {
		return
	}
	links, err := services.ActiveSigningLinks(config.DB, doc.ID, c.Query("signer_type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, links)
}

type internalSignInput struct {
	BlockID       string `json:"block_id"`
	SignerName    string `json:"signer_name" binding:"required"`
	SignatureData string `json:"signature_data" binding:"required"`
}

func InternalSignHandler(c *gin.Context) {
	doc, ok := findDocument(c)
	if !ok {
		return
	}
	var input internalSignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := services.SubmitInternalSignature(config.DB, currentOrgID(c), doc.ID,
		services.SignatureSubmission{
			BlockID:       input.BlockID,
			SignerName:    input.SignerName,
			SignatureData: input.SignatureData,
			IPAddress:     c.ClientIP(),
			UserAgent:     c.Request.UserAgent(),
		}, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if result.Completed {
		GlobalHub.BroadcastDocumentEvent(currentOrgID(c), result.Document)
	}
	c.JSON(http.StatusOK, result)
}

func InternalFinishHandler(c *gin.Context) {
	doc, ok := findDocument(c)
	if !ok {
		return
	}
	result, err := services.FinishDocumentInternal(config.DB, currentOrgID(c), doc.ID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	GlobalHub.BroadcastDocumentEvent(currentOrgID(c), result.Document)
	c.JSON(http.StatusOK, result)
}

// UploadDocumentHandler takes a multipart PDF for a lead.
func UploadDocumentHandler(c *gin.Context) {
	leadID, err := strconv.Atoi(c.PostForm("lead_id"))
	if err != nil || leadID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lead_id is required"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is too large"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, err)
		return
	}

	doc, err := services.UploadDocument(config.DB, currentOrgID(c), uint(leadID),
		c.PostForm("document_type"), c.PostForm("title"), data, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	GlobalHub.BroadcastDocumentEvent(currentOrgID(c), doc)
	c.JSON(http.StatusCreated, doc)
}

func findDocument(c *gin.Context) (models.Document, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return models.Document{}, false
	}
	var doc models.Document
	if err := config.DB.Where("id = ? AND organization_id = ?", id, currentOrgID(c)).
		First(&doc).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return models.Document{}, false
	}
	return doc, true
}

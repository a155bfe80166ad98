// doc-flow/internal/handlers/template_handler.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/colaisr/doc-flow/config"
	"github.com/colaisr/doc-flow/internal/services"
	"github.com/colaisr/doc-flow/models"
)

type templateInput struct {
	Name            string `json:"name" binding:"required"`
	Description     string `json:"description"`
	Content         string `json:"content" binding:"required"`
	SignatureBlocks string `json:"signature_blocks"`
}

// CreateTemplateHandler validates the block layout at write time so a broken
// layout can never reach document generation.
func CreateTemplateHandler(c *gin.Context) {
	var input templateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := services.ValidateSignatureBlocks(input.SignatureBlocks); err != nil {
		respondError(c, err)
		return
	}

	template := models.DocumentTemplate{
		OrganizationID:  currentOrgID(c),
		Name:            input.Name,
		Description:     input.Description,
		Content:         input.Content,
		SignatureBlocks: input.SignatureBlocks,
		CreatedByUserID: currentUserID(c),
		IsActive:        true,
	}
	if err := config.DB.Create(&template).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, template)
}

func ListTemplatesHandler(c *gin.Context) {
	query := config.DB.Model(&models.DocumentTemplate{}).
		Where("organization_id = ? AND is_active = ?", currentOrgID(c), true)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(c, err)
		return
	}
	var templates []models.DocumentTemplate
	if err := query.Scopes(Paginate(c)).Order("name ASC").Find(&templates).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, templates, total))
}

func GetTemplateHandler(c *gin.Context) {
	template, ok := findTemplate(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, template)
}

// ValidateTemplateHandler reports which merge fields the content references
// and which cannot resolve, without saving anything.
func ValidateTemplateHandler(c *gin.Context) {
	var input struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, services.ValidateMergeFields(input.Content))
}

func UpdateTemplateHandler(c *gin.Context) {
	template, ok := findTemplate(c)
	if !ok {
		return
	}
	var input templateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := services.ValidateSignatureBlocks(input.SignatureBlocks); err != nil {
		respondError(c, err)
		return
	}

	updates := map[string]interface{}{
		"name":             input.Name,
		"description":      input.Description,
		"content":          input.Content,
		"signature_blocks": input.SignatureBlocks,
	}
	if err := config.DB.Model(&template).Updates(updates).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

// DeleteTemplateHandler deactivates instead of deleting, existing documents
// keep their template reference.
func DeleteTemplateHandler(c *gin.Context) {
	template, ok := findTemplate(c)
	if !ok {
		return
	}
	if err := config.DB.Model(&template).Update("is_active", false).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

func findTemplate(c *gin.Context) (models.DocumentTemplate, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template id"})
		return models.DocumentTemplate{}, false
	}
	var template models.DocumentTemplate
	if err := config.DB.Where("id = ? AND organization_id = ? AND is_active = ?", id, currentOrgID(c), true).
		First(&template).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
		return models.DocumentTemplate{}, false
	}
	return template, true
}

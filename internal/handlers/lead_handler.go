// doc-flow/internal/handlers/lead_handler.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/colaisr/doc-flow/config"
	"github.com/colaisr/doc-flow/internal/services"
	"github.com/colaisr/doc-flow/models"
)

// CreateLeadHandler creates a lead at the default stage with derived fields
// computed before the insert.
func CreateLeadHandler(c *gin.Context) {
	var lead models.Lead
	if err := c.ShouldBindJSON(&lead); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if lead.FullName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "full_name is required"})
		return
	}

	lead.ID = 0
	lead.OrganizationID = currentOrgID(c)
	lead.CreatedByUserID = currentUserID(c)
	if lead.Source == "" {
		lead.Source = "manual"
	}

	if lead.StageID == 0 {
		stage, err := services.DefaultStage(config.DB)
		if err != nil {
			respondError(c, err)
			return
		}
		lead.StageID = stage.ID
	}
	if err := services.ApplyDerivedFields(&lead, config.App.DerivedFields); err != nil {
		respondError(c, err)
		return
	}

	if err := config.DB.Create(&lead).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, lead)
}

func ListLeadsHandler(c *gin.Context) {
	query := config.DB.Model(&models.Lead{}).Where("organization_id = ?", currentOrgID(c))
	if stageID, err := strconv.Atoi(c.Query("stage_id")); err == nil && stageID > 0 {
		query = query.Where("stage_id = ?", stageID)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("full_name LIKE ? OR phone LIKE ? OR email LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(c, err)
		return
	}
	var leads []models.Lead
	if err := query.Scopes(Paginate(c)).Preload("Stage").Order("id DESC").Find(&leads).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, leads, total))
}

func GetLeadHandler(c *gin.Context) {
	lead, ok := findLead(c)
	if !ok {
		return
	}
	if err := config.DB.Preload("Stage").Preload("Documents").
		First(&lead, lead.ID).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lead)
}

func UpdateLeadHandler(c *gin.Context) {
	lead, ok := findLead(c)
	if !ok {
		return
	}
	var input models.Lead
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// identity and ownership never change through this endpoint
	input.ID = lead.ID
	input.OrganizationID = lead.OrganizationID
	input.CreatedByUserID = lead.CreatedByUserID
	input.StageID = lead.StageID
	input.CreatedAt = lead.CreatedAt

	if err := services.ApplyDerivedFields(&input, config.App.DerivedFields); err != nil {
		respondError(c, err)
		return
	}
	if err := config.DB.Save(&input).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, input)
}

func DeleteLeadHandler(c *gin.Context) {
	lead, ok := findLead(c)
	if !ok {
		return
	}
	if err := config.DB.Delete(&lead).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// SetLeadStageHandler is the manual stage move, history included, no
// monotonic restriction.
func SetLeadStageHandler(c *gin.Context) {
	lead, ok := findLead(c)
	if !ok {
		return
	}
	var input struct {
		StageID uint `json:"stage_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := services.SetLeadStage(config.DB, lead.ID, input.StageID, currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stage updated"})
}

func LeadStageHistoryHandler(c *gin.Context) {
	lead, ok := findLead(c)
	if !ok {
		return
	}
	var history []models.LeadStageHistory
	if err := config.DB.Where("lead_id = ?", lead.ID).Preload("Stage").
		Order("changed_at ASC").Find(&history).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// ExportLeadsHandler streams the organization's leads as an XLSX workbook.
func ExportLeadsHandler(c *gin.Context) {
	var leads []models.Lead
	if err := config.DB.Where("organization_id = ?", currentOrgID(c)).
		Preload("Stage").Order("id ASC").Find(&leads).Error; err != nil {
		respondError(c, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := []interface{}{"ID", "Full Name", "Phone", "Email", "Stage", "Transaction Amount", "Legal Fee", "Signing Date", "Created At"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		respondError(c, err)
		return
	}
	for i, lead := range leads {
		stageName := ""
		if lead.Stage != nil {
			stageName = lead.Stage.Name
		}
		signing := ""
		if lead.SigningDate != nil {
			signing = lead.SigningDate.Format("2006-01-02")
		}
		row := []interface{}{
			lead.ID, lead.FullName, lead.Phone, lead.Email, stageName,
			lead.TransactionAmount, lead.LegalFee, signing,
			lead.CreatedAt.Format("2006-01-02"),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			respondError(c, err)
			return
		}
	}

	fileName := fmt.Sprintf("leads-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		respondError(c, err)
	}
}

func findLead(c *gin.Context) (models.Lead, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lead id"})
		return models.Lead{}, false
	}
	var lead models.Lead
	if err := config.DB.Where("id = ? AND organization_id = ?", id, currentOrgID(c)).
		First(&lead).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
		return models.Lead{}, false
	}
	return lead, true
}

// doc-flow/internal/services/stages.go
package services

import (
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/colaisr/doc-flow/internal/apperr"
	"github.com/colaisr/doc-flow/models"
)

// StageEvent is the stable identity of a pipeline milestone. Events map to
// stage display names through configuration; business logic never mentions a
// display name directly.
type StageEvent string

const (
	StageEventBuyerContractReady  StageEvent = "buyer_contract_ready"
	StageEventBuyerSigned         StageEvent = "buyer_signed"
	StageEventSellerContractReady StageEvent = "seller_contract_ready"
	StageEventSellerSigned        StageEvent = "seller_signed"
	StageEventLawyerContractReady StageEvent = "lawyer_contract_ready"
	StageEventLawyerSigned        StageEvent = "lawyer_signed"
	StageEventBuyerDocsVerified   StageEvent = "buyer_docs_verified"
	StageEventSellerDocsVerified  StageEvent = "seller_docs_verified"
)

// The default mapping carries the pipeline's Hebrew stage names. Deployments
// override entries via the stage_names config section; the event keys are
// what stays stable.
var defaultStageNames = map[StageEvent]string{
	StageEventBuyerContractReady:  "חוזה לקוח מוכן",
	StageEventBuyerSigned:         "חתום על ידי לקוח",
	StageEventSellerContractReady: "חוזה מוכר מוכן",
	StageEventSellerSigned:        "חתום על ידי מוכר",
	StageEventLawyerContractReady: "חוזה עורך דין מוכן",
	StageEventLawyerSigned:        "חתום על ידי עורך דין",
	StageEventBuyerDocsVerified:   "מסמכי לקוח מאומתים",
	StageEventSellerDocsVerified:  "מסמכי מוכר מאומתים",
}

var (
	stageNamesMu sync.RWMutex
	stageNames   = func() map[StageEvent]string {
		m := make(map[StageEvent]string, len(defaultStageNames))
		for k, v := range defaultStageNames {
			m[k] = v
		}
		return m
	}()
)

// SetStageNames overlays configured stage names on the defaults. Called once
// at startup with the stage_names config section.
func SetStageNames(overrides map[string]string) {
	stageNamesMu.Lock()
	defer stageNamesMu.Unlock()
	for event, name := range overrides {
		if name != "" {
			stageNames[StageEvent(event)] = name
		}
	}
}

func StageNameForEvent(event StageEvent) (string, bool) {
	stageNamesMu.RLock()
	defer stageNamesMu.RUnlock()
	name, ok := stageNames[event]
	return name, ok
}

// ContractReadyEvent maps a document's contract type to its "contract ready"
// milestone.
func ContractReadyEvent(contractType string) (StageEvent, bool) {
	switch contractType {
	case models.ContractTypeBuyer:
		return StageEventBuyerContractReady, true
	case models.ContractTypeSeller:
		return StageEventSellerContractReady, true
	case models.ContractTypeLawyer:
		return StageEventLawyerContractReady, true
	}
	return "", false
}

// ContractSignedEvent maps a document's contract type to its "signed"
// milestone.
func ContractSignedEvent(contractType string) (StageEvent, bool) {
	switch contractType {
	case models.ContractTypeBuyer:
		return StageEventBuyerSigned, true
	case models.ContractTypeSeller:
		return StageEventSellerSigned, true
	case models.ContractTypeLawyer:
		return StageEventLawyerSigned, true
	}
	return "", false
}

// DocumentTypeEvent maps an uploaded document's type to the verification
// milestone it marks in the lead's history.
func DocumentTypeEvent(documentType string) (StageEvent, bool) {
	switch documentType {
	case "buyer_verified_docs":
		return StageEventBuyerDocsVerified, true
	case "seller_verified_docs":
		return StageEventSellerDocsVerified, true
	}
	return "", false
}

// AdvanceLeadStage moves a lead forward to the stage mapped from event,
// appending a history entry. The move happens only when the target stage's
// order is strictly greater than the current one, so a slow or duplicate
// signing event can never regress a lead or re-stamp one that has already
// progressed past that point. Returns false (without error) when the lead is
// already at or beyond the target, or when no stage carries the mapped name.
func AdvanceLeadStage(db *gorm.DB, leadID uint, event StageEvent, actorID uint) (bool, error) {
	name, ok := StageNameForEvent(event)
	if !ok {
		return false, nil
	}

	var target models.LeadStage
	if err := db.Where("name = ?", name).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	var lead models.Lead
	if err := db.First(&lead, leadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, apperr.NotFound("lead not found")
		}
		return false, err
	}

	var current models.LeadStage
	if err := db.First(&current, lead.StageID).Error; err == nil {
		if current.SortOrder >= target.SortOrder {
			return false, nil
		}
	}

	if err := db.Model(&models.Lead{}).Where("id = ?", lead.ID).
		Update("stage_id", target.ID).Error; err != nil {
		return false, err
	}
	if err := appendStageHistory(db, lead.ID, target.ID, actorID); err != nil {
		return false, err
	}
	return true, nil
}

// MarkStageReached records that a milestone happened without touching the
// lead's current stage. Used for verification events that can complete out of
// sequence with the primary progression: the audit trail shows the milestone,
// lead.stage_id stays wherever the pipeline put it.
func MarkStageReached(db *gorm.DB, leadID uint, event StageEvent, actorID uint) (bool, error) {
	name, ok := StageNameForEvent(event)
	if !ok {
		return false, nil
	}
	var target models.LeadStage
	if err := db.Where("name = ?", name).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := appendStageHistory(db, leadID, target.ID, actorID); err != nil {
		return false, err
	}
	return true, nil
}

// SetLeadStage is the manual stage edit: it bypasses the monotonic check but
// still records history.
func SetLeadStage(db *gorm.DB, leadID, stageID, actorID uint) error {
	var stage models.LeadStage
	if err := db.First(&stage, stageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("stage not found")
		}
		return err
	}
	res := db.Model(&models.Lead{}).Where("id = ?", leadID).Update("stage_id", stage.ID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("lead not found")
	}
	return appendStageHistory(db, leadID, stage.ID, actorID)
}

func appendStageHistory(db *gorm.DB, leadID, stageID, actorID uint) error {
	entry := models.LeadStageHistory{
		LeadID:          leadID,
		StageID:         stageID,
		ChangedByUserID: actorID,
		ChangedAt:       time.Now().UTC(),
	}
	return db.Create(&entry).Error
}

// DefaultStage returns the entry stage for new leads.
func DefaultStage(db *gorm.DB) (*models.LeadStage, error) {
	var stage models.LeadStage
	if err := db.Where("is_default = ?", true).Order("sort_order ASC").First(&stage).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no default stage configured")
		}
		return nil, err
	}
	return &stage, nil
}

// SeedDefaultStages inserts the pipeline stages when they are missing; used by
// the migrate command and by tests. Orders are spaced out so migrations can
// renumber between them.
func SeedDefaultStages(db *gorm.DB) error {
	stages := []models.LeadStage{
		{Name: "ליד חדש", SortOrder: 10, IsDefault: true, Color: "#2196F3"},
		{Name: "בטיפול", SortOrder: 20, Color: "#00BCD4"},
		{Name: "חוזה לקוח מוכן", SortOrder: 30, Color: "#FFC107"},
		{Name: "חתום על ידי לקוח", SortOrder: 40, Color: "#8BC34A"},
		{Name: "מסמכי לקוח מאומתים", SortOrder: 50, Color: "#4CAF50"},
		{Name: "חוזה מוכר מוכן", SortOrder: 60, Color: "#FFC107"},
		{Name: "חתום על ידי מוכר", SortOrder: 70, Color: "#8BC34A"},
		{Name: "מסמכי מוכר מאומתים", SortOrder: 80, Color: "#4CAF50"},
		{Name: "חוזה עורך דין מוכן", SortOrder: 90, Color: "#FFC107"},
		{Name: "חתום על ידי עורך דין", SortOrder: 100, Color: "#8BC34A"},
		{Name: "הושלם", SortOrder: 110, Color: "#009688"},
		{Name: "עסקה בוטלה", SortOrder: 120, IsArchived: true, Color: "#9E9E9E"},
	}
	for _, stage := range stages {
		var existing models.LeadStage
		err := db.Where("name = ?", stage.Name).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&stage).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

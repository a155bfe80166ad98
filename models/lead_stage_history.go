package models

import "time"

// LeadStageHistory is the append-only audit trail of stage events for a lead.
// Rows are never updated or deleted.
type LeadStageHistory struct {
	ID uint `gorm:"primaryKey" json:"id"`

	LeadID          uint      `gorm:"index;not null" json:"lead_id"`
	StageID         uint      `gorm:"index;not null" json:"stage_id"`
	ChangedByUserID uint      `gorm:"index" json:"changed_by_user_id"`
	ChangedAt       time.Time `gorm:"autoCreateTime" json:"changed_at"`

	Stage *LeadStage `gorm:"foreignKey:StageID" json:"stage,omitempty"`
}

func (LeadStageHistory) TableName() string { return "lead_stage_history" }

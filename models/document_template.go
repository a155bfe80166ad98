package models

import (
	"time"

	"gorm.io/gorm"
)

// DocumentTemplate is an organization-owned HTML body with {{lead.field}}
// merge fields plus an optional JSON signature-block layout. Templates are
// soft-deleted via IsActive so generated documents keep a valid reference.
type DocumentTemplate struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrganizationID  uint   `gorm:"index;not null" json:"organization_id"`
	Name            string `gorm:"not null" json:"name"`
	Description     string `json:"description"`
	Content         string `gorm:"type:text;not null" json:"content"`
	SignatureBlocks string `gorm:"type:text" json:"signature_blocks"`
	CreatedByUserID uint   `gorm:"index;not null" json:"created_by_user_id"`
	IsActive        bool   `gorm:"not null;default:true" json:"is_active"`

	Organization  *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	CreatedByUser *User         `gorm:"foreignKey:CreatedByUserID" json:"created_by_user,omitempty"`
}

func (DocumentTemplate) TableName() string { return "document_templates" }

package models

import (
	"time"

	"gorm.io/gorm"
)

type DocumentStatus string

const (
	DocumentStatusDraft    DocumentStatus = "draft"
	DocumentStatusReady    DocumentStatus = "ready"
	DocumentStatusSent     DocumentStatus = "sent"
	DocumentStatusSigned   DocumentStatus = "signed"
	DocumentStatusUploaded DocumentStatus = "uploaded"
)

// Contract types tag a generated document with the party whose pipeline
// stages it drives. Empty means the document advances nothing.
const (
	ContractTypeBuyer  = "buyer"
	ContractTypeSeller = "seller"
	ContractTypeLawyer = "lawyer"
)

// Document is a generated (from a template) or uploaded artifact for one lead.
// SignatureBlocks is copied from the template at creation and editable
// independently afterwards; the copy, not the template, is authoritative once set.
type Document struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrganizationID uint  `gorm:"index;not null" json:"organization_id"`
	LeadID         uint  `gorm:"index;not null" json:"lead_id"`
	TemplateID     *uint `gorm:"index" json:"template_id"`

	Title           string         `gorm:"not null" json:"title"`
	RenderedContent string         `gorm:"type:text" json:"rendered_content"`
	SignatureBlocks string         `gorm:"type:text" json:"signature_blocks"`
	ContractType    string         `json:"contract_type"`
	DocumentType    string         `json:"document_type"`
	PDFFilePath     string         `gorm:"column:pdf_path" json:"pdf_path"`
	SigningURL      string         `json:"signing_url"`
	Status          DocumentStatus `gorm:"not null;default:'draft'" json:"status"`

	CreatedByUserID uint       `gorm:"index;not null" json:"created_by_user_id"`
	CompletedAt     *time.Time `json:"completed_at"`

	Organization  *Organization       `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Lead          *Lead               `gorm:"foreignKey:LeadID" json:"lead,omitempty"`
	Template      *DocumentTemplate   `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	CreatedByUser *User               `gorm:"foreignKey:CreatedByUserID" json:"created_by_user,omitempty"`
	Signatures    []DocumentSignature `gorm:"foreignKey:DocumentID" json:"signatures,omitempty"`
	SigningLinks  []SigningLink       `gorm:"foreignKey:DocumentID" json:"signing_links,omitempty"`
}

func (Document) TableName() string { return "documents" }

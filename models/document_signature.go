package models

import "time"

// Signer roles. Client signatures arrive through public signing links,
// internal ones through authenticated endpoints.
const (
	SignerTypeClient   = "client"
	SignerTypeInternal = "internal"
)

// DocumentSignature is one signed signature-block instance. BlockID is empty
// for legacy whole-document signatures; keeping it as an empty string instead
// of NULL lets a single composite unique index back both modes, so two
// concurrent submissions for the same slot cannot both commit.
type DocumentSignature struct {
	ID uint `gorm:"primaryKey" json:"id"`

	DocumentID uint   `gorm:"not null;uniqueIndex:idx_document_block_signer" json:"document_id"`
	BlockID    string `gorm:"not null;default:'';uniqueIndex:idx_document_block_signer" json:"block_id"`
	SignerType string `gorm:"not null;uniqueIndex:idx_document_block_signer" json:"signer_type"`

	SignerUserID *uint  `json:"signer_user_id"`
	SignerName   string `gorm:"not null" json:"signer_name"`
	SignerEmail  string `json:"signer_email"`

	SignatureData string `gorm:"type:text;not null" json:"signature_data"`

	SigningToken string `gorm:"index" json:"signing_token,omitempty"`
	IPAddress    string `json:"ip_address,omitempty"`
	UserAgent    string `json:"user_agent,omitempty"`

	SignedAt time.Time `gorm:"autoCreateTime" json:"signed_at"`

	Document *Document `gorm:"foreignKey:DocumentID" json:"document,omitempty"`
}

func (DocumentSignature) TableName() string { return "document_signatures" }

package models

import "time"

// SigningLink is a single-use public token bound to one document and one
// signer role. Once used or expired it can never become valid again.
type SigningLink struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	DocumentID uint   `gorm:"index;not null" json:"document_id"`
	Token      string `gorm:"uniqueIndex;not null" json:"token"`
	SignerType string `gorm:"not null" json:"signer_type"`

	IntendedSignerEmail string     `json:"intended_signer_email"`
	ExpiresAt           *time.Time `json:"expires_at"`
	IsUsed              bool       `gorm:"not null;default:false" json:"is_used"`
	UsedAt              *time.Time `json:"used_at"`

	CreatedByUserID uint `gorm:"not null" json:"created_by_user_id"`

	Document *Document `gorm:"foreignKey:DocumentID" json:"document,omitempty"`
}

func (SigningLink) TableName() string { return "signing_links" }

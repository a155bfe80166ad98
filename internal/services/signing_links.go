// doc-flow/internal/services/signing_links.go
package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/colaisr/doc-flow/internal/apperr"
	"github.com/colaisr/doc-flow/models"
)

const (
	ReasonLinkAlreadyUsed = "already used"
	ReasonLinkExpired     = "expired"
)

// GenerateSigningToken returns a 128-bit random token as 32 hex characters.
// Collisions are practically impossible; the unique index on the token column
// is the backstop for the astronomically unlikely case.
func GenerateSigningToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// CreateSigningLink issues a new single-use link for a document. expiresInDays
// nil means the link never expires by time; zero means it is already expired
// the moment it is checked (useful for revoking a link at issue time in tests
// and tooling).
func CreateSigningLink(db *gorm.DB, documentID uint, signerType string, createdBy uint, intendedEmail string, expiresInDays *int) (*models.SigningLink, error) {
	if signerType != models.SignerTypeClient && signerType != models.SignerTypeInternal {
		return nil, apperr.Validationf("invalid signer type %q, must be %q or %q", signerType, models.SignerTypeClient, models.SignerTypeInternal)
	}

	var document models.Document
	if err := db.First(&document, documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("document not found")
		}
		return nil, err
	}

	token, err := GenerateSigningToken()
	if err != nil {
		return nil, err
	}

	var expiresAt *time.Time
	if expiresInDays != nil {
		t := time.Now().UTC().AddDate(0, 0, *expiresInDays)
		expiresAt = &t
	}

	link := models.SigningLink{
		DocumentID:          documentID,
		Token:               token,
		SignerType:          signerType,
		IntendedSignerEmail: intendedEmail,
		ExpiresAt:           expiresAt,
		IsUsed:              false,
		CreatedByUserID:     createdBy,
	}
	if err := db.Create(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

func GetSigningLinkByToken(db *gorm.DB, token string) (*models.SigningLink, error) {
	var link models.SigningLink
	if err := db.Where("token = ?", token).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("signing link not found")
		}
		return nil, err
	}
	return &link, nil
}

// ValidateSigningLink reports whether a link can still be used. It has no side
// effects; a used or expired link never validates again.
func ValidateSigningLink(link *models.SigningLink) (bool, string) {
	if link.IsUsed {
		return false, ReasonLinkAlreadyUsed
	}
	if link.ExpiresAt != nil && !link.ExpiresAt.After(time.Now().UTC()) {
		return false, ReasonLinkExpired
	}
	return true, ""
}

// ConsumeSigningLink marks a link used and stamps the time. The conditional
// UPDATE is what makes double-use safe under concurrent requests: whichever
// transaction loses the race sees zero rows affected and gets a conflict.
func ConsumeSigningLink(db *gorm.DB, link *models.SigningLink) error {
	now := time.Now().UTC()
	res := db.Model(&models.SigningLink{}).
		Where("id = ? AND is_used = ?", link.ID, false).
		Updates(map[string]interface{}{"is_used": true, "used_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("signing link " + ReasonLinkAlreadyUsed)
	}
	link.IsUsed = true
	link.UsedAt = &now
	return nil
}

// SigningLinkURL composes the public signing URL for a token.
func SigningLinkURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/sign/" + token
}

// ActiveSigningLinks returns the unused, unexpired links for a document,
// optionally filtered by signer type.
func ActiveSigningLinks(db *gorm.DB, documentID uint, signerType string) ([]models.SigningLink, error) {
	query := db.Where("document_id = ? AND is_used = ?", documentID, false)
	if signerType != "" {
		query = query.Where("signer_type = ?", signerType)
	}
	var links []models.SigningLink
	if err := query.Order("created_at DESC").Find(&links).Error; err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	active := make([]models.SigningLink, 0, len(links))
	for _, l := range links {
		if l.ExpiresAt == nil || l.ExpiresAt.After(now) {
			active = append(active, l)
		}
	}
	return active, nil
}

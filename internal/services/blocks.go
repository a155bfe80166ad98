// doc-flow/internal/services/blocks.go
package services

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/colaisr/doc-flow/internal/apperr"
	"github.com/colaisr/doc-flow/models"
)

// SignatureBlock is one named, positioned slot on a document requiring a
// signature from a specific signer role.
type SignatureBlock struct {
	ID     string  `json:"id"`
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// signatureBlockJSON uses pointers so a missing required field is
// distinguishable from a zero value at layout-validation time.
type signatureBlockJSON struct {
	ID     *string  `json:"id"`
	Type   *string  `json:"type"`
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
}

// ParseSignatureBlocks decodes a block layout. Malformed JSON, a non-array top
// level, or any block missing id, type or one of the four geometry numbers
// fails the whole layout.
func ParseSignatureBlocks(layout string) ([]SignatureBlock, error) {
	var raw []signatureBlockJSON
	if err := json.Unmarshal([]byte(layout), &raw); err != nil {
		return nil, apperr.Validation("signature blocks must be a JSON array")
	}
	blocks := make([]SignatureBlock, 0, len(raw))
	for i, b := range raw {
		if b.ID == nil || *b.ID == "" {
			return nil, apperr.Validationf("signature block %d is missing an id", i)
		}
		if b.Type == nil || (*b.Type != models.SignerTypeClient && *b.Type != models.SignerTypeInternal) {
			return nil, apperr.Validationf("signature block %q has an invalid type", *b.ID)
		}
		if b.X == nil || b.Y == nil || b.Width == nil || b.Height == nil {
			return nil, apperr.Validationf("signature block %q is missing geometry", *b.ID)
		}
		blocks = append(blocks, SignatureBlock{
			ID: *b.ID, Type: *b.Type,
			X: *b.X, Y: *b.Y, Width: *b.Width, Height: *b.Height,
		})
	}
	return blocks, nil
}

// ValidateSignatureBlocks is the write-time check for template and document
// layout updates. An empty layout is fine: it selects legacy whole-document
// signing.
func ValidateSignatureBlocks(layout string) error {
	if strings.TrimSpace(layout) == "" {
		return nil
	}
	_, err := ParseSignatureBlocks(layout)
	return err
}

// EffectiveBlockLayout returns the authoritative layout for a document: its
// own if set, otherwise the originating template's. The document copy may have
// been edited away from the template on purpose, so it always wins.
func EffectiveBlockLayout(document *models.Document, template *models.DocumentTemplate) string {
	if strings.TrimSpace(document.SignatureBlocks) != "" {
		return document.SignatureBlocks
	}
	if template != nil {
		return template.SignatureBlocks
	}
	return ""
}

// BlockStatus cross-references one declared block with any recorded signature.
type BlockStatus struct {
	Block         SignatureBlock `json:"block"`
	Signed        bool           `json:"signed"`
	SignerName    string         `json:"signer_name,omitempty"`
	SignedAt      *time.Time     `json:"signed_at,omitempty"`
	SignatureData string         `json:"signature_data,omitempty"`
}

// BlockStatuses reports, per declared block, whether a signature for the
// requesting role has been recorded.
func BlockStatuses(db *gorm.DB, documentID uint, signerType string, layout string) ([]BlockStatus, error) {
	blocks, err := ParseSignatureBlocks(layout)
	if err != nil {
		return nil, err
	}
	signatures, err := blockSignatures(db, documentID, signerType)
	if err != nil {
		return nil, err
	}
	statuses := make([]BlockStatus, 0, len(blocks))
	for _, block := range blocks {
		status := BlockStatus{Block: block}
		if sig, ok := signatures[block.ID]; ok {
			signedAt := sig.SignedAt
			status.Signed = true
			status.SignerName = sig.SignerName
			status.SignedAt = &signedAt
			status.SignatureData = sig.SignatureData
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// AllBlocksSigned is true iff every declared block has a signature for the
// role. An empty or unparseable layout is incomplete, never vacuously
// complete.
func AllBlocksSigned(db *gorm.DB, documentID uint, signerType string, layout string) (bool, error) {
	blocks, err := ParseSignatureBlocks(layout)
	if err != nil || len(blocks) == 0 {
		return false, nil
	}
	signatures, err := blockSignatures(db, documentID, signerType)
	if err != nil {
		return false, err
	}
	for _, block := range blocks {
		if _, ok := signatures[block.ID]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// RemainingBlocks counts declared blocks still unsigned for the role. Only
// signatures whose block id is still declared count, so an orphaned signature
// for a removed block can never make the document look closer to done.
func RemainingBlocks(db *gorm.DB, documentID uint, signerType string, layout string) (int, error) {
	blocks, err := ParseSignatureBlocks(layout)
	if err != nil {
		return 0, err
	}
	signatures, err := blockSignatures(db, documentID, signerType)
	if err != nil {
		return 0, err
	}
	remaining := 0
	for _, block := range blocks {
		if _, ok := signatures[block.ID]; !ok {
			remaining++
		}
	}
	return remaining, nil
}

func blockSignatures(db *gorm.DB, documentID uint, signerType string) (map[string]models.DocumentSignature, error) {
	var rows []models.DocumentSignature
	if err := db.Where("document_id = ? AND signer_type = ? AND block_id <> ''", documentID, signerType).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	byBlock := make(map[string]models.DocumentSignature, len(rows))
	for _, sig := range rows {
		byBlock[sig.BlockID] = sig
	}
	return byBlock, nil
}

// SignerIdentity carries who signed; UserID is set for internal signers only.
type SignerIdentity struct {
	Name   string
	Email  string
	UserID *uint
}

// AuditMeta is recorded verbatim with each signature.
type AuditMeta struct {
	IPAddress string
	UserAgent string
}

// SubmitBlockSignature records a signature for one declared block. A block can
// be signed exactly once per role: the pre-check catches the ordinary case and
// the composite unique index catches two concurrent submissions that both
// passed it.
func SubmitBlockSignature(db *gorm.DB, documentID uint, blockID, signerType string, signer SignerIdentity, imageData, token string, audit AuditMeta) (*models.DocumentSignature, error) {
	if err := validateSubmission(signerType, signer, imageData); err != nil {
		return nil, err
	}
	var document models.Document
	if err := db.First(&document, documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("document not found")
		}
		return nil, err
	}

	var template *models.DocumentTemplate
	if document.TemplateID != nil {
		var t models.DocumentTemplate
		if err := db.First(&t, *document.TemplateID).Error; err == nil {
			template = &t
		}
	}
	blocks, err := ParseSignatureBlocks(EffectiveBlockLayout(&document, template))
	if err != nil {
		return nil, err
	}
	var target *SignatureBlock
	for i := range blocks {
		if blocks[i].ID == blockID {
			target = &blocks[i]
			break
		}
	}
	if target == nil {
		return nil, apperr.Validationf("signature block %q is not declared on this document", blockID)
	}
	// the role governs which slots an actor may fill
	if target.Type != signerType {
		return nil, apperr.Validationf("signature block %q is reserved for the %s signer", blockID, target.Type)
	}

	var existing models.DocumentSignature
	err = db.Where("document_id = ? AND block_id = ? AND signer_type = ?", documentID, blockID, signerType).
		First(&existing).Error
	if err == nil {
		return nil, apperr.Conflictf("block %q is already signed by the %s signer", blockID, signerType)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	signature := models.DocumentSignature{
		DocumentID:    documentID,
		BlockID:       blockID,
		SignerType:    signerType,
		SignerUserID:  signer.UserID,
		SignerName:    strings.TrimSpace(signer.Name),
		SignerEmail:   signer.Email,
		SignatureData: normalizeSignatureData(imageData),
		SigningToken:  token,
		IPAddress:     audit.IPAddress,
		UserAgent:     audit.UserAgent,
		SignedAt:      time.Now().UTC(),
	}
	if err := db.Create(&signature).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, apperr.Conflictf("block %q is already signed by the %s signer", blockID, signerType)
		}
		return nil, err
	}
	return &signature, nil
}

// SubmitWholeDocumentSignature is the legacy mode: one signature per
// (document, role), regardless of blocks.
func SubmitWholeDocumentSignature(db *gorm.DB, documentID uint, signerType string, signer SignerIdentity, imageData, token string, audit AuditMeta) (*models.DocumentSignature, error) {
	if err := validateSubmission(signerType, signer, imageData); err != nil {
		return nil, err
	}

	var existing models.DocumentSignature
	err := db.Where("document_id = ? AND signer_type = ?", documentID, signerType).
		First(&existing).Error
	if err == nil {
		return nil, apperr.Conflictf("signature already exists for the %s signer", signerType)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	signature := models.DocumentSignature{
		DocumentID:    documentID,
		SignerType:    signerType,
		SignerUserID:  signer.UserID,
		SignerName:    strings.TrimSpace(signer.Name),
		SignerEmail:   signer.Email,
		SignatureData: normalizeSignatureData(imageData),
		SigningToken:  token,
		IPAddress:     audit.IPAddress,
		UserAgent:     audit.UserAgent,
		SignedAt:      time.Now().UTC(),
	}
	if err := db.Create(&signature).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, apperr.Conflictf("signature already exists for the %s signer", signerType)
		}
		return nil, err
	}
	return &signature, nil
}

func validateSubmission(signerType string, signer SignerIdentity, imageData string) error {
	if signerType != models.SignerTypeClient && signerType != models.SignerTypeInternal {
		return apperr.Validationf("invalid signer type %q", signerType)
	}
	if strings.TrimSpace(signer.Name) == "" {
		return apperr.Validation("signer name is required")
	}
	if strings.TrimSpace(imageData) == "" {
		return apperr.Validation("signature image is required")
	}
	return nil
}

// normalizeSignatureData accepts both raw base64 and full data URIs and stores
// a data URI; bare base64 is assumed to be PNG.
func normalizeSignatureData(imageData string) string {
	if strings.HasPrefix(imageData, "data:image") {
		return imageData
	}
	return "data:image/png;base64," + imageData
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// sqlite in tests reports the violation before gorm translation kicks in
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "duplicate key")
}

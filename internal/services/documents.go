// doc-flow/internal/services/documents.go
//
// Document lifecycle: draft → ready → sent → signed, with uploaded as an
// independent terminal state for PDF intake. Every operation that touches
// more than one row runs inside a single transaction so the "already signed"
// / "already used" / "already advanced" checks commit atomically with their
// writes.
package services

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"gorm.io/gorm"

	"github.com/colaisr/doc-flow/internal/apperr"
	"github.com/colaisr/doc-flow/models"
)

// CompletionPolicy is how a document decides it is fully signed. Exactly two
// variants exist: legacy whole-document signing (one signature per role) and
// per-block signing (every declared block must be signed, then an explicit
// finish call closes the document).
type CompletionPolicy interface {
	isCompletionPolicy()
}

type LegacyWholeDocument struct{}

type PerBlock struct {
	Blocks []SignatureBlock
}

func (LegacyWholeDocument) isCompletionPolicy() {}
func (PerBlock) isCompletionPolicy()            {}

// CompletionPolicyFor selects the policy from the document's effective block
// layout. A missing or empty layout means legacy; a malformed one yields a
// per-block policy with no known blocks, which can never complete — a stored
// layout that later became unreadable must not quietly fall back to legacy
// single-signature completion.
func CompletionPolicyFor(layout string) CompletionPolicy {
	if strings.TrimSpace(layout) == "" {
		return LegacyWholeDocument{}
	}
	blocks, err := ParseSignatureBlocks(layout)
	if err != nil {
		return PerBlock{}
	}
	if len(blocks) == 0 {
		return LegacyWholeDocument{}
	}
	return PerBlock{Blocks: blocks}
}

// SignatureSubmission is one incoming signature, block-mode when BlockID is
// set, legacy whole-document otherwise.
type SignatureSubmission struct {
	BlockID       string
	SignerName    string
	SignerEmail   string
	SignerUserID  *uint
	SignatureData string
	IPAddress     string
	UserAgent     string
}

// SigningResult is what a submission or finish reports back to the caller.
type SigningResult struct {
	Document  *models.Document          `json:"document"`
	Signature *models.DocumentSignature `json:"signature,omitempty"`
	NewStatus models.DocumentStatus     `json:"new_status"`
	Completed bool                      `json:"completed"`
	Remaining int                       `json:"remaining_blocks"`
}

// CreateDocumentFromTemplate renders a template for a lead and creates the
// document in draft. The template's signature-block layout is copied onto the
// document so later template edits do not rewrite documents already issued.
func CreateDocumentFromTemplate(db *gorm.DB, orgID, leadID, templateID uint, customTitle, contractType string, createdBy uint) (*models.Document, error) {
	switch contractType {
	case "", models.ContractTypeBuyer, models.ContractTypeSeller, models.ContractTypeLawyer:
	default:
		return nil, apperr.Validationf("invalid contract type %q", contractType)
	}

	var document *models.Document
	err := db.Transaction(func(tx *gorm.DB) error {
		var template models.DocumentTemplate
		if err := tx.Where("id = ? AND organization_id = ? AND is_active = ?", templateID, orgID, true).
			First(&template).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("template not found")
			}
			return err
		}

		var lead models.Lead
		if err := tx.Where("id = ? AND organization_id = ?", leadID, orgID).First(&lead).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("lead not found")
			}
			return err
		}

		if v := ValidateMergeFields(template.Content); !v.Valid {
			return apperr.Validationf("unresolved merge fields: %s", strings.Join(v.MissingFields, ", "))
		}

		title := customTitle
		if title == "" {
			title = GenerateDocumentTitle(&template, &lead)
		}

		document = &models.Document{
			OrganizationID:  orgID,
			LeadID:          lead.ID,
			TemplateID:      &template.ID,
			Title:           title,
			RenderedContent: GenerateDocumentContent(&template, &lead),
			SignatureBlocks: template.SignatureBlocks,
			ContractType:    contractType,
			Status:          models.DocumentStatusDraft,
			CreatedByUserID: createdBy,
		}
		return tx.Create(document).Error
	})
	if err != nil {
		return nil, err
	}
	return document, nil
}

// UpdateDocumentStatus handles the explicit forward transitions. Marking a
// contract-typed document ready also advances the lead toward that type's
// "contract ready" stage.
func UpdateDocumentStatus(db *gorm.DB, orgID, documentID uint, newStatus models.DocumentStatus, actorID uint) (*models.Document, error) {
	if newStatus != models.DocumentStatusReady && newStatus != models.DocumentStatusSent {
		return nil, apperr.Validationf("invalid status %q", newStatus)
	}

	var document models.Document
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := findOrgDocument(tx, orgID, documentID, &document); err != nil {
			return err
		}

		switch newStatus {
		case models.DocumentStatusReady:
			if document.Status != models.DocumentStatusDraft {
				return apperr.Conflictf("cannot mark a %s document ready", document.Status)
			}
		case models.DocumentStatusSent:
			if document.Status != models.DocumentStatusDraft && document.Status != models.DocumentStatusReady {
				return apperr.Conflictf("cannot mark a %s document sent", document.Status)
			}
		}

		if err := tx.Model(&document).Update("status", newStatus).Error; err != nil {
			return err
		}
		document.Status = newStatus

		if newStatus == models.DocumentStatusReady {
			if event, ok := ContractReadyEvent(document.ContractType); ok {
				if _, err := AdvanceLeadStage(tx, document.LeadID, event, actorID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &document, nil
}

// IssueSigningLink creates a link for a document and stores the public URL on
// it. Issuing the first link on a draft or ready document moves it to sent;
// issuing another on an already-sent document leaves the status alone.
func IssueSigningLink(db *gorm.DB, orgID, documentID uint, signerType string, createdBy uint, intendedEmail string, expiresInDays *int, baseURL string) (*models.SigningLink, string, error) {
	var (
		link *models.SigningLink
		url  string
	)
	err := db.Transaction(func(tx *gorm.DB) error {
		var document models.Document
		if err := findOrgDocument(tx, orgID, documentID, &document); err != nil {
			return err
		}

		var err error
		link, err = CreateSigningLink(tx, document.ID, signerType, createdBy, intendedEmail, expiresInDays)
		if err != nil {
			return err
		}
		url = SigningLinkURL(baseURL, link.Token)

		updates := map[string]interface{}{"signing_url": url}
		if document.Status == models.DocumentStatusDraft || document.Status == models.DocumentStatusReady {
			updates["status"] = models.DocumentStatusSent
		}
		return tx.Model(&document).Updates(updates).Error
	})
	if err != nil {
		return nil, "", err
	}
	return link, url, nil
}

// SignViaLink is the public signing flow. The token is validated, the
// submission recorded, and — in legacy mode — the document closed and the link
// consumed, all in one transaction, so concurrent submissions with the same
// token cannot both succeed.
func SignViaLink(db *gorm.DB, token string, sub SignatureSubmission) (*SigningResult, error) {
	var result *SigningResult
	err := db.Transaction(func(tx *gorm.DB) error {
		link, document, layout, err := resolveLink(tx, token)
		if err != nil {
			return err
		}

		identity := SignerIdentity{Name: sub.SignerName, Email: sub.SignerEmail}
		audit := AuditMeta{IPAddress: sub.IPAddress, UserAgent: sub.UserAgent}

		switch CompletionPolicyFor(layout).(type) {
		case PerBlock:
			if sub.BlockID == "" {
				return apperr.Validation("this document is signed per block, block_id is required")
			}
			signature, err := SubmitBlockSignature(tx, document.ID, sub.BlockID, link.SignerType, identity, sub.SignatureData, token, audit)
			if err != nil {
				return err
			}
			remaining, err := RemainingBlocks(tx, document.ID, link.SignerType, layout)
			if err != nil {
				return err
			}
			// Block submissions leave the status alone; only finish closes
			// the document and consumes the link.
			result = &SigningResult{
				Document:  document,
				Signature: signature,
				NewStatus: document.Status,
				Remaining: remaining,
			}
			return nil
		default:
			signature, err := SubmitWholeDocumentSignature(tx, document.ID, link.SignerType, identity, sub.SignatureData, token, audit)
			if err != nil {
				return err
			}
			if err := completeDocument(tx, document, link, document.CreatedByUserID); err != nil {
				return err
			}
			result = &SigningResult{
				Document:  document,
				Signature: signature,
				NewStatus: document.Status,
				Completed: true,
			}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FinishViaLink closes a per-block document once every declared block is
// signed for the link's role, then consumes the link.
func FinishViaLink(db *gorm.DB, token string) (*SigningResult, error) {
	var result *SigningResult
	err := db.Transaction(func(tx *gorm.DB) error {
		link, document, layout, err := resolveLink(tx, token)
		if err != nil {
			return err
		}
		if err := finishDocument(tx, document, layout, link.SignerType, link, document.CreatedByUserID); err != nil {
			return err
		}
		result = &SigningResult{Document: document, NewStatus: document.Status, Completed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SubmitInternalSignature is the authenticated counterpart of SignViaLink:
// same policy split, no token involved.
func SubmitInternalSignature(db *gorm.DB, orgID, documentID uint, sub SignatureSubmission, actorID uint) (*SigningResult, error) {
	var result *SigningResult
	err := db.Transaction(func(tx *gorm.DB) error {
		var document models.Document
		if err := findOrgDocument(tx, orgID, documentID, &document); err != nil {
			return err
		}
		if err := ensureSignable(&document); err != nil {
			return err
		}
		layout, err := effectiveLayout(tx, &document)
		if err != nil {
			return err
		}

		identity := SignerIdentity{Name: sub.SignerName, Email: sub.SignerEmail, UserID: &actorID}
		audit := AuditMeta{IPAddress: sub.IPAddress, UserAgent: sub.UserAgent}

		switch CompletionPolicyFor(layout).(type) {
		case PerBlock:
			if sub.BlockID == "" {
				return apperr.Validation("this document is signed per block, block_id is required")
			}
			signature, err := SubmitBlockSignature(tx, document.ID, sub.BlockID, models.SignerTypeInternal, identity, sub.SignatureData, "", audit)
			if err != nil {
				return err
			}
			remaining, err := RemainingBlocks(tx, document.ID, models.SignerTypeInternal, layout)
			if err != nil {
				return err
			}
			result = &SigningResult{Document: &document, Signature: signature, NewStatus: document.Status, Remaining: remaining}
			return nil
		default:
			signature, err := SubmitWholeDocumentSignature(tx, document.ID, models.SignerTypeInternal, identity, sub.SignatureData, "", audit)
			if err != nil {
				return err
			}
			if err := completeDocument(tx, &document, nil, actorID); err != nil {
				return err
			}
			result = &SigningResult{Document: &document, Signature: signature, NewStatus: document.Status, Completed: true}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FinishDocumentInternal closes a per-block document from the authenticated
// side, checking completion against the internal role.
func FinishDocumentInternal(db *gorm.DB, orgID, documentID uint, actorID uint) (*SigningResult, error) {
	var result *SigningResult
	err := db.Transaction(func(tx *gorm.DB) error {
		var document models.Document
		if err := findOrgDocument(tx, orgID, documentID, &document); err != nil {
			return err
		}
		if err := ensureSignable(&document); err != nil {
			return err
		}
		layout, err := effectiveLayout(tx, &document)
		if err != nil {
			return err
		}
		if err := finishDocument(tx, &document, layout, models.SignerTypeInternal, nil, actorID); err != nil {
			return err
		}
		result = &SigningResult{Document: &document, NewStatus: document.Status, Completed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UploadDocument is the intake path for already-signed PDFs: no template, no
// signature blocks, terminal uploaded status. A recognized document type marks
// the mapped verification stage in the lead's history without changing the
// lead's current stage; a failed stage lookup is logged and skipped, it never
// rolls back the upload.
func UploadDocument(db *gorm.DB, orgID, leadID uint, documentType, title string, pdf []byte, createdBy uint) (*models.Document, error) {
	if len(pdf) == 0 {
		return nil, apperr.Validation("file is required")
	}
	if err := api.Validate(bytes.NewReader(pdf), model.NewDefaultConfiguration()); err != nil {
		return nil, apperr.Validation("file is not a valid PDF")
	}

	var document *models.Document
	err := db.Transaction(func(tx *gorm.DB) error {
		var lead models.Lead
		if err := tx.Where("id = ? AND organization_id = ?", leadID, orgID).First(&lead).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("lead not found")
			}
			return err
		}

		path, err := saveUploadedPDF(orgID, leadID, pdf)
		if err != nil {
			return err
		}

		if title == "" {
			title = documentType
		}
		document = &models.Document{
			OrganizationID:  orgID,
			LeadID:          lead.ID,
			Title:           title,
			DocumentType:    documentType,
			PDFFilePath:     path,
			Status:          models.DocumentStatusUploaded,
			CreatedByUserID: createdBy,
		}
		if err := tx.Create(document).Error; err != nil {
			return err
		}

		if event, ok := DocumentTypeEvent(documentType); ok {
			marked, err := MarkStageReached(tx, lead.ID, event, createdBy)
			if err != nil {
				return err
			}
			if !marked {
				slog.Warn("Upload stage marking skipped, no stage for event",
					"event", string(event), "lead_id", lead.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return document, nil
}

// DocumentSigningPage is the payload the public signing page needs.
type DocumentSigningPage struct {
	DocumentID      uint                  `json:"document_id"`
	DocumentTitle   string                `json:"document_title"`
	RenderedContent string                `json:"rendered_content"`
	SignatureBlocks string                `json:"signature_blocks,omitempty"`
	BlockStatuses   []BlockStatus         `json:"block_statuses,omitempty"`
	SignerType      string                `json:"signer_type"`
	SignerEmail     string                `json:"signer_email,omitempty"`
	Status          models.DocumentStatus `json:"status"`
}

// SigningPageForToken validates a token and assembles the signing page data.
// Read-only: the link is not consumed here.
func SigningPageForToken(db *gorm.DB, token string) (*DocumentSigningPage, error) {
	link, document, layout, err := resolveLink(db, token)
	if err != nil {
		return nil, err
	}

	page := &DocumentSigningPage{
		DocumentID:      document.ID,
		DocumentTitle:   document.Title,
		RenderedContent: document.RenderedContent,
		SignerType:      link.SignerType,
		SignerEmail:     link.IntendedSignerEmail,
		Status:          document.Status,
	}

	switch CompletionPolicyFor(layout).(type) {
	case PerBlock:
		statuses, err := BlockStatuses(db, document.ID, link.SignerType, layout)
		if err != nil {
			return nil, err
		}
		page.SignatureBlocks = layout
		page.BlockStatuses = statuses
	default:
		// Legacy mode: a page for an already-signed role has nothing to offer.
		var existing models.DocumentSignature
		err := db.Where("document_id = ? AND signer_type = ?", document.ID, link.SignerType).
			First(&existing).Error
		if err == nil {
			return nil, apperr.Conflict("this document has already been signed")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return page, nil
}

// --- internals ---

// ensureSignable rejects signing against the uploaded state. Uploaded
// documents arrive already signed on paper; the state is terminal and must
// never move to signed through any submission path.
func ensureSignable(document *models.Document) error {
	if document.Status == models.DocumentStatusUploaded {
		return apperr.Conflict("an uploaded document cannot be signed")
	}
	return nil
}

func findOrgDocument(tx *gorm.DB, orgID, documentID uint, out *models.Document) error {
	err := tx.Where("id = ? AND organization_id = ?", documentID, orgID).First(out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("document not found")
	}
	return err
}

func effectiveLayout(tx *gorm.DB, document *models.Document) (string, error) {
	var template *models.DocumentTemplate
	if document.TemplateID != nil {
		var t models.DocumentTemplate
		err := tx.First(&t, *document.TemplateID).Error
		if err == nil {
			template = &t
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
	}
	return EffectiveBlockLayout(document, template), nil
}

// resolveLink loads and validates a signing link together with its document
// and effective layout.
func resolveLink(tx *gorm.DB, token string) (*models.SigningLink, *models.Document, string, error) {
	link, err := GetSigningLinkByToken(tx, token)
	if err != nil {
		return nil, nil, "", err
	}
	if valid, reason := ValidateSigningLink(link); !valid {
		if reason == ReasonLinkExpired {
			return nil, nil, "", apperr.Expired("signing link " + reason)
		}
		return nil, nil, "", apperr.Conflict("signing link " + reason)
	}

	var document models.Document
	if err := tx.First(&document, link.DocumentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, "", apperr.NotFound("document not found")
		}
		return nil, nil, "", err
	}
	if err := ensureSignable(&document); err != nil {
		return nil, nil, "", err
	}
	layout, err := effectiveLayout(tx, &document)
	if err != nil {
		return nil, nil, "", err
	}
	return link, &document, layout, nil
}

// finishDocument guards the block-mode finish: every declared block must be
// signed for the role, and a document closes exactly once.
func finishDocument(tx *gorm.DB, document *models.Document, layout, signerType string, link *models.SigningLink, actorID uint) error {
	if _, ok := CompletionPolicyFor(layout).(PerBlock); !ok {
		return apperr.Validation("this document does not use signature blocks")
	}
	done, err := AllBlocksSigned(tx, document.ID, signerType, layout)
	if err != nil {
		return err
	}
	if !done {
		remaining, err := RemainingBlocks(tx, document.ID, signerType, layout)
		if err != nil {
			return err
		}
		return apperr.Conflictf("cannot finish, %d signature blocks are still unsigned", remaining)
	}
	return completeDocument(tx, document, link, actorID)
}

// completeDocument transitions to signed, stamps completion, advances the lead
// toward the contract type's signed stage, and consumes the originating link.
// Shared by the legacy and finish paths.
func completeDocument(tx *gorm.DB, document *models.Document, link *models.SigningLink, actorID uint) error {
	if document.Status == models.DocumentStatusSigned {
		return apperr.Conflict("document is already signed")
	}

	now := time.Now().UTC()
	if err := tx.Model(document).Updates(map[string]interface{}{
		"status":       models.DocumentStatusSigned,
		"completed_at": now,
	}).Error; err != nil {
		return err
	}
	document.Status = models.DocumentStatusSigned
	document.CompletedAt = &now

	if event, ok := ContractSignedEvent(document.ContractType); ok {
		if _, err := AdvanceLeadStage(tx, document.LeadID, event, actorID); err != nil {
			return err
		}
	}

	if link != nil {
		return ConsumeSigningLink(tx, link)
	}
	return nil
}

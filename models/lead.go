package models

import (
	"time"

	"gorm.io/gorm"
)

// Lead is the CRM record documents are generated for. The field set is fixed
// and explicitly enumerated: every merge field a template may reference
// resolves to one of these columns through its snake_case json tag, so adding
// a field here is what makes it available to templates.
type Lead struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrganizationID  uint   `gorm:"index;not null" json:"organization_id"`
	StageID         uint   `gorm:"index;not null" json:"stage_id"`
	AssignedUserID  *uint  `gorm:"index" json:"assigned_user_id"`
	CreatedByUserID uint   `gorm:"index;not null" json:"created_by_user_id"`
	Source          string `gorm:"not null;default:'manual'" json:"source"`

	// --- BASIC INFO ---
	FullName  string     `gorm:"not null" json:"full_name"`
	ClientID  string     `json:"client_id"`
	Phone     string     `json:"phone"`
	Address   string     `json:"address"`
	Email     string     `json:"email"`
	BirthDate *time.Time `gorm:"type:date" json:"birth_date"`

	// --- TRANSACTION DETAILS ---
	SigningDate                    *time.Time `gorm:"type:date" json:"signing_date"`
	PlotNumber                     string     `json:"plot_number"`
	BlockNumber                    string     `json:"block_number"`
	AreaSqm                        float64    `json:"area_sqm"`
	TransactionAmount              float64    `json:"transaction_amount"`
	LegalFee                       float64    `json:"legal_fee"`
	RegistrationExpensesBeforeVat  float64    `json:"registration_expenses_before_vat"`
	FeeAndRegistrationBeforeVat    float64    `json:"fee_and_registration_before_vat"`
	RegistrationExpensesBySummary  float64    `json:"registration_expenses_by_summary"`
	FeeBySummary                   float64    `json:"fee_by_summary"`
	SharedFee                      float64    `json:"shared_fee"`
	TransactionName                string     `json:"transaction_name"`

	// --- DOCUMENT & STATUS ---
	IDScan                  string  `json:"id_scan"`
	SearchComponent         string  `json:"search_component"`
	LandComponent           string  `json:"land_component"`
	LandComponentText       string  `json:"land_component_text"`
	SearchComponentText     string  `json:"search_component_text"`
	TransactionAmountText   string  `json:"transaction_amount_text"`
	SearchComponentPercent  float64 `json:"search_component_percent"`
	AdditionalBuyerDetails  string  `json:"additional_buyer_details"`
	MembershipRequest       string  `json:"membership_request"`
	FeeAgreement            string  `json:"fee_agreement"`
	ClientRecognitionForm   string  `json:"client_recognition_form"`
	SigningStatus           string  `json:"signing_status"`
	FeePaymentStatus        string  `json:"fee_payment_status"`
	ProjectName             string  `json:"project_name"`
	BuyerCount              *int    `json:"buyer_count"`

	// --- DATES & DEADLINES ---
	RealizationDate            *time.Time `gorm:"type:date" json:"realization_date"`
	RealizationNumber          string     `json:"realization_number"`
	RealizationStatus          string     `json:"realization_status"`
	HasImprovementLevy         *bool      `json:"has_improvement_levy"`
	DaysToReport               *int       `json:"days_to_report"`
	DaysToPurchaseTaxPayment   *int       `json:"days_to_purchase_tax_payment"`
	ReportDeadline             *time.Time `gorm:"type:date" json:"report_deadline"`
	PurchaseTaxPaymentDeadline *time.Time `gorm:"type:date" json:"purchase_tax_payment_deadline"`
	PaymentRequestSentDate     *time.Time `gorm:"type:date" json:"payment_request_sent_date"`
	DaysToSendPaymentRequest   *int       `json:"days_to_send_payment_request"`
	PaymentRequestDeadline     *time.Time `gorm:"type:date" json:"payment_request_deadline"`

	// --- EXTERNAL IDS & BILLING ---
	InvoiceID               string `json:"invoice_id"`
	InvoiceSource           string `json:"invoice_source"`
	BillingClientIDCompany  string `json:"billing_client_id_company"`
	BillingClientIDOffice   string `json:"billing_client_id_office"`
	BillingItemID           string `json:"billing_item_id"`
	FinancialClientCreated  *bool  `json:"financial_client_created"`
	BillingClientCreated    *bool  `json:"billing_client_created"`

	// --- DOCUMENT LINKS ---
	PaymentRequestDocument                string `json:"payment_request_document"`
	PaymentRequestLink                    string `json:"payment_request_link"`
	SigningDocumentsWord                  string `json:"signing_documents_word"`
	SigningDocumentsPdf                   string `json:"signing_documents_pdf"`
	SignedByClientDocuments               string `json:"signed_by_client_documents"`
	DocumentsForLawyerVerification        string `json:"documents_for_lawyer_verification"`
	VerifiedClientSignedDocuments         string `json:"verified_client_signed_documents"`
	AttachmentsLink                       string `json:"attachments_link"`
	AttachmentsAndAgreementLink           string `json:"attachments_and_agreement_link"`
	SignedAttachmentsAndAgreement         string `json:"signed_attachments_and_agreement"`
	CompanySellerDocuments                string `json:"company_seller_documents"`
	CompanySellerSigningLink              string `json:"company_seller_signing_link"`
	SignedByCompanySellerDocuments        string `json:"signed_by_company_seller_documents"`
	VerifiedCompanySellerSignedDocuments  string `json:"verified_company_seller_signed_documents"`

	// --- PEOPLE ---
	LawyerName                 string `json:"lawyer_name"`
	LawyerNameGeneral          string `json:"lawyer_name_general"`
	AuthorizedSignerForCompany string `json:"authorized_signer_for_company"`
	AgentName                  string `json:"agent_name"`
	WhatsappNumber             string `json:"whatsapp_number"`

	// --- WORKFLOW FLAGS ---
	ClientType                       string `json:"client_type"`
	IsEmployeeOrSelfEmployed         *bool  `json:"is_employee_or_self_employed"`
	FullTransactionDetails           *bool  `json:"full_transaction_details"`
	WhatsappSent                     *bool  `json:"whatsapp_sent"`
	TransferToRegistration           *bool  `json:"transfer_to_registration"`
	TransferToOwnershipRegistration  *bool  `json:"transfer_to_ownership_registration"`
	TransferToAppointmentsBoard      *bool  `json:"transfer_to_appointments_board"`
	GroupTransactionsAfterRealization *bool `json:"group_transactions_after_realization"`
	CreateLevyBoardItem              *bool  `json:"create_levy_board_item"`

	// --- POWER OF ATTORNEY ---
	PoaShareAgreement string `json:"poa_share_agreement"`
	PoaPlanning       string `json:"poa_planning"`

	// --- COLLECTION ---
	NonPaymentReason          string     `json:"non_payment_reason"`
	CoordinatedCallPaymentDate *time.Time `gorm:"type:date" json:"coordinated_call_payment_date"`
	InitiatedContactAttempts  *int       `json:"initiated_contact_attempts"`
	LastContactDate           *time.Time `gorm:"type:date" json:"last_contact_date"`
	CollectionNotes           string     `json:"collection_notes"`
	PlotValue                 float64    `json:"plot_value"`

	// --- MISC ---
	CheckCallReminder            *time.Time `gorm:"type:date" json:"check_call_reminder"`
	PreparationSignatureDocument *bool      `json:"preparation_signature_document"`
	CreateClientSigningLink      *bool      `json:"create_client_signing_link"`
	ClientSigningLink            string     `json:"client_signing_link"`
	CreateAttachmentsLink        *bool      `json:"create_attachments_link"`
	CreateCompanySellerLink      *bool      `json:"create_company_seller_link"`
	IdentificationMark           string     `json:"identification_mark"`
	PageSpread                   string     `json:"page_spread"`

	// --- RELATIONSHIPS ---
	Organization *Organization      `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Stage        *LeadStage         `gorm:"foreignKey:StageID" json:"stage,omitempty"`
	StageHistory []LeadStageHistory `gorm:"foreignKey:LeadID" json:"stage_history,omitempty"`
	Documents    []Document         `gorm:"foreignKey:LeadID" json:"documents,omitempty"`
}

func (Lead) TableName() string { return "leads" }

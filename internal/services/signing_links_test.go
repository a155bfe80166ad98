// doc-flow/internal/services/signing_links_test.go
package services

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/colaisr/doc-flow/internal/apperr"
	"github.com/colaisr/doc-flow/models"
)

func createTestDocument(t *testing.T, db *gorm.DB, fx fixtures) models.Document {
	t.Helper()
	doc := models.Document{
		OrganizationID:  fx.Org.ID,
		LeadID:          fx.Lead.ID,
		Title:           "חוזה מכר - ישראל ישראלי",
		RenderedContent: "<p>content</p>",
		ContractType:    models.ContractTypeBuyer,
		Status:          models.DocumentStatusDraft,
		CreatedByUserID: fx.User.ID,
	}
	require.NoError(t, db.Create(&doc).Error)
	return doc
}

func TestGenerateSigningToken(t *testing.T) {
	hexToken := regexp.MustCompile(`^[0-9a-f]{32}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateSigningToken()
		require.NoError(t, err)
		assert.Regexp(t, hexToken, token)
		assert.False(t, seen[token])
		seen[token] = true
	}
}

func TestCreateSigningLink(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	doc := createTestDocument(t, db, fx)

	t.Run("default never expires", func(t *testing.T) {
		link, err := CreateSigningLink(db, doc.ID, models.SignerTypeClient, fx.User.ID, "a@b.co", nil)
		require.NoError(t, err)
		assert.Nil(t, link.ExpiresAt)
		assert.False(t, link.IsUsed)
		assert.Equal(t, "a@b.co", link.IntendedSignerEmail)

		valid, reason := ValidateSigningLink(link)
		assert.True(t, valid)
		assert.Empty(t, reason)
	})

	t.Run("positive expiry is in the future", func(t *testing.T) {
		link, err := CreateSigningLink(db, doc.ID, models.SignerTypeClient, fx.User.ID, "", intPtr(7))
		require.NoError(t, err)
		require.NotNil(t, link.ExpiresAt)
		assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 7), *link.ExpiresAt, time.Minute)
	})

	t.Run("zero days means already expired", func(t *testing.T) {
		link, err := CreateSigningLink(db, doc.ID, models.SignerTypeClient, fx.User.ID, "", intPtr(0))
		require.NoError(t, err)
		valid, reason := ValidateSigningLink(link)
		assert.False(t, valid)
		assert.Equal(t, ReasonLinkExpired, reason)
	})

	t.Run("rejects unknown signer type", func(t *testing.T) {
		_, err := CreateSigningLink(db, doc.ID, "witness", fx.User.ID, "", nil)
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("rejects missing document", func(t *testing.T) {
		_, err := CreateSigningLink(db, 99999, models.SignerTypeClient, fx.User.ID, "", nil)
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestValidateSigningLink(t *testing.T) {
	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	cases := []struct {
		name   string
		link   models.SigningLink
		valid  bool
		reason string
	}{
		{"fresh", models.SigningLink{}, true, ""},
		{"used", models.SigningLink{IsUsed: true}, false, ReasonLinkAlreadyUsed},
		{"expired", models.SigningLink{ExpiresAt: &past}, false, ReasonLinkExpired},
		{"not yet expired", models.SigningLink{ExpiresAt: &future}, true, ""},
		{"used wins over expired", models.SigningLink{IsUsed: true, ExpiresAt: &past}, false, ReasonLinkAlreadyUsed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			valid, reason := ValidateSigningLink(&tc.link)
			assert.Equal(t, tc.valid, valid)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

func TestConsumeSigningLink(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	doc := createTestDocument(t, db, fx)

	link, err := CreateSigningLink(db, doc.ID, models.SignerTypeClient, fx.User.ID, "", nil)
	require.NoError(t, err)

	require.NoError(t, ConsumeSigningLink(db, link))
	assert.True(t, link.IsUsed)
	require.NotNil(t, link.UsedAt)

	// second consume loses the conditional update
	err = ConsumeSigningLink(db, link)
	assert.True(t, apperr.IsConflict(err))

	// a consumed link never validates again
	reloaded, err := GetSigningLinkByToken(db, link.Token)
	require.NoError(t, err)
	valid, reason := ValidateSigningLink(reloaded)
	assert.False(t, valid)
	assert.Equal(t, ReasonLinkAlreadyUsed, reason)
}

func TestSigningLinkURL(t *testing.T) {
	assert.Equal(t, "https://crm.example/sign/abc123", SigningLinkURL("https://crm.example", "abc123"))
	assert.Equal(t, "https://crm.example/sign/abc123", SigningLinkURL("https://crm.example/", "abc123"))
}

func TestActiveSigningLinks(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	doc := createTestDocument(t, db, fx)

	fresh, err := CreateSigningLink(db, doc.ID, models.SignerTypeClient, fx.User.ID, "", nil)
	require.NoError(t, err)
	_, err = CreateSigningLink(db, doc.ID, models.SignerTypeInternal, fx.User.ID, "", intPtr(0))
	require.NoError(t, err)
	used, err := CreateSigningLink(db, doc.ID, models.SignerTypeClient, fx.User.ID, "", nil)
	require.NoError(t, err)
	require.NoError(t, ConsumeSigningLink(db, used))

	active, err := ActiveSigningLinks(db, doc.ID, "")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, fresh.Token, active[0].Token)

	active, err = ActiveSigningLinks(db, doc.ID, models.SignerTypeInternal)
	require.NoError(t, err)
	assert.Empty(t, active)
}

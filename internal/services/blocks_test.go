// doc-flow/internal/services/blocks_test.go
package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/colaisr/doc-flow/internal/apperr"
	"github.com/colaisr/doc-flow/models"
)

const twoBlockLayout = `[
	{"id":"client-1","type":"client","x":50,"y":700,"width":180,"height":60},
	{"id":"client-2","type":"client","x":300,"y":700,"width":180,"height":60}
]`

func createBlockDocument(t *testing.T, db *gorm.DB, fx fixtures, layout string) models.Document {
	t.Helper()
	doc := models.Document{
		OrganizationID:  fx.Org.ID,
		LeadID:          fx.Lead.ID,
		Title:           "חוזה",
		RenderedContent: "<p>x</p>",
		SignatureBlocks: layout,
		Status:          models.DocumentStatusSent,
		CreatedByUserID: fx.User.ID,
	}
	require.NoError(t, db.Create(&doc).Error)
	return doc
}

func TestParseSignatureBlocks(t *testing.T) {
	t.Run("valid layout", func(t *testing.T) {
		blocks, err := ParseSignatureBlocks(twoBlockLayout)
		require.NoError(t, err)
		require.Len(t, blocks, 2)
		assert.Equal(t, "client-1", blocks[0].ID)
		assert.Equal(t, models.SignerTypeClient, blocks[0].Type)
		assert.Equal(t, 700.0, blocks[0].Y)
	})

	cases := []struct {
		name   string
		layout string
	}{
		{"not json", "not json"},
		{"object not array", `{"id":"a"}`},
		{"missing id", `[{"type":"client","x":1,"y":1,"width":1,"height":1}]`},
		{"empty id", `[{"id":"","type":"client","x":1,"y":1,"width":1,"height":1}]`},
		{"unknown type", `[{"id":"a","type":"witness","x":1,"y":1,"width":1,"height":1}]`},
		{"missing geometry", `[{"id":"a","type":"client","x":1,"y":1}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSignatureBlocks(tc.layout)
			assert.True(t, apperr.IsValidation(err))
		})
	}
}

func TestValidateSignatureBlocks(t *testing.T) {
	assert.NoError(t, ValidateSignatureBlocks(""))
	assert.NoError(t, ValidateSignatureBlocks("   "))
	assert.NoError(t, ValidateSignatureBlocks(twoBlockLayout))
	assert.Error(t, ValidateSignatureBlocks("garbage"))
}

func TestEffectiveBlockLayout(t *testing.T) {
	template := &models.DocumentTemplate{SignatureBlocks: `[{"id":"t"}]`}

	t.Run("document copy wins", func(t *testing.T) {
		doc := &models.Document{SignatureBlocks: `[{"id":"d"}]`}
		assert.Equal(t, `[{"id":"d"}]`, EffectiveBlockLayout(doc, template))
	})

	t.Run("falls back to template", func(t *testing.T) {
		assert.Equal(t, `[{"id":"t"}]`, EffectiveBlockLayout(&models.Document{}, template))
	})

	t.Run("no layout anywhere", func(t *testing.T) {
		assert.Equal(t, "", EffectiveBlockLayout(&models.Document{}, nil))
	})
}

func TestSubmitBlockSignature(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	doc := createBlockDocument(t, db, fx, twoBlockLayout)

	signer := SignerIdentity{Name: "דוד כהן", Email: "d@k.co"}
	audit := AuditMeta{IPAddress: "10.0.0.1", UserAgent: "test"}

	t.Run("records and normalizes signature", func(t *testing.T) {
		sig, err := SubmitBlockSignature(db, doc.ID, "client-1", models.SignerTypeClient, signer, "iVBORw0KGgo=", "tok", audit)
		require.NoError(t, err)
		assert.Equal(t, "client-1", sig.BlockID)
		assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", sig.SignatureData)
		assert.Equal(t, "10.0.0.1", sig.IPAddress)
	})

	t.Run("same block same role conflicts", func(t *testing.T) {
		_, err := SubmitBlockSignature(db, doc.ID, "client-1", models.SignerTypeClient, signer, "xx", "", audit)
		assert.True(t, apperr.IsConflict(err))
	})

	t.Run("role must match the block's declared type", func(t *testing.T) {
		_, err := SubmitBlockSignature(db, doc.ID, "client-1", models.SignerTypeInternal, signer, "xx", "", audit)
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("undeclared block rejected", func(t *testing.T) {
		_, err := SubmitBlockSignature(db, doc.ID, "nope", models.SignerTypeClient, signer, "xx", "", audit)
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("blank name rejected", func(t *testing.T) {
		_, err := SubmitBlockSignature(db, doc.ID, "client-2", models.SignerTypeClient, SignerIdentity{Name: "  "}, "xx", "", audit)
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("empty image rejected", func(t *testing.T) {
		_, err := SubmitBlockSignature(db, doc.ID, "client-2", models.SignerTypeClient, signer, "", "", audit)
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("data uri kept as is", func(t *testing.T) {
		sig, err := SubmitBlockSignature(db, doc.ID, "client-2", models.SignerTypeClient, signer, "data:image/jpeg;base64,/9j/4A==", "", audit)
		require.NoError(t, err)
		assert.Equal(t, "data:image/jpeg;base64,/9j/4A==", sig.SignatureData)
	})
}

func TestSubmitWholeDocumentSignature(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	doc := createBlockDocument(t, db, fx, "")

	signer := SignerIdentity{Name: "דוד כהן"}

	_, err := SubmitWholeDocumentSignature(db, doc.ID, models.SignerTypeClient, signer, "img", "", AuditMeta{})
	require.NoError(t, err)

	_, err = SubmitWholeDocumentSignature(db, doc.ID, models.SignerTypeClient, signer, "img", "", AuditMeta{})
	assert.True(t, apperr.IsConflict(err))

	_, err = SubmitWholeDocumentSignature(db, doc.ID, models.SignerTypeInternal, signer, "img", "", AuditMeta{})
	require.NoError(t, err)
}

func TestBlockCompletion(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	doc := createBlockDocument(t, db, fx, twoBlockLayout)
	signer := SignerIdentity{Name: "דוד"}

	t.Run("nothing signed", func(t *testing.T) {
		done, err := AllBlocksSigned(db, doc.ID, models.SignerTypeClient, twoBlockLayout)
		require.NoError(t, err)
		assert.False(t, done)

		remaining, err := RemainingBlocks(db, doc.ID, models.SignerTypeClient, twoBlockLayout)
		require.NoError(t, err)
		assert.Equal(t, 2, remaining)
	})

	t.Run("partially signed", func(t *testing.T) {
		_, err := SubmitBlockSignature(db, doc.ID, "client-1", models.SignerTypeClient, signer, "img", "", AuditMeta{})
		require.NoError(t, err)

		done, err := AllBlocksSigned(db, doc.ID, models.SignerTypeClient, twoBlockLayout)
		require.NoError(t, err)
		assert.False(t, done)

		statuses, err := BlockStatuses(db, doc.ID, models.SignerTypeClient, twoBlockLayout)
		require.NoError(t, err)
		require.Len(t, statuses, 2)
		assert.True(t, statuses[0].Signed)
		assert.Equal(t, "דוד", statuses[0].SignerName)
		assert.False(t, statuses[1].Signed)
	})

	t.Run("fully signed", func(t *testing.T) {
		_, err := SubmitBlockSignature(db, doc.ID, "client-2", models.SignerTypeClient, signer, "img", "", AuditMeta{})
		require.NoError(t, err)

		done, err := AllBlocksSigned(db, doc.ID, models.SignerTypeClient, twoBlockLayout)
		require.NoError(t, err)
		assert.True(t, done)
	})

	t.Run("empty layout never complete", func(t *testing.T) {
		done, err := AllBlocksSigned(db, doc.ID, models.SignerTypeClient, "")
		require.NoError(t, err)
		assert.False(t, done)
	})

	t.Run("orphan signature does not count", func(t *testing.T) {
		// shrink the layout to one block the existing signatures do not cover
		shrunk := `[{"id":"client-3","type":"client","x":1,"y":1,"width":1,"height":1}]`
		remaining, err := RemainingBlocks(db, doc.ID, models.SignerTypeClient, shrunk)
		require.NoError(t, err)
		assert.Equal(t, 1, remaining)

		done, err := AllBlocksSigned(db, doc.ID, models.SignerTypeClient, shrunk)
		require.NoError(t, err)
		assert.False(t, done)
	})
}

func TestDuplicateKeyBackstop(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	doc := createBlockDocument(t, db, fx, twoBlockLayout)

	// the unique index itself, bypassing the service pre-check
	first := models.DocumentSignature{
		DocumentID: doc.ID, BlockID: "client-1", SignerType: models.SignerTypeClient,
		SignerName: "a", SignatureData: "x",
	}
	require.NoError(t, db.Create(&first).Error)

	dup := models.DocumentSignature{
		DocumentID: doc.ID, BlockID: "client-1", SignerType: models.SignerTypeClient,
		SignerName: "b", SignatureData: "y",
	}
	err := db.Create(&dup).Error
	require.Error(t, err)
	assert.True(t, isDuplicateKey(err), fmt.Sprintf("expected duplicate key, got %v", err))
}

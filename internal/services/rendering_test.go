// doc-flow/internal/services/rendering_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colaisr/doc-flow/models"
)

func TestReplaceMergeFields(t *testing.T) {
	birth := time.Date(1985, 3, 12, 0, 0, 0, 0, time.UTC)
	yes := true
	lead := &models.Lead{
		FullName:           "דוד כהן",
		Phone:              "050-1234567",
		TransactionAmount:  1250000.5,
		AreaSqm:            84,
		BirthDate:          &birth,
		HasImprovementLevy: &yes,
		BuyerCount:         nil,
	}

	t.Run("substitutes known fields", func(t *testing.T) {
		out := ReplaceMergeFields("שלום {{lead.full_name}}, טלפון: {{lead.phone}}", lead)
		assert.Equal(t, "שלום דוד כהן, טלפון: 050-1234567", out)
	})

	t.Run("numbers render locale free", func(t *testing.T) {
		out := ReplaceMergeFields("{{lead.transaction_amount}} / {{lead.area_sqm}}", lead)
		assert.Equal(t, "1250000.5 / 84", out)
	})

	t.Run("date fields render date only", func(t *testing.T) {
		out := ReplaceMergeFields("{{lead.birth_date}}", lead)
		assert.Equal(t, "1985-03-12", out)
	})

	t.Run("booleans render as hebrew yes/no", func(t *testing.T) {
		assert.Equal(t, "כן", ReplaceMergeFields("{{lead.has_improvement_levy}}", lead))
		no := false
		lead2 := &models.Lead{HasImprovementLevy: &no}
		assert.Equal(t, "לא", ReplaceMergeFields("{{lead.has_improvement_levy}}", lead2))
	})

	t.Run("nil values become empty string", func(t *testing.T) {
		assert.Equal(t, "קונים: ", ReplaceMergeFields("קונים: {{lead.buyer_count}}", lead))
	})

	t.Run("unknown identifier becomes empty string", func(t *testing.T) {
		assert.Equal(t, "", ReplaceMergeFields("{{lead.no_such_field}}", lead))
	})

	t.Run("values are html escaped", func(t *testing.T) {
		lead2 := &models.Lead{FullName: `<script>alert("x")</script>`}
		out := ReplaceMergeFields("{{lead.full_name}}", lead2)
		assert.Equal(t, "&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;", out)
		assert.NotContains(t, out, "<script>")
	})

	t.Run("markup outside tokens untouched", func(t *testing.T) {
		out := ReplaceMergeFields(`<p dir="rtl">{{lead.full_name}}</p>`, lead)
		assert.Equal(t, `<p dir="rtl">דוד כהן</p>`, out)
	})

	t.Run("deterministic", func(t *testing.T) {
		content := "{{lead.full_name}} {{lead.transaction_amount}} {{lead.birth_date}}"
		first := ReplaceMergeFields(content, lead)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, ReplaceMergeFields(content, lead))
		}
	})
}

func TestValidateMergeFields(t *testing.T) {
	t.Run("all known", func(t *testing.T) {
		v := ValidateMergeFields("{{lead.full_name}} {{lead.phone}} {{lead.full_name}}")
		assert.True(t, v.Valid)
		assert.Empty(t, v.MissingFields)
		assert.Equal(t, []string{"full_name", "phone"}, v.AllFields)
	})

	t.Run("reports unknown identifiers", func(t *testing.T) {
		v := ValidateMergeFields("{{lead.full_name}} {{lead.bogus}} {{lead.zz_other}}")
		assert.False(t, v.Valid)
		assert.Equal(t, []string{"bogus", "zz_other"}, v.MissingFields)
	})

	t.Run("relationships are not merge fields", func(t *testing.T) {
		v := ValidateMergeFields("{{lead.stage}} {{lead.documents}}")
		assert.False(t, v.Valid)
		assert.Equal(t, []string{"documents", "stage"}, v.MissingFields)
	})

	t.Run("no tokens is valid", func(t *testing.T) {
		v := ValidateMergeFields("<p>static content</p>")
		assert.True(t, v.Valid)
		assert.Empty(t, v.AllFields)
	})
}

func TestGenerateDocumentTitle(t *testing.T) {
	template := &models.DocumentTemplate{Name: "חוזה מכר"}
	assert.Equal(t, "חוזה מכר - דוד כהן", GenerateDocumentTitle(template, &models.Lead{FullName: "דוד כהן"}))
	assert.Equal(t, "חוזה מכר", GenerateDocumentTitle(template, &models.Lead{}))
}

func TestGenerateDocumentContent(t *testing.T) {
	lead := &models.Lead{FullName: "דוד כהן"}

	t.Run("plain text gets rtl wrapper", func(t *testing.T) {
		template := &models.DocumentTemplate{Content: "חוזה עבור {{lead.full_name}}"}
		out := GenerateDocumentContent(template, lead)
		require.Equal(t, `<div dir="rtl">חוזה עבור דוד כהן</div>`, out)
	})

	t.Run("html content left as is", func(t *testing.T) {
		template := &models.DocumentTemplate{Content: "<p>{{lead.full_name}}</p>"}
		assert.Equal(t, "<p>דוד כהן</p>", GenerateDocumentContent(template, lead))
	})
}

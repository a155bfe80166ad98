// doc-flow/internal/services/rendering.go
package services

import (
	"fmt"
	"html"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/colaisr/doc-flow/models"
)

// Boolean merge values render as the same Hebrew yes/no pair everywhere.
const (
	BoolWordTrue  = "כן"
	BoolWordFalse = "לא"
)

var mergeFieldPattern = regexp.MustCompile(`\{\{lead\.(\w+)\}\}`)

type leadField struct {
	index    []int
	dateOnly bool
}

// leadFieldIndex maps a merge-field identifier (the snake_case json tag) to
// its Lead struct field. Built once; only scalar fields participate, so
// relationship fields can never be referenced from a template.
var leadFieldIndex = buildLeadFieldIndex()

func buildLeadFieldIndex() map[string]leadField {
	index := make(map[string]leadField)
	t := reflect.TypeOf(models.Lead{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := strings.Split(f.Tag.Get("json"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		ft := f.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		switch ft.Kind() {
		case reflect.String, reflect.Bool, reflect.Int, reflect.Uint, reflect.Float64:
		case reflect.Struct:
			if ft != reflect.TypeOf(time.Time{}) {
				continue
			}
		default:
			continue
		}
		index[tag] = leadField{
			index:    f.Index,
			dateOnly: strings.Contains(f.Tag.Get("gorm"), "type:date"),
		}
	}
	return index
}

// LeadFieldValue resolves a merge-field identifier against a lead and
// stringifies it: text as-is, numbers locale-free, dates as ISO-8601,
// booleans via the shared yes/no pair. Nil values become the empty string.
// The second return reports whether the identifier names a known field.
func LeadFieldValue(lead *models.Lead, key string) (string, bool) {
	lf, ok := leadFieldIndex[key]
	if !ok {
		return "", false
	}
	v := reflect.ValueOf(lead).Elem().FieldByIndex(lf.index)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return "", true
		}
		v = v.Elem()
	}
	switch val := v.Interface().(type) {
	case string:
		return val, true
	case bool:
		if val {
			return BoolWordTrue, true
		}
		return BoolWordFalse, true
	case time.Time:
		if lf.dateOnly {
			return val.Format("2006-01-02"), true
		}
		return val.UTC().Format(time.RFC3339), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case uint:
		return strconv.FormatUint(uint64(val), 10), true
	default:
		return fmt.Sprint(val), true
	}
}

// ReplaceMergeFields substitutes every {{lead.<field>}} token in content with
// the HTML-escaped lead value. Template markup outside tokens is left alone.
// Pure and deterministic: the same content and lead snapshot always produce
// byte-identical output.
func ReplaceMergeFields(content string, lead *models.Lead) string {
	return mergeFieldPattern.ReplaceAllStringFunc(content, func(token string) string {
		key := mergeFieldPattern.FindStringSubmatch(token)[1]
		value, _ := LeadFieldValue(lead, key)
		return html.EscapeString(value)
	})
}

// MergeFieldValidation is the result of checking template content against the
// lead field set before generation, so document creation can fail fast with
// the full list of unresolvable identifiers.
type MergeFieldValidation struct {
	Valid         bool     `json:"valid"`
	MissingFields []string `json:"missing_fields"`
	AllFields     []string `json:"all_fields"`
}

func ValidateMergeFields(content string) MergeFieldValidation {
	seen := make(map[string]bool)
	var all, missing []string
	for _, m := range mergeFieldPattern.FindAllStringSubmatch(content, -1) {
		key := m[1]
		if seen[key] {
			continue
		}
		seen[key] = true
		all = append(all, key)
		if _, ok := leadFieldIndex[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(all)
	sort.Strings(missing)
	return MergeFieldValidation{
		Valid:         len(missing) == 0,
		MissingFields: missing,
		AllFields:     all,
	}
}

// GenerateDocumentTitle composes "<template name> - <lead name>", or just the
// template name when the lead has no name.
func GenerateDocumentTitle(template *models.DocumentTemplate, lead *models.Lead) string {
	if lead.FullName != "" {
		return template.Name + " - " + lead.FullName
	}
	return template.Name
}

// GenerateDocumentContent renders template content for a lead. Rendered
// documents that do not open with an HTML tag are wrapped in an RTL container,
// matching how the rest of the system displays Hebrew documents.
func GenerateDocumentContent(template *models.DocumentTemplate, lead *models.Lead) string {
	rendered := ReplaceMergeFields(template.Content, lead)
	if !strings.HasPrefix(strings.TrimSpace(rendered), "<") &&
		!strings.Contains(rendered, `dir="rtl"`) && !strings.Contains(rendered, "dir='rtl'") {
		rendered = `<div dir="rtl">` + rendered + `</div>`
	}
	return rendered
}

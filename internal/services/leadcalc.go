// doc-flow/internal/services/leadcalc.go
package services

import (
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/Knetic/govaluate"
	"github.com/divan/num2words"

	"github.com/colaisr/doc-flow/internal/apperr"
	"github.com/colaisr/doc-flow/models"
)

// Derived numeric fields are computed from other lead fields with govaluate
// expressions. The defaults cover the standard fee arithmetic; deployments add
// or override formulas via the derived_fields config section, keyed by the
// target field's snake_case name.
var defaultDerivedFormulas = map[string]string{
	"fee_and_registration_before_vat": "legal_fee + registration_expenses_before_vat",
}

// numericLeadParams collects every float and int field of the lead as
// expression parameters, keyed by json tag. Nil pointer ints count as zero.
func numericLeadParams(lead *models.Lead) map[string]interface{} {
	params := make(map[string]interface{})
	v := reflect.ValueOf(lead).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := strings.Split(field.Tag.Get("json"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		fv := v.Field(i)
		switch fv.Kind() {
		case reflect.Float64:
			params[tag] = fv.Float()
		case reflect.Int:
			params[tag] = float64(fv.Int())
		case reflect.Ptr:
			if fv.Type().Elem().Kind() == reflect.Int {
				if fv.IsNil() {
					params[tag] = float64(0)
				} else {
					params[tag] = float64(fv.Elem().Int())
				}
			}
		}
	}
	return params
}

// ApplyDerivedFields recomputes the lead's derived values in place: formula
// fields, the spelled-out transaction amount, and the date deadlines. Called
// before a lead is saved so stored values never lag their inputs.
func ApplyDerivedFields(lead *models.Lead, overrides map[string]string) error {
	formulas := make(map[string]string, len(defaultDerivedFormulas)+len(overrides))
	for field, expr := range defaultDerivedFormulas {
		formulas[field] = expr
	}
	for field, expr := range overrides {
		if expr != "" {
			formulas[field] = expr
		}
	}

	params := numericLeadParams(lead)
	for field, expr := range formulas {
		expression, err := govaluate.NewEvaluableExpression(expr)
		if err != nil {
			return apperr.Validationf("derived field %q has an invalid formula: %v", field, err)
		}
		result, err := expression.Evaluate(params)
		if err != nil {
			return apperr.Validationf("derived field %q failed to evaluate: %v", field, err)
		}
		value, ok := result.(float64)
		if !ok {
			return apperr.Validationf("derived field %q did not produce a number", field)
		}
		if err := setLeadFloatField(lead, field, value); err != nil {
			return err
		}
		params[field] = value
	}

	lead.TransactionAmountText = AmountInWords(lead.TransactionAmount)
	applyDeadlines(lead)
	return nil
}

// setLeadFloatField assigns a computed value to the float64 field whose json
// tag matches. A formula targeting a non-numeric or unknown field is a
// configuration mistake and reported as such.
func setLeadFloatField(lead *models.Lead, name string, value float64) error {
	v := reflect.ValueOf(lead).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("json"), ",")[0]
		if tag != name {
			continue
		}
		fv := v.Field(i)
		if fv.Kind() != reflect.Float64 {
			return apperr.Validationf("derived field %q is not a numeric lead field", name)
		}
		fv.SetFloat(value)
		return nil
	}
	return apperr.Validationf("derived field %q does not exist on leads", name)
}

// AmountInWords spells out a monetary amount. Whole shekels are converted to
// words; agorot, when present, are appended as a second clause.
func AmountInWords(amount float64) string {
	if amount == 0 {
		return ""
	}
	whole := int(math.Floor(math.Abs(amount)))
	cents := int(math.Round((math.Abs(amount) - float64(whole)) * 100))
	if cents == 100 {
		whole++
		cents = 0
	}
	words := num2words.Convert(whole)
	if cents > 0 {
		words += " and " + num2words.Convert(cents) + " hundredths"
	}
	if amount < 0 {
		words = "minus " + words
	}
	return words
}

// applyDeadlines fills each deadline from its anchor date plus the configured
// day count. A missing anchor or count clears the deadline rather than leaving
// a stale one behind.
func applyDeadlines(lead *models.Lead) {
	lead.ReportDeadline = addDays(lead.SigningDate, lead.DaysToReport)
	lead.PurchaseTaxPaymentDeadline = addDays(lead.SigningDate, lead.DaysToPurchaseTaxPayment)
	lead.PaymentRequestDeadline = addDays(lead.PaymentRequestSentDate, lead.DaysToSendPaymentRequest)
}

func addDays(anchor *time.Time, days *int) *time.Time {
	if anchor == nil || days == nil {
		return nil
	}
	t := anchor.AddDate(0, 0, *days)
	return &t
}

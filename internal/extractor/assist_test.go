package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docverify/internal/model"
)

func checkNamed(t *testing.T, checks []model.RuleResult, rule string) model.RuleResult {
	t.Helper()
	for _, c := range checks {
		if c.Rule == rule {
			return c
		}
	}
	require.Failf(t, "rule not found", "%s in %v", rule, checks)
	return model.RuleResult{}
}

func TestExtractAssisted(t *testing.T) {
	pass, _ := For(model.DocumentTypePassport)
	natID, _ := For(model.DocumentTypeNationalID)

	t.Run("fills fields the patterns miss", func(t *testing.T) {
		res := ExtractAssisted(pass, text("Surname: DOE\nNationality: FRENCH\nX 1234567 A"), Assisted{
			DocumentType:   model.DocumentTypePassport,
			DocumentNumber: "X1234567A",
			ExpiryDate:     "2031-05-01",
			Confidence:     "high",
		}, asOf)

		assert.Equal(t, model.ExtractedField{Value: "X1234567A", Confidence: 1}, res.Fields[model.FieldDocumentNumber])
		assert.Equal(t, "2031-05-01", res.Fields[model.FieldExpiryDate].Value)
		assert.Equal(t, "FRENCH", res.Fields[model.FieldNationality].Value)
		for _, c := range res.Checks {
			assert.Equal(t, model.RulePassed, c.Status, c.Rule)
		}
		assert.Equal(t, "No inconsistencies reported", checkNamed(t, res.Checks, InconsistencyRule).Details)
	})

	t.Run("model reading takes precedence", func(t *testing.T) {
		in := model.RecognizedText{Content: "Passport No: X1234567B\nExpiry: 2031-05-01", Confidence: 0.9}
		res := ExtractAssisted(pass, in, Assisted{DocumentNumber: "AB1234567", Confidence: "Medium"}, asOf)

		assert.Equal(t, model.ExtractedField{Value: "AB1234567", Confidence: 0.63}, res.Fields[model.FieldDocumentNumber])
		assert.Equal(t, model.ExtractedField{Value: "2031-05-01", Confidence: 0.9}, res.Fields[model.FieldExpiryDate])
	})

	t.Run("unusable model values fall back to patterns", func(t *testing.T) {
		res := ExtractAssisted(pass, text("Passport No: X1234567A\nExpiry: 2031-05-01"), Assisted{
			DocumentNumber: "  ",
			ExpiryDate:     "sometime next year",
			Confidence:     "certain",
		}, asOf)

		assert.Equal(t, model.ExtractedField{Value: "X1234567A", Confidence: 1}, res.Fields[model.FieldDocumentNumber])
		assert.Equal(t, "2031-05-01", res.Fields[model.FieldExpiryDate].Value)
	})

	t.Run("inconsistencies fail their own rule", func(t *testing.T) {
		res := ExtractAssisted(pass, text(passportText), Assisted{
			DocumentType:    model.DocumentTypeNationalID,
			Inconsistencies: []string{"two different expiry dates", " "},
			Confidence:      "low",
		}, asOf)

		got := checkNamed(t, res.Checks, InconsistencyRule)
		assert.Equal(t, model.RuleFailed, got.Status)
		assert.Equal(t, "two different expiry dates; read as national_id, classified as passport", got.Details)
		assert.Equal(t, model.RulePassed, checkNamed(t, res.Checks, "Passport Number Format").Status)
	})

	t.Run("variant rules apply to model values", func(t *testing.T) {
		res := ExtractAssisted(natID, text("ID No: 12345678\nName: JANE ROE\nExpiry: 2029-12-31"), Assisted{
			DocumentNumber: "1234-567",
			Confidence:     "low",
		}, asOf)

		assert.Equal(t, model.ExtractedField{Value: "1234567", Confidence: 0.2}, res.Fields[model.FieldDocumentNumber])
		assert.Equal(t, model.RuleFailed, checkNamed(t, res.Checks, "National ID Number Format").Status)
	})

	t.Run("plain extraction has no inconsistency rule", func(t *testing.T) {
		for _, c := range pass.Extract(text(passportText), asOf).Checks {
			assert.NotEqual(t, InconsistencyRule, c.Rule)
		}
	})
}

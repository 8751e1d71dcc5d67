package extractor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docverify/internal/model"
)

// InconsistencyRule is the check recording what an assistant found contradictory.
const InconsistencyRule = "Inconsistency Check"

// strengthAssisted is the match strength for each confidence level an
// assistant reports. Anything else counts as strengthAssistedUnknown.
var strengthAssisted = map[string]float64{
	"high":   1.0,
	"medium": 0.7,
	"low":    0.4,
}

const strengthAssistedUnknown = 0.5

// Assisted is a language model's reading of recognized text.
type Assisted struct {
	// DocumentType is empty when the model could not tell.
	DocumentType    model.DocumentType
	DocumentNumber  string
	ExpiryDate      string
	Inconsistencies []string
	// Confidence is "high", "medium" or "low".
	Confidence string
}

// Assistant reads structured fields out of text already classified as docType.
type Assistant interface {
	Assist(ctx context.Context, docType model.DocumentType, text string, asOf time.Time) (Assisted, error)
}

// ExtractAssisted runs v with the model's document number and expiry date
// taking precedence over the patterns. A field the model left empty, or gave
// in a form that does not parse, falls back to the patterns. The variant's
// rules then run on the merged fields, and the model's inconsistencies become
// one more rule.
func ExtractAssisted(v Variant, text model.RecognizedText, a Assisted, asOf time.Time) Result {
	res := run(v, text, &a, asOf)

	var issues []string
	for _, s := range a.Inconsistencies {
		if s = strings.TrimSpace(s); s != "" {
			issues = append(issues, s)
		}
	}
	if a.DocumentType != "" && a.DocumentType != v.Type() {
		issues = append(issues, fmt.Sprintf("read as %s, classified as %s", a.DocumentType, v.Type()))
	}

	check := model.RuleResult{Rule: InconsistencyRule, Status: model.RulePassed, Details: "No inconsistencies reported"}
	if len(issues) > 0 {
		check.Status = model.RuleFailed
		check.Details = strings.Join(issues, "; ")
	}
	res.Checks = append(res.Checks, check)
	return res
}

// pin stores the usable parts of a so the variant cannot overwrite them.
func (c *collector) pin(a Assisted) {
	strength, ok := strengthAssisted[strings.ToLower(strings.TrimSpace(a.Confidence))]
	if !ok {
		strength = strengthAssistedUnknown
	}
	pinned := map[string]string{
		model.FieldDocumentNumber: cleanNumber(strings.TrimSpace(a.DocumentNumber)),
		model.FieldExpiryDate:     normalizeDate(a.ExpiryDate),
	}
	for name, value := range pinned {
		if value == "" {
			continue
		}
		c.set(name, value, strength)
		c.pinned[name] = true
	}
}

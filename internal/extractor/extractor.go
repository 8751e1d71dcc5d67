// Package extractor pulls structured fields out of recognized document text.
// There is one variant per document type; each owns its required-field set
// and the deterministic rule checks applied to what it found.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docverify/internal/model"
	"docverify/internal/ocr"
)

// ErrExtraction marks unreadable or corrupt input. It leads to a rejected record.
var ErrExtraction = errors.New("extraction failed")

// Match strengths multiplied into the recognizer confidence.
const (
	strengthLabelled   = 1.0
	strengthMRZ        = 0.95
	strengthMRZNoCheck = 0.6
	strengthUnlabelled = 0.7
	// rulePenalty applies to a field whose format or validity rule failed.
	rulePenalty = 0.5
)

// Variant is the extraction capability for one document type.
type Variant interface {
	Type() model.DocumentType
	RequiredFields() []string
	// Extract reads fields from text; asOf is the reference time for expiry rules.
	Extract(text model.RecognizedText, asOf time.Time) Result

	extract(c *collector, text model.RecognizedText, asOf time.Time)
}

// Result is what a variant produced.
type Result struct {
	Fields model.ExtractedFields
	Checks []model.RuleResult
}

var variants = map[model.DocumentType]Variant{
	model.DocumentTypePassport:       passport{},
	model.DocumentTypeNationalID:     nationalID{},
	model.DocumentTypeDrivingLicense: drivingLicense{},
}

// For returns the variant for t. Unknown types have none.
func For(t model.DocumentType) (Variant, bool) {
	v, ok := variants[t]
	return v, ok
}

// Read runs the recognizer and maps unreadable input to ErrExtraction.
func Read(ctx context.Context, engine ocr.Engine, media model.MediaType, data []byte) (model.RecognizedText, error) {
	text, err := engine.Recognize(ctx, media, data)
	if err != nil {
		if errors.Is(err, ocr.ErrUnreadable) {
			return model.RecognizedText{}, fmt.Errorf("%w: %w", ErrExtraction, err)
		}
		return model.RecognizedText{}, err
	}
	return text, nil
}

// run extracts with v, starting from the model's reading when a is set.
func run(v Variant, text model.RecognizedText, a *Assisted, asOf time.Time) Result {
	c := newCollector(text)
	if a != nil {
		c.pin(*a)
	}
	v.extract(c, text, asOf)
	return c.result()
}

// collector accumulates fields and checks while a variant runs.
type collector struct {
	base   float64
	fields model.ExtractedFields
	checks []model.RuleResult
	pinned map[string]bool // fields the variant may not overwrite
}

func newCollector(text model.RecognizedText) *collector {
	return &collector{base: clamp(text.Confidence), fields: model.ExtractedFields{}, pinned: map[string]bool{}}
}

func (c *collector) set(name, value string, strength float64) {
	if value == "" || c.pinned[name] {
		return
	}
	c.fields[name] = model.ExtractedField{Value: value, Confidence: round(c.base * strength)}
}

func (c *collector) pass(rule, details string) {
	c.checks = append(c.checks, model.RuleResult{Rule: rule, Status: model.RulePassed, Details: details})
}

// fail records a failed rule and penalizes the field it concerns, if present.
func (c *collector) fail(rule, details, field string) {
	c.checks = append(c.checks, model.RuleResult{Rule: rule, Status: model.RuleFailed, Details: details})
	if f, ok := c.fields[field]; ok {
		f.Confidence = round(f.Confidence * rulePenalty)
		c.fields[field] = f
	}
}

func (c *collector) result() Result {
	return Result{Fields: c.fields, Checks: c.checks}
}

// checkExpiry applies the expiry rules shared by all variants. minValidity is
// how long the document must remain valid after asOf.
func (c *collector) checkExpiry(rule string, asOf time.Time, minValidity time.Duration, expiredMsg string) {
	f, ok := c.fields[model.FieldExpiryDate]
	if !ok {
		c.fail("Expiry Date Presence", "Expiry date field missing", "")
		return
	}
	expiry, err := time.Parse(dateLayout, f.Value)
	if err != nil {
		c.fail("Expiry Date Validity", "Invalid date format", model.FieldExpiryDate)
		return
	}
	if !expiry.After(asOf.Add(minValidity)) {
		c.fail(rule, fmt.Sprintf(expiredMsg, f.Value), model.FieldExpiryDate)
		return
	}
	c.pass(rule, "Expiry date "+f.Value+" is valid")
}

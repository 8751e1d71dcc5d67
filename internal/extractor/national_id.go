package extractor

import (
	"fmt"
	"regexp"
	"time"

	"docverify/internal/model"
)

var (
	nationalIDNumber      = labelledNumber(`(?:national\s+)?id(?:entity)?\s*(?:card\s*)?(?:no|number)|card\s*(?:no|number)|nin|personal\s+number`)
	nationalIDNumberLoose = regexp.MustCompile(`\b(\d{8})\b`)
	nationalIDFormat      = regexp.MustCompile(`^\d{8}$`)
	nationalIDExpiry      = labelledDate(`date\s+of\s+expiry|expiry\s+date|expiry|expires|valid\s+until`)
	nationalIDBirth       = labelledDate(`date\s+of\s+birth|birth\s+date|dob`)
)

type nationalID struct{}

func (nationalID) Type() model.DocumentType { return model.DocumentTypeNationalID }

func (nationalID) RequiredFields() []string {
	return []string{model.FieldDocumentNumber, model.FieldFullName, model.FieldExpiryDate}
}

func (n nationalID) Extract(text model.RecognizedText, asOf time.Time) Result {
	return run(n, text, nil, asOf)
}

func (nationalID) extract(c *collector, text model.RecognizedText, asOf time.Time) {
	if n := nationalIDNumber.find(text.Content); n != "" {
		c.set(model.FieldDocumentNumber, cleanNumber(n), strengthLabelled)
	} else {
		c.set(model.FieldDocumentNumber, find(nationalIDNumberLoose, text.Content), strengthUnlabelled)
	}

	if surname := passportSurname.find(text.Content); surname != "" {
		c.set(model.FieldFullName, cleanName(passportGiven.find(text.Content)+" "+surname), strengthLabelled)
	} else {
		c.set(model.FieldFullName, cleanName(genericName.find(text.Content)), strengthLabelled)
	}

	c.set(model.FieldExpiryDate, normalizeDate(nationalIDExpiry.find(text.Content)), strengthLabelled)
	c.set(model.FieldDateOfBirth, normalizeDate(nationalIDBirth.find(text.Content)), strengthLabelled)

	if num := c.fields[model.FieldDocumentNumber].Value; nationalIDFormat.MatchString(num) {
		c.pass("National ID Number Format", "Valid 8-digit format")
	} else {
		c.fail("National ID Number Format",
			fmt.Sprintf("Value '%s' is not exactly 8 digits", num),
			model.FieldDocumentNumber)
	}
	c.checkExpiry("Document Active Status", asOf, 0, "Document expired on %s")
}

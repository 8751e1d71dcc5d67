package extractor

import (
	"fmt"
	"strings"
	"time"

	"docverify/internal/model"
)

var (
	licenseNumber     = labelledNumber(`(?:driving\s+)?licen[cs]e\s*(?:no|number|n[°o])|dl\s*(?:no|number)|4d`)
	licenseExpiry     = labelledDate(`date\s+of\s+expiry|expiry\s+date|expiry|expires|valid\s+until|4b`)
	licenseBirth      = labelledDate(`date\s+of\s+birth|birth\s+date|dob`)
	licenseCategories = labelled(`categor(?:y|ies)|class(?:es)?`, `(?i:[A-Z0-9]{1,3}(?:[ ,/]+[A-Z0-9]{1,3})*)$`)
)

// minLicenseNumber is the shortest plausible license number; formats vary too
// much between issuers to check anything stricter.
const minLicenseNumber = 5

type drivingLicense struct{}

func (drivingLicense) Type() model.DocumentType { return model.DocumentTypeDrivingLicense }

func (drivingLicense) RequiredFields() []string {
	return []string{model.FieldDocumentNumber, model.FieldFullName, model.FieldExpiryDate}
}

func (d drivingLicense) Extract(text model.RecognizedText, asOf time.Time) Result {
	return run(d, text, nil, asOf)
}

func (drivingLicense) extract(c *collector, text model.RecognizedText, asOf time.Time) {
	c.set(model.FieldDocumentNumber, cleanNumber(licenseNumber.find(text.Content)), strengthLabelled)

	if surname := passportSurname.find(text.Content); surname != "" {
		c.set(model.FieldFullName, cleanName(passportGiven.find(text.Content)+" "+surname), strengthLabelled)
	} else {
		c.set(model.FieldFullName, cleanName(genericName.find(text.Content)), strengthLabelled)
	}

	c.set(model.FieldExpiryDate, normalizeDate(licenseExpiry.find(text.Content)), strengthLabelled)
	c.set(model.FieldDateOfBirth, normalizeDate(licenseBirth.find(text.Content)), strengthLabelled)

	if cats := licenseCategories.find(text.Content); cats != "" {
		c.set(model.FieldCategories, strings.Join(strings.FieldsFunc(strings.ToUpper(cats), func(r rune) bool {
			return r == ' ' || r == ',' || r == '/'
		}), ","), strengthLabelled)
	}

	if num := c.fields[model.FieldDocumentNumber].Value; len(num) >= minLicenseNumber {
		c.pass("License Number Format", fmt.Sprintf("Present and valid length (%d chars)", len(num)))
	} else {
		c.fail("License Number Format", "Missing or too short (< 5 chars)", model.FieldDocumentNumber)
	}
	c.checkExpiry("License Active Status", asOf, 0, "License expired on %s")
}

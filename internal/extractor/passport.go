package extractor

import (
	"fmt"
	"regexp"
	"time"

	"docverify/internal/model"
)

var (
	passportNumber      = labelledNumber(`passport\s*(?:no|number)|document\s*(?:no|number)`)
	passportNumberLoose = regexp.MustCompile(`\b([A-Z]{1,2}[0-9]{6,8})\b`)
	passportFormat      = regexp.MustCompile(`^[A-Z0-9]{9}$`)
	passportExpiry      = labelledDate(`date\s+of\s+expiry|expiry\s+date|expiration\s+date|expiry|expires|valid\s+until`)
	passportBirth       = labelledDate(`date\s+of\s+birth|birth\s+date|dob`)
	passportNationality = labelled(`nationality|nationalit[eé]`, `[A-Za-z][A-Za-z ]{1,40}[A-Za-z]`)
	passportSurname     = labelledText(`surname|last\s+name`)
	passportGiven       = labelledText(`given\s+names?|first\s+names?`)
	genericName         = labelledText(`full\s+name|holder|name`)
)

// sixMonths is the remaining validity most destinations require for travel.
const sixMonths = 182 * 24 * time.Hour

type passport struct{}

func (passport) Type() model.DocumentType { return model.DocumentTypePassport }

func (passport) RequiredFields() []string {
	return []string{model.FieldDocumentNumber, model.FieldExpiryDate, model.FieldNationality}
}

func (p passport) Extract(text model.RecognizedText, asOf time.Time) Result {
	return run(p, text, nil, asOf)
}

func (passport) extract(c *collector, text model.RecognizedText, asOf time.Time) {
	zone, hasZone := parseMRZ(text.Content, asOf)

	mrzStrength := func(valid bool) float64 {
		if valid {
			return strengthMRZ
		}
		return strengthMRZNoCheck
	}

	switch num := passportNumber.find(text.Content); {
	case num != "":
		c.set(model.FieldDocumentNumber, cleanNumber(num), strengthLabelled)
	case hasZone && zone.number != "":
		c.set(model.FieldDocumentNumber, zone.number, mrzStrength(zone.numberValid))
	default:
		c.set(model.FieldDocumentNumber, find(passportNumberLoose, text.Content), strengthUnlabelled)
	}

	if d := normalizeDate(passportExpiry.find(text.Content)); d != "" {
		c.set(model.FieldExpiryDate, d, strengthLabelled)
	} else if hasZone {
		c.set(model.FieldExpiryDate, zone.expiryDate, mrzStrength(zone.expiryValid))
	}

	if n := passportNationality.find(text.Content); n != "" {
		c.set(model.FieldNationality, cleanName(n), strengthLabelled)
	} else if hasZone {
		c.set(model.FieldNationality, zone.nationality, strengthMRZ)
	}

	surname, given := passportSurname.find(text.Content), passportGiven.find(text.Content)
	switch {
	case surname != "":
		c.set(model.FieldFullName, cleanName(given+" "+surname), strengthLabelled)
	case hasZone && zone.fullName() != "":
		c.set(model.FieldFullName, zone.fullName(), strengthMRZ)
	default:
		c.set(model.FieldFullName, cleanName(genericName.find(text.Content)), strengthLabelled)
	}

	if d := normalizeDate(passportBirth.find(text.Content)); d != "" {
		c.set(model.FieldDateOfBirth, d, strengthLabelled)
	} else if hasZone {
		c.set(model.FieldDateOfBirth, zone.birthDate, strengthMRZ)
	}

	if num := c.fields[model.FieldDocumentNumber].Value; passportFormat.MatchString(num) {
		c.pass("Passport Number Format", "Valid format")
	} else {
		c.fail("Passport Number Format",
			fmt.Sprintf("Value '%s' does not match 9-character alphanumeric format", num),
			model.FieldDocumentNumber)
	}
	c.checkExpiry("Travel Validity (6 Months Rule)", asOf, sixMonths,
		"Expiry date %s is less than 6 months from today")
}

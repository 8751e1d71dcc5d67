package extractor

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

const datePattern = `(\d{4}[-/.]\d{1,2}[-/.]\d{1,2}|\d{1,2}[-/.]\d{1,2}[-/.]\d{4}|\d{1,2}\s+[A-Za-z]{3,9}\.?\s+\d{4})`

var (
	ymd     = regexp.MustCompile(`^(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})$`)
	dmy     = regexp.MustCompile(`^(\d{1,2})[-/.](\d{1,2})[-/.](\d{4})$`)
	dMonthY = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]{3})[A-Za-z]*\.?\s+(\d{4})$`)
	spaces  = regexp.MustCompile(`\s+`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// knownLabels are the field labels that end a value printed on the same line.
const knownLabels = `passport|nationality|nationalit[eé]|surname|last\s+name|given\s+names?|first\s+names?|` +
	`full\s+name|name|holder|sex|gender|date\s+of\s+(?:birth|expiry|issue)|birth\s+date|expiry(?:\s+date)?|` +
	`expiration\s+date|expires|valid\s+until|dob|issued?|place\s+of\s+birth|authority|categor(?:y|ies)|` +
	`class(?:es)?|(?:id|card|document|dl|licen[cs]e)\s*(?:no|number)`

// labelStop marks where the text after a label stops belonging to it: a run
// of two or more spaces, a tab, a known label, or any short "Word Word:" label.
var labelStop = regexp.MustCompile(`(?i)\s{2,}|\t|(?:^|\s)(?:` + knownLabels + `)\b|` +
	`\s[A-Za-z][A-Za-z.]*(?:\s[A-Za-z][A-Za-z.]*){0,2}\s*:`)

// labelledField finds the value printed after one of its labels.
type labelledField struct {
	label *regexp.Regexp
	value *regexp.Regexp // nil accepts the whole segment
}

// labelled returns a field whose value must match value at the start of the
// text following one of labels.
func labelled(labels, value string) labelledField {
	f := labelledField{label: regexp.MustCompile(`(?i)\b(?:` + labels + `)\b[\s:#.]*([^\n]*)`)}
	if value != "" {
		f.value = regexp.MustCompile(`^(?:` + value + `)`)
	}
	return f
}

func labelledDate(labels string) labelledField {
	return labelled(labels, datePattern)
}

func labelledText(labels string) labelledField {
	return labelled(labels, "")
}

// labelledNumber accepts upper-case groups joined by hyphens, or by single
// spaces when the next group starts with a digit.
func labelledNumber(labels string) labelledField {
	return labelled(labels, `[A-Z0-9]+(?:-[A-Z0-9]+|\s\d[A-Z0-9]*)*`)
}

// find returns the value after the first occurrence of a label that carries one.
func (f labelledField) find(text string) string {
	for off := 0; off < len(text); {
		loc := f.label.FindStringSubmatchIndex(text[off:])
		if loc == nil {
			return ""
		}
		start, end := off+loc[2], off+loc[3]
		seg := text[start:end]
		if cut := labelStop.FindStringIndex(seg); cut != nil {
			seg = seg[:cut[0]]
		}
		seg = strings.TrimSpace(seg)
		if f.value != nil {
			seg = strings.TrimSpace(f.value.FindString(seg))
		}
		if seg != "" {
			return seg
		}
		off = start
	}
	return ""
}

// find returns the first capture group of re in text.
func find(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// cleanNumber strips separators OCR tends to keep inside document numbers.
func cleanNumber(s string) string {
	s = strings.ToUpper(s)
	return strings.NewReplacer(" ", "", "-", "").Replace(s)
}

func cleanName(s string) string {
	return strings.ToUpper(strings.TrimSpace(spaces.ReplaceAllString(s, " ")))
}

// normalizeDate converts common printed formats to YYYY-MM-DD. Day-first is
// assumed for numeric dates that do not start with the year.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	var y, m, d int
	switch {
	case ymd.MatchString(s):
		p := ymd.FindStringSubmatch(s)
		y, m, d = atoi(p[1]), atoi(p[2]), atoi(p[3])
	case dmy.MatchString(s):
		p := dmy.FindStringSubmatch(s)
		d, m, y = atoi(p[1]), atoi(p[2]), atoi(p[3])
	case dMonthY.MatchString(s):
		p := dMonthY.FindStringSubmatch(s)
		mon, ok := months[strings.ToLower(p[2])]
		if !ok {
			return ""
		}
		d, m, y = atoi(p[1]), int(mon), atoi(p[3])
	default:
		return ""
	}
	return formatDate(y, m, d)
}

// formatDate rejects dates that time.Date would normalize (e.g. 31 Feb).
func formatDate(y, m, d int) string {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return ""
	}
	return t.Format(dateLayout)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

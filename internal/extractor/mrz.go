package extractor

import (
	"regexp"
	"strings"
	"time"
)

// TD3 (passport) machine readable zone: two lines of 44 characters.
var (
	mrzLine1 = regexp.MustCompile(`^P[A-Z<][A-Z<]{3}[A-Z<]{39}$`)
	mrzLine2 = regexp.MustCompile(`^[A-Z0-9<]{9}[0-9<][A-Z<]{3}[0-9]{6}[0-9][MFX<][0-9]{6}[0-9][A-Z0-9<]{14}[0-9<][0-9]$`)
)

type mrz struct {
	number      string
	numberValid bool
	nationality string
	surname     string
	givenNames  string
	birthDate   string
	expiryDate  string
	expiryValid bool
}

func (m mrz) fullName() string {
	return strings.TrimSpace(m.givenNames + " " + m.surname)
}

// parseMRZ finds a TD3 zone in text. Spaces inside lines are ignored.
func parseMRZ(text string, asOf time.Time) (mrz, bool) {
	lines := strings.Split(text, "\n")
	for i := 0; i+1 < len(lines); i++ {
		l1 := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(lines[i]), " ", ""))
		l2 := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(lines[i+1]), " ", ""))
		if !mrzLine1.MatchString(l1) || !mrzLine2.MatchString(l2) {
			continue
		}

		var m mrz
		names := strings.SplitN(l1[5:], "<<", 2)
		m.surname = strings.TrimSpace(strings.ReplaceAll(names[0], "<", " "))
		if len(names) == 2 {
			m.givenNames = strings.TrimSpace(spaces.ReplaceAllString(strings.ReplaceAll(names[1], "<", " "), " "))
		}

		m.number = strings.TrimRight(l2[0:9], "<")
		m.numberValid = checkDigit(l2[0:9]) == l2[9]
		m.nationality = strings.Trim(l2[10:13], "<")
		m.birthDate = mrzDate(l2[13:19], asOf, true)
		m.expiryDate = mrzDate(l2[21:27], asOf, false)
		m.expiryValid = checkDigit(l2[21:27]) == l2[27]
		return m, true
	}
	return mrz{}, false
}

// mrzDate expands YYMMDD. Birth dates in the future roll back a century.
func mrzDate(s string, asOf time.Time, birth bool) string {
	yy, mm, dd := atoi(s[0:2]), atoi(s[2:4]), atoi(s[4:6])
	year := 2000 + yy
	if birth && year > asOf.Year() {
		year -= 100
	}
	return formatDate(year, mm, dd)
}

// checkDigit computes the ICAO 9303 7-3-1 check digit.
func checkDigit(s string) byte {
	weights := [3]int{7, 3, 1}
	sum := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		var v int
		switch {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c >= 'A' && c <= 'Z':
			v = int(c-'A') + 10
		default:
			v = 0
		}
		sum += v * weights[i%3]
	}
	return byte('0' + sum%10)
}

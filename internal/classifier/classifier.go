// Package classifier decides which kind of identity document was uploaded.
package classifier

import (
	"errors"
	"math"
	"path/filepath"
	"regexp"
	"strings"

	"docverify/internal/config"
	"docverify/internal/model"
)

// ErrUnclassifiable is returned when no type reaches the confidence floor.
// It is not fatal: the result still carries the per-type scores.
var ErrUnclassifiable = errors.New("document could not be classified")

type signal struct {
	pattern *regexp.Regexp
	weight  float64
}

func sig(expr string, weight float64) signal {
	return signal{pattern: regexp.MustCompile(`(?i)` + expr), weight: weight}
}

var textSignals = map[model.DocumentType][]signal{
	model.DocumentTypePassport: {
		sig(`\bpass(e)?port\b`, 0.5),
		sig(`(?m-i)^P[A-Z<][A-Z<]{3}[A-Z<]*<<[A-Z<]*$`, 0.3),
		sig(`\bpassport\s*(no|number|n[°o]\.?)\b`, 0.2),
		sig(`\bnationality\b`, 0.1),
		sig(`\bplace of birth\b`, 0.05),
	},
	model.DocumentTypeNationalID: {
		sig(`\b(national\s+id(entity)?|identity\s+card|id\s+card|carte\s+d'identit[eé])\b`, 0.5),
		sig(`\bresidence\s+permit\b`, 0.3),
		sig(`(?m-i)^I[A-Z<][A-Z<]{3}[A-Z0-9<]*<<[A-Z0-9<]*$`, 0.3),
		sig(`\b(id|nin|identity)\s*(no|number)\b`, 0.2),
		sig(`\b\d{8}\b`, 0.05),
	},
	model.DocumentTypeDrivingLicense: {
		sig(`\bdriv(ing|er'?s?)\s+licen[cs]e\b`, 0.5),
		sig(`\b(dl|licen[cs]e)\s*(no|number)\b`, 0.2),
		sig(`\b(vehicle\s+)?categor(y|ies)\b`, 0.2),
		sig(`\bclass\s+[A-E]\b`, 0.1),
		sig(`\bpermis\s+de\s+conduire\b`, 0.3),
	},
}

// filenameBonus is added when the original filename names the type.
const filenameBonus = 0.1

var filenameSignals = []struct {
	typ      model.DocumentType
	keywords []string
}{
	{model.DocumentTypePassport, []string{"passport"}},
	{model.DocumentTypeDrivingLicense, []string{"driving", "license", "licence", "dl_", "dl-"}},
	{model.DocumentTypeNationalID, []string{"national", "idcard", "id_card", "id-card"}},
}

// Classifier scores recognized text against per-type signals.
type Classifier struct {
	minConfidence  float64
	hintConfidence float64
	overrideMargin float64
}

// New creates a Classifier from the verification thresholds.
func New(cfg config.VerificationConfig) *Classifier {
	return &Classifier{
		minConfidence:  cfg.MinConfidence,
		hintConfidence: cfg.HintConfidence,
		overrideMargin: cfg.OverrideMargin,
	}
}

// Classify returns the detected type for text. A known hint is trusted unless
// another type beats hint confidence by more than the override margin.
func (c *Classifier) Classify(text model.RecognizedText, filename string, hint model.DocumentType) (model.ClassificationResult, error) {
	scores := Score(text, filename)
	best, bestScore := top(scores)

	if _, known := model.ParseDocumentType(string(hint)); known {
		if best != hint && bestScore > round(c.hintConfidence+c.overrideMargin) {
			return model.ClassificationResult{
				DetectedType:         best,
				ClassifierConfidence: bestScore,
				Scores:               scores,
			}, nil
		}
		return model.ClassificationResult{
			DetectedType:         hint,
			ClassifierConfidence: math.Max(c.hintConfidence, scores[hint]),
			Scores:               scores,
			HintApplied:          true,
		}, nil
	}

	if bestScore < c.minConfidence || bestScore == 0 {
		return model.ClassificationResult{
			DetectedType:         model.DocumentTypeUnknown,
			ClassifierConfidence: bestScore,
			Scores:               scores,
		}, ErrUnclassifiable
	}
	return model.ClassificationResult{
		DetectedType:         best,
		ClassifierConfidence: bestScore,
		Scores:               scores,
	}, nil
}

// Score computes a [0,1] score per known type.
func Score(text model.RecognizedText, filename string) map[model.DocumentType]float64 {
	name := strings.ToLower(filepath.Base(filename))
	scores := make(map[model.DocumentType]float64, len(model.KnownDocumentTypes))

	for _, t := range model.KnownDocumentTypes {
		var s float64
		for _, sg := range textSignals[t] {
			if sg.pattern.MatchString(text.Content) {
				s += sg.weight
			}
		}
		s = math.Min(s, 1) * clamp(text.Confidence)
		scores[t] = round(s)
	}

	for _, fs := range filenameSignals {
		for _, kw := range fs.keywords {
			if strings.Contains(name, kw) {
				scores[fs.typ] = round(math.Min(scores[fs.typ]+filenameBonus, 1))
				break
			}
		}
	}
	return scores
}

// top picks the highest score; KnownDocumentTypes order breaks ties.
func top(scores map[model.DocumentType]float64) (model.DocumentType, float64) {
	best, bestScore := model.DocumentTypeUnknown, -1.0
	for _, t := range model.KnownDocumentTypes {
		if scores[t] > bestScore {
			best, bestScore = t, scores[t]
		}
	}
	return best, bestScore
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

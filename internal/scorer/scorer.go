// Package scorer combines classifier and extractor signals into a verdict.
package scorer

import (
	"math"

	"docverify/internal/config"
	"docverify/internal/model"
)

// Scorer is a pure function of its inputs and configuration.
type Scorer struct {
	classifierWeight  float64
	fieldWeight       float64
	verifiedThreshold float64
	reviewThreshold   float64
}

// New creates a Scorer. Weights are normalized so they sum to one.
func New(cfg config.VerificationConfig) *Scorer {
	cw, fw := cfg.ClassifierWeight, cfg.FieldWeight
	if total := cw + fw; total > 0 {
		cw, fw = cw/total, fw/total
	}
	return &Scorer{
		classifierWeight:  cw,
		fieldWeight:       fw,
		verifiedThreshold: cfg.VerifiedThreshold,
		reviewThreshold:   cfg.ReviewThreshold,
	}
}

// Score returns the confidence score in [0,1] and the status it implies.
// A document with none of its required fields present is never verified.
func (s *Scorer) Score(cls model.ClassificationResult, fields model.ExtractedFields, required []string) (float64, model.Status) {
	var fieldScore float64
	present := 0
	if len(required) > 0 {
		for _, name := range required {
			if f, ok := fields[name]; ok {
				present++
				fieldScore += clamp(f.Confidence)
			}
		}
		fieldScore /= float64(len(required))
	}

	score := s.classifierWeight*clamp(cls.ClassifierConfidence) + s.fieldWeight*fieldScore
	score = math.Round(clamp(score)*1e4) / 1e4

	status := s.Status(score)
	if present == 0 && status == model.StatusVerified {
		status = model.StatusNeedsReview
	}
	return score, status
}

// Status maps a score onto the configured thresholds.
func (s *Scorer) Status(score float64) model.Status {
	switch {
	case score >= s.verifiedThreshold:
		return model.StatusVerified
	case score >= s.reviewThreshold:
		return model.StatusNeedsReview
	default:
		return model.StatusRejected
	}
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

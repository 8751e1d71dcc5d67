package model

import (
	"strings"
	"time"
)

// DocumentType is the closed set of identity documents the service recognizes.
type DocumentType string

const (
	DocumentTypePassport       DocumentType = "passport"
	DocumentTypeNationalID     DocumentType = "national_id"
	DocumentTypeDrivingLicense DocumentType = "driving_license"
	DocumentTypeUnknown        DocumentType = "unknown"
)

// AutoDetect is the hint value that asks the classifier to decide on its own.
const AutoDetect = "auto_detect"

// KnownDocumentTypes lists classifiable types in tie-break priority order.
var KnownDocumentTypes = []DocumentType{
	DocumentTypePassport,
	DocumentTypeNationalID,
	DocumentTypeDrivingLicense,
}

// ParseDocumentType normalizes s ("National ID", "driving-license") into a known type.
// The second return is false for empty, auto_detect or unrecognized values.
func ParseDocumentType(s string) (DocumentType, bool) {
	n := strings.ToLower(strings.TrimSpace(s))
	n = strings.NewReplacer(" ", "_", "-", "_").Replace(n)
	for _, t := range KnownDocumentTypes {
		if n == string(t) {
			return t, true
		}
	}
	return DocumentTypeUnknown, false
}

// Status is the terminal verdict of a verification.
type Status string

const (
	StatusVerified    Status = "verified"
	StatusRejected    Status = "rejected"
	StatusNeedsReview Status = "needs_review"
)

// MediaType is an accepted upload format.
type MediaType string

const (
	MediaTypePDF  MediaType = "pdf"
	MediaTypePNG  MediaType = "png"
	MediaTypeJPEG MediaType = "jpeg"
)

// MIME returns the canonical content type for m.
func (m MediaType) MIME() string {
	switch m {
	case MediaTypePDF:
		return "application/pdf"
	case MediaTypePNG:
		return "image/png"
	case MediaTypeJPEG:
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

// VerificationRequest is one accepted upload. Source is owned by the request
// and dropped with Release once the pipeline no longer needs it.
type VerificationRequest struct {
	ID           string
	Source       []byte
	Filename     string
	MediaType    MediaType
	DeclaredType string
	NotifyEmail  string
	ReceivedAt   time.Time
}

// Release drops the reference to the uploaded bytes.
func (r *VerificationRequest) Release() {
	r.Source = nil
}

// Hint returns the declared type when it names a known document.
func (r *VerificationRequest) Hint() (DocumentType, bool) {
	return ParseDocumentType(r.DeclaredType)
}

// RecognizedText is the output of a text recognizer.
type RecognizedText struct {
	Content    string
	Confidence float64
}

// ClassificationResult is produced once by the classifier and never mutated.
type ClassificationResult struct {
	DetectedType         DocumentType
	ClassifierConfidence float64
	Scores               map[DocumentType]float64
	HintApplied          bool
}

// ExtractedField is a single value with its own confidence.
type ExtractedField struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// ExtractedFields maps field names (document_number, expiry_date, ...) to values.
type ExtractedFields map[string]ExtractedField

// Well-known field names.
const (
	FieldDocumentNumber = "document_number"
	FieldFullName       = "full_name"
	FieldExpiryDate     = "expiry_date"
	FieldDateOfBirth    = "date_of_birth"
	FieldNationality    = "nationality"
	FieldCategories     = "categories"
)

// RuleStatus is the outcome of a single verification rule.
type RuleStatus string

const (
	RulePassed RuleStatus = "PASSED"
	RuleFailed RuleStatus = "FAILED"
)

// RuleResult records one deterministic check applied to extracted data.
type RuleResult struct {
	Rule    string     `json:"rule"`
	Status  RuleStatus `json:"status"`
	Details string     `json:"details"`
}

// Reason explains a status that was forced rather than scored.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonUnclassifiable    Reason = "unclassifiable"
	ReasonExtractionError   Reason = "extraction_error"
	ReasonProcessingTimeout Reason = "processing_timeout"
	ReasonRecognitionFailed Reason = "recognition_failed"
)

// VerificationRecord is the persisted unit. It is immutable after assembly.
type VerificationRecord struct {
	ID              string          `json:"id"`
	Status          Status          `json:"status"`
	DocumentType    DocumentType    `json:"document_type"`
	ConfidenceScore float64         `json:"confidence_score"`
	ExtractedFields ExtractedFields `json:"extracted_fields"`
	Checks          []RuleResult    `json:"checks"`
	Reason          Reason          `json:"reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Field returns the value of name, or nil when it was not extracted.
func (r *VerificationRecord) Field(name string) *string {
	f, ok := r.ExtractedFields[name]
	if !ok {
		return nil
	}
	v := f.Value
	return &v
}

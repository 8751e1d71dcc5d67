package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"docverify/internal/extractor"
	"docverify/internal/model"
)

const assistPrompt = `You check identity documents. The user message is raw OCR text, which may contain typos and noise.
Today is %s. The document was classified as %s.

Reply with one JSON object and nothing else:
{
  "document_type": "passport" | "national_id" | "driving_license" | "other",
  "document_number": string or null,
  "expiry_date": "YYYY-MM-DD" or null,
  "inconsistencies": [string],
  "confidence_indication": "high" | "medium" | "low"
}

document_number is the value after labels such as Passport No, ID No, Licence No or DL No, without spaces or separators.
expiry_date comes from labels such as Expiry, Expires, EXP or Valid Until.
inconsistencies lists contradictions in the text, for example two different expiry dates. Use [] when there are none.`

var _ extractor.Assistant = (*Engine)(nil)

type assistReply struct {
	DocumentType         string   `json:"document_type"`
	DocumentNumber       *string  `json:"document_number"`
	ExpiryDate           *string  `json:"expiry_date"`
	Inconsistencies      []string `json:"inconsistencies"`
	ConfidenceIndication string   `json:"confidence_indication"`
}

// Assist asks the chat model for the document number, expiry date and any
// inconsistencies in text, which was classified as docType.
func (e *Engine) Assist(ctx context.Context, docType model.DocumentType, text string, asOf time.Time) (extractor.Assisted, error) {
	if e.apiKey == "" {
		return extractor.Assisted{}, ErrNotConfigured
	}

	content, err := e.complete(ctx, chatRequest{
		Model: e.model,
		Messages: []message{
			{Role: "system", Content: []contentBlock{{Type: "text", Text: fmt.Sprintf(assistPrompt, asOf.Format("2006-01-02"), docType)}}},
			{Role: "user", Content: []contentBlock{{Type: "text", Text: "Raw OCR Text:\n" + text}}},
		},
		MaxTokens:      500,
		Temperature:    0.1,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return extractor.Assisted{}, err
	}

	var reply assistReply
	if err := json.Unmarshal([]byte(stripFence(content)), &reply); err != nil {
		return extractor.Assisted{}, fmt.Errorf("decoding assist reply: %w", err)
	}

	out := extractor.Assisted{
		Inconsistencies: reply.Inconsistencies,
		Confidence:      reply.ConfidenceIndication,
	}
	if t, ok := model.ParseDocumentType(reply.DocumentType); ok {
		out.DocumentType = t
	}
	if reply.DocumentNumber != nil {
		out.DocumentNumber = *reply.DocumentNumber
	}
	if reply.ExpiryDate != nil {
		out.ExpiryDate = *reply.ExpiryDate
	}
	return out, nil
}

// stripFence removes a ```json fence some models put around JSON replies.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

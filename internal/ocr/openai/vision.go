// Package openai implements ocr.Engine on top of the OpenAI Chat Completions
// vision API.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"docverify/internal/config"
	"docverify/internal/model"
	"docverify/internal/ocr"
)

const prompt = "You are an OCR engine. Read ALL visible text in this document image clearly and accurately. " +
	"Return ONLY the raw text found, preserving layout structure where possible. Do not interpret or summarize."

// ErrNotConfigured is returned when no API key was provided.
var ErrNotConfigured = errors.New("openai recognizer: api key is not configured")

// Engine reads document images with a vision model.
type Engine struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

var _ ocr.Engine = (*Engine)(nil)

// New creates a vision Engine from cfg.
func New(cfg config.OCRConfig) *Engine {
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Engine{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: cfg.Endpoint,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type imageURL struct {
	URL string `json:"url"`
}

type contentBlock struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Recognize sends the image as a data URI and returns the transcribed text.
func (e *Engine) Recognize(ctx context.Context, media model.MediaType, data []byte) (model.RecognizedText, error) {
	if e.apiKey == "" {
		return model.RecognizedText{}, ErrNotConfigured
	}
	if media != model.MediaTypePNG && media != model.MediaTypeJPEG {
		return model.RecognizedText{}, fmt.Errorf("%w: %s", ocr.ErrNoEngine, media)
	}

	dataURI := fmt.Sprintf("data:%s;base64,%s", media.MIME(), base64.StdEncoding.EncodeToString(data))
	content, err := e.complete(ctx, chatRequest{
		Model: e.model,
		Messages: []message{{
			Role: "user",
			Content: []contentBlock{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURI}},
			},
		}},
		MaxTokens: 1000,
	})
	if err != nil {
		return model.RecognizedText{}, err
	}

	text := strings.TrimSpace(content)
	return model.RecognizedText{
		Content:    text,
		Confidence: ocr.TextConfidence(text, 0.95, 0.4, 20),
	}, nil
}

// complete posts one chat completion and returns the first choice's content.
func (e *Engine) complete(ctx context.Context, chat chatRequest) (string, error) {
	body, err := json.Marshal(chat)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling openai API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 300))
		// A 400 about the image itself means the upload could not be decoded.
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(string(respBody)), "image") {
			return "", fmt.Errorf("%w: %w", ocr.ErrUnreadable, baseErr)
		}
		return "", baseErr
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("unmarshaling response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("empty response from API: no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

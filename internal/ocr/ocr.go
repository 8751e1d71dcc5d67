// Package ocr defines the pluggable text recognition capability used ahead of
// classification and extraction.
package ocr

import (
	"context"
	"errors"
	"fmt"

	"docverify/internal/model"
)

var (
	// ErrUnreadable marks input that is corrupt or cannot be decoded at all.
	ErrUnreadable = errors.New("document is unreadable")
	// ErrNoEngine is returned when no recognizer handles the media type.
	ErrNoEngine = errors.New("no recognizer for media type")
)

// Engine turns document bytes into text. Implementations may block on a remote
// inference call and must honor ctx.
type Engine interface {
	Recognize(ctx context.Context, media model.MediaType, data []byte) (model.RecognizedText, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, media model.MediaType, data []byte) (model.RecognizedText, error)

func (f EngineFunc) Recognize(ctx context.Context, media model.MediaType, data []byte) (model.RecognizedText, error) {
	return f(ctx, media, data)
}

// Router dispatches to an Engine by media type.
type Router struct {
	engines map[model.MediaType]Engine
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{engines: make(map[model.MediaType]Engine)}
}

// Handle registers e for each of the given media types.
func (r *Router) Handle(e Engine, media ...model.MediaType) *Router {
	for _, m := range media {
		r.engines[m] = e
	}
	return r
}

func (r *Router) Recognize(ctx context.Context, media model.MediaType, data []byte) (model.RecognizedText, error) {
	e, ok := r.engines[media]
	if !ok {
		return model.RecognizedText{}, fmt.Errorf("%w: %s", ErrNoEngine, media)
	}
	return e.Recognize(ctx, media, data)
}

// TextConfidence is the read confidence heuristic shared by engines: short
// output usually means the page was not really read.
func TextConfidence(text string, high, low float64, minLen int) float64 {
	if len(text) > minLen {
		return high
	}
	return low
}

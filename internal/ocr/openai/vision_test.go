package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docverify/internal/config"
	"docverify/internal/model"
	"docverify/internal/ocr"
)

func newTestEngine(t *testing.T, h http.HandlerFunc) *Engine {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(config.OCRConfig{APIKey: "sk-test", Model: "gpt-test", Endpoint: srv.URL, TimeoutSecs: 5})
}

func TestEngine_Recognize(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

			var req chatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "gpt-test", req.Model)
			require.Len(t, req.Messages, 1)
			require.Len(t, req.Messages[0].Content, 2)
			assert.True(t, strings.HasPrefix(req.Messages[0].Content[1].ImageURL.URL, "data:image/png;base64,"))

			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"PASSPORT\nPassport No: X12345678"},"finish_reason":"stop"}]}`))
		})

		got, err := e.Recognize(context.Background(), model.MediaTypePNG, []byte("img"))
		require.NoError(t, err)
		assert.Equal(t, "PASSPORT\nPassport No: X12345678", got.Content)
		assert.Equal(t, 0.95, got.Confidence)
	})

	t.Run("short text lowers confidence", func(t *testing.T) {
		e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"blurry"}}]}`))
		})

		got, err := e.Recognize(context.Background(), model.MediaTypeJPEG, []byte("img"))
		require.NoError(t, err)
		assert.Equal(t, 0.4, got.Confidence)
	})

	t.Run("invalid image maps to unreadable", func(t *testing.T) {
		e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"You uploaded an unsupported image."}}`))
		})

		_, err := e.Recognize(context.Background(), model.MediaTypePNG, []byte("img"))
		assert.ErrorIs(t, err, ocr.ErrUnreadable)
	})

	t.Run("server error", func(t *testing.T) {
		e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := e.Recognize(context.Background(), model.MediaTypePNG, []byte("img"))
		assert.ErrorContains(t, err, "status 500")
		assert.NotErrorIs(t, err, ocr.ErrUnreadable)
	})

	t.Run("pdf is not handled", func(t *testing.T) {
		e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})

		_, err := e.Recognize(context.Background(), model.MediaTypePDF, []byte("%PDF"))
		assert.ErrorIs(t, err, ocr.ErrNoEngine)
	})

	t.Run("missing key", func(t *testing.T) {
		e := New(config.OCRConfig{})
		_, err := e.Recognize(context.Background(), model.MediaTypePNG, []byte("img"))
		assert.ErrorIs(t, err, ErrNotConfigured)
	})
}

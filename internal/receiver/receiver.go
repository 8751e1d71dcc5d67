// Package receiver validates raw uploads and turns them into verification requests.
package receiver

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"docverify/internal/config"
	"docverify/internal/model"
)

var (
	// ErrInvalidInput is the root for every upload rejected before processing.
	ErrInvalidInput = errors.New("invalid input")

	ErrEmptyPayload     = fmt.Errorf("%w: document is empty", ErrInvalidInput)
	ErrPayloadTooLarge  = fmt.Errorf("%w: document exceeds maximum allowed size", ErrInvalidInput)
	ErrUnsupportedMedia = fmt.Errorf("%w: unsupported media type (pdf, png, jpeg accepted)", ErrInvalidInput)
	ErrUnknownType      = fmt.Errorf("%w: unknown metadataType", ErrInvalidInput)
	ErrInvalidEmail     = fmt.Errorf("%w: invalid email address", ErrInvalidInput)
)

// idempotencyNamespace scopes deterministic request ids derived from caller keys.
var idempotencyNamespace = uuid.MustParse("6f1c1c52-7f0e-4f55-9a53-0c8e3b0f7d21")

// Upload is the raw material handed over by the transport layer.
type Upload struct {
	Payload        []byte
	Filename       string
	DeclaredType   string
	NotifyEmail    string
	IdempotencyKey string
}

// Receiver checks basic upload constraints.
type Receiver struct {
	maxBytes int64
	now      func() time.Time
}

// New creates a Receiver bounded by cfg.MaxBytes.
func New(cfg config.UploadConfig) *Receiver {
	return &Receiver{maxBytes: cfg.MaxBytes, now: time.Now}
}

// MaxBytes returns the configured size ceiling.
func (r *Receiver) MaxBytes() int64 {
	return r.maxBytes
}

// Receive validates in and returns a request with a fresh id. The payload slice
// is taken over by the request; callers must not modify it afterwards.
func (r *Receiver) Receive(in Upload) (*model.VerificationRequest, error) {
	if len(in.Payload) == 0 {
		return nil, ErrEmptyPayload
	}
	if r.maxBytes > 0 && int64(len(in.Payload)) > r.maxBytes {
		return nil, ErrPayloadTooLarge
	}

	media, ok := SniffMediaType(in.Payload)
	if !ok {
		return nil, ErrUnsupportedMedia
	}

	declared := strings.TrimSpace(in.DeclaredType)
	if declared != "" && !strings.EqualFold(declared, model.AutoDetect) {
		if _, ok := model.ParseDocumentType(declared); !ok {
			return nil, ErrUnknownType
		}
	}

	email := strings.TrimSpace(in.NotifyEmail)
	if email != "" {
		addr, err := mail.ParseAddress(email)
		if err != nil {
			return nil, ErrInvalidEmail
		}
		email = addr.Address
	}

	return &model.VerificationRequest{
		ID:           requestID(in.IdempotencyKey, in.Payload),
		Source:       in.Payload,
		Filename:     in.Filename,
		MediaType:    media,
		DeclaredType: declared,
		NotifyEmail:  email,
		ReceivedAt:   r.now().UTC().Truncate(time.Microsecond),
	}, nil
}

// requestID is random unless the caller supplied an idempotency key, in which
// case the same key and content always map to the same id.
func requestID(key string, payload []byte) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return uuid.NewString()
	}
	sum := sha256.Sum256(payload)
	return uuid.NewSHA1(idempotencyNamespace, append([]byte(key+":"), sum[:]...)).String()
}

// SniffMediaType detects the upload format from its leading bytes.
func SniffMediaType(data []byte) (model.MediaType, bool) {
	switch http.DetectContentType(data) {
	case "application/pdf":
		return model.MediaTypePDF, true
	case "image/png":
		return model.MediaTypePNG, true
	case "image/jpeg":
		return model.MediaTypeJPEG, true
	default:
		return "", false
	}
}

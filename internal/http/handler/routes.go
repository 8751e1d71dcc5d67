package handler

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"math"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"docverify/docs"
	"docverify/internal/model"
	"docverify/internal/receiver"
	"docverify/internal/repository"
	"docverify/internal/service"
	"docverify/internal/storage"
)

// IdempotencyKeyHeader lets a client retry an upload without creating a second record.
const IdempotencyKeyHeader = "Idempotency-Key"

// uploadResponse is the envelope of the upload and lookup endpoints.
type uploadResponse struct {
	Success bool              `json:"success"`
	Data    *verificationData `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
}

type verificationData struct {
	ID                    string             `json:"id"`
	Status                model.Status       `json:"status"`
	DocumentType          model.DocumentType `json:"document_type"`
	ConfidenceScore       float64            `json:"confidence_score"`
	Reason                model.Reason       `json:"reason,omitempty"`
	ExtractedData         extractedData      `json:"extracted_data"`
	VerificationDetails   []model.RuleResult `json:"verification_details"`
	ProcessingTimeSeconds *float64           `json:"processing_time_seconds,omitempty"`
	Replayed              bool               `json:"replayed,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
}

// extractedData always carries every known key; missing values are null.
type extractedData struct {
	DocumentNumber *string `json:"document_number"`
	FullName       *string `json:"full_name"`
	ExpiryDate     *string `json:"expiry_date"`
	DateOfBirth    *string `json:"date_of_birth"`
	Nationality    *string `json:"nationality"`
	Categories     *string `json:"categories"`
}

func toData(rec *model.VerificationRecord) *verificationData {
	checks := rec.Checks
	if checks == nil {
		checks = []model.RuleResult{}
	}
	return &verificationData{
		ID:              rec.ID,
		Status:          rec.Status,
		DocumentType:    rec.DocumentType,
		ConfidenceScore: rec.ConfidenceScore,
		Reason:          rec.Reason,
		ExtractedData: extractedData{
			DocumentNumber: rec.Field(model.FieldDocumentNumber),
			FullName:       rec.Field(model.FieldFullName),
			ExpiryDate:     rec.Field(model.FieldExpiryDate),
			DateOfBirth:    rec.Field(model.FieldDateOfBirth),
			Nationality:    rec.Field(model.FieldNationality),
			Categories:     rec.Field(model.FieldCategories),
		},
		VerificationDetails: checks,
		CreatedAt:           rec.CreatedAt,
	}
}

func writeUploadError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(uploadResponse{Success: false, Error: message})
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// db may be nil when records are kept in memory.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.VerificationService) {
	app.Get("/swagger/*", Swagger())

	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", Liveness())

	api := app.Group("/api")
	api.Post("/upload", UploadDocument(svc))
	api.Get("/verifications/:id", GetVerification(svc))
	api.Get("/verifications/:id/snapshot", GetSnapshot(svc))
}

// Swagger serves the API docs with host and scheme taken from the request.
func Swagger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	}
}

// HealthCheck reports database connectivity.
//
//	@Summary	Readiness check
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	errorPayload
//	@Router		/health [get]
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db == nil {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy", "database": "disabled"})
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// Liveness always answers 200 while the process is up.
func Liveness() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// UploadDocument verifies one uploaded identity document.
//
//	@Summary	Verify a document
//	@Tags		verification
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		document		formData	file	true	"PDF, PNG or JPEG document"
//	@Param		email			formData	string	false	"Notification address"
//	@Param		metadataType	formData	string	false	"auto_detect, passport, national_id or driving_license"
//	@Param		Idempotency-Key	header		string	false	"Retry key"
//	@Success	200	{object}	uploadResponse
//	@Failure	400	{object}	uploadResponse
//	@Failure	413	{object}	uploadResponse
//	@Failure	500	{object}	uploadResponse
//	@Router		/api/upload [post]
func UploadDocument(svc service.VerificationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("document")
		if err != nil {
			return writeUploadError(c, fiber.StatusBadRequest, "document file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeUploadError(c, fiber.StatusBadRequest, "cannot open uploaded file")
		}
		defer f.Close()

		payload, err := io.ReadAll(f)
		if err != nil {
			return writeUploadError(c, fiber.StatusBadRequest, "cannot read uploaded file")
		}

		// Fiber never cancels UserContext when the client disconnects, so the
		// pipeline deadline is what bounds this call.
		res, err := svc.Verify(c.UserContext(), receiver.Upload{
			Payload:        payload,
			Filename:       fh.Filename,
			DeclaredType:   c.FormValue("metadataType"),
			NotifyEmail:    c.FormValue("email"),
			IdempotencyKey: c.Get(IdempotencyKeyHeader),
		})
		if err != nil {
			switch {
			case errors.Is(err, receiver.ErrPayloadTooLarge):
				return writeUploadError(c, fiber.StatusRequestEntityTooLarge, err.Error())
			case errors.Is(err, receiver.ErrInvalidInput):
				return writeUploadError(c, fiber.StatusBadRequest, err.Error())
			default:
				return writeUploadError(c, fiber.StatusInternalServerError, "internal server error")
			}
		}

		data := toData(res.Record)
		secs := math.Round(res.Elapsed.Seconds()*100) / 100
		data.ProcessingTimeSeconds = &secs
		data.Replayed = res.Replayed
		return c.Status(fiber.StatusOK).JSON(uploadResponse{Success: true, Data: data})
	}
}

// GetVerification returns a stored verification record.
//
//	@Summary	Get a verification record
//	@Tags		verification
//	@Produce	json
//	@Param		id	path		string	true	"Record id"
//	@Success	200	{object}	uploadResponse
//	@Failure	404	{object}	errorPayload
//	@Router		/api/verifications/{id} [get]
func GetVerification(svc service.VerificationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "verification not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(uploadResponse{Success: true, Data: toData(rec)})
	}
}

// GetSnapshot streams the archived JSON snapshot of a record.
//
//	@Summary	Get an archived record snapshot
//	@Tags		verification
//	@Produce	json
//	@Param		id	path	string	true	"Record id"
//	@Success	200
//	@Failure	404	{object}	errorPayload
//	@Failure	503	{object}	errorPayload
//	@Router		/api/verifications/{id}/snapshot [get]
func GetSnapshot(svc service.VerificationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := svc.Snapshot(c.UserContext(), c.Params("id"))
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrObjectNotFound):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "snapshot not found")
			case errors.Is(err, service.ErrSnapshotUnavailable):
				return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "snapshot archive is not configured")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		c.Type("json")
		return c.SendStream(r)
	}
}

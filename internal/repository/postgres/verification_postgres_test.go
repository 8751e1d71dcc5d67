package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docverify/internal/model"
	"docverify/internal/repository"
)

var columns = []string{"id", "status", "document_type", "confidence_score", "extracted_fields", "checks", "reason", "created_at"}

func sampleRecord() *model.VerificationRecord {
	return &model.VerificationRecord{
		ID:              "5b1c7a9e-1111-4c7a-9e00-000000000001",
		Status:          model.StatusVerified,
		DocumentType:    model.DocumentTypePassport,
		ConfidenceScore: 0.97,
		ExtractedFields: model.ExtractedFields{
			model.FieldDocumentNumber: {Value: "X1234567A", Confidence: 0.95},
		},
		Checks: []model.RuleResult{
			{Rule: "Passport Number Format", Status: model.RulePassed, Details: "Valid 9-character format"},
		},
		CreatedAt: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestVerificationPostgres_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewVerificationPostgres(db)
	ctx := context.Background()
	rec := sampleRecord()

	fields := []byte(`{"document_number":{"value":"X1234567A","confidence":0.95}}`)
	checks := []byte(`[{"rule":"Passport Number Format","status":"PASSED","details":"Valid 9-character format"}]`)

	mock.ExpectExec("INSERT INTO verification_records (.+) ON CONFLICT \\(id\\) DO NOTHING").
		WithArgs(rec.ID, "verified", "passport", 0.97, fields, checks, "", rec.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM verification_records WHERE id = ?").
		WithArgs(rec.ID).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(rec.ID, "verified", "passport", 0.97, fields, checks, "", rec.CreatedAt))

	got, inserted, err := repo.Save(ctx, rec)

	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, rec, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationPostgres_Save_ConflictReturnsStoredRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewVerificationPostgres(db)
	rec := sampleRecord()
	rec.Status = model.StatusRejected

	// The first write won; the conflicting insert affects no rows.
	mock.ExpectExec("INSERT INTO verification_records").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM verification_records WHERE id = ?").
		WithArgs(rec.ID).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(rec.ID, "verified", "passport", 0.97, []byte(`{}`), []byte(`[]`), "", rec.CreatedAt))

	got, inserted, err := repo.Save(context.Background(), rec)

	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, model.StatusVerified, got.Status)
	assert.Empty(t, got.ExtractedFields)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationPostgres_Save_InsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewVerificationPostgres(db)
	mock.ExpectExec("INSERT INTO verification_records").
		WillReturnError(errors.New("connection reset"))

	got, inserted, err := repo.Save(context.Background(), sampleRecord())

	assert.ErrorContains(t, err, "insert verification record: connection reset")
	assert.Nil(t, got)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationPostgres_Save_RowsAffectedError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewVerificationPostgres(db)
	mock.ExpectExec("INSERT INTO verification_records").
		WillReturnResult(sqlmock.NewErrorResult(errors.New("driver lost result")))

	got, inserted, err := repo.Save(context.Background(), sampleRecord())

	assert.ErrorContains(t, err, "driver lost result")
	assert.Nil(t, got)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewVerificationPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
		mock.ExpectQuery("SELECT (.+) FROM verification_records WHERE id = ?").
			WithArgs("test-id").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("test-id", "needs_review", "unknown", 0.2, []byte(`null`), []byte(`null`), "unclassifiable", created))

		rec, err := repo.FindByID(ctx, "test-id")

		require.NoError(t, err)
		assert.Equal(t, "test-id", rec.ID)
		assert.Equal(t, model.StatusNeedsReview, rec.Status)
		assert.Equal(t, model.DocumentTypeUnknown, rec.DocumentType)
		assert.Equal(t, model.ReasonUnclassifiable, rec.Reason)
		assert.NotNil(t, rec.ExtractedFields)
		assert.NotNil(t, rec.Checks)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM verification_records WHERE id = ?").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		rec, err := repo.FindByID(ctx, "missing")

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, rec)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"docverify/internal/model"
	"docverify/internal/repository"
)

// VerificationPostgres is a PostgreSQL implementation of repository.VerificationRepository.
type VerificationPostgres struct {
	db *sql.DB
}

// NewVerificationPostgres creates a new VerificationPostgres repository.
func NewVerificationPostgres(db *sql.DB) *VerificationPostgres {
	return &VerificationPostgres{db: db}
}

var _ repository.VerificationRepository = (*VerificationPostgres)(nil)

const selectColumns = `id, status, document_type, confidence_score, extracted_fields, checks, reason, created_at`

// Save inserts rec and ignores conflicts on id, then reads back the stored row.
func (r *VerificationPostgres) Save(ctx context.Context, rec *model.VerificationRecord) (*model.VerificationRecord, bool, error) {
	fields, err := json.Marshal(rec.ExtractedFields)
	if err != nil {
		return nil, false, fmt.Errorf("marshal extracted fields: %w", err)
	}
	checks, err := json.Marshal(rec.Checks)
	if err != nil {
		return nil, false, fmt.Errorf("marshal checks: %w", err)
	}

	const q = `
		INSERT INTO verification_records (id, status, document_type, confidence_score, extracted_fields, checks, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, q,
		rec.ID,
		string(rec.Status),
		string(rec.DocumentType),
		rec.ConfidenceScore,
		fields,
		checks,
		string(rec.Reason),
		rec.CreatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert verification record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("insert verification record: %w", err)
	}

	stored, err := r.FindByID(ctx, rec.ID)
	if err != nil {
		return nil, false, err
	}
	return stored, n == 1, nil
}

// FindByID fetches a single record by its ID.
func (r *VerificationPostgres) FindByID(ctx context.Context, id string) (*model.VerificationRecord, error) {
	q := `SELECT ` + selectColumns + ` FROM verification_records WHERE id = $1`
	row := r.db.QueryRowContext(ctx, q, id)

	var (
		rec            model.VerificationRecord
		status, doc    string
		reason         string
		fields, checks []byte
	)
	if err := row.Scan(
		&rec.ID,
		&status,
		&doc,
		&rec.ConfidenceScore,
		&fields,
		&checks,
		&reason,
		&rec.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	rec.Status = model.Status(status)
	rec.DocumentType = model.DocumentType(doc)
	rec.Reason = model.Reason(reason)
	rec.CreatedAt = rec.CreatedAt.UTC()
	if err := json.Unmarshal(fields, &rec.ExtractedFields); err != nil {
		return nil, fmt.Errorf("decode extracted fields: %w", err)
	}
	if err := json.Unmarshal(checks, &rec.Checks); err != nil {
		return nil, fmt.Errorf("decode checks: %w", err)
	}
	if rec.ExtractedFields == nil {
		rec.ExtractedFields = model.ExtractedFields{}
	}
	if rec.Checks == nil {
		rec.Checks = []model.RuleResult{}
	}
	return &rec, nil
}

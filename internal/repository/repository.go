// Package repository contains data access layer abstractions.
// Implementations live in subpackages (postgres, memory).
package repository

import (
	"context"
	"errors"

	"docverify/internal/model"
)

// ErrNotFound is returned when no record exists for the requested id.
var ErrNotFound = errors.New("verification record not found")

// VerificationRepository persists verification records. No business logic here.
type VerificationRepository interface {
	// Save stores rec unless a record with the same ID already exists.
	// It always returns the stored record, so saving twice yields the first write;
	// inserted is false when that write happened earlier.
	Save(ctx context.Context, rec *model.VerificationRecord) (stored *model.VerificationRecord, inserted bool, err error)

	// FindByID returns ErrNotFound when the id is unknown.
	FindByID(ctx context.Context, id string) (*model.VerificationRecord, error)
}

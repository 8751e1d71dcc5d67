// Package assembler turns pipeline outcomes into persisted verification records.
package assembler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"docverify/internal/model"
	"docverify/internal/notify"
	"docverify/internal/repository"
	"docverify/internal/storage"
)

// Outcome is everything the pipeline decided about one request.
type Outcome struct {
	DocumentType model.DocumentType
	Status       model.Status
	Score        float64
	Fields       model.ExtractedFields
	Checks       []model.RuleResult
	Reason       model.Reason
}

// Notifier accepts notifications without blocking.
type Notifier interface {
	Enqueue(n notify.Notification) bool
}

// Assembler persists records, archives snapshots and hands off notifications.
// store and notifier are optional.
type Assembler struct {
	repo     repository.VerificationRepository
	store    storage.Storage
	notifier Notifier
	logger   *slog.Logger
}

// New creates an Assembler.
func New(repo repository.VerificationRepository, store storage.Storage, notifier Notifier, logger *slog.Logger) *Assembler {
	return &Assembler{
		repo:     repo,
		store:    store,
		notifier: notifier,
		logger:   logger.With("component", "assembler"),
	}
}

// Build creates the record for req. It depends only on its inputs, so two builds
// of the same request and outcome serialize to identical bytes.
func Build(req *model.VerificationRequest, out Outcome) *model.VerificationRecord {
	docType := out.DocumentType
	if docType == "" {
		docType = model.DocumentTypeUnknown
	}

	fields := make(model.ExtractedFields, len(out.Fields))
	for k, v := range out.Fields {
		fields[k] = v
	}
	checks := append([]model.RuleResult{}, out.Checks...)

	return &model.VerificationRecord{
		ID:              req.ID,
		Status:          out.Status,
		DocumentType:    docType,
		ConfidenceScore: math.Round(math.Max(0, math.Min(1, out.Score))*1e4) / 1e4,
		ExtractedFields: fields,
		Checks:          checks,
		Reason:          out.Reason,
		CreatedAt:       req.ReceivedAt.UTC(),
	}
}

// SnapshotKey is the object key of a record's archived JSON.
func SnapshotKey(id string) string {
	return "records/" + id + ".json"
}

// Snapshot serializes rec in its archived form.
func Snapshot(rec *model.VerificationRecord) ([]byte, error) {
	return json.Marshal(rec)
}

// Assemble builds, persists and archives the record, then queues the notification.
// Only persistence failures are returned; an archive failure is logged. A record
// that was already stored is returned as is, without archiving or notifying again.
func (a *Assembler) Assemble(ctx context.Context, req *model.VerificationRequest, out Outcome) (*model.VerificationRecord, error) {
	rec := Build(req, out)

	stored, inserted, err := a.repo.Save(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("persist record %s: %w", rec.ID, err)
	}
	if !inserted {
		a.logger.Info("record_already_stored", "record_id", stored.ID)
		return stored, nil
	}

	if err := a.archive(ctx, stored); err != nil {
		a.logger.Warn("snapshot_archive_failed", "record_id", stored.ID, "error", err.Error())
	}

	if req.NotifyEmail != "" && a.notifier != nil {
		a.notifier.Enqueue(notify.FromRecord(req.NotifyEmail, stored))
	}

	return stored, nil
}

func (a *Assembler) archive(ctx context.Context, rec *model.VerificationRecord) error {
	if a.store == nil {
		return nil
	}
	b, err := Snapshot(rec)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = a.store.Put(ctx, SnapshotKey(rec.ID), bytes.NewReader(b), storage.PutObjectOptions{
		Size:        int64(len(b)),
		ContentType: "application/json",
		Metadata: map[string]string{
			"status":        string(rec.Status),
			"document-type": string(rec.DocumentType),
		},
	})
	return err
}

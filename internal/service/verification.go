package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docverify/internal/assembler"
	"docverify/internal/classifier"
	"docverify/internal/extractor"
	"docverify/internal/metrics"
	"docverify/internal/model"
	"docverify/internal/ocr"
	"docverify/internal/receiver"
	"docverify/internal/repository"
	"docverify/internal/scorer"
	"docverify/internal/storage"
	"docverify/internal/worker"
)

var (
	// ErrProcessingTimeout marks a pipeline that ran past its deadline.
	ErrProcessingTimeout = errors.New("processing deadline exceeded")
	// ErrSnapshotUnavailable is returned when no object store is configured.
	ErrSnapshotUnavailable = errors.New("snapshot archive is not configured")
)

// persistTimeout bounds the final save, which runs even after the processing deadline.
const persistTimeout = 10 * time.Second

var tracer = otel.Tracer("docverify/internal/service")

// Result is the answer to one upload.
type Result struct {
	Record   *model.VerificationRecord
	Elapsed  time.Duration
	Replayed bool
}

// VerificationService defines the use cases of the verification API.
type VerificationService interface {
	// Verify validates the upload, runs the pipeline and returns the stored record.
	// Errors are request-level only; every processed upload yields a record.
	Verify(ctx context.Context, in receiver.Upload) (*Result, error)

	// Get returns a stored record or repository.ErrNotFound.
	Get(ctx context.Context, id string) (*model.VerificationRecord, error)

	// Snapshot streams the archived JSON of a record. The caller closes the reader.
	Snapshot(ctx context.Context, id string) (io.ReadCloser, error)
}

// Submitter queues pipeline jobs.
type Submitter interface {
	Submit(ctx context.Context, job worker.Job) error
}

// Deps are the collaborators of the verification service. Store, Metrics and
// Assistant may be nil.
type Deps struct {
	Receiver   *receiver.Receiver
	Engine     ocr.Engine
	Classifier *classifier.Classifier
	Scorer     *scorer.Scorer
	Assistant  extractor.Assistant
	Assembler  *assembler.Assembler
	Repo       repository.VerificationRepository
	Store      storage.Storage
	Pool       Submitter
	Metrics    *metrics.Pipeline
	Logger     *slog.Logger
	Timeout    time.Duration
}

type verificationService struct {
	Deps
	logger *slog.Logger
}

// NewVerificationService constructs a new VerificationService.
func NewVerificationService(d Deps) VerificationService {
	if d.Timeout <= 0 {
		d.Timeout = 30 * time.Second
	}
	return &verificationService{Deps: d, logger: d.Logger.With("component", "service")}
}

type processed struct {
	rec *model.VerificationRecord
	err error
}

type recognized struct {
	text model.RecognizedText
	err  error
}

func (s *verificationService) Verify(ctx context.Context, in receiver.Upload) (*Result, error) {
	req, err := s.Receiver.Receive(in)
	if err != nil {
		return nil, err
	}

	if in.IdempotencyKey != "" {
		existing, err := s.Repo.FindByID(ctx, req.ID)
		switch {
		case err == nil:
			s.logger.Info("verification_replayed", "record_id", existing.ID)
			return &Result{Record: existing, Replayed: true}, nil
		case !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("lookup record %s: %w", req.ID, err)
		}
	}

	// Processing outlives the caller: a disconnect must not abort a half-done record.
	procCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.Timeout)
	done := make(chan processed, 1)

	err = s.Pool.Submit(ctx, func() {
		defer cancel()
		rec, err := s.process(procCtx, req)
		done <- processed{rec: rec, err: err}
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("submit verification %s: %w", req.ID, err)
	}

	select {
	case p := <-done:
		if p.err != nil {
			return nil, p.err
		}
		return &Result{Record: p.rec, Elapsed: time.Since(req.ReceivedAt)}, nil
	case <-ctx.Done():
		s.logger.Warn("caller_gone", "record_id", req.ID, "error", ctx.Err().Error())
		return nil, ctx.Err()
	}
}

func (s *verificationService) process(ctx context.Context, req *model.VerificationRequest) (*model.VerificationRecord, error) {
	defer req.Release()

	ctx, span := tracer.Start(ctx, "verification.process", trace.WithAttributes(
		attribute.String("verification.id", req.ID),
		attribute.String("verification.media_type", string(req.MediaType)),
	))
	defer span.End()

	out := s.run(ctx, req)

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	rec, err := s.Assembler.Assemble(persistCtx, req, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		s.logger.Error("verification_persist_failed", "record_id", req.ID, "error", err.Error())
		return nil, err
	}

	elapsed := time.Since(req.ReceivedAt)
	s.Metrics.ObserveVerification(rec, elapsed)
	span.SetAttributes(
		attribute.String("verification.status", string(rec.Status)),
		attribute.String("verification.document_type", string(rec.DocumentType)),
		attribute.Float64("verification.confidence_score", rec.ConfidenceScore),
	)
	s.logger.Info("verification_completed",
		"record_id", rec.ID,
		"status", string(rec.Status),
		"document_type", string(rec.DocumentType),
		"confidence_score", rec.ConfidenceScore,
		"reason", string(rec.Reason),
		"duration_ms", elapsed.Milliseconds(),
	)
	return rec, nil
}

// run maps every stage failure onto a status; it never returns an error.
func (s *verificationService) run(ctx context.Context, req *model.VerificationRequest) assembler.Outcome {
	text, err := s.recognize(ctx, req)
	switch {
	case errors.Is(err, ErrProcessingTimeout):
		return timedOut()
	case errors.Is(err, extractor.ErrExtraction):
		s.logger.Info("document_unreadable", "record_id", req.ID, "error", err.Error())
		return assembler.Outcome{
			DocumentType: model.DocumentTypeUnknown,
			Status:       model.StatusRejected,
			Reason:       model.ReasonExtractionError,
		}
	case err != nil:
		s.logger.Warn("recognition_failed", "record_id", req.ID, "error", err.Error())
		return assembler.Outcome{
			DocumentType: model.DocumentTypeUnknown,
			Status:       model.StatusNeedsReview,
			Reason:       model.ReasonRecognitionFailed,
		}
	}

	hint, _ := req.Hint()
	_, span := tracer.Start(ctx, "verification.classify")
	cls, err := s.Classifier.Classify(text, req.Filename, hint)
	span.SetAttributes(
		attribute.String("classifier.detected_type", string(cls.DetectedType)),
		attribute.Float64("classifier.confidence", cls.ClassifierConfidence),
		attribute.Bool("classifier.hint_applied", cls.HintApplied),
	)
	span.End()
	if errors.Is(err, classifier.ErrUnclassifiable) {
		score, _ := s.Scorer.Score(cls, nil, nil)
		return assembler.Outcome{
			DocumentType: model.DocumentTypeUnknown,
			Status:       model.StatusNeedsReview,
			Score:        score,
			Reason:       model.ReasonUnclassifiable,
		}
	}

	if ctx.Err() != nil {
		return timedOut()
	}

	variant, ok := extractor.For(cls.DetectedType)
	if !ok {
		return assembler.Outcome{
			DocumentType: model.DocumentTypeUnknown,
			Status:       model.StatusNeedsReview,
			Reason:       model.ReasonUnclassifiable,
		}
	}

	extractCtx, span := tracer.Start(ctx, "verification.extract")
	res := s.extract(extractCtx, req, variant, text)
	score, status := s.Scorer.Score(cls, res.Fields, variant.RequiredFields())
	span.SetAttributes(attribute.Int("extractor.fields", len(res.Fields)))
	span.End()
	if ctx.Err() != nil {
		return timedOut()
	}

	return assembler.Outcome{
		DocumentType: cls.DetectedType,
		Status:       status,
		Score:        score,
		Fields:       res.Fields,
		Checks:       res.Checks,
	}
}

// extract runs the variant, with the assistant's reading first when one is
// configured. An assistant failure falls back to the variant's patterns.
func (s *verificationService) extract(ctx context.Context, req *model.VerificationRequest, v extractor.Variant, text model.RecognizedText) extractor.Result {
	if s.Assistant == nil {
		return v.Extract(text, req.ReceivedAt)
	}

	ctx, span := tracer.Start(ctx, "verification.assist")
	defer span.End()
	a, err := s.Assistant.Assist(ctx, v.Type(), text.Content, req.ReceivedAt)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("assist_failed", "record_id", req.ID, "error", err.Error())
		return v.Extract(text, req.ReceivedAt)
	}
	span.SetAttributes(
		attribute.String("assist.confidence", a.Confidence),
		attribute.Int("assist.inconsistencies", len(a.Inconsistencies)),
	)
	return extractor.ExtractAssisted(v, text, a, req.ReceivedAt)
}

// recognize races the recognizer against the processing deadline.
func (s *verificationService) recognize(ctx context.Context, req *model.VerificationRequest) (model.RecognizedText, error) {
	ctx, span := tracer.Start(ctx, "verification.recognize")
	defer span.End()

	media, data := req.MediaType, req.Source
	ch := make(chan recognized, 1)
	go func() {
		text, err := extractor.Read(ctx, s.Engine, media, data)
		ch <- recognized{text: text, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && ctx.Err() != nil {
			return model.RecognizedText{}, fmt.Errorf("%w: %w", ErrProcessingTimeout, r.err)
		}
		if r.err != nil {
			span.RecordError(r.err)
		}
		span.SetAttributes(attribute.Float64("ocr.confidence", r.text.Confidence))
		return r.text, r.err
	case <-ctx.Done():
		span.SetStatus(codes.Error, "deadline exceeded")
		return model.RecognizedText{}, fmt.Errorf("%w: %w", ErrProcessingTimeout, ctx.Err())
	}
}

func timedOut() assembler.Outcome {
	return assembler.Outcome{
		DocumentType: model.DocumentTypeUnknown,
		Status:       model.StatusNeedsReview,
		Reason:       model.ReasonProcessingTimeout,
	}
}

func (s *verificationService) Get(ctx context.Context, id string) (*model.VerificationRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	return s.Repo.FindByID(ctx, id)
}

func (s *verificationService) Snapshot(ctx context.Context, id string) (io.ReadCloser, error) {
	if s.Store == nil {
		return nil, ErrSnapshotUnavailable
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, storage.ErrObjectNotFound
	}
	r, _, err := s.Store.Get(ctx, assembler.SnapshotKey(id))
	if err != nil {
		return nil, err
	}
	return r, nil
}

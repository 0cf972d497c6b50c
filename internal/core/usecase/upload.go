package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mpetrenko/taxmate/internal/core/domain"
	"github.com/mpetrenko/taxmate/internal/core/ports"
)

type UploadDocumentUseCase struct {
	docs    ports.DocumentRepository
	returns ports.TaxReturnRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	logger  *slog.Logger
}

func NewUploadDocumentUseCase(
	docs ports.DocumentRepository,
	returns ports.TaxReturnRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	logger *slog.Logger,
) *UploadDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadDocumentUseCase{
		docs:    docs,
		returns: returns,
		storage: storage,
		queue:   queue,
		logger:  logger,
	}
}

func (uc *UploadDocumentUseCase) Upload(ctx context.Context, req ports.UploadRequest) (*domain.Document, error) {
	if req.Body == nil || strings.TrimSpace(req.FileName) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("file is required"))
	}

	// Ownership check fails closed: a return belonging to someone else is
	// indistinguishable from a missing one.
	if _, err := uc.returns.GetOwned(ctx, req.TaxReturnID, req.UserID); err != nil {
		return nil, fmt.Errorf("verify return ownership: %w", err)
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(req.FileName))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, req.Body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.Document{
		ID:          id,
		TaxReturnID: req.TaxReturnID,
		FileName:    req.FileName,
		FileType:    req.FileType,
		FileSize:    req.FileSize,
		StoragePath: storageKey,
		Type:        req.DeclaredType,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	// Queue loss degrades to manual processing via the process endpoint, so
	// the upload itself still succeeds.
	if err := uc.queue.PublishDocumentUploaded(ctx, doc.ID); err != nil {
		uc.logger.Warn("publish_upload_event_failed", "document_id", doc.ID, "error", err)
	}

	return doc, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}

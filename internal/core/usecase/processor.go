package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kem-osh/write-wellspring/internal/core/domain"
	"github.com/kem-osh/write-wellspring/internal/core/ports"
)

// transitionSink receives per-item checkpoints as the pipeline advances.
type transitionSink interface {
	markUploading(itemID string)
	markProcessing(itemID string)
	markPersisted(itemID, documentID string)
	markComplete(itemID, documentID string)
}

// processJob carries everything the processor needs for one item. A non-empty
// documentID means the document row already exists and processing resumes at
// the embedding step.
type processJob struct {
	itemID     string
	source     domain.SourceFile
	stagingKey string
	documentID string
}

// FileProcessor runs one staged file through extract, persist and embed.
type FileProcessor struct {
	staging   ports.UploadStaging
	extractor ports.TextExtractor
	store     ports.DocumentStore
	indexer   ports.EmbeddingIndexer
}

func NewFileProcessor(staging ports.UploadStaging, extractor ports.TextExtractor, store ports.DocumentStore, indexer ports.EmbeddingIndexer) *FileProcessor {
	return &FileProcessor{
		staging:   staging,
		extractor: extractor,
		store:     store,
		indexer:   indexer,
	}
}

// Process advances the item to completion or returns the first stage error.
// The caller owns failure bookkeeping.
func (p *FileProcessor) Process(ctx context.Context, job processJob, sink transitionSink) error {
	sink.markUploading(job.itemID)

	if job.documentID != "" {
		return p.resume(ctx, job, sink)
	}

	text, err := p.extract(ctx, job)
	if err != nil {
		return err
	}

	sink.markProcessing(job.itemID)

	doc, err := p.persist(ctx, job, text)
	if err != nil {
		return err
	}
	sink.markPersisted(job.itemID, doc.ID)

	if err := p.attachEmbedding(ctx, doc.ID, doc.Title, text); err != nil {
		return err
	}

	sink.markComplete(job.itemID, doc.ID)
	return nil
}

// resume reloads the already persisted document instead of creating a second
// row, then finishes the embedding step that failed last time.
func (p *FileProcessor) resume(ctx context.Context, job processJob, sink transitionSink) error {
	doc, err := p.store.GetByID(ctx, job.documentID)
	if err != nil {
		return fmt.Errorf("load persisted document: %w", err)
	}

	sink.markProcessing(job.itemID)
	sink.markPersisted(job.itemID, doc.ID)

	if err := p.attachEmbedding(ctx, doc.ID, doc.Title, doc.Content); err != nil {
		return err
	}

	sink.markComplete(job.itemID, doc.ID)
	return nil
}

func (p *FileProcessor) extract(ctx context.Context, job processJob) (string, error) {
	reader, err := p.staging.Open(ctx, job.stagingKey)
	if err != nil {
		return "", domain.WrapError(domain.ErrFileInvalid, "open staged file", err)
	}
	defer reader.Close()

	text, err := p.extractor.Extract(ctx, job.source, reader)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.WrapError(domain.ErrFileInvalid, "extract text", errors.New("file has no extractable text"))
	}
	return text, nil
}

func (p *FileProcessor) persist(ctx context.Context, job processJob, text string) (*domain.Document, error) {
	now := time.Now().UTC()
	doc := &domain.Document{
		ID:        uuid.NewString(),
		Title:     domain.TitleFromFilename(job.source.Name),
		Content:   text,
		WordCount: domain.CountWords(text),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.store.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

func (p *FileProcessor) attachEmbedding(ctx context.Context, documentID, title, text string) error {
	if err := p.indexer.EmbedAndAttach(ctx, documentID, title, text); err != nil {
		return fmt.Errorf("attach embedding: %w", err)
	}
	return nil
}

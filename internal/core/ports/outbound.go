package ports

import (
	"context"
	"io"

	"github.com/kem-osh/write-wellspring/internal/core/domain"
)

// DocumentStore persists and reads documents.
type DocumentStore interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	MarkEmbedded(ctx context.Context, id string) error
}

// UploadStaging keeps raw upload bytes between admission and processing.
type UploadStaging interface {
	Stage(ctx context.Context, key string, data io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// TextExtractor extracts plain text from a staged file.
type TextExtractor interface {
	Extract(ctx context.Context, src domain.SourceFile, data io.Reader) (string, error)
}

// EmbeddingIndexer computes a document embedding and attaches it.
type EmbeddingIndexer interface {
	EmbedAndAttach(ctx context.Context, documentID, title, text string) error
}

// UploadEventPublisher broadcasts item transitions to interested systems.
type UploadEventPublisher interface {
	PublishUploadEvent(ctx context.Context, event domain.UploadEvent) error
}

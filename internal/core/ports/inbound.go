package ports

import (
	"context"

	"github.com/kem-osh/write-wellspring/internal/core/domain"
)

// UploadController is the inbound contract for batch upload orchestration.
type UploadController interface {
	Submit(ctx context.Context, files []domain.RawFile) ([]string, error)
	Retry(id string) error
	RetryFailed() int
	ClearCompleted() (int, error)
	ClearAll() (int, error)
	State() domain.UploadState
	Subscribe() (<-chan domain.UploadState, func())
}

// DocumentReader is the inbound read model for persisted documents.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

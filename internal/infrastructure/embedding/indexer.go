package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kem-osh/write-wellspring/internal/core/domain"
	"github.com/kem-osh/write-wellspring/internal/infrastructure/chunking"
	"github.com/kem-osh/write-wellspring/internal/infrastructure/llm/ollama"
	"github.com/kem-osh/write-wellspring/internal/infrastructure/resilience"
)

// Embedder returns one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorWriter stores a document vector in the vector index.
type VectorWriter interface {
	AttachDocumentVector(ctx context.Context, documentID, title string, vector []float32) error
}

// EmbeddingMarker records on the document row that its vector is attached.
type EmbeddingMarker interface {
	MarkEmbedded(ctx context.Context, id string) error
}

// Indexer embeds a document and attaches the result to the vector index.
// The embedded flag is flipped last, so an interrupted run leaves the
// document marked as pending and a retry picks it up again.
type Indexer struct {
	embedder Embedder
	vectors  VectorWriter
	marker   EmbeddingMarker
	splitter *chunking.Splitter
	executor *resilience.Executor
	logger   *slog.Logger
}

func NewIndexer(embedder Embedder, vectors VectorWriter, marker EmbeddingMarker, executor *resilience.Executor, logger *slog.Logger) *Indexer {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		embedder: embedder,
		vectors:  vectors,
		marker:   marker,
		splitter: chunking.NewSplitter(chunking.DefaultWindow, chunking.DefaultOverlap),
		executor: executor,
		logger:   logger,
	}
}

func (i *Indexer) EmbedAndAttach(ctx context.Context, documentID, title, text string) error {
	chunks := i.splitter.Split(text)
	if len(chunks) == 0 {
		chunks = []string{text}
	}

	var vector []float32
	err := i.executor.Execute(ctx, "ollama_embed", func(ctx context.Context) error {
		vectors, err := i.embedder.Embed(ctx, chunks)
		if err != nil {
			return err
		}
		pooled, err := meanPool(vectors)
		if err != nil {
			return domain.WrapError(domain.ErrEmbedding, "pool chunk vectors", err)
		}
		vector = pooled
		return nil
	}, ollama.ClassifyError)
	if err != nil {
		return err
	}

	err = i.executor.Execute(ctx, "qdrant_upsert", func(ctx context.Context) error {
		return i.vectors.AttachDocumentVector(ctx, documentID, title, vector)
	}, classifyIndexError)
	if err != nil {
		return err
	}

	err = i.executor.Execute(ctx, "mark_embedded", func(ctx context.Context) error {
		return i.marker.MarkEmbedded(ctx, documentID)
	}, classifyIndexError)
	if err != nil {
		return err
	}

	i.logger.Debug("document_embedded",
		slog.String("document_id", documentID),
		slog.Int("chunks", len(chunks)),
		slog.Int("vector_size", len(vector)),
	)
	return nil
}

// meanPool averages chunk vectors into one document vector. A single chunk
// passes through untouched.
func meanPool(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errors.New("empty embedding result")
	}
	if len(vectors) == 1 {
		return vectors[0], nil
	}

	dims := len(vectors[0])
	sum := make([]float64, dims)
	for _, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("chunk vector size %d does not match %d", len(v), dims)
		}
		for j, x := range v {
			sum[j] += float64(x)
		}
	}

	out := make([]float32, dims)
	for j := range sum {
		out[j] = float32(sum[j] / float64(len(vectors)))
	}
	return out, nil
}

// classifyIndexError keeps the retry policy aligned with the failure
// categories the upload pipeline reports to users.
func classifyIndexError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{
		Retryable:     domain.Classify(err).Retryable,
		RecordFailure: true,
	}
}

package extractor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/kem-osh/write-wellspring/internal/core/domain"
	"github.com/kem-osh/write-wellspring/internal/core/ports"
)

// Dispatcher routes extraction to a format handler by file extension.
type Dispatcher struct {
	byExt map[string]ports.TextExtractor
}

func NewDispatcher() *Dispatcher {
	plain := NewPlaintext()
	return &Dispatcher{byExt: map[string]ports.TextExtractor{
		".txt":  plain,
		".md":   plain,
		".csv":  plain,
		".pdf":  NewPDF(),
		".xlsx": NewSpreadsheet(),
	}}
}

func (d *Dispatcher) Extract(ctx context.Context, src domain.SourceFile, data io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(src.Name))
	handler, ok := d.byExt[ext]
	if !ok {
		return "", domain.WrapError(domain.ErrFileInvalid, "extract text", fmt.Errorf("unsupported file type %q", ext))
	}
	return handler.Extract(ctx, src, data)
}

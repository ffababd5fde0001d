package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kem-osh/write-wellspring/internal/core/domain"
)

// PDF extracts the plain text layer of a PDF. Scanned documents without one
// come back empty and fail the no-text check downstream.
type PDF struct{}

func NewPDF() *PDF {
	return &PDF{}
}

func (e *PDF) Extract(_ context.Context, _ domain.SourceFile, data io.Reader) (string, error) {
	raw, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", domain.WrapError(domain.ErrFileInvalid, "parse pdf", err)
	}

	content, err := reader.GetPlainText()
	if err != nil {
		return "", domain.WrapError(domain.ErrFileInvalid, "extract pdf text", err)
	}
	text, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return strings.TrimSpace(string(text)), nil
}

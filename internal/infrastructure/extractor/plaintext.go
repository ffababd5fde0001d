package extractor

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/kem-osh/write-wellspring/internal/core/domain"
)

// Plaintext handles UTF-8 text formats where the bytes are the content.
type Plaintext struct{}

func NewPlaintext() *Plaintext {
	return &Plaintext{}
}

func (e *Plaintext) Extract(_ context.Context, src domain.SourceFile, data io.Reader) (string, error) {
	raw, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrFileInvalid, "extract text", fmt.Errorf("%s is not valid utf-8 text", src.Name))
	}
	return strings.TrimSpace(string(raw)), nil
}

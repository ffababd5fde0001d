package extractor

import (
	"context"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kem-osh/write-wellspring/internal/core/domain"
)

// Spreadsheet flattens an XLSX workbook into text, one row per line.
type Spreadsheet struct{}

func NewSpreadsheet() *Spreadsheet {
	return &Spreadsheet{}
}

func (e *Spreadsheet) Extract(_ context.Context, _ domain.SourceFile, data io.Reader) (string, error) {
	book, err := excelize.OpenReader(data)
	if err != nil {
		return "", domain.WrapError(domain.ErrFileInvalid, "parse spreadsheet", err)
	}
	defer book.Close()

	var b strings.Builder
	for _, sheet := range book.GetSheetList() {
		rows, err := book.GetRows(sheet)
		if err != nil {
			return "", domain.WrapError(domain.ErrFileInvalid, "read sheet rows", err)
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, " "))
			if line == "" {
				continue
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return strings.TrimSpace(b.String()), nil
}

package fulltext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/mpetrenko/taxmate/internal/core/domain"
	"github.com/mpetrenko/taxmate/internal/core/ports"
)

// Sniffer pulls raw text out of the stored source file. It is the fallback
// when the extraction backend returns fields but no full text: PDFs go
// through a local text extraction, anything else is accepted as-is when it
// is valid UTF-8.
type Sniffer struct {
	storage ports.ObjectStorage
}

func NewSniffer(storage ports.ObjectStorage) *Sniffer {
	return &Sniffer{storage: storage}
}

func (s *Sniffer) Sniff(ctx context.Context, doc *domain.Document) (string, error) {
	reader, err := s.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	if isPDF(raw) {
		return sniffPDF(raw, doc.FileName)
	}

	if !utf8.Valid(raw) {
		return "", fmt.Errorf("unsupported binary format: %s", doc.FileName)
	}
	return strings.TrimSpace(string(raw)), nil
}

func isPDF(raw []byte) bool {
	return bytes.HasPrefix(raw, []byte("%PDF-"))
}

func sniffPDF(raw []byte, fileName string) (string, error) {
	pdfReader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", fileName, err)
	}

	var sb strings.Builder
	for pageNum := 1; pageNum <= pdfReader.NumPage(); pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Keep whatever earlier pages yielded; one broken page should
			// not void the rest.
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}

package fulltext

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/mpetrenko/taxmate/internal/core/domain"
)

type memoryStorage struct {
	files map[string][]byte
}

func (s *memoryStorage) Save(_ context.Context, key string, data io.Reader) error {
	content, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if s.files == nil {
		s.files = map[string][]byte{}
	}
	s.files[key] = content
	return nil
}

func (s *memoryStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.files[key])), nil
}

func TestSniffReturnsTrimmedPlaintext(t *testing.T) {
	storage := &memoryStorage{files: map[string][]byte{
		"k": []byte("  Form W-2 Wage and Tax Statement\n"),
	}}
	sniffer := NewSniffer(storage)

	text, err := sniffer.Sniff(context.Background(), &domain.Document{StoragePath: "k", FileName: "w2.txt"})
	if err != nil {
		t.Fatalf("Sniff() error = %v", err)
	}
	if text != "Form W-2 Wage and Tax Statement" {
		t.Fatalf("text = %q", text)
	}
}

func TestSniffRejectsUnknownBinary(t *testing.T) {
	storage := &memoryStorage{files: map[string][]byte{
		"k": {0xff, 0xfe, 0x00, 0x01},
	}}
	sniffer := NewSniffer(storage)

	_, err := sniffer.Sniff(context.Background(), &domain.Document{StoragePath: "k", FileName: "scan.bin"})
	if err == nil {
		t.Fatalf("expected error for binary payload")
	}
}

package util

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractPDF returns the plain text of a PDF held in r.
func ExtractPDF(r io.ReaderAt, size int64) (text string, err error) {
	// the pdf package panics on some malformed content streams
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("extract pdf text: %v", p)
		}
	}()
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, plain); err != nil {
		return "", fmt.Errorf("read extracted text: %w", err)
	}
	text = NormalizeDocument(buf.String())
	if text == "" {
		return "", ErrNoExtractableText
	}
	return text, nil
}

func ExtractPDFBytes(data []byte) (string, error) {
	return ExtractPDF(bytes.NewReader(data), int64(len(data)))
}

func IsPDF(name string, head []byte) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf") || bytes.HasPrefix(head, []byte("%PDF-"))
}

// ReadDocument loads a document from disk; PDFs are converted to text and
// anything else is read as UTF-8 text.
func ReadDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	if IsPDF(path, data) {
		return ExtractPDFBytes(data)
	}
	text := NormalizeDocument(string(data))
	if text == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}

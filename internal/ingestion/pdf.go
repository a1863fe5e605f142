// Package ingestion turns downloaded résumé files into clean plain text.
package ingestion

import (
	"bytes"
	"context"
	"io"
	"strings"

	"code.sajari.com/docconv"
)

// pdfMagic prefixes every PDF file
var pdfMagic = []byte("%PDF-")

// ConvertFunc extracts text from a PDF stream
type ConvertFunc func(r io.Reader) (string, error)

// PDFExtractor extracts text from PDF bytes
type PDFExtractor struct {
	convert ConvertFunc
}

// NewPDFExtractor returns an extractor backed by docconv (requires pdftotext on PATH).
func NewPDFExtractor() *PDFExtractor {
	return NewPDFExtractorWithConverter(docconvPDF)
}

// NewPDFExtractorWithConverter returns an extractor using convert
func NewPDFExtractorWithConverter(convert ConvertFunc) *PDFExtractor {
	return &PDFExtractor{convert: convert}
}

func docconvPDF(r io.Reader) (string, error) {
	body, _, err := docconv.ConvertPDF(r)
	return body, err
}

// Extract returns the text of every page, pages separated by newlines.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if !IsPDF(data) {
		return "", &ExtractionError{Message: "not a PDF document"}
	}

	raw, err := e.convert(bytes.NewReader(data))
	if err != nil {
		return "", &ExtractionError{Message: "failed to read PDF", Cause: err}
	}

	text := CleanText(raw)
	if strings.TrimSpace(text) == "" {
		return "", &ExtractionError{Message: "PDF contains no extractable text"}
	}

	return text, nil
}

// IsPDF reports whether data starts with the PDF header, ignoring leading whitespace
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), pdfMagic)
}

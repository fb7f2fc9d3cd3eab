// Package extraction converts raw document bytes into page-marked text.
//
// The filename extension selects the route: PDF and DOCX have dedicated
// parsers, everything else is decoded as plain text. PDFs whose text
// layer is too sparse are routed to OCR when a client is configured.
package extraction

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/northgate-labs/docsync/internal/core/ports/driven"
	"github.com/northgate-labs/docsync/internal/logger"
)

// minCharsPerPage is the scanned-document heuristic: a PDF averaging
// fewer extracted characters per page than this has no usable text
// layer and goes to OCR instead.
const minCharsPerPage = 100

// OCRService recognizes text in scanned documents, returning page-marked
// text in the same format as the native extractors.
type OCRService interface {
	Recognize(ctx context.Context, content []byte) (string, error)
}

// Extractor routes documents to the right extraction path by extension.
type Extractor struct {
	ocr OCRService
	log *logger.Logger
}

var _ driven.TextExtractor = (*Extractor)(nil)

// Option configures the extractor.
type Option func(*Extractor)

// WithOCR attaches an OCR client for scanned PDFs. Without one, sparse
// PDFs yield whatever the text layer contains.
func WithOCR(ocr OCRService) Option {
	return func(e *Extractor) {
		e.ocr = ocr
	}
}

// New creates an extractor.
func New(log *logger.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		log: log.With("adapter", "extraction"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns page-marked text for the given content.
func (e *Extractor) Extract(ctx context.Context, content []byte, filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return e.extractPDF(ctx, content, filename)
	case ".docx":
		text, err := extractDOCX(content)
		if err != nil {
			return "", fmt.Errorf("extract docx %s: %w", filename, err)
		}
		return text, nil
	default:
		return extractPlainText(content), nil
	}
}

// extractPDF reads the PDF text layer, falling back to OCR when the
// layer is too sparse to be a real text document.
func (e *Extractor) extractPDF(ctx context.Context, content []byte, filename string) (string, error) {
	text, pages, err := extractPDFText(content)
	if err != nil {
		return "", fmt.Errorf("extract pdf %s: %w", filename, err)
	}

	if pages > 0 && len(text)/pages < minCharsPerPage && e.ocr != nil {
		e.log.Info("sparse text layer, routing to OCR",
			"filename", filename,
			"pages", pages,
			"chars", len(text),
		)
		ocrText, err := e.ocr.Recognize(ctx, content)
		if err != nil {
			return "", fmt.Errorf("ocr %s: %w", filename, err)
		}
		return ocrText, nil
	}

	return text, nil
}

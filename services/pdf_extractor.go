package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"rag-chatbot-backend/internal/logger"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor pulls plain text out of uploaded PDF files.
type PDFExtractor struct {
	maxFileSize int64
}

// ExtractionResult contains the result of PDF text extraction
type ExtractionResult struct {
	Text           string
	Pages          int
	WordCount      int
	CharacterCount int
	QualityScore   float64
	ProcessingTime time.Duration
}

// NewPDFExtractor creates a new PDF extractor
func NewPDFExtractor(maxFileSize int64) *PDFExtractor {
	return &PDFExtractor{maxFileSize: maxFileSize}
}

// ExtractText extracts text from a PDF file on disk.
func (e *PDFExtractor) ExtractText(ctx context.Context, filePath string) (*ExtractionResult, error) {
	start := time.Now()

	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) <= 0 {
			return nil, fmt.Errorf("context deadline exceeded before extraction")
		}
	}

	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat PDF file: %w", err)
	}
	if e.maxFileSize > 0 && stat.Size() > e.maxFileSize {
		return nil, fmt.Errorf("pdf exceeds max file size of %d bytes", e.maxFileSize)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF file: %w", err)
	}

	result, err := e.extract(content)
	if err != nil {
		return nil, err
	}

	result.ProcessingTime = time.Since(start)
	result.QualityScore = evaluateTextQuality(result.Text)
	return result, nil
}

func (e *PDFExtractor) extract(content []byte) (*ExtractionResult, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var textBuilder strings.Builder
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("Failed to extract text from page", "page", i, "error", err)
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	extractedText := strings.TrimSpace(textBuilder.String())
	if len(extractedText) == 0 {
		return nil, fmt.Errorf("no text extracted from pdf")
	}

	words := strings.Fields(extractedText)
	return &ExtractionResult{
		Text:           extractedText,
		Pages:          pages,
		WordCount:      len(words),
		CharacterCount: len(extractedText),
	}, nil
}

// evaluateTextQuality is a rough ratio of readable characters to total.
// Scanned or corrupt PDFs extract as mostly replacement runes and score low.
func evaluateTextQuality(text string) float64 {
	if len(text) == 0 {
		return 0.0
	}

	var printable, corrupted int
	for _, r := range text {
		switch {
		case r == '�':
			corrupted++
		case (r >= 32 && r <= 126) || r == '\n' || r == '\t':
			printable++
		case r > 127:
			printable++
		}
	}

	total := len([]rune(text))
	score := float64(printable)/float64(total) - 2.0*float64(corrupted)/float64(total)
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

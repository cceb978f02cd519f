// Package pdf implements the text-extraction capability for uploaded PDFs.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/somshekargr/studybuddy/internal/core"
	"github.com/somshekargr/studybuddy/internal/models"
)

// ocrThreshold is the minimum number of extracted characters below which a
// page is flagged as needing OCR.
const ocrThreshold = 10

type Parser struct{}

var _ core.DocumentParser = (*Parser)(nil)

func NewParser() *Parser {
	return &Parser{}
}

// Parse extracts per-page text from the PDF bytes. Page numbers are 1-based.
// This extractor works on the embedded text layer only; scanned pages come
// back near-empty and are flagged NeedsOCR. It does not decode raster
// XObjects, so Images stays empty here — vision description engages when a
// parser implementation supplies image blobs.
func (p *Parser) Parse(ctx context.Context, data []byte) ([]models.Page, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	numPages := r.NumPage()
	pages := make([]models.Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := r.Page(i)
		var text string
		if !page.V.IsNull() {
			// A malformed content stream on one page should not sink the
			// document; treat it like an empty page instead.
			extracted, err := page.GetPlainText(nil)
			if err == nil {
				text = extracted
			}
		}
		text = strings.TrimSpace(text)

		pages = append(pages, models.Page{
			Number:   i,
			Text:     text,
			NeedsOCR: len(text) < ocrThreshold,
		})
	}
	return pages, nil
}

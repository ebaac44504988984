// Package pdfdoc reads page text from job-description PDFs and cuts page ranges out of
// them, either as a standalone PDF or as rendered page images.
package pdfdoc

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/Lllllllleong/competencymatrix/internal/segment"
	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// DefaultDPI is the resolution used for the vision fallback.
const DefaultDPI = 200

func relaxedConfig() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}

// Validate checks the PDF structure and returns its page count.
func Validate(pdf []byte) (int, error) {
	cfg := relaxedConfig()
	if err := api.Validate(bytes.NewReader(pdf), cfg); err != nil {
		return 0, fmt.Errorf("invalid PDF: %w", err)
	}
	pageCount, err := api.PageCount(bytes.NewReader(pdf), cfg)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return pageCount, nil
}

// PageTexts extracts the text layer of every page, normalized for segmentation.
// A page whose text cannot be read yields an empty string.
func PageTexts(pdf []byte) ([]string, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pages := make([]string, doc.NumPage())
	for i := range pages {
		text, err := doc.Text(i)
		if err != nil {
			continue
		}
		pages[i] = segment.NormalizeText(text)
	}
	return pages, nil
}

// SubDocument returns a self-contained PDF holding pages start..end (0-based, inclusive).
func SubDocument(pdf []byte, start, end int) ([]byte, error) {
	sel, err := pageSelection(start, end)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := api.Trim(bytes.NewReader(pdf), &out, sel, relaxedConfig()); err != nil {
		return nil, fmt.Errorf("failed to extract pages %d-%d: %w", start, end, err)
	}
	return out.Bytes(), nil
}

// RenderPages rasterizes pages start..end (0-based, inclusive) to PNG.
func RenderPages(pdf []byte, start, end int, dpi float64) ([][]byte, error) {
	if _, err := pageSelection(start, end); err != nil {
		return nil, err
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if end >= doc.NumPage() {
		return nil, fmt.Errorf("page range %d-%d exceeds page count %d", start, end, doc.NumPage())
	}

	images := make([][]byte, 0, end-start+1)
	for i := start; i <= end; i++ {
		img, err := doc.ImageDPI(i, dpi)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", i+1, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode page %d as PNG: %w", i+1, err)
		}
		images = append(images, buf.Bytes())
	}
	return images, nil
}

// pageSelection converts a 0-based inclusive range to pdfcpu's 1-based selection syntax.
func pageSelection(start, end int) ([]string, error) {
	if start < 0 || end < start {
		return nil, fmt.Errorf("invalid page range %d-%d", start, end)
	}
	if start == end {
		return []string{fmt.Sprintf("%d", start+1)}, nil
	}
	return []string{fmt.Sprintf("%d-%d", start+1, end+1)}, nil
}

// Package extractor pulls plain text out of remote documents so they can be
// embedded and scored. Failures never propagate: a document that cannot be
// read contributes an empty string.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"echo-assistant-be/internal/pkg/logger"
	"echo-assistant-be/pkg/metrics"
)

const maxDocumentBytes = 64 << 20

var imageMimeTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/gif":  true,
	"image/bmp":  true,
}

// DocumentRef points at a fetchable document and its declared MIME type.
type DocumentRef struct {
	DownloadURL string
	MimeType    string
}

// OCREngine recognizes text in an encoded image.
type OCREngine interface {
	Recognize(ctx context.Context, png []byte) (string, error)
}

// TextLayerReader reads the embedded text layer of a PDF, page by page.
type TextLayerReader interface {
	PageTexts(pdf []byte) ([]string, error)
}

// Rasterizer renders every page of a PDF to an image.
type Rasterizer interface {
	Pages(pdf []byte) ([]image.Image, error)
}

type Extractor struct {
	httpClient *http.Client
	ocr        OCREngine
	textLayer  TextLayerReader
	raster     Rasterizer
	logger     logger.ILogger
}

func New(ocr OCREngine, textLayer TextLayerReader, raster Rasterizer, log logger.ILogger) *Extractor {
	return &Extractor{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		ocr:        ocr,
		textLayer:  textLayer,
		raster:     raster,
		logger:     log,
	}
}

// Extract returns the document text, or "" when the kind is unsupported or
// anything fails along the way.
func (e *Extractor) Extract(ctx context.Context, ref DocumentRef) string {
	mime := strings.ToLower(ref.MimeType)
	switch {
	case ref.DownloadURL == "":
		metrics.ExtractionsTotal.WithLabelValues("skipped", "empty").Inc()
		return ""
	case imageMimeTypes[mime]:
		return e.extractImage(ctx, ref)
	case strings.Contains(mime, "pdf"):
		return e.extractPDF(ctx, ref)
	default:
		metrics.ExtractionsTotal.WithLabelValues("skipped", "empty").Inc()
		return ""
	}
}

func (e *Extractor) extractImage(ctx context.Context, ref DocumentRef) string {
	data, _, err := e.fetch(ctx, ref.DownloadURL)
	if err != nil {
		e.fail("image", "Image fetch failed", err)
		return ""
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		e.fail("image", "Image decode failed", err)
		return ""
	}
	text, err := e.recognize(ctx, img)
	if err != nil {
		e.fail("image", "OCR failed", err)
		return ""
	}
	return e.done("image", strings.TrimSpace(text))
}

func (e *Extractor) extractPDF(ctx context.Context, ref DocumentRef) string {
	data, contentType, err := e.fetch(ctx, ref.DownloadURL)
	if err != nil {
		e.fail("pdf", "PDF fetch failed", err)
		return ""
	}
	if !strings.Contains(strings.ToLower(contentType), "pdf") {
		e.logger.Warn("Extractor", "Download is not a PDF", map[string]interface{}{"content_type": contentType})
		metrics.ExtractionsTotal.WithLabelValues("pdf", "error").Inc()
		return ""
	}

	pages, err := e.textLayer.PageTexts(data)
	if err != nil {
		e.logger.Warn("Extractor", "PDF text layer unreadable", map[string]interface{}{"error": err.Error()})
	}
	text := strings.Join(pages, "")
	if strings.TrimSpace(text) != "" {
		return e.done("pdf", text)
	}

	// No text layer: treat as scanned and OCR every page.
	images, err := e.raster.Pages(data)
	if err != nil {
		e.fail("scanned_pdf", "PDF rasterization failed", err)
		return ""
	}
	parts := make([]string, 0, len(images))
	for i, img := range images {
		pageText, err := e.recognize(ctx, img)
		if err != nil {
			e.logger.Warn("Extractor", "OCR failed on page", map[string]interface{}{"page": i + 1, "error": err.Error()})
			continue
		}
		parts = append(parts, pageText)
	}
	return e.done("scanned_pdf", strings.TrimSpace(strings.Join(parts, "\n")))
}

func (e *Extractor) recognize(ctx context.Context, img image.Image) (string, error) {
	encoded, err := encodePNG(Prepare(img))
	if err != nil {
		return "", err
	}
	return e.ocr.Recognize(ctx, encoded)
}

func (e *Extractor) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download returned %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (e *Extractor) fail(kind, message string, err error) {
	e.logger.Warn("Extractor", message, map[string]interface{}{"error": err.Error()})
	metrics.ExtractionsTotal.WithLabelValues(kind, "error").Inc()
}

func (e *Extractor) done(kind, text string) string {
	status := "ok"
	if text == "" {
		status = "empty"
	}
	metrics.ExtractionsTotal.WithLabelValues(kind, status).Inc()
	return text
}

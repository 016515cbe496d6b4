package ocr

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/claims-idp/internal/config"
)

// Extractor extracts text content from a document file.
type Extractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// NewExtractor creates the configured OCR backend and wraps it in a Router
// that handles plain-text and docx files without OCR.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	var backend Extractor
	switch cfg.Provider {
	case "local", "":
		backend = NewPdfToText(cfg.PdfToTextPath)
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires mistral_api_key")
		}
		backend = NewMistralOCR(cfg.MistralKey, cfg.MistralModel)
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
	return NewRouter(backend), nil
}

// Router dispatches to the right extractor by file extension. Text and docx
// files are read directly; everything else goes to the OCR backend.
type Router struct {
	backend Extractor
}

// NewRouter creates a Router in front of an OCR backend.
func NewRouter(backend Extractor) *Router {
	return &Router{backend: backend}
}

// SupportedExtensions lists the file extensions the pipeline ingests, all
// lowercase with leading dot.
var SupportedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".docx": true,
	".txt":  true,
}

// ExtractText extracts text from the file at path based on its extension.
func (r *Router) ExtractText(ctx context.Context, path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt":
		return readPlainText(path)
	case ".docx":
		return readDocxText(path)
	case ".pdf", ".png", ".jpg", ".jpeg", ".tif", ".tiff":
		return r.backend.ExtractText(ctx, path)
	default:
		return "", eris.Errorf("ocr: unsupported file type %q", ext)
	}
}

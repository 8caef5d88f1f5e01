// Package document loads input files into read-only Page slices.
package document

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/sunghoon-yu/tradedocs/constants"
	"github.com/sunghoon-yu/tradedocs/internal/entity"
)

// A page needs at least this much native text to count as having a
// usable text layer; scanned PDFs often carry a few stray glyphs.
const minTextLayerChars = 30

type Loader struct {
	logger *slog.Logger
}

func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load reads a PDF or image file into its ordered page list. Pages are
// immutable after this point.
func (l *Loader) Load(path string) ([]entity.Page, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		return l.loadPDF(path)
	case constants.IMAGE:
		// one page, OCR required
		return []entity.Page{{Number: 1, SourcePath: path}}, nil
	default:
		return nil, fmt.Errorf("unsupported extension: %q", ext)
	}
}

func (l *Loader) loadPDF(path string) ([]entity.Page, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			l.logger.Warn("document.close_failed", "path", path, "error", cerr)
		}
	}()

	total := reader.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("pdf has no pages: %s", path)
	}

	pages := make([]entity.Page, 0, total)
	withText := 0
	for i := 1; i <= total; i++ {
		page := entity.Page{Number: i, SourcePath: path}
		p := reader.Page(i)
		if !p.V.IsNull() {
			if text, err := p.GetPlainText(nil); err == nil {
				text = strings.TrimSpace(text)
				if len(text) >= minTextLayerChars {
					page.Text = text
					page.HasTextLayer = true
					withText++
				}
			}
		}
		pages = append(pages, page)
	}

	l.logger.Debug("document.loaded",
		"path", path,
		"pages", total,
		"pages_with_text", withText,
	)
	return pages, nil
}

// HasFullTextLayer reports whether every page in the slice carries a
// native text layer.
func HasFullTextLayer(pages []entity.Page) bool {
	for _, p := range pages {
		if !p.HasTextLayer {
			return false
		}
	}
	return len(pages) > 0
}

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sunghoon-yu/tradedocs/constants"
	"github.com/sunghoon-yu/tradedocs/internal/common"
	"github.com/sunghoon-yu/tradedocs/internal/entity"
	"github.com/sunghoon-yu/tradedocs/internal/fields"
)

// TesseractEngine rasterizes the segment's pages and OCRs them with
// the local tesseract toolchain, then runs the heuristic field
// patterns over the recognized text. The slow last resort for scans.
type TesseractEngine struct {
	spec   common.EngineSpec
	cfg    common.OCRConfig
	runner Runner
	logger *slog.Logger
}

func NewTesseractEngine(spec common.EngineSpec, cfg common.OCRConfig, logger *slog.Logger) *TesseractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "kor+eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &TesseractEngine{spec: spec, cfg: cfg, runner: execRunner{}, logger: logger}
}

func (e *TesseractEngine) ID() string              { return e.spec.ID }
func (e *TesseractEngine) Spec() common.EngineSpec { return e.spec }

func (e *TesseractEngine) Extract(ctx context.Context, req Request) (entity.RawResult, error) {
	ext := constants.NormalizeExt(filepath.Ext(req.FilePath))

	var (
		pageTexts []string
		err       error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		pageTexts, err = e.ocrPDFRange(ctx, req.FilePath, req.Segment.Start, req.Segment.End)
	case constants.IMAGE:
		var txt string
		txt, err = e.ocrImage(ctx, req.FilePath)
		pageTexts = []string{txt}
	default:
		return entity.RawResult{}, NewError(e.spec.ID, FailureUnsupported,
			fmt.Errorf("unsupported extension: %q", ext))
	}
	if err != nil {
		return entity.RawResult{}, err
	}

	// Rebuild page-shaped inputs so field provenance keeps the real
	// page ordinals.
	ocrPages := make([]entity.Page, 0, len(pageTexts))
	for i, txt := range pageTexts {
		ocrPages = append(ocrPages, entity.Page{
			Number:     req.Segment.Start + i,
			SourcePath: req.FilePath,
			Text:       txt,
		})
	}

	fieldMap := fields.Extract(ocrPages, req.Schema)
	text := fields.JoinPages(ocrPages)

	res := entity.RawResult{
		EngineID:   e.spec.ID,
		Text:       text,
		Fields:     fieldMap,
		Confidence: resultConfidence(req.Schema, fieldMap, text),
	}
	e.logger.Debug("engine.tesseract.extracted",
		"segment", req.Segment.String(),
		"pages", len(ocrPages),
		"fields", len(fieldMap),
		"confidence", res.Confidence,
	)
	return res, nil
}

// ocrPDFRange renders pages [first,last] to PNG and OCRs each one.
func (e *TesseractEngine) ocrPDFRange(ctx context.Context, path string, first, last int) ([]string, error) {
	tmpDir, err := os.MkdirTemp("", "td-ocr-*")
	if err != nil {
		return nil, NewError(e.spec.ID, FailureUnavailable, err)
	}
	defer func() {
		if rerr := os.RemoveAll(tmpDir); rerr != nil {
			e.logger.Warn("engine.tesseract.tmp_cleanup_failed", "dir", tmpDir, "error", rerr)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -f <first> -l <last> -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-r", fmt.Sprintf("%d", e.cfg.DPI),
		"-f", fmt.Sprintf("%d", first),
		"-l", fmt.Sprintf("%d", last),
		"-png", path, prefix)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, NewError(e.spec.ID, FailureMalformedInput,
			fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512)))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, NewError(e.spec.ID, FailureMalformedInput,
			fmt.Errorf("pdftoppm produced no images for pages %d-%d", first, last))
	}

	texts := make([]string, 0, len(matches))
	for _, img := range matches {
		txt, err := e.ocrImage(ctx, img)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Warn("engine.tesseract.page_failed", "image", filepath.Base(img), "error", err)
			txt = ""
		}
		texts = append(texts, txt)
	}
	return texts, nil
}

func (e *TesseractEngine) ocrImage(ctx context.Context, imgPath string) (string, error) {
	// tesseract <img> stdout -l <lang> --psm 6
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, imgPath, "stdout", "-l", e.cfg.Lang, "--psm", "6")
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", NewError(e.spec.ID, FailureUnavailable,
			fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512)))
	}
	return strings.TrimSpace(string(out)), nil
}

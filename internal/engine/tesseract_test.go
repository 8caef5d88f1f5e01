package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunghoon-yu/tradedocs/constants"
	"github.com/sunghoon-yu/tradedocs/internal/common"
	"github.com/sunghoon-yu/tradedocs/internal/entity"
	"github.com/sunghoon-yu/tradedocs/internal/fields"
)

const ocrText = `이체확인증
송금 금액: 1,000,000원
수취인: 한빛상사
송금일자: 2024-02-01`

// fakeRunner simulates pdftoppm (by materializing the PNGs it would
// render) and tesseract (by returning canned text).
type fakeRunner struct {
	pages      int
	ocrOut     string
	rasterErr  error
	ocrErr     error
	rasterArgs []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	if filepath.Base(name) == "pdftoppm" {
		f.rasterArgs = args
		if f.rasterErr != nil {
			return nil, []byte("rasterize boom"), f.rasterErr
		}
		prefix := args[len(args)-1]
		for i := 1; i <= f.pages; i++ {
			if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, i), []byte("png"), 0o644); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	}
	if f.ocrErr != nil {
		return nil, []byte("ocr boom"), f.ocrErr
	}
	return []byte(f.ocrOut), nil, nil
}

func tesseractForTest(r Runner) *TesseractEngine {
	spec := common.EngineSpec{
		ID:           "tesseract",
		Rank:         4,
		Capabilities: []constants.EngineCapability{constants.CapScanned},
		Timeout:      time.Minute,
		MaxRetries:   1,
	}
	e := NewTesseractEngine(spec, common.OCRConfig{Lang: "kor+eng", DPI: 150}, nil)
	e.runner = r
	return e
}

func TestTesseractOCRsPDFSegment(t *testing.T) {
	runner := &fakeRunner{pages: 1, ocrOut: ocrText}
	e := tesseractForTest(runner)

	req := Request{
		FilePath: "scan.pdf",
		Segment:  entity.Segment{Start: 2, End: 2, DocType: constants.RemittanceReceipt},
		Schema:   fields.ForDocType(constants.RemittanceReceipt),
		Pages:    []entity.Page{{Number: 2, HasTextLayer: false}},
	}

	res, err := e.Extract(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "1,000,000", res.Fields["amount"].Value)
	assert.Equal(t, "한빛상사", res.Fields["company"].Value)
	// provenance keeps the real page ordinal, not the raster index
	assert.Equal(t, 2, res.Fields["amount"].Page)
	// pdftoppm was asked for exactly the segment's page range
	assert.Contains(t, runner.rasterArgs, "-f")
	assert.Contains(t, runner.rasterArgs, "2")
}

func TestTesseractOCRsSingleImage(t *testing.T) {
	runner := &fakeRunner{ocrOut: ocrText}
	e := tesseractForTest(runner)

	req := Request{
		FilePath: "scan.jpg",
		Segment:  entity.Segment{Start: 1, End: 1, DocType: constants.RemittanceReceipt},
		Schema:   fields.ForDocType(constants.RemittanceReceipt),
		Pages:    []entity.Page{{Number: 1, HasTextLayer: false}},
	}

	res, err := e.Extract(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "1,000,000", res.Fields["amount"].Value)
}

func TestTesseractRasterFailureIsMalformedInput(t *testing.T) {
	runner := &fakeRunner{rasterErr: fmt.Errorf("exit status 1")}
	e := tesseractForTest(runner)

	req := Request{
		FilePath: "corrupt.pdf",
		Segment:  entity.Segment{Start: 1, End: 1, DocType: constants.Generic},
		Schema:   fields.ForDocType(constants.Generic),
	}

	_, err := e.Extract(context.Background(), req)
	require.Error(t, err)

	var ee *Error
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, FailureMalformedInput, ee.Kind)
}

func TestTesseractRejectsUnknownExtension(t *testing.T) {
	e := tesseractForTest(&fakeRunner{})

	req := Request{FilePath: "notes.txt", Schema: fields.ForDocType(constants.Generic)}
	_, err := e.Extract(context.Background(), req)

	var ee *Error
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, FailureUnsupported, ee.Kind)
}

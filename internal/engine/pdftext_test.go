package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunghoon-yu/tradedocs/constants"
	"github.com/sunghoon-yu/tradedocs/internal/common"
	"github.com/sunghoon-yu/tradedocs/internal/entity"
	"github.com/sunghoon-yu/tradedocs/internal/fields"
)

func pdftextSpec() common.EngineSpec {
	return common.EngineSpec{
		ID:           "pdftext",
		Rank:         3,
		Capabilities: []constants.EngineCapability{constants.CapTextPDF},
		Timeout:      10 * time.Second,
	}
}

func TestPDFTextExtractsFromTextLayer(t *testing.T) {
	e := NewPDFTextEngine(pdftextSpec(), nil)

	req := Request{
		FilePath: "tax.pdf",
		Segment:  entity.Segment{Start: 1, End: 1, DocType: constants.TaxInvoice},
		Schema:   fields.ForDocType(constants.TaxInvoice),
		Pages: []entity.Page{{
			Number:       1,
			HasTextLayer: true,
			Text: `세금계산서 승인번호: 20240105-41000001
공급가액: 1,000,000 세액: 100,000
합계금액: 1,100,000 발급일자: 2024-01-05`,
		}},
	}

	res, err := e.Extract(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "pdftext", res.EngineID)
	assert.Equal(t, "1,100,000", res.Fields["total_amount"].Value)
	assert.Greater(t, res.Confidence, float32(0.5))
	assert.NotEmpty(t, res.Text)
}

func TestPDFTextRejectsScannedPages(t *testing.T) {
	e := NewPDFTextEngine(pdftextSpec(), nil)

	req := Request{
		Segment: entity.Segment{Start: 1, End: 1, DocType: constants.Generic},
		Schema:  fields.ForDocType(constants.Generic),
		Pages:   []entity.Page{{Number: 1, HasTextLayer: false}},
	}

	_, err := e.Extract(context.Background(), req)
	require.Error(t, err)

	var ee *Error
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, FailureUnsupported, ee.Kind)
	assert.False(t, ee.Kind.Transient())
}

func TestFailureKindTransience(t *testing.T) {
	assert.True(t, FailureRateLimited.Transient())
	assert.True(t, FailureNetwork.Transient())
	assert.False(t, FailureUnavailable.Transient())
	assert.False(t, FailureMalformedInput.Transient())
	assert.False(t, FailureUnsupported.Transient())
}

func TestResultConfidenceScalesWithRequiredCoverage(t *testing.T) {
	schema := fields.ForDocType(constants.TaxInvoice)

	// no fields at all: text heuristic, capped low
	conf := resultConfidence(schema, nil, "plain text with nothing useful")
	assert.LessOrEqual(t, conf, float32(0.4))

	// optional field only: mean scaled down because the required
	// tax_invoice_number is missing
	partial := map[string]entity.RawField{
		"supply_amount": {Value: "1,000,000", Confidence: 0.9},
	}
	partialConf := resultConfidence(schema, partial, "")

	full := map[string]entity.RawField{
		"tax_invoice_number": {Value: "20240105-1", Confidence: 0.9},
		"supply_amount":      {Value: "1,000,000", Confidence: 0.9},
	}
	fullConf := resultConfidence(schema, full, "")

	assert.Less(t, partialConf, fullConf)
	assert.InDelta(t, 0.9, float64(fullConf), 1e-6)
}

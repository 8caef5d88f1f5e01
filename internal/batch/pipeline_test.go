package batch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunghoon-yu/tradedocs/constants"
	"github.com/sunghoon-yu/tradedocs/internal/classify"
	"github.com/sunghoon-yu/tradedocs/internal/common"
	"github.com/sunghoon-yu/tradedocs/internal/engine"
	"github.com/sunghoon-yu/tradedocs/internal/entity"
	"github.com/sunghoon-yu/tradedocs/internal/merge"
)

const taxInvoicePage = `전자세금계산서
공급가액 1,000,000 세액 100,000
합계금액 1,100,000원 발급일자 2024-01-05`

const bolPage = `BILL OF LADING
B/L NO. HDMU1234567
Port of Loading: BUSAN Port of Discharge: LA
Vessel Name: HYUNDAI FORWARD`

// fakeLoader maps path -> pages or an error.
type fakeLoader struct {
	pages map[string][]entity.Page
	errs  map[string]error
}

func (f *fakeLoader) Load(path string) ([]entity.Page, error) {
	if err, ok := f.errs[path]; ok {
		return nil, err
	}
	return f.pages[path], nil
}

// fakeResolver succeeds for every segment except doc types listed in
// failFor.
type fakeResolver struct {
	failFor map[constants.DocumentType]bool
}

func (f *fakeResolver) Resolve(_ context.Context, req engine.Request) ([]entity.RawResult, []entity.ExtractionAttempt, error) {
	attempt := entity.ExtractionAttempt{EngineID: "stub", Try: 1, Duration: time.Millisecond}
	if f.failFor[req.Segment.DocType] {
		attempt.Outcome = constants.AttemptFailure
		attempt.Reason = "engine chain exhausted"
		return nil, []entity.ExtractionAttempt{attempt}, fmt.Errorf("chain exhausted for %s", req.Segment)
	}
	attempt.Outcome = constants.AttemptSuccess
	res := entity.RawResult{
		EngineID:   "stub",
		Text:       req.Pages[0].Text,
		Confidence: 0.8,
		Fields: map[string]entity.RawField{
			"total_amount": {Value: "1,100,000원", Confidence: 0.8, Page: req.Segment.Start},
			"bl_number":    {Value: "HDMU1234567", Confidence: 0.8, Page: req.Segment.Start},
		},
	}
	return []entity.RawResult{res}, []entity.ExtractionAttempt{attempt}, nil
}

// blockingResolver hangs on blockFor doc types until the context
// expires, then reports the expiry as a timed-out attempt.
type blockingResolver struct {
	inner    fakeResolver
	blockFor map[constants.DocumentType]bool
}

func (b *blockingResolver) Resolve(ctx context.Context, req engine.Request) ([]entity.RawResult, []entity.ExtractionAttempt, error) {
	if !b.blockFor[req.Segment.DocType] {
		return b.inner.Resolve(ctx, req)
	}
	<-ctx.Done()
	attempt := entity.ExtractionAttempt{
		EngineID: "stub",
		Try:      1,
		Outcome:  constants.AttemptTimeout,
		Reason:   ctx.Err().Error(),
	}
	return nil, []entity.ExtractionAttempt{attempt}, ctx.Err()
}

func pages(texts ...string) []entity.Page {
	out := make([]entity.Page, len(texts))
	for i, txt := range texts {
		out[i] = entity.Page{Number: i + 1, Text: txt, HasTextLayer: true}
	}
	return out
}

func newTestPipeline(loader PageLoader, resolver SegmentResolver) *Pipeline {
	return newTestPipelineWithDeadline(loader, resolver, time.Minute)
}

func newTestPipelineWithDeadline(loader PageLoader, resolver SegmentResolver, deadline time.Duration) *Pipeline {
	ccfg := common.ClassifyConfig{
		MinConfidence:         0.30,
		EscalationMargin:      0.10,
		ContinuationThreshold: 0.35,
		HeuristicCap:          0.90,
	}
	segmenter := classify.NewSegmenter(ccfg, classify.NewClassifier(ccfg, nil, nil), nil)
	merger := merge.New(
		common.MergeConfig{AgreementBonus: 0.05, DisputedCeiling: 0.60},
		[]common.EngineSpec{{ID: "stub", Rank: 1}},
		nil,
	)
	return NewPipeline(loader, segmenter, resolver, merger, deadline, nil)
}

func TestProcessFileResolvesAllSegments(t *testing.T) {
	loader := &fakeLoader{pages: map[string][]entity.Page{
		"mixed.pdf": pages(taxInvoicePage, bolPage),
	}}
	p := newTestPipeline(loader, &fakeResolver{})

	report := p.ProcessFile(context.Background(), "mixed.pdf")

	assert.Equal(t, constants.FileCompleted, report.Status)
	assert.Equal(t, 2, report.TotalPages)
	require.Len(t, report.Records, 2)
	for _, rec := range report.Records {
		assert.Equal(t, constants.SegmentResolved, rec.Status)
		assert.NotEmpty(t, rec.Fields)
	}
	assert.Equal(t, []string{"stub"}, report.EnginesUsed)
}

func TestProcessFilePartialWhenOneSegmentFails(t *testing.T) {
	loader := &fakeLoader{pages: map[string][]entity.Page{
		"mixed.pdf": pages(taxInvoicePage, bolPage),
	}}
	resolver := &fakeResolver{failFor: map[constants.DocumentType]bool{
		constants.BillOfLading: true,
	}}
	p := newTestPipeline(loader, resolver)

	report := p.ProcessFile(context.Background(), "mixed.pdf")

	assert.Equal(t, constants.FilePartial, report.Status)
	require.Len(t, report.Records, 2)
	assert.Equal(t, constants.SegmentResolved, report.Records[0].Status)
	assert.Equal(t, constants.SegmentFailed, report.Records[1].Status)
	assert.NotEmpty(t, report.Records[1].Error)
	// failed segments still carry their attempt history
	assert.NotEmpty(t, report.Records[1].Attempts)
}

func TestProcessFileDeadlineAbandonsInFlightSegments(t *testing.T) {
	loader := &fakeLoader{pages: map[string][]entity.Page{
		"mixed.pdf": pages(taxInvoicePage, bolPage),
	}}
	resolver := &blockingResolver{blockFor: map[constants.DocumentType]bool{
		constants.BillOfLading: true,
	}}
	p := newTestPipelineWithDeadline(loader, resolver, 30*time.Millisecond)

	start := time.Now()
	report := p.ProcessFile(context.Background(), "mixed.pdf")

	// the file deadline cuts the hung resolution loose
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, constants.FilePartial, report.Status)
	require.Len(t, report.Records, 2)
	assert.Equal(t, constants.SegmentResolved, report.Records[0].Status)

	abandoned := report.Records[1]
	assert.Equal(t, constants.SegmentFailed, abandoned.Status)
	assert.Contains(t, abandoned.Error, "deadline")
	require.NotEmpty(t, abandoned.Attempts)
	assert.Equal(t, constants.AttemptTimeout, abandoned.Attempts[0].Outcome)
}

func TestProcessFileDeadlineFailsFileWhenNothingResolves(t *testing.T) {
	loader := &fakeLoader{pages: map[string][]entity.Page{
		"slow.pdf": pages(taxInvoicePage),
	}}
	resolver := &blockingResolver{blockFor: map[constants.DocumentType]bool{
		constants.TaxInvoice: true,
	}}
	p := newTestPipelineWithDeadline(loader, resolver, 30*time.Millisecond)

	report := p.ProcessFile(context.Background(), "slow.pdf")

	assert.Equal(t, constants.FileFailed, report.Status)
	require.Len(t, report.Records, 1)
	assert.NotEmpty(t, report.Records[0].Attempts)
}

func TestProcessFileLoadErrorFailsFile(t *testing.T) {
	loader := &fakeLoader{errs: map[string]error{
		"broken.pdf": fmt.Errorf("malformed xref table"),
	}}
	p := newTestPipeline(loader, &fakeResolver{})

	report := p.ProcessFile(context.Background(), "broken.pdf")

	assert.Equal(t, constants.FileFailed, report.Status)
	assert.Contains(t, report.Error, "xref")
	assert.Empty(t, report.Records)
}

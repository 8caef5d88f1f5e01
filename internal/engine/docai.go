package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sunghoon-yu/tradedocs/internal/common"
	"github.com/sunghoon-yu/tradedocs/internal/entity"
	"github.com/sunghoon-yu/tradedocs/internal/fields"
)

// DocAIEngine calls a hosted document digitization service: the whole
// file goes up once, the service returns per-page text, and the
// heuristic field patterns run over the segment's pages.
type DocAIEngine struct {
	spec   common.EngineSpec
	cfg    common.DocAIConfig
	client *http.Client
	logger *slog.Logger
}

func NewDocAIEngine(spec common.EngineSpec, cfg common.DocAIConfig, logger *slog.Logger) *DocAIEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocAIEngine{
		spec:   spec,
		cfg:    cfg,
		client: &http.Client{Timeout: spec.Timeout},
		logger: logger,
	}
}

func (e *DocAIEngine) ID() string              { return e.spec.ID }
func (e *DocAIEngine) Spec() common.EngineSpec { return e.spec }

// docaiResponse is the subset of the digitization response we consume.
type docaiResponse struct {
	Text    string `json:"text"`
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (e *DocAIEngine) Extract(ctx context.Context, req Request) (entity.RawResult, error) {
	if e.cfg.APIKey == "" {
		return entity.RawResult{}, NewError(e.spec.ID, FailureUnavailable,
			fmt.Errorf("docai api key not configured"))
	}

	rid := uuid.New().String()
	start := time.Now()

	pageTexts, err := e.digitize(ctx, rid, req.FilePath)
	if err != nil {
		return entity.RawResult{}, err
	}

	// Keep only the segment's pages; a single-text response covers the
	// whole file and is used as-is.
	segPages := make([]entity.Page, 0, req.Segment.PageCount())
	if len(pageTexts) >= req.Segment.End {
		for n := req.Segment.Start; n <= req.Segment.End; n++ {
			segPages = append(segPages, entity.Page{
				Number:     n,
				SourcePath: req.FilePath,
				Text:       pageTexts[n-1],
			})
		}
	} else {
		segPages = append(segPages, entity.Page{
			Number:     req.Segment.Start,
			SourcePath: req.FilePath,
			Text:       strings.Join(pageTexts, "\n\f\n"),
		})
	}

	fieldMap := fields.Extract(segPages, req.Schema)
	text := fields.JoinPages(segPages)

	res := entity.RawResult{
		EngineID:   e.spec.ID,
		Text:       text,
		Fields:     fieldMap,
		Confidence: resultConfidence(req.Schema, fieldMap, text),
	}
	e.logger.Info("engine.docai.extracted",
		"req_id", rid,
		"segment", req.Segment.String(),
		"fields", len(fieldMap),
		"confidence", res.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// digitize uploads the file and returns per-page text.
func (e *DocAIEngine) digitize(ctx context.Context, rid, path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewError(e.spec.ID, FailureMalformedInput, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			e.logger.Warn("engine.docai.close_failed", "req_id", rid, "error", cerr)
		}
	}()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("document", filepath.Base(path))
	if err != nil {
		return nil, NewError(e.spec.ID, FailureUnavailable, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, NewError(e.spec.ID, FailureMalformedInput, err)
	}
	if err := mw.WriteField("ocr", "force"); err != nil {
		return nil, NewError(e.spec.ID, FailureUnavailable, err)
	}
	if err := mw.Close(); err != nil {
		return nil, NewError(e.spec.ID, FailureUnavailable, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL, &body)
	if err != nil {
		return nil, NewError(e.spec.ID, FailureUnavailable, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	e.logger.Info("engine.docai.request", "req_id", rid, "url", e.cfg.BaseURL, "bytes", body.Len())

	resp, err := e.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, NewError(e.spec.ID, FailureNetwork, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			e.logger.Warn("engine.docai.body_close_failed", "req_id", rid, "error", cerr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(e.spec.ID, FailureNetwork,
			fmt.Errorf("read docai response: %w", err))
	}
	e.logger.Info("engine.docai.response", "req_id", rid, "status", resp.StatusCode, "bytes", len(raw))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewError(e.spec.ID, FailureRateLimited,
			fmt.Errorf("docai status %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return nil, NewError(e.spec.ID, FailureUnavailable,
			fmt.Errorf("docai status %d: %s", resp.StatusCode, truncate(string(raw), 512)))
	case resp.StatusCode/100 != 2:
		return nil, NewError(e.spec.ID, FailureMalformedInput,
			fmt.Errorf("docai status %d: %s", resp.StatusCode, truncate(string(raw), 512)))
	}

	var dr docaiResponse
	if err := json.Unmarshal(raw, &dr); err != nil {
		return nil, NewError(e.spec.ID, FailureUnavailable,
			fmt.Errorf("decode docai response: %w", err))
	}
	if len(dr.Content) > 0 {
		texts := make([]string, 0, len(dr.Content))
		for _, c := range dr.Content {
			texts = append(texts, c.Text)
		}
		return texts, nil
	}
	if dr.Text != "" {
		return []string{dr.Text}, nil
	}
	return nil, NewError(e.spec.ID, FailureUnavailable,
		fmt.Errorf("docai response carried no text"))
}

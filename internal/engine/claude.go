package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"github.com/sunghoon-yu/tradedocs/constants"
	"github.com/sunghoon-yu/tradedocs/internal/common"
	"github.com/sunghoon-yu/tradedocs/internal/entity"
	"github.com/sunghoon-yu/tradedocs/internal/fields"
)

// ClaudeEngine extracts fields by asking an Anthropic model for JSON
// constrained to the segment's field schema. It doubles as the
// classification backend for ambiguous pages.
type ClaudeEngine struct {
	spec   common.EngineSpec
	cfg    common.ClaudeConfig
	client anthropic.Client
	logger *slog.Logger
}

func NewClaudeEngine(spec common.EngineSpec, cfg common.ClaudeConfig, logger *slog.Logger) *ClaudeEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &ClaudeEngine{
		spec:   spec,
		cfg:    cfg,
		client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		logger: logger,
	}
}

func (e *ClaudeEngine) ID() string              { return e.spec.ID }
func (e *ClaudeEngine) Spec() common.EngineSpec { return e.spec }

func (e *ClaudeEngine) Extract(ctx context.Context, req Request) (entity.RawResult, error) {
	if e.cfg.APIKey == "" {
		return entity.RawResult{}, NewError(e.spec.ID, FailureUnavailable,
			fmt.Errorf("anthropic api key not configured"))
	}

	text := segmentText(req.Pages)
	if strings.TrimSpace(text) == "" {
		return entity.RawResult{}, NewError(e.spec.ID, FailureUnsupported,
			fmt.Errorf("segment %s carries no text to analyze", req.Segment))
	}

	rid := uuid.New().String()
	start := time.Now()
	schema := fields.JSONSchema(req.Schema)

	e.logger.Info("engine.claude.extract.start",
		"req_id", rid,
		"model", e.cfg.Model,
		"segment", req.Segment.String(),
		"text_len", len(text),
	)

	content, err := e.complete(ctx, buildExtractSystemPrompt(req.Schema, schema), buildExtractUserPrompt(text))
	if err != nil {
		return entity.RawResult{}, e.classify(err)
	}

	raw := []byte(stripCodeFences(content))
	if verr := ValidateJSONAgainstSchema(schema, raw); verr != nil {
		// lenient pass: drop offending optionals and re-validate
		cleaned, dropped, serr := sanitizeOptional(raw, req.Schema)
		if serr != nil || ValidateJSONAgainstSchema(schema, cleaned) != nil {
			e.logger.Error("engine.claude.schema_validation_failed",
				"req_id", rid, "error", verr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return entity.RawResult{}, NewError(e.spec.ID, FailureMalformedInput,
				fmt.Errorf("schema validation failed: %w", verr))
		}
		e.logger.Warn("engine.claude.lenient_sanitize_applied", "req_id", rid, "dropped", dropped)
		raw = cleaned
	}

	fieldMap, modelConf, err := decodeFields(raw, req.Schema, req.Segment.Start)
	if err != nil {
		return entity.RawResult{}, NewError(e.spec.ID, FailureMalformedInput, err)
	}

	res := entity.RawResult{
		EngineID:   e.spec.ID,
		Text:       text,
		Fields:     fieldMap,
		Confidence: modelConf,
	}
	e.logger.Info("engine.claude.extract.ok",
		"req_id", rid,
		"fields", len(fieldMap),
		"confidence", modelConf,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// ClassifyDocument asks the model for the document type of a page.
// Used by the classifier when keyword signals are ambiguous.
func (e *ClaudeEngine) ClassifyDocument(ctx context.Context, text string) (constants.DocumentType, float32, error) {
	if e.cfg.APIKey == "" {
		return constants.Generic, 0, NewError(e.spec.ID, FailureUnavailable,
			fmt.Errorf("anthropic api key not configured"))
	}

	content, err := e.complete(ctx, classifySystemPrompt, buildClassifyUserPrompt(text))
	if err != nil {
		return constants.Generic, 0, e.classify(err)
	}

	answer := strings.Trim(strings.TrimSpace(content), `"`)
	dt, ok := constants.CanonicalDocumentType(answer)
	if !ok {
		e.logger.Warn("engine.claude.classify.unknown_label", "answer", answer)
		return constants.Generic, 0.30, nil
	}
	return dt, 0.90, nil
}

// complete sends one system+user exchange and returns the text blocks.
func (e *ClaudeEngine) complete(ctx context.Context, system, user string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(e.cfg.Model),
		MaxTokens: int64(e.cfg.MaxTokens),
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}

	resp, err := e.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("empty model response")
	}
	return b.String(), nil
}

// classify maps SDK/transport errors onto the failure taxonomy.
func (e *ClaudeEngine) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 429:
			return NewError(e.spec.ID, FailureRateLimited, err)
		case apierr.StatusCode >= 500:
			return NewError(e.spec.ID, FailureUnavailable, err)
		case apierr.StatusCode == 400:
			return NewError(e.spec.ID, FailureMalformedInput, err)
		}
	}
	return NewError(e.spec.ID, FailureNetwork, err)
}

func segmentText(pages []entity.Page) string {
	var b strings.Builder
	for _, p := range pages {
		if p.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n")
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

func buildExtractSystemPrompt(s fields.Schema, jsonSchema map[string]any) string {
	parts := []string{
		"You are a trade-document parser. Return ONLY JSON that matches the JSON Schema provided.",
		"Use ISO-8601 dates (YYYY-MM-DD).",
		"Amounts keep their digits and separators exactly as printed.",
		"Never output null. If a field is not present, omit it.",
		"Include a 'confidence' number in [0,1] for the extraction as a whole.",
		"Document type: " + string(s.DocType) + ".",
		"JSON Schema:\n" + mustJSON(jsonSchema),
	}
	return strings.Join(parts, " ")
}

func buildExtractUserPrompt(text string) string {
	const maxChars = 6000
	if len(text) > maxChars {
		text = text[:maxChars]
	}
	return "Document text:\n" + text + "\n\nReturn ONLY the JSON object."
}

const classifySystemPrompt = "You classify trade and settlement documents. " +
	"Answer with exactly one of: 세금계산서, 인보이스, BL, 수출신고필증, 이체확인증, 미분류. " +
	"No explanations."

func buildClassifyUserPrompt(text string) string {
	const maxChars = 3000
	if len(text) > maxChars {
		text = text[:maxChars]
	}
	return "Document page:\n" + text
}

// decodeFields turns the validated JSON object into RawFields.
func decodeFields(raw []byte, schema fields.Schema, page int) (map[string]entity.RawField, float32, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, 0, fmt.Errorf("unmarshal fields: %w", err)
	}

	modelConf := float32(0.85)
	if c, ok := m["confidence"].(float64); ok && c > 0 && c <= 1 {
		modelConf = float32(c)
	}

	out := make(map[string]entity.RawField)
	for _, def := range schema.Fields {
		v, ok := m[def.Name]
		if !ok {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = strings.TrimSpace(t)
		case float64:
			s = strings.TrimSpace(fmt.Sprintf("%v", t))
		default:
			continue
		}
		if s == "" {
			continue
		}
		out[def.Name] = entity.RawField{Value: s, Confidence: modelConf, Page: page}
	}
	return out, modelConf, nil
}

// sanitizeOptional drops optional fields that do not meet the schema
// so the overall document can still validate. Required fields are
// never touched.
func sanitizeOptional(raw []byte, schema fields.Schema) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, err
	}

	allowed := map[string]bool{"confidence": true}
	required := map[string]bool{}
	for _, def := range schema.Fields {
		allowed[def.Name] = true
		if def.Required {
			required[def.Name] = true
		}
	}

	var dropped []string
	for k, v := range m {
		if !allowed[k] {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
			continue
		}
		if required[k] {
			continue
		}
		switch t := v.(type) {
		case nil:
			delete(m, k)
			dropped = append(dropped, k+"(null)")
		case string:
			if strings.TrimSpace(t) == "" {
				delete(m, k)
				dropped = append(dropped, k+"(empty)")
			}
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, err
	}
	return b, dropped, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

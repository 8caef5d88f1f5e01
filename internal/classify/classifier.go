// Package classify assigns document types to pages and groups them
// into per-document segments. Keyword signatures carry most of the
// load; an AI backend is consulted only when the signals are too close
// to call.
package classify

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/sunghoon-yu/tradedocs/constants"
	"github.com/sunghoon-yu/tradedocs/internal/common"
)

// Backend resolves ambiguous pages. Implemented by the Claude engine.
type Backend interface {
	ClassifyDocument(ctx context.Context, text string) (constants.DocumentType, float32, error)
}

type signature struct {
	patterns   []*regexp.Regexp
	exclusions []string
}

// Keyword signatures per document type. Korean trade paperwork mixes
// hangul and English headings on the same page, so both appear here.
var signatures = map[constants.DocumentType]signature{
	constants.TaxInvoice: {
		patterns: compileAll(
			`세금계산서`,
			`영세율전자세금계산서`,
			`공급가액`,
			`공급받는자`,
			`사업자등록번호\s*\d{3}-\d{2}-\d{5}`,
			`매출세금계산서`,
			`부가가치세`,
			`세액`,
			`합계금액`,
			`발급일자`,
			`공급자상호`,
			`승인번호.*\d+`,
			`etradeinvoice`,
		),
	},
	constants.CommercialInvoice: {
		patterns: compileAll(
			`invoice\s*(?:no\.?|number)`,
			`freight\s*(?:charge|cost)`,
			`운임|화물운송료`,
			`인보이스`,
			`remit\s*to`,
			`client\s*no`,
			`chargeable\s*wgt`,
			`terminal\s*handling`,
			`forwarding\s*fee`,
			`document\s*fee`,
			`processing\s*fee`,
			`vat\s*category`,
		),
		exclusions: []string{"세금계산서", "tax invoice"},
	},
	constants.BillOfLading: {
		patterns: compileAll(
			`bill\s*of\s*lading`,
			`b/l\s*(?:no\.?|number)`,
			`port\s*of\s*loading`,
			`port\s*of\s*discharge`,
			`선하증권`,
			`vessel\s*name`,
		),
	},
	constants.ExportDeclaration: {
		patterns: compileAll(
			`수출신고필증`,
			`수출신고서`,
			`신고번호\s*\d+`,
			`관세청`,
			`export\s*declaration`,
			`통관`,
		),
	},
	constants.RemittanceReceipt: {
		patterns: compileAll(
			`이체확인증`,
			`송금확인`,
			`송금증`,
			`입금확인`,
			`transfer\s*confirmation`,
			`송금일자`,
			`출금계좌번호`,
			`입금계좌번호`,
			`계좌번호`,
			`승인번호\s*\d+`,
			`한국외환은행`,
			`우리은행`,
			`농협|농업협동조합`,
		),
	},
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(`(?im)`+e))
	}
	return out
}

// scoreScale normalizes keyword hits into [0,1]: five hits saturate.
const scoreScale = 5

// Classifier scores a single page of text.
type Classifier struct {
	cfg     common.ClassifyConfig
	backend Backend
	logger  *slog.Logger
}

func NewClassifier(cfg common.ClassifyConfig, backend Backend, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{cfg: cfg, backend: backend, logger: logger}
}

// candidate is one scored document type for a page.
type candidate struct {
	DocType    constants.DocumentType
	Score      int
	Confidence float32
}

// scorePage evaluates every signature against the page text and
// returns candidates sorted by confidence, best first.
func scorePage(text string, cap float32) []candidate {
	lower := strings.ToLower(text)
	var out []candidate
	for dt, sig := range signatures {
		excluded := false
		for _, ex := range sig.exclusions {
			if strings.Contains(lower, ex) {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}
		score := 0
		for _, re := range sig.patterns {
			score += len(re.FindAllStringIndex(lower, -1))
		}
		if score == 0 {
			continue
		}
		conf := float32(score) / scoreScale
		if conf > cap {
			conf = cap
		}
		out = append(out, candidate{DocType: dt, Score: score, Confidence: conf})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].DocType < out[j].DocType
	})
	return out
}

// Classify returns the document type for one page of text plus a
// confidence. Pages nothing matches come back generic; near-ties go
// to the AI backend when one is configured.
func (c *Classifier) Classify(ctx context.Context, text string) (constants.DocumentType, float32) {
	cands := scorePage(text, c.cfg.HeuristicCap)
	if len(cands) == 0 || cands[0].Confidence < c.cfg.MinConfidence {
		return constants.Generic, 0
	}

	top := cands[0]
	ambiguous := len(cands) > 1 && top.Confidence-cands[1].Confidence < c.cfg.EscalationMargin

	if ambiguous && c.backend != nil {
		dt, conf, err := c.backend.ClassifyDocument(ctx, text)
		if err != nil {
			c.logger.Warn("classify.backend_failed",
				"error", err,
				"fallback", top.DocType,
			)
			// the tie stays unresolved, so the guess keeps a
			// below-escalation confidence
			fallbackConf := top.Confidence
			ceiling := c.cfg.MinConfidence + c.cfg.EscalationMargin
			if fallbackConf >= ceiling {
				fallbackConf = ceiling - 0.01
			}
			return top.DocType, fallbackConf
		}
		c.logger.Info("classify.escalated",
			"heuristic", top.DocType,
			"resolved", dt,
			"confidence", conf,
		)
		if dt == constants.Generic {
			return top.DocType, top.Confidence
		}
		return dt, conf
	}

	return top.DocType, top.Confidence
}

// relatedScore reports how strongly the page text still resembles the
// given document type. The segmenter uses it to decide whether a page
// with no identity of its own continues its predecessor.
func relatedScore(text string, dt constants.DocumentType, cap float32) float32 {
	for _, cand := range scorePage(text, cap) {
		if cand.DocType == dt {
			return cand.Confidence
		}
	}
	return 0
}

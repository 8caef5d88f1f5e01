// Package merge reconciles field values produced by different engines
// for the same segment into one record per field.
package merge

import (
	"log/slog"
	"sort"

	"github.com/sunghoon-yu/tradedocs/internal/common"
	"github.com/sunghoon-yu/tradedocs/internal/entity"
	"github.com/sunghoon-yu/tradedocs/internal/fields"
)

// Merger applies the reconciliation rules: lone values pass through,
// agreement earns a bonus, conflicts resolve by engine priority with
// a confidence ceiling.
type Merger struct {
	cfg      common.MergeConfig
	priority map[string]int // engine id -> rank, lower wins
	logger   *slog.Logger
}

func New(cfg common.MergeConfig, specs []common.EngineSpec, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	priority := make(map[string]int, len(specs))
	for _, s := range specs {
		priority[s.ID] = s.Rank
	}
	return &Merger{cfg: cfg, priority: priority, logger: logger}
}

// source is one engine's claim on a field.
type source struct {
	engineID string
	raw      entity.RawField
}

// Merge combines the raw results into one FieldValue per schema field.
// Engines that did not report a field simply do not vote on it; an
// explicit empty string is not a vote either.
func (m *Merger) Merge(schema fields.Schema, results []entity.RawResult) map[string]entity.FieldValue {
	out := make(map[string]entity.FieldValue)

	for _, def := range schema.Fields {
		var sources []source
		for _, res := range results {
			if rf, ok := res.Fields[def.Name]; ok && rf.Value != "" {
				sources = append(sources, source{engineID: res.EngineID, raw: rf})
			}
		}
		if len(sources) == 0 {
			continue
		}
		// deterministic regardless of result order
		sort.SliceStable(sources, func(i, j int) bool {
			pi, pj := m.rank(sources[i].engineID), m.rank(sources[j].engineID)
			if pi != pj {
				return pi < pj
			}
			return sources[i].engineID < sources[j].engineID
		})
		out[def.Name] = m.mergeField(def, sources)
	}
	return out
}

func (m *Merger) mergeField(def fields.FieldDef, sources []source) entity.FieldValue {
	best := sources[0]
	fv := toFieldValue(def, best)

	if len(sources) == 1 {
		return fv
	}

	agree := true
	maxConf := best.raw.Confidence
	for _, s := range sources[1:] {
		if !fields.Equal(def, best.raw.Value, s.raw.Value) {
			agree = false
			break
		}
		if s.raw.Confidence > maxConf {
			maxConf = s.raw.Confidence
		}
	}

	if agree {
		conf := maxConf + m.cfg.AgreementBonus
		if conf > 1.0 {
			conf = 1.0
		}
		fv.Confidence = conf
		return fv
	}

	// conflict: keep the highest-priority engine's value but flag it
	// and cap how much anyone downstream should trust it
	fv.Disputed = true
	if fv.Confidence > m.cfg.DisputedCeiling {
		fv.Confidence = m.cfg.DisputedCeiling
	}
	m.logger.Warn("merge.field_disputed",
		"field", def.Name,
		"kept_engine", best.engineID,
		"kept_value", best.raw.Value,
		"sources", len(sources),
	)
	return fv
}

func (m *Merger) rank(engineID string) int {
	if r, ok := m.priority[engineID]; ok {
		return r
	}
	return int(^uint(0) >> 1)
}

// toFieldValue normalizes the winning raw value into its canonical
// form. Values that refuse to normalize are kept verbatim so nothing
// extracted is silently lost.
func toFieldValue(def fields.FieldDef, s source) entity.FieldValue {
	fv := entity.FieldValue{
		Name:       def.Name,
		Type:       def.Type,
		Value:      s.raw.Value,
		Confidence: s.raw.Confidence,
		EngineID:   s.engineID,
		Page:       s.raw.Page,
	}
	if value, number, ok := fields.Normalize(def, s.raw.Value); ok {
		fv.Value = value
		fv.Number = number
	}
	return fv
}

package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunghoon-yu/tradedocs/constants"
	"github.com/sunghoon-yu/tradedocs/internal/common"
	"github.com/sunghoon-yu/tradedocs/internal/entity"
	"github.com/sunghoon-yu/tradedocs/internal/fields"
)

func testMerger() *Merger {
	return New(
		common.MergeConfig{AgreementBonus: 0.05, DisputedCeiling: 0.60},
		[]common.EngineSpec{
			{ID: "docai", Rank: 1},
			{ID: "claude", Rank: 2},
			{ID: "tesseract", Rank: 4},
		},
		nil,
	)
}

func remittanceSchema() fields.Schema {
	return fields.ForDocType(constants.RemittanceReceipt)
}

func result(engineID string, vals map[string]entity.RawField) entity.RawResult {
	return entity.RawResult{EngineID: engineID, Fields: vals}
}

func TestMergeSingleSourcePassesThrough(t *testing.T) {
	m := testMerger()
	schema := remittanceSchema()

	merged := m.Merge(schema, []entity.RawResult{
		result("docai", map[string]entity.RawField{
			"company": {Value: "한빛상사", Confidence: 0.7, Page: 1},
		}),
	})

	fv, ok := merged["company"]
	require.True(t, ok)
	assert.Equal(t, "한빛상사", fv.Value)
	assert.Equal(t, float32(0.7), fv.Confidence)
	assert.Equal(t, "docai", fv.EngineID)
	assert.False(t, fv.Disputed)
}

func TestMergeAgreementAfterNormalization(t *testing.T) {
	m := testMerger()
	schema := remittanceSchema()

	// same amount written two ways: identical once normalized
	merged := m.Merge(schema, []entity.RawResult{
		result("docai", map[string]entity.RawField{
			"amount": {Value: "1,000,000원", Confidence: 0.80},
		}),
		result("claude", map[string]entity.RawField{
			"amount": {Value: "₩1000000", Confidence: 0.65},
		}),
	})

	fv := merged["amount"]
	assert.Equal(t, "1000000", fv.Value)
	require.NotNil(t, fv.Number)
	assert.Equal(t, float64(1000000), *fv.Number)
	// max confidence plus the agreement bonus
	assert.InDelta(t, 0.85, float64(fv.Confidence), 1e-6)
	assert.False(t, fv.Disputed)
}

func TestMergeAgreementBonusCapsAtOne(t *testing.T) {
	m := testMerger()
	schema := remittanceSchema()

	merged := m.Merge(schema, []entity.RawResult{
		result("docai", map[string]entity.RawField{
			"bank_name": {Value: "우리은행", Confidence: 0.98},
		}),
		result("claude", map[string]entity.RawField{
			"bank_name": {Value: "우리은행", Confidence: 0.97},
		}),
	})

	assert.Equal(t, float32(1.0), merged["bank_name"].Confidence)
}

func TestMergeConflictKeepsPriorityEngineCapped(t *testing.T) {
	m := testMerger()
	schema := remittanceSchema()

	merged := m.Merge(schema, []entity.RawResult{
		result("tesseract", map[string]entity.RawField{
			"approval_number": {Value: "77421", Confidence: 0.9},
		}),
		result("docai", map[string]entity.RawField{
			"approval_number": {Value: "77427", Confidence: 0.9},
		}),
	})

	fv := merged["approval_number"]
	assert.Equal(t, "77427", fv.Value)
	assert.Equal(t, "docai", fv.EngineID)
	assert.True(t, fv.Disputed)
	assert.Equal(t, float32(0.60), fv.Confidence)
}

func TestMergeAbsenceIsNotDisagreement(t *testing.T) {
	m := testMerger()
	schema := remittanceSchema()

	merged := m.Merge(schema, []entity.RawResult{
		result("docai", map[string]entity.RawField{
			"date": {Value: "2024년 2월 1일", Confidence: 0.75},
		}),
		// claude reported nothing for date and an explicit empty string
		// for company; neither counts as a vote
		result("claude", map[string]entity.RawField{
			"company": {Value: "", Confidence: 0.5},
		}),
	})

	fv, ok := merged["date"]
	require.True(t, ok)
	assert.Equal(t, "2024-02-01", fv.Value)
	assert.Equal(t, float32(0.75), fv.Confidence)
	assert.False(t, fv.Disputed)

	_, ok = merged["company"]
	assert.False(t, ok)
}

func TestMergeDeterministicAcrossResultOrder(t *testing.T) {
	m := testMerger()
	schema := remittanceSchema()

	a := result("docai", map[string]entity.RawField{"company": {Value: "한빛상사", Confidence: 0.8}})
	b := result("claude", map[string]entity.RawField{"company": {Value: "한빛무역", Confidence: 0.8}})

	first := m.Merge(schema, []entity.RawResult{a, b})
	second := m.Merge(schema, []entity.RawResult{b, a})

	assert.Equal(t, first["company"], second["company"])
	assert.Equal(t, "한빛상사", first["company"].Value)
}

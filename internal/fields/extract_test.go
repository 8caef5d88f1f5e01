package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunghoon-yu/tradedocs/constants"
	"github.com/sunghoon-yu/tradedocs/internal/entity"
)

func TestExtractTaxInvoiceFields(t *testing.T) {
	page := entity.Page{Number: 1, Text: `전자세금계산서
승인번호: 20240105-41000001
공급가액: 1,000,000 세액: 100,000
합계금액: 1,100,000
발급일자: 2024-01-05
공급자 상호: 한빛상사
공급받는자 상호: 대양무역`}

	got := Extract([]entity.Page{page}, ForDocType(constants.TaxInvoice))

	require.Contains(t, got, "tax_invoice_number")
	assert.Equal(t, "20240105-41000001", got["tax_invoice_number"].Value)
	assert.Equal(t, "1,000,000", got["supply_amount"].Value)
	assert.Equal(t, "100,000", got["tax_amount"].Value)
	assert.Equal(t, "1,100,000", got["total_amount"].Value)
	assert.Equal(t, "한빛상사", got["supplier_name"].Value)
	assert.Equal(t, "대양무역", got["buyer_name"].Value)
	assert.Equal(t, 1, got["supply_amount"].Page)
}

func TestExtractBillOfLadingFields(t *testing.T) {
	page := entity.Page{Number: 3, Text: `BILL OF LADING
B/L NO: HDMU1234567
VESSEL: HYUNDAI FORWARD VOY 042E
PORT OF LOADING: BUSAN, KOREA
PORT OF DISCHARGE: LOS ANGELES
GROSS WEIGHT: 12,500.00 KGS
CONTAINER NO. TCNU1234567`}

	got := Extract([]entity.Page{page}, ForDocType(constants.BillOfLading))

	assert.Equal(t, "HDMU1234567", got["bl_number"].Value)
	assert.Equal(t, "HYUNDAI FORWARD", got["vessel_name"].Value)
	assert.Equal(t, "042E", got["voyage_number"].Value)
	assert.Equal(t, "12,500.00", got["gross_weight"].Value)
	assert.Equal(t, "TCNU1234567", got["container_number"].Value)
	assert.Equal(t, 3, got["bl_number"].Page)
}

func TestExtractConfidenceDropsPerAlternative(t *testing.T) {
	// 승인번호 is the second tax_invoice_number alternative
	page := entity.Page{Number: 1, Text: "승인번호: 12345-678"}

	got := Extract([]entity.Page{page}, ForDocType(constants.TaxInvoice))

	require.Contains(t, got, "tax_invoice_number")
	assert.InDelta(t, 0.80, float64(got["tax_invoice_number"].Confidence), 1e-6)
}

func TestExtractFirstMatchingPageWins(t *testing.T) {
	pages := []entity.Page{
		{Number: 1, Text: "여백"},
		{Number: 2, Text: "공급가액: 500,000"},
		{Number: 3, Text: "공급가액: 999,999"},
	}

	got := Extract(pages, ForDocType(constants.TaxInvoice))

	assert.Equal(t, "500,000", got["supply_amount"].Value)
	assert.Equal(t, 2, got["supply_amount"].Page)
}

func TestExtractMissingFieldsAbsent(t *testing.T) {
	page := entity.Page{Number: 1, Text: "아무 관련 없는 본문"}

	got := Extract([]entity.Page{page}, ForDocType(constants.RemittanceReceipt))

	assert.NotContains(t, got, "amount")
	assert.NotContains(t, got, "approval_number")
}

func TestExtractRemittanceScenario(t *testing.T) {
	page := entity.Page{Number: 1, Text: `이체확인증
송금 금액: 1,000,000원
수취인: 한빛상사
송금일자: 2024년 2월 1일
우리은행 계좌번호: 110-123-456789
승인번호: 77421`}

	got := Extract([]entity.Page{page}, ForDocType(constants.RemittanceReceipt))

	assert.Equal(t, "1,000,000", got["amount"].Value)
	assert.Equal(t, "한빛상사", got["company"].Value)
	assert.Equal(t, "우리은행", got["bank_name"].Value)
	assert.Equal(t, "110-123-456789", got["account_number"].Value)
	assert.Equal(t, "77421", got["approval_number"].Value)
}

func TestJoinPagesUsesFormFeed(t *testing.T) {
	joined := JoinPages([]entity.Page{
		{Number: 1, Text: "one"},
		{Number: 2, Text: "two"},
	})
	assert.Equal(t, "one\n\f\ntwo", joined)
}

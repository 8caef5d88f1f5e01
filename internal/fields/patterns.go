package fields

import (
	"regexp"

	"github.com/sunghoon-yu/tradedocs/constants"
)

// Per-document-type field patterns. Each field carries alternatives in
// preference order; earlier patterns are more specific and score a
// higher confidence when they match.
var fieldPatterns = map[constants.DocumentType]map[string][]*regexp.Regexp{
	constants.CommercialInvoice: {
		"invoice_number": {
			regexp.MustCompile(`(?i)invoice\s*(?:no\.?)?\s*:?\s*([A-Z0-9][A-Z0-9-]+)`),
			regexp.MustCompile(`송품장\s*번호\s*:?\s*([A-Z0-9-]+)`),
			regexp.MustCompile(`(?i)\b([A-Z]\d{2}-\d{4})\b`),
		},
		"description": {
			regexp.MustCompile(`(?i)description\s*of\s*goods?\s*:?\s*([^\n]{1,100})`),
			regexp.MustCompile(`품목\s*:?\s*([^\n]{1,100})`),
			regexp.MustCompile(`(?i)commodity\s*:?\s*([^\n]{1,100})`),
		},
		"krw_amount": {
			regexp.MustCompile(`원화\s*공급가\s*:?\s*₩?\s*([0-9,]+)`),
			regexp.MustCompile(`(?i)KRW\s*:?\s*([0-9,]+)`),
		},
		"vat_amount": {
			regexp.MustCompile(`(?i)V\.?A\.?T\.?\s*:?\s*₩?\s*([0-9,]+)`),
		},
		"bl_number": {
			regexp.MustCompile(`(?i)(?:M\.|H\.)?\s*B/?L\s*NO\.?\s*:?\s*([A-Z0-9-]+)`),
		},
		"gross_weight": {
			regexp.MustCompile(`(?i)(?:gross\s*)?weight\s*:?\s*([\d,]+\.?\d*)`),
		},
		"container_number": {
			regexp.MustCompile(`(?i)container\D{0,12}([A-Z]{4}\d{7})`),
			regexp.MustCompile(`\b([A-Z]{4}\d{7})\b`),
		},
		"port_of_loading": {
			regexp.MustCompile(`(?i)P\.?O\.?L\.?\s*:?\s*([A-Z][A-Z\s,]+?)(?:\n|$)`),
			regexp.MustCompile(`(?i)port\s*of\s*loading\s*:?\s*([A-Z][A-Z\s,]+?)(?:\n|$)`),
		},
		"port_of_discharge": {
			regexp.MustCompile(`(?i)P\.?O\.?D\.?\s*:?\s*([A-Z][A-Z\s,]+?)(?:\n|$)`),
			regexp.MustCompile(`(?i)port\s*of\s*discharge\s*:?\s*([A-Z][A-Z\s,]+?)(?:\n|$)`),
		},
	},
	constants.TaxInvoice: {
		"tax_invoice_number": {
			regexp.MustCompile(`세금계산서\D{0,10}번호\s*:?\s*([0-9-]+)`),
			regexp.MustCompile(`승인번호\s*:?\s*([0-9-]+)`),
			regexp.MustCompile(`계산서\D{0,10}번호\s*:?\s*([0-9-]+)`),
		},
		"supply_amount": {
			regexp.MustCompile(`공급가액\s*:?\s*₩?\s*([\d,]+)`),
		},
		"tax_amount": {
			regexp.MustCompile(`세\s*액\s*:?\s*₩?\s*([\d,]+)`),
			regexp.MustCompile(`부가세\s*:?\s*₩?\s*([\d,]+)`),
		},
		"total_amount": {
			regexp.MustCompile(`합계\s*금액\s*:?\s*₩?\s*([\d,]+)`),
			regexp.MustCompile(`합계\s*:?\s*₩?\s*([\d,]+)`),
			regexp.MustCompile(`총\s*금액\s*:?\s*₩?\s*([\d,]+)`),
		},
		"issue_date": {
			regexp.MustCompile(`발급일자\s*:?\s*([\d\s년월일./-]+)`),
			regexp.MustCompile(`작성일자\s*:?\s*([\d\s년월일./-]+)`),
		},
		"supplier_name": {
			regexp.MustCompile(`공급자\s*상호\s*:?\s*([^\n]{1,40})`),
		},
		"buyer_name": {
			regexp.MustCompile(`공급받는자\s*상호\s*:?\s*([^\n]{1,40})`),
		},
	},
	constants.BillOfLading: {
		"bl_number": {
			regexp.MustCompile(`(?i)b/?l\s*(?:no\.?|number)\s*:?\s*([A-Z0-9-]+)`),
			regexp.MustCompile(`(?i)bill\s*of\s*lading\s*(?:no\.?)?\s*:?\s*([A-Z0-9-]+)`),
		},
		"vessel_name": {
			regexp.MustCompile(`(?i)vessel\s*(?:name)?\s*:?\s*([A-Z][A-Z\s]+?)(?:\s+VOY|,|\n)`),
			regexp.MustCompile(`(?i)(?:M/V|MV)\s+([A-Z][A-Z\s]+)`),
		},
		"voyage_number": {
			regexp.MustCompile(`(?i)voy(?:age)?\.?\s*(?:no\.?)?\s*:?\s*([A-Z0-9]+)`),
		},
		"port_of_loading": {
			regexp.MustCompile(`(?i)port\s*of\s*loading\s*:?\s*([A-Z][A-Z\s,]+?)(?:\n|$)`),
		},
		"port_of_discharge": {
			regexp.MustCompile(`(?i)port\s*of\s*discharge\s*:?\s*([A-Z][A-Z\s,]+?)(?:\n|$)`),
		},
		"gross_weight": {
			regexp.MustCompile(`(?i)gross\s*weight\s*:?\s*([\d,]+\.?\d*)`),
			regexp.MustCompile(`(?i)([\d,]+\.?\d*)\s*KGS?\b`),
		},
		"container_number": {
			regexp.MustCompile(`(?i)container\D{0,12}([A-Z]{4}\d{7})`),
			regexp.MustCompile(`\b([A-Z]{4}\d{7})\b`),
		},
	},
	constants.ExportDeclaration: {
		"declaration_number": {
			regexp.MustCompile(`신고번호\s*:?\s*(\d{5}-\d{2}-\d{6}[A-Z]?)`),
			regexp.MustCompile(`\b(\d{5}-\d{2}-\d{6}[A-Z]?)\b`),
		},
		"invoice_symbol": {
			regexp.MustCompile(`송품장\s*부호\s*:?\s*([A-Z0-9-]+)`),
			regexp.MustCompile(`\b([A-Z]\d{2}-\d{4})\b`),
		},
		"gross_weight": {
			regexp.MustCompile(`총\s*중량\s*:?\s*([\d,]+\.?\d*)`),
		},
		"container_number": {
			regexp.MustCompile(`\b([A-Z]{4}\d{7})\b`),
		},
		"loading_port": {
			regexp.MustCompile(`적재항\s*:?\s*([A-Z]{5})`),
			regexp.MustCompile(`\b(KRPUS|KRINC|KRBER)\b`),
		},
		"destination_country": {
			regexp.MustCompile(`목적국\s*:?\s*([A-Z]{2})\b`),
		},
		"hs_code": {
			regexp.MustCompile(`세번부호\s*:?\s*([\d.]+)`),
		},
	},
	constants.RemittanceReceipt: {
		"amount": {
			regexp.MustCompile(`송금\s*금액\s*:?\s*₩?\s*([\d,]+)(?:\s*원)?`),
			regexp.MustCompile(`(?:이체|입금|출금)\s*금액\s*:?\s*₩?\s*([\d,]+)(?:\s*원)?`),
			regexp.MustCompile(`금액\s*:?\s*₩?\s*([\d,]+)\s*원?`),
		},
		"company": {
			regexp.MustCompile(`(?:수취인|받는\s*분|받으시는\s*분)\s*:?\s*([^\n]{1,40})`),
			regexp.MustCompile(`공급자\s*상호\s*:?\s*([^\n]{1,40})`),
		},
		"date": {
			regexp.MustCompile(`송금일자\s*:?\s*([\d\s년월일./-]+)`),
			regexp.MustCompile(`이체일\s*:?\s*([\d\s년월일./-]+)`),
			regexp.MustCompile(`(\d{4}[-./]\d{1,2}[-./]\d{1,2})`),
		},
		"bank_name": {
			regexp.MustCompile(`([가-힣]+은행)`),
		},
		"account_number": {
			regexp.MustCompile(`계좌번호\s*:?\s*([\d-]+)`),
			regexp.MustCompile(`\b(\d{3,4}-\d{2,4}-\d{4,8})\b`),
		},
		"approval_number": {
			regexp.MustCompile(`승인번호\s*:?\s*([\d-]+)`),
		},
	},
	constants.Generic: {
		"company": {
			regexp.MustCompile(`(?i)company\s*:?\s*([^\n]{1,40})`),
			regexp.MustCompile(`상호\s*:?\s*([^\n]{1,40})`),
		},
		"date": {
			regexp.MustCompile(`(\d{4}[-./]\d{1,2}[-./]\d{1,2})`),
			regexp.MustCompile(`(\d{4}\s*년\s*\d{1,2}\s*월\s*\d{1,2}\s*일?)`),
		},
		"amount": {
			regexp.MustCompile(`(?i)(?:total|amount|금액|합계)\s*:?\s*[₩$]?\s*([\d,]+\.?\d*)`),
		},
		"description": {
			regexp.MustCompile(`(?i)description\s*:?\s*([^\n]{1,100})`),
		},
	},
}

package constants

import "strings"

// DocumentType is the closed label set for classified document segments.
type DocumentType string

const (
	TaxInvoice        DocumentType = "tax_invoice"
	CommercialInvoice DocumentType = "commercial_invoice"
	BillOfLading      DocumentType = "bill_of_lading"
	ExportDeclaration DocumentType = "export_declaration"
	RemittanceReceipt DocumentType = "remittance_receipt"
	Generic           DocumentType = "generic"
)

var allDocumentTypes = []DocumentType{
	TaxInvoice,
	CommercialInvoice,
	BillOfLading,
	ExportDeclaration,
	RemittanceReceipt,
	Generic,
}

// DocumentTypes returns the full label set, Generic last.
func DocumentTypes() []DocumentType {
	out := make([]DocumentType, len(allDocumentTypes))
	copy(out, allDocumentTypes)
	return out
}

// CanonicalDocumentType maps free-form labels (including the Korean
// names a classification backend may answer with) onto the closed set.
func CanonicalDocumentType(input string) (DocumentType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return Generic, false
	}

	synonyms := map[string]DocumentType{
		"세금계산서":              TaxInvoice,
		"tax invoice":        TaxInvoice,
		"인보이스":               CommercialInvoice,
		"invoice":            CommercialInvoice,
		"commercial invoice": CommercialInvoice,
		"bl":                 BillOfLading,
		"b/l":                BillOfLading,
		"선하증권":               BillOfLading,
		"bill of lading":     BillOfLading,
		"수출신고필증":             ExportDeclaration,
		"export declaration": ExportDeclaration,
		"이체확인증":              RemittanceReceipt,
		"송금증":                RemittanceReceipt,
		"remittance":         RemittanceReceipt,
		"remittance receipt": RemittanceReceipt,
		"미분류":                Generic,
		"unknown":            Generic,
	}
	if dt, ok := synonyms[normalized]; ok {
		return dt, true
	}

	for _, dt := range allDocumentTypes {
		if normalized == string(dt) {
			return dt, true
		}
	}
	return Generic, false
}

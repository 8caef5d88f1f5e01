// Package fields holds the static per-document-type field schemas and
// the heuristic (regex) field extraction used by the local engines.
package fields

import "github.com/sunghoon-yu/tradedocs/constants"

// FieldDef describes one expected field for a document type.
type FieldDef struct {
	Name     string
	Type     constants.FieldType
	Required bool
}

// Schema is the fixed ordered list of expected fields for one document
// type. Loaded once; treated as static configuration.
type Schema struct {
	DocType constants.DocumentType
	Fields  []FieldDef
}

// Field returns the definition for name, if the schema declares it.
func (s Schema) Field(name string) (FieldDef, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

var schemas = map[constants.DocumentType]Schema{
	constants.TaxInvoice: {
		DocType: constants.TaxInvoice,
		Fields: []FieldDef{
			{Name: "tax_invoice_number", Type: constants.FieldText, Required: true},
			{Name: "supply_amount", Type: constants.FieldNumber},
			{Name: "tax_amount", Type: constants.FieldNumber},
			{Name: "total_amount", Type: constants.FieldNumber},
			{Name: "issue_date", Type: constants.FieldDate},
			{Name: "supplier_name", Type: constants.FieldText},
			{Name: "buyer_name", Type: constants.FieldText},
		},
	},
	constants.CommercialInvoice: {
		DocType: constants.CommercialInvoice,
		Fields: []FieldDef{
			{Name: "invoice_number", Type: constants.FieldText, Required: true},
			{Name: "description", Type: constants.FieldText},
			{Name: "krw_amount", Type: constants.FieldNumber},
			{Name: "vat_amount", Type: constants.FieldNumber},
			{Name: "bl_number", Type: constants.FieldText},
			{Name: "gross_weight", Type: constants.FieldNumber},
			{Name: "container_number", Type: constants.FieldText},
			{Name: "port_of_loading", Type: constants.FieldText},
			{Name: "port_of_discharge", Type: constants.FieldText},
		},
	},
	constants.BillOfLading: {
		DocType: constants.BillOfLading,
		Fields: []FieldDef{
			{Name: "bl_number", Type: constants.FieldText, Required: true},
			{Name: "vessel_name", Type: constants.FieldText},
			{Name: "voyage_number", Type: constants.FieldText},
			{Name: "port_of_loading", Type: constants.FieldText},
			{Name: "port_of_discharge", Type: constants.FieldText},
			{Name: "gross_weight", Type: constants.FieldNumber},
			{Name: "container_number", Type: constants.FieldText},
		},
	},
	constants.ExportDeclaration: {
		DocType: constants.ExportDeclaration,
		Fields: []FieldDef{
			{Name: "declaration_number", Type: constants.FieldText, Required: true},
			{Name: "invoice_symbol", Type: constants.FieldText},
			{Name: "gross_weight", Type: constants.FieldNumber},
			{Name: "container_number", Type: constants.FieldText},
			{Name: "loading_port", Type: constants.FieldText},
			{Name: "destination_country", Type: constants.FieldText},
			{Name: "hs_code", Type: constants.FieldText},
		},
	},
	constants.RemittanceReceipt: {
		DocType: constants.RemittanceReceipt,
		Fields: []FieldDef{
			{Name: "amount", Type: constants.FieldNumber, Required: true},
			{Name: "company", Type: constants.FieldText},
			{Name: "date", Type: constants.FieldDate},
			{Name: "bank_name", Type: constants.FieldText},
			{Name: "account_number", Type: constants.FieldText},
			{Name: "approval_number", Type: constants.FieldText},
		},
	},
	constants.Generic: {
		DocType: constants.Generic,
		Fields: []FieldDef{
			{Name: "company", Type: constants.FieldText},
			{Name: "date", Type: constants.FieldDate},
			{Name: "amount", Type: constants.FieldNumber},
			{Name: "description", Type: constants.FieldText},
		},
	},
}

// ForDocType returns the schema for a document type. Unknown labels
// get the generic schema so an extraction can still proceed with
// reduced field expectations.
func ForDocType(dt constants.DocumentType) Schema {
	if s, ok := schemas[dt]; ok {
		return s
	}
	return schemas[constants.Generic]
}

// JSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic
// map for the schema. Passed to the AI engine as a structured output
// constraint and used locally to validate its response.
func JSONSchema(s Schema) map[string]any {
	props := make(map[string]any, len(s.Fields)+1)
	var required []string
	for _, f := range s.Fields {
		switch f.Type {
		case constants.FieldDate:
			props[f.Name] = map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`}
		default:
			props[f.Name] = map[string]any{"type": "string", "minLength": 1}
		}
		if f.Required {
			required = append(required, f.Name)
		}
	}
	props["confidence"] = map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0}

	out := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

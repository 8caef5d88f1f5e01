package constants

// FieldType is the value type of an extracted field.
type FieldType string

const (
	FieldText   FieldType = "text"
	FieldNumber FieldType = "number"
	FieldDate   FieldType = "date"
)

// EngineCapability declares what kind of input an extraction engine can serve.
type EngineCapability string

const (
	CapTextPDF EngineCapability = "text_pdf"      // PDFs with a native text layer
	CapScanned EngineCapability = "scanned_image" // rasterized pages, OCR required
	CapTables  EngineCapability = "table_layout"  // table-heavy layouts
)

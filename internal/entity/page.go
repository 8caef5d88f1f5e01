package entity

// Page is one page of an input file. Pages are created at load time
// and never mutated afterwards.
type Page struct {
	Number       int    `json:"number"` // 1-based ordinal
	SourcePath   string `json:"source_path"`
	Text         string `json:"-"` // native text layer, empty when absent
	HasTextLayer bool   `json:"has_text_layer"`
}

// Package export renders batch results as JSON artifacts and XLSX
// summaries. It produces bytes only; callers decide where they land.
package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sunghoon-yu/tradedocs/internal/entity"
)

// Service produces export artifacts from batch reports.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// FileReportJSON renders the per-file artifact written next to each
// processed input.
func (s *Service) FileReportJSON(report entity.FileReport) ([]byte, error) {
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal file report: %w", err)
	}
	return b, nil
}

// BatchReportJSON renders the whole batch, including engine stats.
func (s *Service) BatchReportJSON(report entity.BatchReport) ([]byte, error) {
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal batch report: %w", err)
	}
	return b, nil
}

// BatchSummaryXLSX returns an XLSX workbook (as bytes) with one row
// per extracted document and a second sheet of engine statistics.
func (s *Service) BatchSummaryXLSX(report entity.BatchReport) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Documents"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"File",
		"Pages",
		"Document Type",
		"Status",
		"Confidence",
		"Amount",
		"Date",
		"Company",
		"Engine",
		"Disputed Fields",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	rows := 0
	for _, file := range report.Files {
		for _, rec := range file.Records {
			write := func(col int, v any) {
				cell, _ := excelize.CoordinatesToCellName(col, row)
				_ = f.SetCellValue(sheet, cell, v)
			}

			write(1, file.FilePath)
			write(2, fmt.Sprintf("%d-%d", rec.PageStart, rec.PageEnd))
			write(3, string(rec.DocType))
			write(4, string(rec.Status))
			write(5, fmt.Sprintf("%.2f", rec.Confidence))
			write(6, headlineField(rec, "amount", "total_amount", "krw_amount"))
			write(7, headlineField(rec, "date", "issue_date"))
			write(8, headlineField(rec, "company", "supplier_name"))
			write(9, winningEngine(rec))
			write(10, disputedFields(rec))

			row++
			rows++
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 48)
	_ = f.SetColWidth(sheet, "B", "B", 8)
	_ = f.SetColWidth(sheet, "C", "D", 20)
	_ = f.SetColWidth(sheet, "E", "E", 12)
	_ = f.SetColWidth(sheet, "F", "H", 18)
	_ = f.SetColWidth(sheet, "I", "J", 24)

	if err := writeEngineSheet(f, report); err != nil {
		return nil, err
	}
	// drop the workbook's default sheet now that the real ones exist
	_ = f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"batch_id", report.BatchID,
		"rows", rows,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeEngineSheet(f *excelize.File, report entity.BatchReport) error {
	const sheet = "Engines"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Engine", "Success", "Failure", "Timeout", "Total Time (ms)"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	ids := make([]string, 0, len(report.EngineStats))
	for id := range report.EngineStats {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	row := 2
	for _, id := range ids {
		st := report.EngineStats[id]
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, id)
		write(2, st.Success)
		write(3, st.Failure)
		write(4, st.Timeout)
		write(5, st.Duration.Milliseconds())
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 16)
	_ = f.SetColWidth(sheet, "B", "E", 14)
	return nil
}

// headlineField picks the first present field among the given names
// so different document types share summary columns.
func headlineField(rec entity.DocumentRecord, names ...string) string {
	for _, name := range names {
		if fv, ok := rec.Fields[name]; ok {
			return fv.Value
		}
	}
	return ""
}

func winningEngine(rec entity.DocumentRecord) string {
	seen := map[string]bool{}
	var ids []string
	for _, fv := range rec.Fields {
		if fv.EngineID != "" && !seen[fv.EngineID] {
			seen[fv.EngineID] = true
			ids = append(ids, fv.EngineID)
		}
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

func disputedFields(rec entity.DocumentRecord) string {
	var names []string
	for name, fv := range rec.Fields {
		if fv.Disputed {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

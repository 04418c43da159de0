package export

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/purchasing-tools/po-extract/constants"
	"github.com/purchasing-tools/po-extract/internal/extract"
)

// Service turns normalized document records into XLSX workbooks.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// WriteWorkbook writes one workbook: an Items sheet with the sanitized line
// items and, when the record carries header fields, a Document sheet with
// key/value pairs. A record with no items yields an error rather than an
// empty spreadsheet.
func (s *Service) WriteWorkbook(rec extract.DocumentRecord) ([]byte, error) {
	start := time.Now()

	rec = extract.SanitizeRecord(rec, s.logger)
	if len(rec.Items) == 0 {
		return nil, fmt.Errorf("no line items to export")
	}

	f := excelize.NewFile()
	const itemsSheet = "Items"
	if err := f.SetSheetName("Sheet1", itemsSheet); err != nil {
		return nil, err
	}

	columns := columnOrder(rec.Items)
	for i, name := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(itemsSheet, cell, name)
	}

	row := 2
	for _, item := range rec.Items {
		for i, name := range columns {
			v, ok := item[name]
			if !ok || v == nil {
				// Absent and blank fields both leave the cell empty; the
				// distinction lives in the record, not the sheet.
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(itemsSheet, cell, v)
		}
		row++
	}

	for i, name := range columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		width := 14.0
		if name == constants.ColDescription || name == constants.ColNotes {
			width = 42
		}
		_ = f.SetColWidth(itemsSheet, col, col, width)
	}

	if len(rec.HeaderFields) > 0 || rec.Kind == constants.PurchaseOrder {
		if err := s.writeDocumentSheet(f, rec); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"kind", string(rec.Kind),
		"rows", len(rec.Items),
		"columns", len(columns),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// writeDocumentSheet adds a key/value sheet with the document's header fields
// and, for purchase orders, the derived total.
func (s *Service) writeDocumentSheet(f *excelize.File, rec extract.DocumentRecord) error {
	const sheet = "Document"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	keys := make([]string, 0, len(rec.HeaderFields))
	for k := range rec.HeaderFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	row := 1
	write := func(k string, v any) {
		keyCell, _ := excelize.CoordinatesToCellName(1, row)
		valCell, _ := excelize.CoordinatesToCellName(2, row)
		_ = f.SetCellValue(sheet, keyCell, k)
		if v != nil {
			_ = f.SetCellValue(sheet, valCell, v)
		}
		row++
	}

	for _, k := range keys {
		write(k, rec.HeaderFields[k])
	}
	if rec.Kind == constants.PurchaseOrder {
		write("total", rec.Total)
	}

	_ = f.SetColWidth(sheet, "A", "A", 28)
	_ = f.SetColWidth(sheet, "B", "B", 42)
	return nil
}

// columnOrder puts canonical columns first in their fixed order, then any
// remaining keys in first-seen order, with provenance tags last.
func columnOrder(items []extract.LineItem) []string {
	present := map[string]bool{}
	var extras []string
	var provenance []string
	for _, item := range items {
		for k := range item {
			if present[k] {
				continue
			}
			present[k] = true
			if isCanonical(k) {
				continue
			}
			if strings.HasPrefix(k, extract.ProvenanceColumn) {
				provenance = append(provenance, k)
				continue
			}
			extras = append(extras, k)
		}
	}

	// Map iteration scrambles extras between runs; sort for a stable layout.
	sort.Strings(extras)
	sort.Strings(provenance)

	var columns []string
	for _, name := range constants.CanonicalColumns {
		if present[name] {
			columns = append(columns, name)
		}
	}
	columns = append(columns, extras...)
	columns = append(columns, provenance...)
	return columns
}

func isCanonical(name string) bool {
	for _, c := range constants.CanonicalColumns {
		if name == c {
			return true
		}
	}
	return false
}

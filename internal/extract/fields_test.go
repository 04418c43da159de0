package extract

import (
	"testing"

	"github.com/purchasing-tools/po-extract/constants"
	"github.com/purchasing-tools/po-extract/internal/docintel"
)

func TestScalarValue_Shapes(t *testing.T) {
	tests := []struct {
		name  string
		field map[string]any
		want  any
		ok    bool
	}{
		{"typed string", map[string]any{"valueString": "Acme"}, "Acme", true},
		{"typed number", map[string]any{"valueNumber": 4.5}, 4.5, true},
		{"typed date", map[string]any{"valueDate": "2024-03-01"}, "2024-03-01", true},
		{"currency newer shape", map[string]any{"valueCurrency": map[string]any{"amount": 12.5, "currencySymbol": "$"}}, 12.5, true},
		{"currency older shape", map[string]any{"value": map[string]any{"amount": 7.0}}, 7.0, true},
		{"generic value", map[string]any{"value": "raw"}, "raw", true},
		{"content fallback", map[string]any{"content": "ocr text"}, "ocr text", true},
		{"typed beats generic", map[string]any{"valueString": "typed", "value": "generic"}, "typed", true},
		{"nothing recognizable", map[string]any{"confidence": 0.9}, nil, false},
		{"nil field", nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := scalarValue(tt.field)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("scalarValue = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestExtractFromFields_InvoiceKeepsServiceKeys(t *testing.T) {
	fields := map[string]map[string]any{
		"VendorName":  {"valueString": "Acme Industrial"},
		"InvoiceDate": {"valueDate": "2024-03-01"},
		"Items": {
			"valueArray": []any{
				map[string]any{
					"valueObject": map[string]any{
						"Description": map[string]any{"valueString": "Widget"},
						"Amount":      map[string]any{"valueCurrency": map[string]any{"amount": 10.0}},
					},
				},
			},
		},
	}
	rec := ExtractFromFields(fields, constants.Invoice)
	if rec.HeaderFields["VendorName"] != "Acme Industrial" {
		t.Fatalf("header fields = %v", rec.HeaderFields)
	}
	if _, ok := rec.HeaderFields["Items"]; ok {
		t.Fatal("items array must not leak into header fields")
	}
	if len(rec.Items) != 1 {
		t.Fatalf("items = %v", rec.Items)
	}
	// Invoice items keep the service's own property names.
	if rec.Items[0]["Description"] != "Widget" || rec.Items[0]["Amount"] != 10.0 {
		t.Fatalf("item = %v", rec.Items[0])
	}
}

func TestExtractFromFields_OlderArrayAndObjectKeys(t *testing.T) {
	fields := map[string]map[string]any{
		"Items": {
			"values": []any{
				map[string]any{
					"properties": map[string]any{
						"Description": map[string]any{"value": "Bolt"},
					},
				},
			},
		},
	}
	rec := ExtractFromFields(fields, constants.Invoice)
	if len(rec.Items) != 1 || rec.Items[0]["Description"] != "Bolt" {
		t.Fatalf("older SDK shape not handled: %v", rec.Items)
	}
}

func TestExtractFromFields_PurchaseOrderCanonicalMapping(t *testing.T) {
	fields := map[string]map[string]any{
		"Items": {
			"valueArray": []any{
				map[string]any{
					"valueObject": map[string]any{
						"Description": map[string]any{"valueString": "Gasket"},
						"Quantity":    map[string]any{"valueNumber": 2.0},
						"UnitPrice":   map[string]any{"valueCurrency": map[string]any{"amount": 3.5}},
						"Amount":      map[string]any{"valueCurrency": map[string]any{"amount": 7.0}},
						"ProductCode": map[string]any{"valueString": "P12-345-678"},
						"LeadTime":    map[string]any{"valueString": "2 weeks"},
					},
				},
			},
		},
	}
	rec := ExtractFromFields(fields, constants.PurchaseOrder)
	if len(rec.Items) != 1 {
		t.Fatalf("items = %v", rec.Items)
	}
	item := rec.Items[0]
	if item[constants.ColDescription] != "Gasket" ||
		item[constants.ColQuantity] != 2.0 ||
		item[constants.ColUnitPrice] != 3.5 ||
		item[constants.ColTotal] != 7.0 ||
		item[constants.ColPartNumber] != "P12-345-678" {
		t.Fatalf("canonical mapping wrong: %v", item)
	}
	// Unknown properties pass through verbatim.
	if item["LeadTime"] != "2 weeks" {
		t.Fatalf("extra property dropped: %v", item)
	}
}

func TestExtractFromFields_MissingFieldIsAbsentNotError(t *testing.T) {
	fields := map[string]map[string]any{
		"VendorName": {"unknownShape": map[string]any{"weird": true}},
	}
	rec := ExtractFromFields(fields, constants.Invoice)
	if _, ok := rec.HeaderFields["VendorName"]; ok {
		t.Fatalf("unrecognizable field should be absent, got %v", rec.HeaderFields)
	}
}

func TestExtractRecord_FallsBackToTables(t *testing.T) {
	res := &docintel.AnalyzeResult{
		Tables: []docintel.Table{{
			Cells: []docintel.RawCell{
				{RowIndex: 0, ColumnIndex: 0, Content: "Order"},
				{RowIndex: 0, ColumnIndex: 1, Content: "Description"},
				{RowIndex: 0, ColumnIndex: 2, Content: "Price"},
				{RowIndex: 0, ColumnIndex: 3, Content: "Amount"},
				{RowIndex: 1, ColumnIndex: 0, Content: "5"},
				{RowIndex: 1, ColumnIndex: 1, Content: "Widget"},
				{RowIndex: 1, ColumnIndex: 2, Content: "$2.00"},
				{RowIndex: 1, ColumnIndex: 3, Content: "$10.00"},
			},
		}},
	}
	rec := ExtractRecord(res, constants.PurchaseOrder, discardLogger())
	if len(rec.Items) != 1 {
		t.Fatalf("items = %v", rec.Items)
	}

	// End to end through the export projection: canonical keys, numeric values.
	item := SanitizeItem(rec.Items[0], discardLogger())
	if item[constants.ColQuantity] != 5.0 {
		t.Errorf("pu_quant = %v, want 5", item[constants.ColQuantity])
	}
	if item[constants.ColDescription] != "Widget" {
		t.Errorf("description = %v, want Widget", item[constants.ColDescription])
	}
	if item[constants.ColUnitPrice] != 2.0 {
		t.Errorf("pu_price = %v, want 2", item[constants.ColUnitPrice])
	}
	if item[constants.ColTotal] != 10.0 {
		t.Errorf("total = %v, want 10", item[constants.ColTotal])
	}
}

func TestExtractRecord_PrefersStructuredDocuments(t *testing.T) {
	res := &docintel.AnalyzeResult{
		Documents: []docintel.Document{{
			DocType: "invoice",
			Fields: map[string]map[string]any{
				"VendorName": {"valueString": "Acme"},
			},
		}},
		Tables: []docintel.Table{{
			Cells: []docintel.RawCell{{RowIndex: 0, ColumnIndex: 0, Content: "stray"}},
		}},
	}
	rec := ExtractRecord(res, constants.Invoice, discardLogger())
	if rec.HeaderFields["VendorName"] != "Acme" {
		t.Fatalf("structured path should win: %v", rec.HeaderFields)
	}
	if len(rec.Items) != 0 {
		t.Fatalf("tables must be ignored when documents are present: %v", rec.Items)
	}
}

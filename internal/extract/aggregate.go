package extract

import (
	"github.com/purchasing-tools/po-extract/constants"
)

// LineItem maps canonical-or-original column names to cell values. Values are
// string, float64, or nil; keys beyond the canonical vocabulary are preserved
// verbatim.
type LineItem map[string]any

// DocumentRecord is one normalized document: header fields, line items, and
// the derived total.
type DocumentRecord struct {
	Kind         constants.DocKind
	HeaderFields map[string]any
	Items        []LineItem
	Total        float64
}

// ProvenanceColumn names the optional per-row page tag.
const ProvenanceColumn = "source_page"

// Aggregate merges per-page records into one logical document: line items are
// concatenated in page order, header fields come from the first page that
// produced any (later pages' header fields are discarded), and purchase-order
// totals are summed across all items.
func Aggregate(kind constants.DocKind, pages []DocumentRecord) DocumentRecord {
	rec := DocumentRecord{Kind: kind, HeaderFields: map[string]any{}}
	for _, page := range pages {
		if len(rec.HeaderFields) == 0 && len(page.HeaderFields) > 0 {
			rec.HeaderFields = page.HeaderFields
		}
		rec.Items = append(rec.Items, page.Items...)
	}
	if kind == constants.PurchaseOrder {
		for _, item := range rec.Items {
			rec.Total += coerceNumber(item[constants.ColTotal])
		}
	}
	return rec
}

// AttachProvenance tags every item with the page it came from. If an item
// already carries a same-named column, the tag name is extended until it is
// free so the original data is never overwritten.
func AttachProvenance(items []LineItem, label string) {
	for _, item := range items {
		key := ProvenanceColumn
		for {
			if _, exists := item[key]; !exists {
				break
			}
			key += "_"
		}
		item[key] = label
	}
}

// coerceNumber reads a value as a number for totals; absent, null, and
// unparseable values count as zero.
func coerceNumber(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		if f, ok := parseNumeric(t); ok {
			return f
		}
	}
	return 0
}

package extract

import (
	"log/slog"
	"strings"

	"github.com/purchasing-tools/po-extract/constants"
	"github.com/purchasing-tools/po-extract/internal/docintel"
)

// The service's field trees differ between SDK versions: scalars may sit
// under a type-specific key or a generic value key, currency fields may nest
// an amount object or be that object, arrays and their elements each have two
// possible container keys. Extraction is an ordered list of strategies per
// shape; each returns a "not applicable" signal instead of failing, and a
// field no strategy recognizes is simply absent.

type scalarStrategy func(field map[string]any) (any, bool)

var scalarStrategies = []scalarStrategy{
	typedKey("valueString"),
	typedKey("valueNumber"),
	typedKey("valueInteger"),
	typedKey("valueDate"),
	currencyAmount("valueCurrency"), // newer shape: valueCurrency: {amount, currencySymbol}
	currencyAmount("value"),         // older shape: value is the amount object itself
	typedKey("value"),
	typedKey("content"),
}

func typedKey(key string) scalarStrategy {
	return func(field map[string]any) (any, bool) {
		v, ok := field[key]
		if !ok || v == nil {
			return nil, false
		}
		if _, isMap := v.(map[string]any); isMap {
			return nil, false
		}
		return v, true
	}
}

func currencyAmount(key string) scalarStrategy {
	return func(field map[string]any) (any, bool) {
		obj, ok := field[key].(map[string]any)
		if !ok {
			return nil, false
		}
		amount, ok := obj["amount"]
		if !ok || amount == nil {
			return nil, false
		}
		return amount, true
	}
}

// scalarValue runs the strategies newest-shape-first. ok is false when the
// field holds no recognizable scalar.
func scalarValue(field map[string]any) (any, bool) {
	if field == nil {
		return nil, false
	}
	for _, s := range scalarStrategies {
		if v, ok := s(field); ok {
			return v, true
		}
	}
	return nil, false
}

// arrayElements supports both array container keys.
func arrayElements(field map[string]any) ([]any, bool) {
	for _, key := range []string{"valueArray", "values"} {
		if arr, ok := field[key].([]any); ok {
			return arr, true
		}
	}
	return nil, false
}

// elementFields supports both element container keys.
func elementFields(elem any) (map[string]any, bool) {
	obj, ok := elem.(map[string]any)
	if !ok {
		return nil, false
	}
	for _, key := range []string{"valueObject", "properties"} {
		if fields, ok := obj[key].(map[string]any); ok {
			return fields, true
		}
	}
	return nil, false
}

func isItemsField(name string) bool {
	return strings.EqualFold(name, "items")
}

// poItemFields maps the purchase-order model's item properties onto the
// canonical schema shared with the table path.
var poItemFields = map[string]string{
	"Description": constants.ColDescription,
	"Quantity":    constants.ColQuantity,
	"UnitPrice":   constants.ColUnitPrice,
	"Amount":      constants.ColTotal,
	"ProductCode": constants.ColPartNumber,
	"Unit":        constants.ColUnit,
}

// ExtractFromFields walks one document's typed field tree into a record. For
// invoices the service already names its fields, so item keys pass through
// unchanged; for purchase orders the known properties are renamed onto the
// canonical schema.
func ExtractFromFields(fields map[string]map[string]any, kind constants.DocKind) DocumentRecord {
	rec := DocumentRecord{Kind: kind, HeaderFields: map[string]any{}}

	for name, field := range fields {
		if isItemsField(name) {
			if elems, ok := arrayElements(field); ok {
				rec.Items = append(rec.Items, explodeItems(elems, kind)...)
				continue
			}
		}
		if v, ok := scalarValue(field); ok {
			rec.HeaderFields[name] = v
		}
	}
	return rec
}

func explodeItems(elems []any, kind constants.DocKind) []LineItem {
	items := make([]LineItem, 0, len(elems))
	for _, elem := range elems {
		sub, ok := elementFields(elem)
		if !ok {
			continue
		}
		item := make(LineItem, len(sub))
		for prop, raw := range sub {
			field, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			v, ok := scalarValue(field)
			if !ok {
				continue
			}
			key := prop
			if kind == constants.PurchaseOrder {
				if canonical, ok := poItemFields[prop]; ok {
					key = canonical
				}
			}
			item[key] = v
		}
		if len(item) > 0 {
			items = append(items, item)
		}
	}
	return items
}

// ExtractRecord normalizes one completed analysis result: the structured path
// when the service returned typed documents, otherwise the table pipeline.
func ExtractRecord(res *docintel.AnalyzeResult, kind constants.DocKind, logger *slog.Logger) DocumentRecord {
	if logger == nil {
		logger = slog.Default()
	}

	if len(res.Documents) > 0 && len(res.Documents[0].Fields) > 0 {
		return ExtractFromFields(res.Documents[0].Fields, kind)
	}

	logger.Warn("extract.structured_unavailable",
		"reason", "no typed documents in result; falling back to tables",
		"tables", len(res.Tables),
	)
	rec := DocumentRecord{Kind: kind, HeaderFields: map[string]any{}}
	for _, table := range res.Tables {
		grid := ExtractGrid(table.Cells, logger)
		classified := ClassifyAndNormalize(grid)
		rec.Items = append(rec.Items, BuildItems(classified)...)
	}
	return rec
}

package extract

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/purchasing-tools/po-extract/constants"
)

var currencyStripper = strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "")

// parseNumeric parses a cell as a number after stripping common currency
// symbols and thousands separators.
func parseNumeric(s string) (float64, bool) {
	cleaned := currencyStripper.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// SanitizeItem projects one line item for export. Blank and whitespace-only
// strings become nil (a blank cell, as opposed to a field the item never
// had, which stays absent). Strings that parse as numbers become numbers;
// numeric zero and negatives pass through untouched. A numeric column whose
// value won't parse keeps the trimmed string and is logged.
func SanitizeItem(item LineItem, logger *slog.Logger) LineItem {
	if logger == nil {
		logger = slog.Default()
	}
	out := make(LineItem, len(item))
	for k, v := range item {
		switch t := v.(type) {
		case nil:
			out[k] = nil
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				out[k] = nil
				continue
			}
			if f, ok := parseNumeric(s); ok {
				out[k] = f
				continue
			}
			if _, numeric := constants.NumericColumns[k]; numeric {
				logger.Warn("export.sanitize.non_numeric", "column", k, "value", s)
			}
			out[k] = s
		default:
			out[k] = v
		}
	}
	return out
}

// SanitizeRecord applies the export projection to a whole record.
func SanitizeRecord(rec DocumentRecord, logger *slog.Logger) DocumentRecord {
	out := DocumentRecord{Kind: rec.Kind, Total: rec.Total}
	out.HeaderFields = make(map[string]any, len(rec.HeaderFields))
	for k, v := range rec.HeaderFields {
		if s, ok := v.(string); ok {
			trimmed := strings.TrimSpace(s)
			if trimmed == "" {
				out.HeaderFields[k] = nil
				continue
			}
			out.HeaderFields[k] = trimmed
			continue
		}
		out.HeaderFields[k] = v
	}
	out.Items = make([]LineItem, 0, len(rec.Items))
	for _, item := range rec.Items {
		out.Items = append(out.Items, SanitizeItem(item, logger))
	}
	return out
}

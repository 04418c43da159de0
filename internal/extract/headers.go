package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/purchasing-tools/po-extract/constants"
)

// ClassifiedTable is a grid with its columns resolved to canonical-or-original
// names. Rows keep their raw string values; numeric coercion happens in the
// export projection.
type ClassifiedTable struct {
	Headers []string
	Rows    [][]string
}

// Part numbers look like P12-345-678.
var rePartNumber = regexp.MustCompile(`^P\d{2}-\d{3}-\d{3}$`)

var (
	reInteger     = regexp.MustCompile(`^\d+$`)
	reDollar      = regexp.MustCompile(`^-?\$\s?\d[\d,]*(\.\d{1,2})?$`)
	reDecimal     = regexp.MustCompile(`^-?\d+\.\d+$`)
	reQtyThenPart = regexp.MustCompile(`^\d+\s+P\d{2}-\d{3}-\d{3}$`)
	reDimension   = regexp.MustCompile(`(?i)\d+(\.\d+)?\s*(x|×)\s*\d+|\d+(\.\d+)?\s*(in|ft|mm|cm|ga|")`)
)

// headerKeywords mark a first row as a plausible header row when any cell
// contains one of them (case-insensitive substring).
var headerKeywords = []string{
	"order", "items", "quantity", "qty", "cost", "unit price", "price",
	"#", "amount", "total", "unit", "each", "ea",
}

var unitTokens = map[string]struct{}{
	"ea": {}, "each": {}, "pc": {}, "pcs": {}, "ft": {}, "in": {},
	"lb": {}, "lbs": {}, "kg": {}, "box": {}, "set": {}, "roll": {}, "gal": {},
}

// headerRule maps priority-ordered header substrings to one canonical name.
// Rules are consumed by one matching engine instead of inline conditionals so
// the heuristics stay auditable.
type headerRule struct {
	canonical  string
	candidates []string
}

// Order matters twice: earlier rules claim columns first, and within a rule
// earlier substrings outrank later ones across all columns.
var headerRules = []headerRule{
	{constants.ColPartNumber, []string{"part #", "part no", "part number", "item #", "item no", "product code", "code"}},
	{constants.ColDescription, []string{"description", "desc", "item", "product"}},
	{constants.ColQuantity, []string{"quantity", "qty", "order", "qnty"}},
	{constants.ColUnitPrice, []string{"unit price", "price", "unit cost", "cost", "rate", "each", "ea"}},
	{constants.ColTotal, []string{"total", "extended", "ext", "amount"}},
	{constants.ColUnit, []string{"unit", "uom", "u/m", "measure"}},
	{constants.ColVendorSKU, []string{"vendor sku", "sku", "vendor part", "mfg part", "mfg #"}},
	{constants.ColNotes, []string{"notes", "note", "comments", "remarks"}},
}

// ClassifyAndNormalize decides whether the grid's first row is a header row,
// then produces one canonical-or-original name per column. OCR output here is
// wildly inconsistent, so every unrecognizable shape degrades to a generic
// column_N name instead of failing.
func ClassifyAndNormalize(g Grid) ClassifiedTable {
	if len(g) == 0 || len(g[0]) == 0 {
		return ClassifiedTable{}
	}
	if firstRowIsData(g[0]) {
		return ClassifiedTable{
			Headers: inferHeaders(g),
			Rows:    g,
		}
	}
	return ClassifiedTable{
		Headers: normalizeHeaderRow(g[0], g[1:]),
		Rows:    g[1:],
	}
}

// firstRowIsData reports whether the first row is data rather than labels:
// either no cell mentions a known header keyword, or a majority of cells are
// data-shaped (part numbers, integers, money, decimals).
func firstRowIsData(row []string) bool {
	hasKeyword := false
	for _, cell := range row {
		lc := strings.ToLower(cell)
		for _, kw := range headerKeywords {
			if strings.Contains(lc, kw) {
				hasKeyword = true
				break
			}
		}
		if hasKeyword {
			break
		}
	}
	if !hasKeyword {
		return true
	}

	dataShaped := 0
	for _, cell := range row {
		if isDataShaped(cell) {
			dataShaped++
		}
	}
	threshold := (len(row) + 1) / 2
	if threshold < 1 {
		threshold = 1
	}
	return dataShaped >= threshold
}

func isDataShaped(cell string) bool {
	s := strings.TrimSpace(cell)
	if s == "" {
		return false
	}
	return rePartNumber.MatchString(s) ||
		reInteger.MatchString(s) ||
		reDollar.MatchString(s) ||
		reDecimal.MatchString(s) ||
		reQtyThenPart.MatchString(s)
}

func isMonetary(cell string) bool {
	s := strings.TrimSpace(cell)
	return reDollar.MatchString(s) || reDecimal.MatchString(s)
}

// inferHeaders names each column of a headerless table by the value pattern
// that best explains it.
func inferHeaders(g Grid) []string {
	cols := len(g[0])
	headers := make([]string, cols)
	used := map[string]bool{}

	assign := func(j int, name string) {
		// A canonical name may label only one column; later duplicates get
		// the column index appended.
		if used[name] {
			name = fmt.Sprintf("%s_%d", name, j)
		}
		used[name] = true
		headers[j] = name
	}

	partClaimed := false
	sawIntegerColumn := false
	for j := 0; j < cols; j++ {
		nonEmpty, parts, ints, money, units, dims := columnProfile(g, j)

		switch {
		case parts > 0 && !partClaimed:
			partClaimed = true
			assign(j, constants.ColPartNumber)
		case nonEmpty > 0 && ints == nonEmpty && !sawIntegerColumn:
			sawIntegerColumn = true
			assign(j, constants.ColQuantity)
		case nonEmpty > 0 && money*2 >= nonEmpty && j == cols-1:
			assign(j, constants.ColTotal)
		case nonEmpty > 0 && money*2 >= nonEmpty:
			assign(j, constants.ColUnitPrice)
		case nonEmpty > 0 && units*2 >= nonEmpty:
			assign(j, constants.ColUnit)
		case dims > 0:
			assign(j, constants.ColDescription)
		default:
			assign(j, fmt.Sprintf("column_%d", j))
		}
	}
	return headers
}

func columnProfile(g Grid, j int) (nonEmpty, parts, ints, money, units, dims int) {
	for _, row := range g {
		if j >= len(row) {
			continue
		}
		s := strings.TrimSpace(row[j])
		if s == "" {
			continue
		}
		nonEmpty++
		if rePartNumber.MatchString(s) {
			parts++
		}
		if reInteger.MatchString(s) {
			ints++
		}
		if isMonetary(s) {
			money++
		}
		if _, ok := unitTokens[strings.ToLower(s)]; ok {
			units++
		}
		if reDimension.MatchString(s) {
			dims++
		}
	}
	return
}

// normalizeHeaderRow maps a real header row onto canonical names via the
// synonym table, then scans data rows to place pr_codenum when no header
// claimed it.
func normalizeHeaderRow(headerRow []string, dataRows [][]string) []string {
	cols := len(headerRow)
	headers := make([]string, cols)
	assigned := make([]bool, cols)
	claimed := map[string]bool{}

	lower := make([]string, cols)
	for j, h := range headerRow {
		lower[j] = strings.ToLower(strings.TrimSpace(h))
	}

	// "amount" is positional: a first-column amount is a quantity, a
	// last-column amount is a line total. Runs before the synonym pass.
	for j := 0; j < cols; j++ {
		if lower[j] != "amount" {
			continue
		}
		switch {
		case j == 0 && !claimed[constants.ColQuantity]:
			headers[j] = constants.ColQuantity
			assigned[j] = true
			claimed[constants.ColQuantity] = true
		case j == cols-1 && !claimed[constants.ColTotal]:
			headers[j] = constants.ColTotal
			assigned[j] = true
			claimed[constants.ColTotal] = true
		}
	}

	for _, rule := range headerRules {
		if claimed[rule.canonical] {
			continue
		}
	candidates:
		for _, cand := range rule.candidates {
			for j := 0; j < cols; j++ {
				if assigned[j] || lower[j] == "" {
					continue
				}
				if strings.Contains(lower[j], cand) {
					headers[j] = rule.canonical
					assigned[j] = true
					claimed[rule.canonical] = true
					break candidates
				}
			}
		}
	}

	// Part-number fallback: the first not-yet-standardized column whose data
	// contains a part number becomes pr_codenum. Only one column may win.
	if !claimed[constants.ColPartNumber] {
	partScan:
		for j := 0; j < cols; j++ {
			if assigned[j] {
				continue
			}
			for _, row := range dataRows {
				if j < len(row) && rePartNumber.MatchString(strings.TrimSpace(row[j])) {
					headers[j] = constants.ColPartNumber
					assigned[j] = true
					claimed[constants.ColPartNumber] = true
					break partScan
				}
			}
		}
	}

	// Remaining columns keep their original header text, de-duplicated.
	seen := map[string]bool{}
	for _, h := range headers {
		if h != "" {
			seen[h] = true
		}
	}
	for j := 0; j < cols; j++ {
		if assigned[j] {
			continue
		}
		name := strings.TrimSpace(headerRow[j])
		if name == "" || seen[name] {
			name = fmt.Sprintf("column_%d", j)
		}
		seen[name] = true
		headers[j] = name
	}
	return headers
}

// BuildItems turns a classified table into line items keyed by its headers.
// Values stay raw strings; blanks are kept so the projection can distinguish
// a blank cell from a field the table never had.
func BuildItems(t ClassifiedTable) []LineItem {
	items := make([]LineItem, 0, len(t.Rows))
	for _, row := range t.Rows {
		item := make(LineItem, len(t.Headers))
		for j, name := range t.Headers {
			if j < len(row) {
				item[name] = row[j]
			} else {
				item[name] = ""
			}
		}
		items = append(items, item)
	}
	return items
}

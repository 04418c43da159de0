package constants

// Canonical column names that line items are normalized to. Columns that match
// none of these keep their original header, or get a generated "column_N" name.
const (
	ColPartNumber  = "pr_codenum"
	ColDescription = "description"
	ColQuantity    = "pu_quant"
	ColUnitPrice   = "pu_price"
	ColTotal       = "total"
	ColUnit        = "unit"
	ColVendorSKU   = "vendor_sku"
	ColNotes       = "notes"
)

// CanonicalColumns is the preferred column order for exports.
var CanonicalColumns = []string{
	ColPartNumber,
	ColDescription,
	ColQuantity,
	ColUnit,
	ColUnitPrice,
	ColTotal,
	ColVendorSKU,
	ColNotes,
}

// NumericColumns are the canonical columns expected to hold numbers; a cell in
// one of these that fails numeric parsing is flagged during export sanitizing.
var NumericColumns = map[string]struct{}{
	ColQuantity:  {},
	ColUnitPrice: {},
	ColTotal:     {},
}

package constants

import "strings"

// DocKind selects the analysis model used for a document.
type DocKind string

// Stable values (stored in run history, used in CLI flags).
const (
	PurchaseOrder DocKind = "purchase_order"
	Invoice       DocKind = "invoice"
)

// ParseDocKind maps user input to a DocKind, accepting a few spellings.
func ParseDocKind(s string) (DocKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "purchase_order", "purchase-order", "po":
		return PurchaseOrder, true
	case "invoice", "inv":
		return Invoice, true
	}
	return "", false
}

// PageStatus is the canonical status for rows in the history pages table.
type PageStatus string

const (
	PageStatusOK     PageStatus = "OK"     // analyzed and extracted
	PageStatusEmpty  PageStatus = "EMPTY"  // analyzed but yielded no line items
	PageStatusFailed PageStatus = "FAILED" // all attempts exhausted
)

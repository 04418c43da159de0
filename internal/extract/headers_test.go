package extract

import (
	"reflect"
	"testing"

	"github.com/purchasing-tools/po-extract/constants"
)

func TestClassify_DataShapedFirstRowIsHeaderless(t *testing.T) {
	g := Grid{
		{"P12-345-678", "2", "$10.00", "$20.00"},
		{"P98-765-432", "1", "$5.00", "$5.00"},
	}
	got := ClassifyAndNormalize(g)
	if len(got.Rows) != 2 {
		t.Fatalf("first row should be data, got %d data rows", len(got.Rows))
	}
	want := []string{
		constants.ColPartNumber,
		constants.ColQuantity,
		constants.ColUnitPrice,
		constants.ColTotal,
	}
	if !reflect.DeepEqual(got.Headers, want) {
		t.Fatalf("headers = %v, want %v", got.Headers, want)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	g := Grid{
		{"P12-345-678", "2", "$10.00", "$20.00"},
	}
	first := ClassifyAndNormalize(g)
	second := ClassifyAndNormalize(g)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("classification not deterministic: %v vs %v", first, second)
	}
}

func TestClassify_HeaderRowSynonyms(t *testing.T) {
	g := Grid{
		{"Order", "Description", "Price", "Amount"},
		{"5", "Widget", "$2.00", "$10.00"},
	}
	got := ClassifyAndNormalize(g)
	want := []string{
		constants.ColQuantity,
		constants.ColDescription,
		constants.ColUnitPrice,
		constants.ColTotal,
	}
	if !reflect.DeepEqual(got.Headers, want) {
		t.Fatalf("headers = %v, want %v", got.Headers, want)
	}
	if len(got.Rows) != 1 || got.Rows[0][1] != "Widget" {
		t.Fatalf("rows = %v", got.Rows)
	}
}

func TestClassify_AmountFirstColumnIsQuantity(t *testing.T) {
	g := Grid{
		{"Amount", "Description", "Total"},
		{"3", "Bracket", "$9.00"},
	}
	got := ClassifyAndNormalize(g)
	if got.Headers[0] != constants.ColQuantity {
		t.Fatalf("first-column amount should map to %s, got %s", constants.ColQuantity, got.Headers[0])
	}
	if got.Headers[2] != constants.ColTotal {
		t.Fatalf("expected %s, got %s", constants.ColTotal, got.Headers[2])
	}
}

func TestClassify_PartNumberFromDataScan(t *testing.T) {
	g := Grid{
		{"Qty", "Ref", "Price"},
		{"2", "P12-345-678", "$4.00"},
		{"7", "P11-222-333", "$1.50"},
	}
	got := ClassifyAndNormalize(g)
	if got.Headers[1] != constants.ColPartNumber {
		t.Fatalf("data scan should assign %s, got %v", constants.ColPartNumber, got.Headers)
	}
}

func TestClassify_PartNumberAssignedOnce(t *testing.T) {
	// Two columns carry part numbers; only the leftmost wins.
	g := Grid{
		{"Ref A", "Ref B", "Qty"},
		{"P12-345-678", "P99-888-777", "3"},
	}
	got := ClassifyAndNormalize(g)
	count := 0
	for _, h := range got.Headers {
		if h == constants.ColPartNumber {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("%s assigned %d times, want 1: %v", constants.ColPartNumber, count, got.Headers)
	}
	if got.Headers[0] != constants.ColPartNumber {
		t.Fatalf("leftmost matching column should win, got %v", got.Headers)
	}
}

func TestClassify_UnrecognizedColumnsKeepOriginalName(t *testing.T) {
	g := Grid{
		{"Qty", "Warehouse Zone", ""},
		{"2", "B-14", "x"},
	}
	got := ClassifyAndNormalize(g)
	if got.Headers[1] != "Warehouse Zone" {
		t.Fatalf("unmatched header should keep its name, got %v", got.Headers)
	}
	if got.Headers[2] != "column_2" {
		t.Fatalf("empty header should fall back to column_2, got %v", got.Headers)
	}
}

func TestClassify_HeaderlessGeneratesColumnNames(t *testing.T) {
	g := Grid{
		{"alpha", "beta"},
		{"gamma", "delta"},
	}
	got := ClassifyAndNormalize(g)
	if len(got.Rows) != 2 {
		t.Fatalf("keyword-free first row should be data, rows = %v", got.Rows)
	}
	want := []string{"column_0", "column_1"}
	if !reflect.DeepEqual(got.Headers, want) {
		t.Fatalf("headers = %v, want %v", got.Headers, want)
	}
}

func TestClassify_HeaderlessUnitAndDimensionColumns(t *testing.T) {
	g := Grid{
		{"2", "EA", `1/2" x 10 ft`, "$3.00"},
		{"4", "ea", "24 x 36", "$6.00"},
	}
	got := ClassifyAndNormalize(g)
	if got.Headers[0] != constants.ColQuantity {
		t.Fatalf("headers = %v", got.Headers)
	}
	if got.Headers[1] != constants.ColUnit {
		t.Fatalf("unit tokens should infer %s, got %v", constants.ColUnit, got.Headers)
	}
	if got.Headers[2] != constants.ColDescription {
		t.Fatalf("dimension text should infer %s, got %v", constants.ColDescription, got.Headers)
	}
	if got.Headers[3] != constants.ColTotal {
		t.Fatalf("trailing money column should infer %s, got %v", constants.ColTotal, got.Headers)
	}
}

func TestClassify_DuplicateCanonicalDisambiguated(t *testing.T) {
	// Two all-integer columns: the second cannot also claim pu_quant, and the
	// money columns cannot both be pu_price.
	g := Grid{
		{"2", "$3.00", "$4.00", "$5.00"},
		{"4", "$6.00", "$1.00", "$2.00"},
	}
	got := ClassifyAndNormalize(g)
	seen := map[string]int{}
	for _, h := range got.Headers {
		seen[h]++
	}
	for name, n := range seen {
		if n > 1 {
			t.Fatalf("canonical name %q assigned %d times: %v", name, n, got.Headers)
		}
	}
}

func TestClassify_EmptyGrid(t *testing.T) {
	got := ClassifyAndNormalize(Grid{})
	if got.Headers != nil || got.Rows != nil {
		t.Fatalf("empty grid should classify to empty table, got %+v", got)
	}
}

func TestBuildItems_KeysFromHeaders(t *testing.T) {
	table := ClassifiedTable{
		Headers: []string{constants.ColQuantity, constants.ColDescription},
		Rows:    [][]string{{"5", "Widget"}, {"", "Bolt"}},
	}
	items := BuildItems(table)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0][constants.ColQuantity] != "5" {
		t.Fatalf("raw string value expected, got %v", items[0][constants.ColQuantity])
	}
	if items[1][constants.ColQuantity] != "" {
		t.Fatalf("blank cell should be kept as empty string before projection, got %v", items[1][constants.ColQuantity])
	}
}

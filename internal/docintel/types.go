package docintel

import (
	"context"
	"fmt"
	"net/http"

	"github.com/purchasing-tools/po-extract/constants"
)

// AnalysisRequest is one page submitted for analysis. Created per page,
// consumed once.
type AnalysisRequest struct {
	DocumentBytes []byte
	Kind          constants.DocKind
	SourceName    string
}

// AnalyzeResult is the completed output of one analysis call. Depending on the
// model, the service returns typed documents, raw OCR tables, or both.
type AnalyzeResult struct {
	Documents []Document `json:"documents"`
	Tables    []Table    `json:"tables"`
}

// Document is one recognized document with its typed field tree. Fields are
// kept as raw JSON maps because the shape varies between service versions;
// extraction walks them tolerantly.
type Document struct {
	DocType string                    `json:"docType"`
	Fields  map[string]map[string]any `json:"fields"`
}

// Table is one OCR table as a sparse cell list.
type Table struct {
	RowCount    int       `json:"rowCount"`
	ColumnCount int       `json:"columnCount"`
	Cells       []RawCell `json:"cells"`
}

// RawCell is a single table cell. The list is unordered and may have gaps.
type RawCell struct {
	RowIndex    int    `json:"rowIndex"`
	ColumnIndex int    `json:"columnIndex"`
	Content     string `json:"content"`
}

// RequestError is a failed service call. RetryAfterMS and RetryAfterHeader are
// optional hints the retry controller uses to pick a delay.
type RequestError struct {
	StatusCode       int
	Message          string
	RetryAfterMS     int
	RetryAfterHeader string
}

func (e *RequestError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("analysis request failed (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("analysis request failed: %s", e.Message)
}

// RateLimited reports whether the service explicitly signaled too many requests.
func (e *RequestError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Analyzer submits one page of document bytes and blocks until the service
// yields a result or fails.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (*AnalyzeResult, error)
}

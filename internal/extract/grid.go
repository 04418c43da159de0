package extract

import (
	"log/slog"

	"github.com/purchasing-tools/po-extract/internal/docintel"
)

// Grid is a dense rectangular string matrix derived from sparse table cells.
// Missing cells hold "".
type Grid [][]string

// ExtractGrid converts a sparse cell list into a dense grid sized by the
// largest observed row and column index. Cells the service never reported stay
// empty; an empty table is a normal outcome, not an error.
func ExtractGrid(cells []docintel.RawCell, logger *slog.Logger) Grid {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cells) == 0 {
		logger.Warn("extract.grid.empty", "reason", "table has no cells")
		return Grid{}
	}

	rows, cols := 0, 0
	for _, c := range cells {
		if c.RowIndex < 0 || c.ColumnIndex < 0 {
			continue
		}
		if c.RowIndex+1 > rows {
			rows = c.RowIndex + 1
		}
		if c.ColumnIndex+1 > cols {
			cols = c.ColumnIndex + 1
		}
	}
	if rows == 0 || cols == 0 {
		logger.Warn("extract.grid.empty", "reason", "table has no addressable cells")
		return Grid{}
	}

	g := make(Grid, rows)
	for i := range g {
		g[i] = make([]string, cols)
	}
	for _, c := range cells {
		if c.RowIndex < 0 || c.ColumnIndex < 0 {
			continue
		}
		g[c.RowIndex][c.ColumnIndex] = c.Content
	}
	return g
}

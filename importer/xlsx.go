package importer

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ImportXLSX reads the first sheet of a spreadsheet upload. The header
// row is skipped unconditionally; cell values are taken as-is, without
// trimming. A row that cannot supply three cells is skipped.
func (imp *Importer) ImportXLSX(ctx context.Context, r io.Reader) (Tally, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return Tally{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return Tally{}, fmt.Errorf("workbook has no sheets")
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return Tally{}, fmt.Errorf("failed to read sheet rows: %w", err)
	}

	var tally Tally
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) < 3 {
			tally.Skipped++
			continue
		}
		if err := imp.importRow(ctx, &tally, row[0], row[1], row[2]); err != nil {
			return Tally{}, err
		}
	}

	logImportComplete("xlsx", tally)
	return tally, nil
}

package loader

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/codelist/codelist/internal/domain/codelist"
)

// readXLSX reads the first sheet of a workbook; its first row holds the
// headers.
func (l *Loader) readXLSX(r io.Reader) ([]codelist.Entry, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, codelist.Errorf(codelist.ErrConstruction, "Workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, codelist.Errorf(codelist.ErrConstruction,
			"Column not found with the header: %s", l.cols.Code)
	}
	ci, err := l.indexColumns(rows[0])
	if err != nil {
		return nil, err
	}
	return entriesFromRows(ci, rows[1:], 2)
}

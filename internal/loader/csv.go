package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/codelist/codelist/internal/domain/codelist"
)

func (l *Loader) readCSV(r io.Reader) ([]codelist.Entry, error) {
	rd := csv.NewReader(r)
	rd.FieldsPerRecord = -1
	rd.TrimLeadingSpace = true

	headers, err := rd.Read()
	if errors.Is(err, io.EOF) {
		return nil, codelist.Errorf(codelist.ErrConstruction,
			"Column not found with the header: %s", l.cols.Code)
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	ci, err := l.indexColumns(headers)
	if err != nil {
		return nil, err
	}
	rows, err := rd.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return entriesFromRows(ci, rows, 2)
}

package loader

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/codelist/codelist/internal/domain/codelist"
)

// Encode writes cl's entries in format using the Loader's column names, so
// the output can be read back by Decode.
func (l *Loader) Encode(format Format, w io.Writer, cl *codelist.CodeList) error {
	switch format {
	case FormatCSV:
		return l.writeCSV(w, cl)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(l.objects(cl))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(l.objects(cl))
	case FormatXLSX:
		return l.writeXLSX(w, cl)
	}
	return codelist.Errorf(codelist.ErrUnsupported, "unsupported format: %s", format)
}

func (l *Loader) header() []string {
	return []string{l.cols.Code, l.cols.Term, l.cols.Comment}
}

func (l *Loader) objects(cl *codelist.CodeList) []map[string]string {
	out := make([]map[string]string, 0, cl.Len())
	for _, e := range cl.Entries() {
		obj := map[string]string{l.cols.Code: e.Code, l.cols.Term: e.Term}
		if e.Comment != "" {
			obj[l.cols.Comment] = e.Comment
		}
		out = append(out, obj)
	}
	return out
}

func (l *Loader) writeCSV(w io.Writer, cl *codelist.CodeList) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(l.header()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range cl.Entries() {
		if err := cw.Write([]string{e.Code, e.Term, e.Comment}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (l *Loader) writeXLSX(w io.Writer, cl *codelist.CodeList) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetName(sheet, cl.Name()); err == nil {
		sheet = cl.Name()
	}
	write := func(row int, values []string) error {
		ref, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		cells := make([]interface{}, len(values))
		for i, v := range values {
			cells[i] = v
		}
		return f.SetSheetRow(sheet, ref, &cells)
	}
	if err := write(1, l.header()); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}
	for i, e := range cl.Entries() {
		if err := write(i+2, []string{e.Code, e.Term, e.Comment}); err != nil {
			return fmt.Errorf("write xlsx row: %w", err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

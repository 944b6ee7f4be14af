// Package loader builds codelists from tabular files. Every codelist a
// Loader produces shares the same coding system defaults and column names,
// so a folder of exports can be loaded under one set of rules.
package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/codelist/codelist/internal/domain/codelist"
)

// Format identifies a supported file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
)

// FormatFromPath chooses a format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "xlsx":
		return FormatXLSX, nil
	}
	return "", codelist.Errorf(codelist.ErrConstruction,
		"File path %s is not a csv, json, yaml or xlsx file", path)
}

// Columns names the headers (or object keys) holding each entry field.
// Comment is optional in the input; Code and Term are required.
type Columns struct {
	Code    string
	Term    string
	Comment string
}

// DefaultColumns matches the usual export layout.
var DefaultColumns = Columns{Code: "code", Term: "term", Comment: "comment"}

// Loader decodes files into codelists.
type Loader struct {
	cols   Columns
	opts   []codelist.Option
	logger zerolog.Logger
}

// New returns a Loader. Empty column names fall back to DefaultColumns.
// opts are applied to every codelist the Loader builds.
func New(cols Columns, logger zerolog.Logger, opts ...codelist.Option) *Loader {
	if cols.Code == "" {
		cols.Code = DefaultColumns.Code
	}
	if cols.Term == "" {
		cols.Term = DefaultColumns.Term
	}
	if cols.Comment == "" {
		cols.Comment = DefaultColumns.Comment
	}
	return &Loader{cols: cols, opts: opts, logger: logger}
}

// Load reads the file at path. The codelist is named after the file when
// name is empty.
func (l *Loader) Load(path, name, codelistType, source string) (*codelist.CodeList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if name == "" {
		name = baseName(path)
	}
	return l.Decode(path, f, name, codelistType, source)
}

// Decode reads r in the format implied by filename.
func (l *Loader) Decode(filename string, r io.Reader, name, codelistType, source string) (*codelist.CodeList, error) {
	format, err := FormatFromPath(filename)
	if err != nil {
		return nil, err
	}
	return l.DecodeFormat(format, r, name, codelistType, source)
}

// DecodeFormat reads r as the given format.
func (l *Loader) DecodeFormat(format Format, r io.Reader, name, codelistType, source string) (*codelist.CodeList, error) {
	cl, err := codelist.New(name, codelistType, source, l.opts...)
	if err != nil {
		return nil, err
	}

	var entries []codelist.Entry
	switch format {
	case FormatCSV:
		entries, err = l.readCSV(r)
	case FormatJSON:
		entries, err = l.readJSON(r)
	case FormatYAML:
		entries, err = l.readYAML(r)
	case FormatXLSX:
		entries, err = l.readXLSX(r)
	default:
		err = codelist.Errorf(codelist.ErrUnsupported, "unsupported format: %s", format)
	}
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if err := cl.AddEntry(e.Code, e.Term, e.Comment); err != nil {
			return nil, err
		}
	}
	l.logger.Debug().
		Str("name", name).
		Str("format", string(format)).
		Int("entries", cl.Len()).
		Msg("codelist decoded")
	return cl, nil
}

// LoadDir loads every supported file directly inside dir, naming each
// codelist after its file. Files that fail to load are logged and skipped.
func (l *Loader) LoadDir(dir, codelistType, source string) ([]*codelist.CodeList, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	sort.Slice(des, func(i, j int) bool { return des[i].Name() < des[j].Name() })

	var out []*codelist.CodeList
	for _, de := range des {
		if de.IsDir() {
			continue
		}
		path := filepath.Join(dir, de.Name())
		if _, err := FormatFromPath(path); err != nil {
			continue
		}
		cl, err := l.Load(path, "", codelistType, source)
		if err != nil {
			l.logger.Warn().Err(err).Str("file", path).Msg("skipping codelist file")
			continue
		}
		out = append(out, cl)
	}
	return out, nil
}

// Rows are numbered from 2 to account for the header line.
func emptyCodeInRow(row int) error {
	return codelist.Errorf(codelist.ErrConstruction, "Empty code field in row: %d", row)
}

// headerIndex finds the single column named header.
func headerIndex(headers []string, header string, required bool) (int, error) {
	idx := -1
	for i, h := range headers {
		if strings.TrimSpace(h) != header {
			continue
		}
		if idx >= 0 {
			return -1, codelist.Errorf(codelist.ErrConstruction,
				"Multiple columns found with the header: %s", header)
		}
		idx = i
	}
	if idx < 0 && required {
		return -1, codelist.Errorf(codelist.ErrConstruction,
			"Column not found with the header: %s", header)
	}
	return idx, nil
}

type columnIndex struct {
	code, term, comment int
}

func (l *Loader) indexColumns(headers []string) (columnIndex, error) {
	var ci columnIndex
	var err error
	if ci.code, err = headerIndex(headers, l.cols.Code, true); err != nil {
		return ci, err
	}
	if ci.term, err = headerIndex(headers, l.cols.Term, true); err != nil {
		return ci, err
	}
	if ci.comment, err = headerIndex(headers, l.cols.Comment, false); err != nil {
		return ci, err
	}
	return ci, nil
}

// entriesFromRows turns header-indexed rows into entries. Short rows are
// treated as having empty trailing cells.
func entriesFromRows(ci columnIndex, rows [][]string, firstRow int) ([]codelist.Entry, error) {
	entries := make([]codelist.Entry, 0, len(rows))
	for i, row := range rows {
		code := strings.TrimSpace(cell(row, ci.code))
		if code == "" {
			return nil, emptyCodeInRow(firstRow + i)
		}
		entries = append(entries, codelist.Entry{
			Code:    code,
			Term:    strings.TrimSpace(cell(row, ci.term)),
			Comment: strings.TrimSpace(cell(row, ci.comment)),
		})
	}
	return entries, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

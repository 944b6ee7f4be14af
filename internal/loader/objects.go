package loader

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/codelist/codelist/internal/domain/codelist"
)

func (l *Loader) readJSON(r io.Reader) ([]codelist.Entry, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return l.objectEntries(doc, "JSON", "json")
}

func (l *Loader) readYAML(r io.Reader) ([]codelist.Entry, error) {
	var doc interface{}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return l.objectEntries(doc, "YAML", "yaml")
}

// objectEntries reads an array of objects keyed by the configured column
// names. Codes may be strings or numbers; terms and comments must be
// strings.
func (l *Loader) objectEntries(doc interface{}, label, kind string) ([]codelist.Entry, error) {
	items, ok := doc.([]interface{})
	if !ok {
		return nil, codelist.Errorf(codelist.ErrConstruction, "%s must be an array of objects", label)
	}
	entries := make([]codelist.Entry, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, codelist.Errorf(codelist.ErrConstruction, "%s must be an array of objects", label)
		}

		rawCode, ok := obj[l.cols.Code]
		if !ok {
			return nil, codelist.Errorf(codelist.ErrConstruction,
				"No %s field found in %s file at index: %d", l.cols.Code, kind, i)
		}
		code, ok := scalarString(rawCode)
		if !ok {
			return nil, codelist.Errorf(codelist.ErrConstruction,
				"Code at index %d must be a string or number", i)
		}
		code = strings.TrimSpace(code)
		if code == "" {
			return nil, codelist.Errorf(codelist.ErrConstruction, "Empty code at index: %d", i)
		}

		rawTerm, ok := obj[l.cols.Term]
		if !ok {
			return nil, codelist.Errorf(codelist.ErrConstruction,
				"No %s field found in %s file at index: %d", l.cols.Term, kind, i)
		}
		term, ok := rawTerm.(string)
		if !ok {
			return nil, codelist.Errorf(codelist.ErrConstruction, "Term at index %d must be a string", i)
		}

		var comment string
		if raw, ok := obj[l.cols.Comment]; ok && raw != nil {
			if comment, ok = raw.(string); !ok {
				return nil, codelist.Errorf(codelist.ErrConstruction, "Comment at index %d must be a string", i)
			}
		}

		entries = append(entries, codelist.Entry{
			Code:    code,
			Term:    strings.TrimSpace(term),
			Comment: strings.TrimSpace(comment),
		})
	}
	return entries, nil
}

func scalarString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	}
	return "", false
}

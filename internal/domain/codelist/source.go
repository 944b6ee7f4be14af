package codelist

import "strings"

// Source records where a codelist came from.
type Source string

const (
	SourceManual Source = "MANUAL"
	SourceFile   Source = "FILE"
	SourceMapped Source = "MAPPED"
)

var sourceLabels = map[Source]string{
	SourceManual: "Manually created",
	SourceFile:   "Loaded from file",
	SourceMapped: "Mapped from another codelist",
}

// ParseSource accepts either the short token (MANUAL) or the long label
// ("Manually created"), ignoring case.
func ParseSource(s string) (Source, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for src, label := range sourceLabels {
		if norm == strings.ToLower(string(src)) || norm == strings.ToLower(label) {
			return src, nil
		}
	}
	return "", newError(ErrConstruction, "Invalid source: %s", s)
}

// Label returns the human readable description of the source.
func (s Source) Label() string {
	return sourceLabels[s]
}

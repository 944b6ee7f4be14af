package codelist

import "strings"

// CodingSystem is the classification scheme a codelist draws its codes from.
type CodingSystem int

const (
	ICD10 CodingSystem = iota + 1
	SNOMED
	OPCS
	CTV3
)

// System URIs for FHIR rendering.
const (
	SystemICD10  = "http://hl7.org/fhir/sid/icd-10"
	SystemSNOMED = "http://snomed.info/sct"
	SystemOPCS   = "http://fhir.nhs.uk/CodeSystem/OPCS-4"
	SystemCTV3   = "http://read.info/ctv3"
)

var codingSystemNames = map[CodingSystem]string{
	ICD10:  "ICD10",
	SNOMED: "SNOMED",
	OPCS:   "OPCS",
	CTV3:   "CTV3",
}

// ParseCodingSystem resolves a coding system name. Matching is
// case-insensitive and accepts the aliases ICD and SNOMEDCT.
func ParseCodingSystem(s string) (CodingSystem, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ICD10", "ICD":
		return ICD10, nil
	case "SNOMED", "SNOMEDCT":
		return SNOMED, nil
	case "OPCS":
		return OPCS, nil
	case "CTV3":
		return CTV3, nil
	}
	return 0, newError(ErrConstruction, "Invalid codelist type: %s", s)
}

func (c CodingSystem) String() string {
	if name, ok := codingSystemNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// URI returns the canonical FHIR system URI.
func (c CodingSystem) URI() string {
	switch c {
	case ICD10:
		return SystemICD10
	case SNOMED:
		return SystemSNOMED
	case OPCS:
		return SystemOPCS
	case CTV3:
		return SystemCTV3
	}
	return ""
}

// Truncatable reports whether codes can be collapsed to their 3-character
// category. Only ICD10 supports this today.
func (c CodingSystem) Truncatable() bool { return c == ICD10 }

// XAddable reports whether X-suffixed variants can be generated.
func (c CodingSystem) XAddable() bool { return c == ICD10 }

// MarshalText renders the coding system name, so JSON and YAML carry "ICD10"
// rather than an integer.
func (c CodingSystem) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *CodingSystem) UnmarshalText(b []byte) error {
	parsed, err := ParseCodingSystem(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// TermManagement controls which term survives when truncation merges entries.
type TermManagement string

const (
	// TermFirst keeps the term of the first original entry mapped to a category.
	TermFirst TermManagement = "first"
)

// ParseTermManagement validates a term management mode.
func ParseTermManagement(s string) (TermManagement, error) {
	switch TermManagement(s) {
	case TermFirst:
		return TermFirst, nil
	}
	return "", newError(ErrUnsupported, "%s is not known. Valid values are 'first'", s)
}

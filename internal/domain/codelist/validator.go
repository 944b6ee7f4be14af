package codelist

import (
	"fmt"
	"regexp"
)

const (
	snomedMinLength = 6
	snomedMaxLength = 18
	ctv3Length      = 5
)

var (
	icd10Pattern = regexp.MustCompile(`^[A-Z][0-9]{2}(\.[0-9]{1,2})?$`)
	opcsPattern  = regexp.MustCompile(`^[A-Z][0-9]{2}(\.?[0-9]{1,2})?$`)
	ctv3Pattern  = regexp.MustCompile(`^(?:[a-zA-Z0-9]{5}|[a-zA-Z0-9]{4}\.|[a-zA-Z0-9]{3}\.\.|[a-zA-Z0-9]{2}\.\.\.|[a-zA-Z0-9]\.\.\.\.|\.{5})$`)
)

// ValidateCodes checks every code against the structural rules of the
// codelist's coding system. The first invalid code stops the walk and is
// returned as a validation error; on success the codelist is marked
// validated.
func (cl *CodeList) ValidateCodes() error {
	for _, code := range cl.entries.order {
		if err := ValidateCode(cl.system, code); err != nil {
			cl.validated = false
			return err
		}
	}
	cl.validated = true
	return nil
}

// ValidateCodesWithPattern validates every code against a caller-supplied
// regular expression instead of the coding system rules.
func (cl *CodeList) ValidateCodesWithPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		cl.validated = false
		return newError(ErrValidation, "Invalid custom regex pattern: %v", err)
	}
	for _, code := range cl.entries.order {
		if !re.MatchString(code) {
			cl.validated = false
			return newError(ErrValidation, "Custom validation failed. Reason: Code %s does not match the pattern %s", code, pattern)
		}
	}
	cl.validated = true
	return nil
}

// ValidateCode checks a single code against the rules for system.
func ValidateCode(system CodingSystem, code string) error {
	switch system {
	case ICD10:
		if !icd10Pattern.MatchString(code) {
			return invalidLength(code, system,
				"ICD10 codes are a letter and two digits, optionally followed by a decimal point and one or two further digits")
		}
	case SNOMED:
		if !isDigits(code) {
			return newError(ErrValidation,
				"Code %s is not composed of all numerical characters for type %s. Reason: SNOMED codes contain digits only", code, system)
		}
		if n := len(code); n < snomedMinLength || n > snomedMaxLength {
			return invalidLength(code, system,
				"Code is %d digits long; must be between %d and %d digits in length", n, snomedMinLength, snomedMaxLength)
		}
	case OPCS:
		if n := len(code); n < 3 || n > 5 {
			return invalidLength(code, system, "Code is %d characters long; must be between 3 and 5 characters in length", n)
		}
		if !opcsPattern.MatchString(code) {
			return invalidContents(code, system, "Code does not match the expected format")
		}
	case CTV3:
		if n := len(code); n != ctv3Length {
			return invalidLength(code, system, "Code is %d characters long; must be exactly %d characters in length", n, ctv3Length)
		}
		if !ctv3Pattern.MatchString(code) {
			return invalidContents(code, system, "Code does not match the expected format")
		}
	default:
		return newError(ErrUnsupported, "CodeType %s is not supported", system)
	}
	return nil
}

func invalidLength(code string, system CodingSystem, reason string, args ...interface{}) *Error {
	return newError(ErrValidation, "Code %s is an invalid length for type %s. Reason: %s",
		code, system, fmt.Sprintf(reason, args...))
}

func invalidContents(code string, system CodingSystem, reason string) *Error {
	return newError(ErrValidation, "Code %s contents is invalid for type %s. Reason: %s", code, system, reason)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

package codelist

// TruncateTo3Digits collapses every ICD10 code to its 3-character category.
// Entries that land on the same category are merged; with TermFirst the
// term and comment of the first original entry are kept. The merged entry
// takes the position of the first original. Non-ICD10 codelists are
// rejected before anything is changed.
func (cl *CodeList) TruncateTo3Digits(mode TermManagement) error {
	if !cl.system.Truncatable() {
		return newError(ErrUnsupported, "%s cannot be truncated to 3 digits.", cl.system)
	}
	if _, err := ParseTermManagement(string(mode)); err != nil {
		return err
	}

	merged := make([]Entry, 0, cl.entries.len())
	seen := make(map[string]bool, cl.entries.len())
	for _, e := range cl.entries.list() {
		e.Code = truncateCode(e.Code)
		if seen[e.Code] {
			continue
		}
		seen[e.Code] = true
		merged = append(merged, e)
	}
	cl.entries.replace(merged)
	cl.entryChanged(LogEdit, "code", "", "truncated codes to 3 digits")
	return nil
}

// truncateCode keeps the first three characters, counted in runes so a
// malformed non-ASCII code still yields valid UTF-8.
func truncateCode(code string) string {
	r := []rune(code)
	if len(r) <= 3 {
		return code
	}
	return string(r[:3])
}

// AddXCodes adds, for every ICD10 entry, a sibling whose code has "X"
// appended and which carries the same term and comment. Originals are kept.
func (cl *CodeList) AddXCodes() error {
	if !cl.system.XAddable() {
		return newError(ErrUnsupported, "%s cannot be transformed by having X added to the end of it", cl.system)
	}

	var out []Entry
	existing := make(map[string]bool, cl.entries.len())
	for _, code := range cl.entries.order {
		existing[code] = true
	}
	for _, e := range cl.entries.list() {
		out = append(out, e)
		x := e
		x.Code = e.Code + "X"
		if existing[x.Code] {
			continue
		}
		existing[x.Code] = true
		out = append(out, x)
	}
	cl.entries.replace(out)
	cl.entryChanged(LogAdd, "code", "", "added X codes")
	return nil
}

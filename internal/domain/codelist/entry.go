package codelist

import "strings"

// Entry is a single code with its optional term and comment. An empty Term
// or Comment means the annotation is absent.
type Entry struct {
	Code    string `json:"code" yaml:"code" validate:"required"`
	Term    string `json:"term,omitempty" yaml:"term,omitempty"`
	Comment string `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// entryStore keeps entries unique by code and remembers insertion order.
type entryStore struct {
	order []string
	byKey map[string]*Entry
}

func newEntryStore() *entryStore {
	return &entryStore{byKey: make(map[string]*Entry)}
}

func (s *entryStore) len() int { return len(s.order) }

func (s *entryStore) get(code string) (*Entry, bool) {
	e, ok := s.byKey[code]
	return e, ok
}

// insert adds a new entry and reports whether it was stored. Existing codes
// are left untouched.
func (s *entryStore) insert(e Entry) bool {
	if _, ok := s.byKey[e.Code]; ok {
		return false
	}
	cp := e
	s.byKey[e.Code] = &cp
	s.order = append(s.order, e.Code)
	return true
}

func (s *entryStore) remove(code string) bool {
	if _, ok := s.byKey[code]; !ok {
		return false
	}
	delete(s.byKey, code)
	for i, c := range s.order {
		if c == code {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *entryStore) list() []Entry {
	out := make([]Entry, 0, len(s.order))
	for _, code := range s.order {
		out = append(out, *s.byKey[code])
	}
	return out
}

// replace swaps the whole entry set for the given ordered entries. Callers
// guarantee codes are unique.
func (s *entryStore) replace(entries []Entry) {
	s.order = make([]string, 0, len(entries))
	s.byKey = make(map[string]*Entry, len(entries))
	for _, e := range entries {
		s.insert(e)
	}
}

// -- CodeList entry operations --

// AddEntry inserts a new entry keyed by code. Re-adding an existing code with
// the same annotations (or with none) is a no-op. Re-adding it with a
// different term or comment is a conflict unless duplicates are allowed, in
// which case it is silently ignored. The stored entry is never overwritten.
func (cl *CodeList) AddEntry(code, term, comment string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return newError(ErrConstruction, "Empty code supplied")
	}
	if existing, ok := cl.entries.get(code); ok {
		if sameOrEmpty(existing.Term, term) && sameOrEmpty(existing.Comment, comment) {
			return nil
		}
		if cl.options.AllowDuplicates {
			return nil
		}
		return newError(ErrConflict,
			"Entry with code %s already exists with a different term or comment. Please use update term or update comment instead.", code)
	}
	cl.entries.insert(Entry{Code: code, Term: term, Comment: comment})
	cl.entryChanged(LogAdd, "code", code, "added entry")
	return nil
}

func sameOrEmpty(stored, incoming string) bool {
	return incoming == "" || incoming == stored
}

// lookup finds the entry for code, trimmed the same way AddEntry trims it.
func (cl *CodeList) lookup(code string) (*Entry, string, error) {
	code = strings.TrimSpace(code)
	e, ok := cl.entries.get(code)
	if !ok {
		return nil, code, entryNotFound(code)
	}
	return e, code, nil
}

func requireValue(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return newError(ErrConstruction, "Empty %s supplied", field)
	}
	return nil
}

// RemoveEntry deletes the entry for code.
func (cl *CodeList) RemoveEntry(code string) error {
	code = strings.TrimSpace(code)
	if !cl.entries.remove(code) {
		return entryNotFound(code)
	}
	cl.entryChanged(LogRemove, "code", code, "removed entry")
	return nil
}

// Entries returns a copy of all entries in insertion order.
func (cl *CodeList) Entries() []Entry {
	return cl.entries.list()
}

// Entry looks up a single entry.
func (cl *CodeList) Entry(code string) (Entry, bool) {
	e, ok := cl.entries.get(strings.TrimSpace(code))
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of entries.
func (cl *CodeList) Len() int { return cl.entries.len() }

// Codes returns the codes in insertion order.
func (cl *CodeList) Codes() []string {
	return append([]string(nil), cl.entries.order...)
}

// -- Term --

func (cl *CodeList) AddTerm(code, term string) error {
	if err := requireValue(term, "term"); err != nil {
		return err
	}
	e, code, err := cl.lookup(code)
	if err != nil {
		return err
	}
	if e.Term != "" {
		return newError(ErrConflict, "Term for entry with code %s already exists. Please use update term instead.", code)
	}
	e.Term = term
	cl.entryChanged(LogAdd, "term", code, "added term")
	return nil
}

func (cl *CodeList) UpdateTerm(code, term string) error {
	if err := requireValue(term, "term"); err != nil {
		return err
	}
	e, code, err := cl.lookup(code)
	if err != nil {
		return err
	}
	if e.Term == "" {
		return newError(ErrNotFound, "Term for entry with code %s does not exist. Please use add term instead.", code)
	}
	e.Term = term
	cl.entryChanged(LogEdit, "term", code, "updated term")
	return nil
}

// RemoveTerm clears the term; the entry and its comment remain.
func (cl *CodeList) RemoveTerm(code string) error {
	e, code, err := cl.lookup(code)
	if err != nil {
		return err
	}
	if e.Term == "" {
		return newError(ErrNotFound, "Term for entry with code %s does not exist. Unable to remove term.", code)
	}
	e.Term = ""
	cl.entryChanged(LogRemove, "term", code, "removed term")
	return nil
}

// -- Comment --

func (cl *CodeList) AddComment(code, comment string) error {
	if err := requireValue(comment, "comment"); err != nil {
		return err
	}
	e, code, err := cl.lookup(code)
	if err != nil {
		return err
	}
	if e.Comment != "" {
		return newError(ErrConflict, "Comment for entry with code %s already exists. Please use update comment instead.", code)
	}
	e.Comment = comment
	cl.entryChanged(LogAdd, "comment", code, "added comment")
	return nil
}

func (cl *CodeList) UpdateComment(code, comment string) error {
	if err := requireValue(comment, "comment"); err != nil {
		return err
	}
	e, code, err := cl.lookup(code)
	if err != nil {
		return err
	}
	if e.Comment == "" {
		return newError(ErrNotFound, "Comment for entry with code %s does not exist. Please use add comment instead.", code)
	}
	e.Comment = comment
	cl.entryChanged(LogEdit, "comment", code, "updated comment")
	return nil
}

func (cl *CodeList) RemoveComment(code string) error {
	e, code, err := cl.lookup(code)
	if err != nil {
		return err
	}
	if e.Comment == "" {
		return newError(ErrNotFound, "Comment for entry with code %s does not exist. Unable to remove comment.", code)
	}
	e.Comment = ""
	cl.entryChanged(LogRemove, "comment", code, "removed comment")
	return nil
}

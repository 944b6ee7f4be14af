package codelist

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CodeList is a named collection of codes from one coding system together
// with its descriptive metadata. A CodeList is owned by a single caller and
// is not safe for concurrent use.
type CodeList struct {
	id        uuid.UUID
	name      string
	system    CodingSystem
	metadata  Metadata
	options   Options
	entries   *entryStore
	validated bool
	logs      []LogEntry
	now       func() time.Time
}

// Options tune entry handling.
type Options struct {
	// AllowDuplicates makes AddEntry ignore a re-added code with different
	// annotations instead of reporting a conflict.
	AllowDuplicates bool `json:"allow_duplicates"`
}

// Option configures a CodeList at construction.
type Option func(*CodeList)

func WithDescription(d string) Option {
	return func(cl *CodeList) { cl.metadata.Provenance.Description = d }
}

func WithAuthors(authors ...string) Option {
	return func(cl *CodeList) {
		for _, a := range authors {
			if !containsString(cl.metadata.CategorisationAndUsage.Authors, a) {
				cl.metadata.CategorisationAndUsage.Authors = append(cl.metadata.CategorisationAndUsage.Authors, a)
			}
		}
	}
}

func WithContributors(names ...string) Option {
	return func(cl *CodeList) {
		for _, n := range names {
			if !containsString(cl.metadata.Provenance.Contributors, n) {
				cl.metadata.Provenance.Contributors = append(cl.metadata.Provenance.Contributors, n)
			}
		}
	}
}

func WithTags(tags ...string) Option {
	return func(cl *CodeList) {
		for _, t := range tags {
			cl.metadata.CategorisationAndUsage.Tags.Add(t)
		}
	}
}

func WithUsage(usage ...string) Option {
	return func(cl *CodeList) {
		for _, u := range usage {
			cl.metadata.CategorisationAndUsage.Usage.Add(u)
		}
	}
}

func WithKeywords(keywords ...string) Option {
	return func(cl *CodeList) {
		for _, k := range keywords {
			cl.metadata.CategorisationAndUsage.Keywords.Add(k)
		}
	}
}

func WithLicense(l string) Option {
	return func(cl *CodeList) { cl.metadata.CategorisationAndUsage.License = l }
}

func WithVersion(v string) Option {
	return func(cl *CodeList) { cl.metadata.PurposeAndContext.Version = v }
}

func WithPurpose(p string) Option {
	return func(cl *CodeList) { cl.metadata.PurposeAndContext.Purpose = p }
}

func WithAudience(a string) Option {
	return func(cl *CodeList) { cl.metadata.PurposeAndContext.Audience = a }
}

func WithUseContext(u string) Option {
	return func(cl *CodeList) { cl.metadata.PurposeAndContext.UseContext = u }
}

func WithAllowDuplicates(allow bool) Option {
	return func(cl *CodeList) { cl.options.AllowDuplicates = allow }
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(cl *CodeList) { cl.now = now }
}

// New constructs an empty CodeList. codelistType and source are parsed
// eagerly; an unknown value fails construction.
func New(name, codelistType, source string, opts ...Option) (*CodeList, error) {
	system, err := ParseCodingSystem(codelistType)
	if err != nil {
		return nil, err
	}
	src, err := ParseSource(source)
	if err != nil {
		return nil, err
	}

	cl := &CodeList{
		id:       uuid.New(),
		name:     name,
		system:   system,
		metadata: newMetadata(src, time.Time{}),
		entries:  newEntryStore(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(cl)
	}
	created := cl.now().UTC()
	cl.metadata.Provenance.CreatedDate = created
	cl.metadata.Provenance.LastModifiedDate = created
	return cl, nil
}

func (cl *CodeList) ID() uuid.UUID      { return cl.id }
func (cl *CodeList) Name() string       { return cl.name }
func (cl *CodeList) Type() CodingSystem { return cl.system }
func (cl *CodeList) Options() Options   { return cl.options }

// Metadata returns a deep copy of the metadata.
func (cl *CodeList) Metadata() Metadata { return cl.metadata.clone() }

// IsValidated is true only between a successful ValidateCodes and the next
// entry mutation.
func (cl *CodeList) IsValidated() bool { return cl.validated }

func (cl *CodeList) touch() {
	cl.metadata.Provenance.LastModifiedDate = cl.now().UTC()
}

// entryChanged is called after every mutation of the entry set or of an
// entry's annotations. Any such change invalidates a previous validation.
func (cl *CodeList) entryChanged(t LogType, target, code, msg string) {
	cl.validated = false
	cl.touch()
	cl.record(t, target, code, msg)
}

func (cl *CodeList) metadataChanged(t LogType, target string) {
	cl.touch()
	cl.record(t, target, "", string(t)+" "+target)
}

type codeListJSON struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	CodelistType CodingSystem `json:"codelist_type"`
	Validated    bool         `json:"validated"`
	Options      Options      `json:"options"`
	Metadata     Metadata     `json:"metadata"`
	Entries      []Entry      `json:"entries"`
}

// MarshalJSON renders the codelist for API responses.
func (cl *CodeList) MarshalJSON() ([]byte, error) {
	return json.Marshal(codeListJSON{
		ID:           cl.id,
		Name:         cl.name,
		CodelistType: cl.system,
		Validated:    cl.validated,
		Options:      cl.options,
		Metadata:     cl.metadata,
		Entries:      cl.Entries(),
	})
}

// Clone returns an independent deep copy sharing the same ID.
func (cl *CodeList) Clone() *CodeList {
	out := &CodeList{
		id:        cl.id,
		name:      cl.name,
		system:    cl.system,
		metadata:  cl.metadata.clone(),
		options:   cl.options,
		entries:   newEntryStore(),
		validated: cl.validated,
		logs:      cl.Logs(),
		now:       cl.now,
	}
	out.entries.replace(cl.entries.list())
	return out
}
